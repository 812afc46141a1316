package aerospike

import (
	"context"
	"io"
	"sync"
	"time"

	"asdelete/internal/core/epoch"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/services/sweep/domain"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// resultStream is the part of *aero.Recordset the reader needs
type resultStream interface {
	Results() <-chan *aero.Result
	Close() aero.Error
}

// scanFunc starts a scan; *aero.Client.ScanAll wrapped
type scanFunc func(p *aero.ScanPolicy, ns, set string, bins ...string) (resultStream, error)

// Scanner runs full namespace scans
type Scanner struct {
	scan scanFunc
	now  func() time.Time
}

var _ domain.Scanner = (*Scanner)(nil)

// NewScanner builds a Scanner over c
func NewScanner(c *aero.Client) *Scanner {
	return &Scanner{
		scan: func(p *aero.ScanPolicy, ns, set string, bins ...string) (resultStream, error) {
			rs, err := c.ScanAll(p, ns, set, bins...)
			if err != nil {
				return nil, err
			}
			return rs, nil
		},
		now: time.Now,
	}
}

// ScanPolicy builds the policy for req
func ScanPolicy(req domain.ScanRequest) *aero.ScanPolicy {
	p := aero.NewScanPolicy()
	p.IncludeBinData = req.IncludeBins
	if req.RecordsPerSecond > 0 {
		p.RecordsPerSecond = req.RecordsPerSecond
	}
	return p
}

// Scan starts a scan of req.Namespace; an empty set scans every set
func (s *Scanner) Scan(ctx context.Context, req domain.ScanRequest) (domain.RecordReader, error) {
	if req.Namespace == "" {
		return nil, perr.InvalidArgf("namespace is required")
	}
	rs, err := s.scan(ScanPolicy(req), req.Namespace, req.Set)
	if err != nil {
		return nil, perr.FromAerospikef(err, perr.ErrorCodeScan, "scan %s", req.Namespace)
	}
	return newReader(ctx, rs, s.now), nil
}

// Reader pulls records off a running scan
// Next may be called from several goroutines
type Reader struct {
	ctx     context.Context
	rs      resultStream
	results <-chan *aero.Result
	now     func() time.Time

	once     sync.Once
	closeErr error
}

func newReader(ctx context.Context, rs resultStream, now func() time.Time) *Reader {
	return &Reader{ctx: ctx, rs: rs, results: rs.Results(), now: now}
}

// Next returns the next record, io.EOF when the scan is complete
func (r *Reader) Next() (domain.Record, error) {
	select {
	case <-r.ctx.Done():
		return domain.Record{}, r.ctx.Err()
	case res, ok := <-r.results:
		if !ok {
			return domain.Record{}, io.EOF
		}
		if res.Err != nil {
			return domain.Record{}, perr.FromAerospike(res.Err, perr.ErrorCodeScan, "scan")
		}
		if res.Record == nil {
			return domain.Record{}, perr.Scanf("scan returned an empty result")
		}
		return toRecord(res.Record, r.now()), nil
	}
}

// Close stops the scan; safe to call more than once
func (r *Reader) Close() error {
	r.once.Do(func() {
		if err := r.rs.Close(); err != nil {
			r.closeErr = perr.FromAerospike(err, perr.ErrorCodeScan, "close scan")
		}
	})
	return r.closeErr
}

func toRecord(rec *aero.Record, now time.Time) domain.Record {
	out := domain.Record{
		Expiration: epoch.FromTTL(rec.Expiration, now),
		Bins:       map[string]any(rec.Bins),
		Handle:     rec.Key,
	}
	if k := rec.Key; k != nil {
		out.Namespace = k.Namespace()
		out.SetName = k.SetName()
		out.Digest = k.Digest()
		if v := k.Value(); v != nil {
			out.UserKey = v.GetObject()
		}
	}
	return out
}
