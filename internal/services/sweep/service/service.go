// Package service implements the sweep: scan a namespace, classify each record
// and remove the ones that are about to expire
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"asdelete/internal/core/epoch"
	"asdelete/internal/core/policy"
	"asdelete/internal/core/setfilter"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/metrics"
	"asdelete/internal/services/sweep/domain"
	"asdelete/internal/services/sweep/guardrails"

	"github.com/google/uuid"
)

// Config holds the run definition plus the knobs that only shape execution
type Config struct {
	Sweep domain.Config

	// ActionRetries is the number of extra attempts for a retryable store error; 0 disables
	ActionRetries int
	RetryBase     time.Duration

	// LedgerTimeout caps each ledger and audit write
	LedgerTimeout time.Duration
}

// Service drives one sweep at a time
type Service struct {
	Scanner domain.Scanner
	Deleter domain.Deleter
	Cfg     Config

	ledger  domain.RunLedger
	audit   domain.AuditWriter
	sink    domain.ProgressSink
	metrics *metrics.SweepMetrics
	pacer   *guardrails.Pacer
	lease   guardrails.Lease
	out     io.Writer
	now     func() time.Time

	mu      sync.Mutex
	running bool
	cur     *run
}

// Option customizes a Service
type Option func(*Service)

// WithLedger records run start and finish in l
func WithLedger(l domain.RunLedger) Option { return func(s *Service) { s.ledger = l } }

// WithAudit appends every attempted mutation to a
func WithAudit(a domain.AuditWriter) Option { return func(s *Service) { s.audit = a } }

// WithProgress sends progress reports to p
func WithProgress(p domain.ProgressSink) Option { return func(s *Service) { s.sink = p } }

// WithMetrics records counters and latencies in m
func WithMetrics(m *metrics.SweepMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithPacer throttles deletions; nil means unthrottled
func WithPacer(p *guardrails.Pacer) Option { return func(s *Service) { s.pacer = p } }

// WithLease holds a namespace lease for the duration of each run
func WithLease(l guardrails.Lease) Option { return func(s *Service) { s.lease = l } }

// WithOutput prints the config echo and the final summary line to w
func WithOutput(w io.Writer) Option { return func(s *Service) { s.out = w } }

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New constructs the sweep service
func New(sc domain.Scanner, d domain.Deleter, cfg Config, opts ...Option) *Service {
	if sc == nil {
		panic("sweep.Service requires a non nil Scanner")
	}
	if d == nil {
		panic("sweep.Service requires a non nil Deleter")
	}
	if cfg.Sweep.Workers <= 0 {
		cfg.Sweep.Workers = 1
	}
	if cfg.Sweep.ProgressEvery <= 0 {
		cfg.Sweep.ProgressEvery = domain.DefaultProgressEvery
	}
	s := &Service{Scanner: sc, Deleter: d, Cfg: cfg, out: io.Discard, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run is the mutable state of one sweep; every field is guarded by mu
type run struct {
	mu       sync.Mutex
	sum      domain.Summary
	reserved int64
	window   rateWindow
}

// Status implements domain.RunnerPort; it reports the current or last run
func (s *Service) Status() domain.Summary {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return domain.Summary{
			Namespace: s.Cfg.Sweep.Namespace,
			Sets:      s.Cfg.Sweep.Sets,
			Strategy:  s.Cfg.Sweep.Strategy,
			State:     domain.StateIdle,
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sum
	if out.State == domain.StateScanning {
		out.Elapsed = s.now().Sub(out.StartedAt)
	}
	return out
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context) (domain.Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return s.Status(), perr.Unavailablef("a sweep of %s is already running", s.Cfg.Sweep.Namespace)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runID := uuid.New()
	if s.lease == nil {
		return s.run(ctx, runID)
	}

	var sum domain.Summary
	err := s.lease(ctx, s.Cfg.Sweep.Namespace, runID, func(c context.Context) error {
		var e error
		sum, e = s.run(c, runID)
		return e
	})
	switch {
	case errors.Is(err, guardrails.ErrLeaseHeld):
		sum = s.Status()
		return sum, perr.Wrapf(err, perr.ErrorCodeUnavailable, "namespace %s is leased by another sweep", s.Cfg.Sweep.Namespace)
	case err != nil && sum.RunID == uuid.Nil:
		return sum, perr.WrapIf(err, perr.ErrorCodeDB, "sweep lease")
	}
	return sum, err
}

func (s *Service) run(ctx context.Context, runID uuid.UUID) (domain.Summary, error) {
	cfg := s.Cfg.Sweep
	started := s.now()
	ctx = logger.WithRun(ctx, runID.String(), cfg.Namespace)
	log := logger.C(ctx)

	var fopts []setfilter.Option
	if cfg.FoldSetCase {
		fopts = append(fopts, setfilter.WithFold())
	}
	filter := setfilter.Compile(cfg.Sets, fopts...)
	for _, bad := range filter.Invalid() {
		log.Warn().Str("pattern", bad).Msg("set pattern is not a valid regular expression; matching by name only")
	}

	pol := policy.Policy{
		Threshold:      epoch.Threshold(started, cfg.Days),
		Range:          policy.Range{Start: cfg.RangeStart, End: cfg.RangeEnd},
		Limit:          cfg.Limit,
		Filter:         filter,
		KeepPersistent: cfg.KeepPersistent,
	}

	strat, err := NewStrategy(cfg.Strategy, s.Deleter)
	if err != nil {
		return domain.Summary{RunID: runID, State: domain.StateFailed, Error: err.Error()}, err
	}
	if strat.Name() == domain.StrategyRewrite && !cfg.IncludeBins && !cfg.CountOnly() {
		log.Warn().Msg("rewrite strategy without bin data; every candidate will be deleted explicitly")
	}

	r := &run{sum: domain.Summary{
		RunID:     runID,
		Namespace: cfg.Namespace,
		Sets:      cfg.Sets,
		Strategy:  strat.Name(),
		Threshold: pol.Threshold,
		State:     domain.StateScanning,
		StartedAt: started,
	}}
	r.window.reset(0, started)
	s.mu.Lock()
	s.cur = r
	s.mu.Unlock()
	s.metrics.RecordState(domain.StateScanning.Gauge())

	_, _ = fmt.Fprintf(s.out, "Host: %s, Port: %d, Namespace: %s, Sets: %s, Days: %d, Limit: %d, RangeStart: %d, RangeEnd: %d\n",
		cfg.Host, cfg.Port, cfg.Namespace, cfg.Sets, cfg.Days, cfg.Limit, cfg.RangeStart, cfg.RangeEnd)
	_, _ = fmt.Fprintf(s.out, "Date: %s\n", started.UTC().AddDate(0, 0, cfg.Days).Format(time.RFC3339))
	log.Info().
		Str("sets", cfg.Sets).
		Int("days", cfg.Days).
		Int64("limit", cfg.Limit).
		Int64("threshold", pol.Threshold).
		Int64("range_start", cfg.RangeStart).
		Int64("range_end", cfg.RangeEnd).
		Str("strategy", string(strat.Name())).
		Int("workers", cfg.Workers).
		Msg("sweep starting")

	s.startLedger(ctx, r)

	runErr := s.scan(ctx, r, strat, pol)

	r.mu.Lock()
	r.sum.Elapsed = s.now().Sub(started)
	if runErr != nil {
		r.sum.State = domain.StateFailed
		r.sum.Error = runErr.Error()
	} else {
		r.sum.State = domain.StateDone
	}
	sum := r.sum
	r.mu.Unlock()
	s.metrics.RecordState(sum.State.Gauge())

	s.finishLedger(ctx, sum)

	_, _ = fmt.Fprintf(s.out, "Deleted %d records from set %s. Rewrites: %d\n", sum.Counters.Deleted, cfg.Sets, sum.Counters.Rewrites)
	ev := log.Info()
	if runErr != nil {
		ev = log.Error().Err(runErr)
	}
	ev.Str("state", string(sum.State)).
		Int64("observed", sum.Counters.Observed).
		Int64("candidates", sum.Counters.Candidates).
		Int64("deleted", sum.Counters.Deleted).
		Int64("rewrites", sum.Counters.Rewrites).
		Int64("failures", sum.Counters.Failures).
		Int64("skipped", sum.Counters.Skipped).
		Dur("elapsed", sum.Elapsed).
		Msg("sweep finished")
	return sum, runErr
}

// scan pulls records with Workers goroutines until the reader ends, fails or ctx is canceled
func (s *Service) scan(ctx context.Context, r *run, strat Strategy, pol policy.Policy) error {
	cfg := s.Cfg.Sweep
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader, err := s.Scanner.Scan(wctx, domain.ScanRequest{
		Namespace:        cfg.Namespace,
		IncludeBins:      cfg.IncludeBins,
		RecordsPerSecond: cfg.ScanRecordsPerSecond,
	})
	if err != nil {
		return keepCode(err, perr.ErrorCodeScan, "start scan")
	}

	var (
		wg      sync.WaitGroup
		once    sync.Once
		scanErr error
	)
	sem := make(chan struct{}, cfg.Workers)
	worker := func() {
		defer func() { <-sem; wg.Done() }()
		for wctx.Err() == nil {
			rec, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				once.Do(func() { scanErr = err; cancel() })
				return
			}
			s.handle(wctx, r, strat, pol, rec)
		}
	}
	for i := 0; i < cfg.Workers; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go worker()
	}
	wg.Wait()
	if err := reader.Close(); err != nil {
		logger.C(ctx).Debug().Err(err).Msg("sweep: closing scan")
	}

	if ctx.Err() != nil {
		return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "sweep canceled")
	}
	if scanErr != nil {
		return keepCode(scanErr, perr.ErrorCodeScan, "scan aborted")
	}
	return nil
}

// keepCode wraps foreign errors with code and leaves classified ones alone
func keepCode(err error, code perr.ErrorCode, msg string) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrap(err, code, msg)
}

// handle classifies one record and applies the strategy when the policy says so
// a failure on one record is counted and logged, never returned
func (s *Service) handle(ctx context.Context, r *run, strat Strategy, pol policy.Policy, rec domain.Record) {
	d := r.observe(pol, rec)
	s.metrics.RecordObserved()
	switch {
	case d.Skipped:
		s.metrics.RecordSkipped()
		return
	case d.Candidate:
		s.metrics.RecordCandidate()
	}
	if !d.Act {
		return
	}

	if err := s.pacer.Wait(ctx); err != nil {
		r.release()
		return
	}

	actx, cancel := guardrails.ForAction(ctx, guardrails.Timeouts{Action: s.Cfg.Sweep.ActionTimeout})
	start := time.Now()
	var rewrote bool
	err := guardrails.Retry(actx, s.Cfg.ActionRetries, s.Cfg.RetryBase, func(c context.Context) error {
		var e error
		rewrote, e = strat.Apply(c, rec)
		return e
	})
	cancel()
	secs := time.Since(start).Seconds()

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		// already gone; the goal is met
		outcome = metrics.OutcomeNotFound
		rewrote = false
		err = nil
	default:
		outcome = metrics.OutcomeFailed
	}
	used := domain.StrategyExplicit
	if rewrote {
		used = domain.StrategyRewrite
	}
	s.metrics.RecordAction(string(used), outcome, secs)
	s.appendAudit(ctx, r.sum.RunID, rec, used, rewrote, outcome, err)

	log := logger.C(ctx)
	if err != nil {
		r.fail()
		log.Warn().Err(err).
			Str("set", rec.SetName).
			Hex("digest", rec.Digest).
			Str("result_code", perr.ResultString(err)).
			Msg("sweep: record action failed")
		return
	}

	if s.Cfg.Sweep.Verbose {
		log.Info().
			Time("expiration", epoch.ToUTC(float64(rec.Expiration))).
			Str("strategy", string(used)).
			Str("set", rec.SetName).
			Msg("record removed")
	}
	r.commit(rewrote, s.Cfg.Sweep.ProgressEvery, s.now(), s.reportProgress)
}

func (s *Service) reportProgress(p domain.Progress) {
	s.metrics.RecordRate(p.Rate)
	if s.sink != nil {
		s.sink.Progress(p)
	}
}

// observe tallies rec and reserves a deletion slot when the policy allows one
// in flight deletions count against the limit so concurrent workers never overshoot it
func (r *run) observe(pol policy.Policy, rec domain.Record) policy.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sum.Counters.Observed++
	d := pol.Evaluate(rec.SetName, rec.Expiration, r.sum.Counters.Deleted+r.reserved)
	switch {
	case d.Skipped:
		r.sum.Counters.Skipped++
	case d.Candidate:
		r.sum.Counters.Candidates++
	}
	if d.Act {
		r.reserved++
	}
	return d
}

func (r *run) release() {
	r.mu.Lock()
	r.reserved--
	r.mu.Unlock()
}

func (r *run) fail() {
	r.mu.Lock()
	r.reserved--
	r.sum.Counters.Failures++
	r.mu.Unlock()
}

// commit turns a reservation into a deletion and reports progress on every multiple of every
// report runs under the lock so progress lines stay ordered
func (r *run) commit(rewrote bool, every int64, now time.Time, report func(domain.Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserved--
	r.sum.Counters.Deleted++
	if rewrote {
		r.sum.Counters.Rewrites++
	}
	if r.sum.Counters.Deleted%every == 0 {
		report(r.window.report(r.sum.RunID, r.sum.Counters, now))
	}
}

func (s *Service) startLedger(ctx context.Context, r *run) {
	if s.ledger == nil {
		return
	}
	r.mu.Lock()
	sum := r.sum
	r.mu.Unlock()
	lctx, cancel := guardrails.ForLedger(ctx, guardrails.Timeouts{Ledger: s.Cfg.LedgerTimeout})
	defer cancel()
	if err := s.ledger.StartRun(lctx, sum); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("sweep: ledger start failed")
	}
}

// finishLedger flushes the audit and closes the run row; ctx may already be canceled
func (s *Service) finishLedger(ctx context.Context, sum domain.Summary) {
	fctx := context.WithoutCancel(ctx)
	t := guardrails.Timeouts{Ledger: s.Cfg.LedgerTimeout}
	if s.audit != nil {
		actx, cancel := guardrails.ForLedger(fctx, t)
		if err := s.audit.Flush(actx); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("sweep: audit flush failed")
		}
		cancel()
	}
	if s.ledger != nil {
		lctx, cancel := guardrails.ForLedger(fctx, t)
		if err := s.ledger.FinishRun(lctx, sum); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("sweep: ledger finish failed")
		}
		cancel()
	}
}

func (s *Service) appendAudit(ctx context.Context, runID uuid.UUID, rec domain.Record, used domain.Strategy, rewrote bool, outcome string, err error) {
	if s.audit == nil {
		return
	}
	a := domain.Action{
		RunID:      runID,
		At:         s.now().UTC(),
		Namespace:  rec.Namespace,
		SetName:    rec.SetName,
		Digest:     rec.Digest,
		Expiration: rec.Expiration,
		Strategy:   string(used),
		Rewrote:    rewrote,
		Outcome:    outcome,
	}
	if rc, ok := perr.ResultCode(err); ok {
		a.ResultCode = int(rc)
	}
	actx, cancel := guardrails.ForLedger(context.WithoutCancel(ctx), guardrails.Timeouts{Ledger: s.Cfg.LedgerTimeout})
	defer cancel()
	if aerr := s.audit.Append(actx, a); aerr != nil {
		logger.C(ctx).Debug().Err(aerr).Msg("sweep: audit append failed")
	}
}
