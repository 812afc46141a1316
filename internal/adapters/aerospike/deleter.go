package aerospike

import (
	"context"
	"time"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/services/sweep/domain"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// writeClient is the part of *aero.Client the deleter needs
type writeClient interface {
	Delete(policy *aero.WritePolicy, key *aero.Key) (bool, aero.Error)
	Put(policy *aero.WritePolicy, key *aero.Key, bins aero.BinMap) aero.Error
}

// Deleter removes or rewrites single records
type Deleter struct {
	c writeClient

	// DurableDelete leaves a tombstone so the record cannot come back after a cold restart
	DurableDelete bool
}

var _ domain.Deleter = (*Deleter)(nil)

// NewDeleter builds a Deleter over c
func NewDeleter(c *aero.Client, durable bool) *Deleter {
	return &Deleter{c: c, DurableDelete: durable}
}

// Delete removes rec; a record that is already gone is a NotFound error
func (d *Deleter) Delete(ctx context.Context, rec domain.Record) error {
	key, err := keyOf(rec)
	if err != nil {
		return err
	}
	p := aero.NewWritePolicy(0, 0)
	p.DurableDelete = d.DurableDelete
	if err := applyDeadline(ctx, &p.BasePolicy); err != nil {
		return err
	}
	existed, aerr := d.c.Delete(p, key)
	if aerr != nil {
		return perr.FromAerospikef(aerr, perr.ErrorCodeRecordAction, "delete %x", rec.Digest)
	}
	if !existed {
		return perr.NotFoundf("delete %x: record already gone", rec.Digest)
	}
	return nil
}

// Rewrite writes value back into bin with the given ttl so the server expires the record
// the record must still exist; a vanished record is a NotFound error
func (d *Deleter) Rewrite(ctx context.Context, rec domain.Record, bin string, value any, ttl uint32) error {
	key, err := keyOf(rec)
	if err != nil {
		return err
	}
	p := aero.NewWritePolicy(0, ttl)
	p.RecordExistsAction = aero.UPDATE_ONLY
	if err := applyDeadline(ctx, &p.BasePolicy); err != nil {
		return err
	}
	if aerr := d.c.Put(p, key, aero.BinMap{bin: value}); aerr != nil {
		return perr.FromAerospikef(aerr, perr.ErrorCodeRecordAction, "rewrite %x", rec.Digest)
	}
	return nil
}

func keyOf(rec domain.Record) (*aero.Key, error) {
	if k, ok := rec.Handle.(*aero.Key); ok && k != nil {
		return k, nil
	}
	if rec.Namespace != "" && len(rec.Digest) > 0 {
		k, err := aero.NewKeyWithDigest(rec.Namespace, rec.SetName, rec.UserKey, rec.Digest)
		if err != nil {
			return nil, perr.FromAerospike(err, perr.ErrorCodeInvalidArgument, "key from digest")
		}
		return k, nil
	}
	return nil, perr.InvalidArgf("record has no key")
}

// applyDeadline maps the context deadline onto the client's total timeout
func applyDeadline(ctx context.Context, p *aero.BasePolicy) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeTimeout, "record action")
	}
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return perr.New(perr.ErrorCodeTimeout, "record action: deadline passed")
		}
		p.TotalTimeout = left
		if p.SocketTimeout == 0 || p.SocketTimeout > left {
			p.SocketTimeout = left
		}
	}
	return nil
}
