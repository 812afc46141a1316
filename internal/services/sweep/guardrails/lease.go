package guardrails

import (
	"context"
	"errors"
	"time"

	"asdelete/internal/platform/store"

	"github.com/google/uuid"
)

// ErrLeaseHeld signals another sweep owns the namespace already
var ErrLeaseHeld = errors.New("sweep: namespace lease already held")

// Lease claims a namespace for one run and releases it afterwards
type Lease func(ctx context.Context, namespace string, runID uuid.UUID, do func(context.Context) error) error

// MakeLease returns a Lease backed by the sweep_leases table
// a lease older than ttl is considered abandoned and may be taken over
// It assumes the sweep_leases table exists
func MakeLease(db store.TxRunner, ttl time.Duration) Lease {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(ctx context.Context, namespace string, runID uuid.UUID, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				insert into sweep_leases (namespace, run_id, expires_at)
				values ($1, $2, now() + make_interval(secs => $3))
				on conflict (namespace) do update
					set run_id = excluded.run_id, expires_at = excluded.expires_at
					where sweep_leases.expires_at < now()
				returning true
			`, namespace, runID, ttl.Seconds())
			if err != nil {
				return err
			}
			defer rows.Close()
			claimed = rows.Next()
			return rows.Err()
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}
		defer func() {
			// release on a fresh context so a canceled run still frees the namespace
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_, _ = db.Exec(rctx, `delete from sweep_leases where namespace = $1 and run_id = $2`, namespace, runID)
		}()
		return do(ctx)
	}
}
