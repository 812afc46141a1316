package repo

import (
	"context"
	"time"

	"asdelete/internal/modkit/repokit"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/store"
	"asdelete/internal/services/sweep/domain"

	"github.com/google/uuid"
)

type (
	// PG is a Postgres binder for domain.LedgerRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.LedgerRepo
func NewPG() repokit.Binder[domain.LedgerRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.LedgerRepo { return &queries{q: q} }

// InsertRun records a run start; a replayed run id resets the row
func (r *queries) InsertRun(ctx context.Context, s domain.Summary) error {
	_, err := r.q.Exec(ctx, `
		insert into sweep_runs (run_id, namespace, sets, strategy, threshold, state, started_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (run_id) do update
		set state = excluded.state, started_at = excluded.started_at, finished_at = null, error = null
	`, s.RunID, s.Namespace, s.Sets, string(s.Strategy), s.Threshold, string(s.State), s.StartedAt.UTC())
	return err
}

// FinishRun stores the final counters and state
func (r *queries) FinishRun(ctx context.Context, s domain.Summary) error {
	c := s.Counters
	return store.ExecOne(ctx, r.q, `
		update sweep_runs set
			state = $2,
			observed = $3,
			candidates = $4,
			deleted = $5,
			rewrites = $6,
			failures = $7,
			skipped = $8,
			finished_at = now(),
			elapsed_ms = $9,
			error = nullif($10, '')
		where run_id = $1
	`, s.RunID, string(s.State), c.Observed, c.Candidates, c.Deleted, c.Rewrites, c.Failures, c.Skipped,
		s.Elapsed.Milliseconds(), s.Error)
}

// LastRuns returns the newest n runs of namespace, newest first
func (r *queries) LastRuns(ctx context.Context, namespace string, n int) ([]domain.Summary, error) {
	if n <= 0 {
		n = 10
	}
	return store.Many(ctx, r.q, scanSummary, `
		select run_id, namespace, sets, strategy, threshold, state,
			observed, candidates, deleted, rewrites, failures, skipped,
			started_at, elapsed_ms, coalesce(error, '')
		from sweep_runs
		where namespace = $1
		order by started_at desc
		limit $2
	`, namespace, n)
}

func scanSummary(row store.Row) (domain.Summary, error) {
	var (
		s         domain.Summary
		id        uuid.UUID
		strategy  string
		state     string
		elapsedMS int64
	)
	c := &s.Counters
	if err := row.Scan(&id, &s.Namespace, &s.Sets, &strategy, &s.Threshold, &state,
		&c.Observed, &c.Candidates, &c.Deleted, &c.Rewrites, &c.Failures, &c.Skipped,
		&s.StartedAt, &elapsedMS, &s.Error); err != nil {
		return domain.Summary{}, err
	}
	s.RunID = id
	s.Strategy = domain.Strategy(strategy)
	s.State = domain.State(state)
	s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return s, nil
}

// Ledger implements domain.RunLedger on top of a TxRunner
type Ledger struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.LedgerRepo]
}

// NewLedger binds the postgres ledger to db; statementTimeout caps every ledger statement
func NewLedger(db repokit.TxRunner, statementTimeout time.Duration) *Ledger {
	if db == nil {
		panic("sweep.Ledger requires a non nil TxRunner")
	}
	return &Ledger{DB: repokit.WithBeginHooks(db, repokit.StatementTimeout(statementTimeout)), Binder: NewPG()}
}

// StartRun implements domain.RunLedger
func (l *Ledger) StartRun(ctx context.Context, s domain.Summary) error {
	err := repokit.InTx(ctx, l.DB, l.Binder, func(r domain.LedgerRepo) error { return r.InsertRun(ctx, s) })
	return perr.FromPostgresf(err, "ledger start %s", s.RunID)
}

// FinishRun implements domain.RunLedger
func (l *Ledger) FinishRun(ctx context.Context, s domain.Summary) error {
	err := repokit.InTx(ctx, l.DB, l.Binder, func(r domain.LedgerRepo) error { return r.FinishRun(ctx, s) })
	return perr.FromPostgresf(err, "ledger finish %s", s.RunID)
}

// LastRuns returns recent runs for namespace
func (l *Ledger) LastRuns(ctx context.Context, namespace string, n int) ([]domain.Summary, error) {
	var out []domain.Summary
	err := repokit.InTx(ctx, l.DB, l.Binder, func(r domain.LedgerRepo) error {
		var e error
		out, e = r.LastRuns(ctx, namespace, n)
		return e
	})
	return out, perr.FromPostgres(err, "ledger last runs")
}
