// Package repo persists sweep runs in postgres and the per record audit in clickhouse
package repo

import (
	"context"

	"asdelete/internal/modkit/repokit"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/store"
)

// LedgerDDL creates the run ledger and lease tables; every statement is idempotent
var LedgerDDL = []string{
	`create table if not exists sweep_runs (
		run_id      uuid primary key,
		namespace   text not null,
		sets        text not null default '',
		strategy    text not null,
		threshold   bigint not null,
		state       text not null,
		observed    bigint not null default 0,
		candidates  bigint not null default 0,
		deleted     bigint not null default 0,
		rewrites    bigint not null default 0,
		failures    bigint not null default 0,
		skipped     bigint not null default 0,
		started_at  timestamptz not null,
		finished_at timestamptz,
		elapsed_ms  bigint not null default 0,
		error       text
	)`,
	`create index if not exists sweep_runs_ns_started on sweep_runs (namespace, started_at desc)`,
	`create table if not exists sweep_leases (
		namespace  text primary key,
		run_id     uuid not null,
		expires_at timestamptz not null
	)`,
}

// AuditDDL creates the clickhouse audit table
const AuditDDL = `create table if not exists sweep_actions (
	run_id      UUID,
	at          DateTime64(3, 'UTC'),
	namespace   LowCardinality(String),
	set_name    LowCardinality(String),
	digest      String,
	expiration  Int64,
	strategy    LowCardinality(String),
	rewrote     Bool,
	outcome     LowCardinality(String),
	result_code Int32
) engine = MergeTree
partition by toYYYYMM(at)
order by (namespace, run_id, at)`

// EnsureLedger applies LedgerDDL in one transaction
func EnsureLedger(ctx context.Context, db repokit.TxRunner) error {
	err := db.Tx(ctx, func(q repokit.Queryer) error {
		for _, stmt := range LedgerDDL {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	return perr.FromPostgres(err, "ensure sweep ledger schema")
}

// EnsureAudit creates the audit table
func EnsureAudit(ctx context.Context, ch store.Clickhouse) error {
	return perr.WrapIf(ch.Exec(ctx, AuditDDL), perr.ErrorCodeDB, "ensure sweep audit schema")
}
