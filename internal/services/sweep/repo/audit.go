package repo

import (
	"context"
	"encoding/hex"
	"sync"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/store"
	"asdelete/internal/services/sweep/domain"
)

// AuditTable is the clickhouse table that receives sweep actions
const AuditTable = "sweep_actions"

// DefaultAuditBatch is the number of buffered rows that triggers an insert
const DefaultAuditBatch = 5000

// Audit buffers actions and writes them to clickhouse in batches
// safe for concurrent use
type Audit struct {
	CH    store.Clickhouse
	Table string
	Batch int

	mu  sync.Mutex
	buf [][]any
}

// NewAudit returns a batching audit writer; batch <= 0 takes DefaultAuditBatch
func NewAudit(ch store.Clickhouse, batch int) *Audit {
	if ch == nil {
		panic("sweep.Audit requires a non nil Clickhouse")
	}
	if batch <= 0 {
		batch = DefaultAuditBatch
	}
	return &Audit{CH: ch, Table: AuditTable, Batch: batch}
}

// Append implements domain.AuditWriter; it inserts once Batch rows are buffered
func (a *Audit) Append(ctx context.Context, act domain.Action) error {
	a.mu.Lock()
	a.buf = append(a.buf, auditRow(act))
	if len(a.buf) < a.Batch {
		a.mu.Unlock()
		return nil
	}
	rows := a.buf
	a.buf = nil
	a.mu.Unlock()
	return a.insert(ctx, rows)
}

// Flush implements domain.AuditWriter
func (a *Audit) Flush(ctx context.Context) error {
	a.mu.Lock()
	rows := a.buf
	a.buf = nil
	a.mu.Unlock()
	return a.insert(ctx, rows)
}

// Pending returns the number of buffered rows
func (a *Audit) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

func (a *Audit) insert(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := a.CH.Insert(ctx, a.Table, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "audit insert %d rows", len(rows))
	}
	return nil
}

// auditRow orders columns as in AuditDDL
func auditRow(a domain.Action) []any {
	return []any{
		a.RunID,
		a.At.UTC(),
		a.Namespace,
		a.SetName,
		hex.EncodeToString(a.Digest),
		a.Expiration,
		a.Strategy,
		a.Rewrote,
		a.Outcome,
		int32(a.ResultCode),
	}
}
