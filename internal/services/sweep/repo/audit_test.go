package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/store"
	kit "asdelete/internal/platform/testkit"
	"asdelete/internal/services/sweep/domain"

	"github.com/google/uuid"
)

type fakeCH struct {
	mu      sync.Mutex
	inserts [][][]any
	tables  []string
	execs   []string
	err     error
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tables = append(f.tables, table)
	f.inserts = append(f.inserts, data.([][]any))
	return nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }

func (f *fakeCH) Close() error { return nil }

func action(i int) domain.Action {
	return domain.Action{
		RunID:      uuid.New(),
		At:         time.Date(2024, 3, 1, 12, 0, i, 0, time.FixedZone("x", 3600)),
		Namespace:  "test",
		SetName:    "users",
		Digest:     []byte{0xde, 0xad, byte(i)},
		Expiration: 449712000,
		Strategy:   "explicit",
		Outcome:    "ok",
		ResultCode: 2,
	}
}

func TestAudit_BatchesAndFlushes(t *testing.T) {
	ch := &fakeCH{}
	a := NewAudit(ch, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := a.Append(ctx, action(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if len(ch.inserts) != 1 || len(ch.inserts[0]) != 2 || a.Pending() != 1 {
		t.Fatalf("inserts = %d pending = %d", len(ch.inserts), a.Pending())
	}
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(ch.inserts) != 2 || a.Pending() != 0 || ch.tables[1] != AuditTable {
		t.Fatalf("after flush inserts = %d tables = %v", len(ch.inserts), ch.tables)
	}
	// empty flush is a no op
	if err := a.Flush(ctx); err != nil || len(ch.inserts) != 2 {
		t.Fatalf("empty flush inserted")
	}
}

func TestAudit_RowShape(t *testing.T) {
	row := auditRow(action(7))
	if len(row) != 10 {
		t.Fatalf("columns = %d, want 10", len(row))
	}
	if row[4] != "dead07" {
		t.Fatalf("digest = %v", row[4])
	}
	if at := row[1].(time.Time); at.Location() != time.UTC || at.Hour() != 11 {
		t.Fatalf("at = %v, want utc", at)
	}
	if row[9] != int32(2) {
		t.Fatalf("result code = %#v", row[9])
	}
}

func TestAudit_InsertErrorIsDB(t *testing.T) {
	ch := &fakeCH{err: errors.New("ch down")}
	a := NewAudit(ch, 1)
	if err := a.Append(context.Background(), action(0)); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v, want db", err)
	}
}

func TestAudit_ConcurrentAppend(t *testing.T) {
	ch := &fakeCH{}
	a := NewAudit(ch, 10)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = a.Append(context.Background(), action(i))
			}
		}()
	}
	wg.Wait()
	_ = a.Flush(context.Background())
	total := 0
	for _, b := range ch.inserts {
		total += len(b)
	}
	if total != 200 {
		t.Fatalf("rows written = %d, want 200", total)
	}
}

func TestNewAudit(t *testing.T) {
	kit.MustPanic(t, func() { NewAudit(nil, 0) })
	if a := NewAudit(&fakeCH{}, 0); a.Batch != DefaultAuditBatch {
		t.Fatalf("batch = %d", a.Batch)
	}
}

func TestEnsureAudit(t *testing.T) {
	ch := &fakeCH{}
	if err := EnsureAudit(context.Background(), ch); err != nil {
		t.Fatalf("EnsureAudit: %v", err)
	}
	kit.MustContain(t, ch.execs[0], "create table if not exists sweep_actions")
}
