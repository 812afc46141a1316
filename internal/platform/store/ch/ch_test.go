package ch

import (
	"context"
	"errors"
	"testing"

	kit "asdelete/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// fakeConn embeds driver.Conn so only the methods under test need bodies
type fakeConn struct {
	driver.Conn
	batch    *fakeBatch
	prepared string
	execSQL  string
	closed   bool
}

func (f *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	f.prepared = q
	return f.batch, nil
}
func (f *fakeConn) Exec(_ context.Context, q string, _ ...any) error { f.execSQL = q; return nil }
func (f *fakeConn) Ping(context.Context) error                         { return nil }
func (f *fakeConn) Close() error                                       { f.closed = true; return nil }

type fakeBatch struct {
	driver.Batch
	rows    [][]any
	failAt  int
	sent    bool
	aborted bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.failAt > 0 && len(b.rows)+1 == b.failAt {
		return errors.New("column mismatch")
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

func TestOpen_DSNErrors(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("empty dsn should fail")
	}
	if _, err := Open(context.Background(), Config{URL: "://bad"}); err == nil {
		t.Fatalf("bad dsn should fail")
	}
}

func TestOpen_StampsClientInfo(t *testing.T) {
	kit.Serial(t)
	var got *clickhouse.Options
	kit.Swap(t, &openConn, func(o *clickhouse.Options) (driver.Conn, error) {
		got = o
		return &fakeConn{}, nil
	})

	c, err := Open(context.Background(), Config{URL: "clickhouse://localhost:9000/audit", ClientName: "sweep", ClientTag: "1.3"})
	if err != nil || c == nil {
		t.Fatalf("Open: %v", err)
	}
	if got == nil || len(got.ClientInfo.Products) == 0 {
		t.Fatalf("client info not stamped")
	}
	if got.Auth.Database != "audit" {
		t.Fatalf("database = %q, want audit", got.Auth.Database)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestInsert_BatchesRows(t *testing.T) {
	fb := &fakeBatch{}
	fc := &fakeConn{batch: fb}
	c := &CH{conn: fc}

	rows := [][]any{{"r1", uint64(1)}, {"r1", uint64(2)}}
	if err := c.Insert(context.Background(), "sweep_actions", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.prepared != "INSERT INTO sweep_actions" {
		t.Fatalf("prepared %q", fc.prepared)
	}
	if len(fb.rows) != 2 || !fb.sent {
		t.Fatalf("batch not sent: %+v", fb)
	}
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	c := &CH{conn: &fakeConn{}}
	if err := c.Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
}

func TestInsert_AppendFailureAborts(t *testing.T) {
	fb := &fakeBatch{failAt: 2}
	c := &CH{conn: &fakeConn{batch: fb}}
	err := c.Insert(context.Background(), "t", [][]any{{1}, {2}, {3}})
	if err == nil {
		t.Fatalf("expected append error")
	}
	kit.MustContain(t, err.Error(), "row 1")
	if !fb.aborted || fb.sent {
		t.Fatalf("batch should be aborted, not sent")
	}
}

func TestExecAndClose(t *testing.T) {
	fc := &fakeConn{}
	c := &CH{conn: fc}
	if err := c.Exec(context.Background(), "CREATE TABLE x (a UInt8) ENGINE = Memory"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if fc.execSQL == "" {
		t.Fatalf("exec not forwarded")
	}
	if err := c.Close(); err != nil || !fc.closed {
		t.Fatalf("Close did not close the conn")
	}
	var nilCH *CH
	if err := nilCH.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestBuildClientInfo(t *testing.T) {
	ci := BuildClientInfo("sweep", "")
	var sawRole, sawTag bool
	for _, p := range ci.Products {
		if p.Name == "role" && p.Version == "sweep" {
			sawRole = true
		}
		if p.Name == "asdelete" && p.Version == "-" {
			sawTag = true
		}
	}
	if !sawRole || !sawTag {
		t.Fatalf("unexpected products: %+v", ci.Products)
	}
}
