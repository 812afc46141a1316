package module

import (
	"bytes"
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"asdelete/internal/core/epoch"
	"asdelete/internal/modkit"
	"asdelete/internal/platform/config"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/metrics"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/platform/store"
	kit "asdelete/internal/platform/testkit"
	"asdelete/internal/services/sweep/domain"

	aero "github.com/aerospike/aerospike-client-go/v7"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeAS struct{}

func (fakeAS) Client() *aero.Client { return nil }
func (fakeAS) Addr() string         { return "127.0.0.1:3000" }
func (fakeAS) Close() error         { return nil }

type sliceReader struct {
	mu   sync.Mutex
	recs []domain.Record
}

func (r *sliceReader) Next() (domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.recs) == 0 {
		return domain.Record{}, io.EOF
	}
	rec := r.recs[0]
	r.recs = r.recs[1:]
	return rec, nil
}

func (r *sliceReader) Close() error { return nil }

type fakeScanner struct{ recs []domain.Record }

func (s fakeScanner) Scan(context.Context, domain.ScanRequest) (domain.RecordReader, error) {
	return &sliceReader{recs: append([]domain.Record(nil), s.recs...)}, nil
}

type fakeDeleter struct {
	mu      sync.Mutex
	deleted int
}

func (d *fakeDeleter) Delete(context.Context, domain.Record) error {
	d.mu.Lock()
	d.deleted++
	d.mu.Unlock()
	return nil
}

func (d *fakeDeleter) Rewrite(context.Context, domain.Record, string, any, uint32) error { return nil }

type fakeCH struct {
	mu      sync.Mutex
	execs   []string
	inserts int
	rows    int
	execErr error
}

func (c *fakeCH) Insert(_ context.Context, _ string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserts++
	if rows, ok := data.([][]any); ok {
		c.rows += len(rows)
	}
	return nil
}

func (c *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return c.execErr
}

func (c *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (c *fakeCH) Close() error                                              { return nil }

// failingPG rejects every transaction
type failingPG struct{}

func (failingPG) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, stderrs.New("down")
}
func (failingPG) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, stderrs.New("down")
}
func (failingPG) QueryRow(context.Context, string, ...any) store.Row { return nil }
func (failingPG) Tx(context.Context, func(store.RowQuerier) error) error {
	return stderrs.New("connection refused")
}

func swapAdapters(t *testing.T, recs []domain.Record) *fakeDeleter {
	t.Helper()
	kit.Serial(t)
	d := &fakeDeleter{}
	kit.Swap(t, &adapters, func(*aero.Client, bool) (domain.Scanner, domain.Deleter) {
		return fakeScanner{recs: recs}, d
	})
	return d
}

func sweepConfig() domain.Config {
	c := domain.DefaultConfig()
	c.Host, c.Port, c.Namespace, c.Limit = "127.0.0.1", 3000, "test", 10
	return c
}

func expiring(set string, inDays int) domain.Record {
	return domain.Record{
		Namespace:  "test",
		SetName:    set,
		Digest:     []byte{byte(inDays)},
		Expiration: epoch.ToStoreTime(time.Now()) + int64(inDays)*86400,
	}
}

func TestNew_RequiresAerospike(t *testing.T) {
	_, err := New(context.Background(), modkit.Deps{}, sweepConfig(), Options{})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestNew_RunsThroughAdapters(t *testing.T) {
	d := swapAdapters(t, []domain.Record{expiring("a", 1), expiring("a", 30), expiring("b", 2)})
	var out bytes.Buffer
	cfg := sweepConfig()
	cfg.Days = 5

	m, err := New(context.Background(), modkit.Deps{AS: fakeAS{}}, cfg, Options{Output: &out, Ledger: true, Audit: true})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "sweep" || m.Prefix() != "" {
		t.Fatalf("name %q prefix %q", m.Name(), m.Prefix())
	}
	p := modkit.MustPortsOf[domain.RunnerPort](m)
	if _, ok := m.Ports().(Ports); !ok || m.Ports().(Ports).Runs != nil {
		t.Fatalf("ledger should be off without postgres: %+v", m.Ports())
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Counters.Deleted != 2 || d.deleted != 2 || sum.State != domain.StateDone {
		t.Fatalf("summary = %+v, deleter saw %d", sum, d.deleted)
	}
	kit.MustContain(t, out.String(), "Host: 127.0.0.1, Port: 3000, Namespace: test")
	kit.MustContain(t, out.String(), "Deleted 2 records from set . Rewrites: 0")
}

func TestNew_AuditWired(t *testing.T) {
	swapAdapters(t, []domain.Record{expiring("a", -1), expiring("a", -2)})
	ch := &fakeCH{}
	m, err := New(context.Background(), modkit.Deps{AS: fakeAS{}, CH: ch}, sweepConfig(), Options{Output: io.Discard, Audit: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.execs) != 1 {
		t.Fatalf("audit schema not ensured: %v", ch.execs)
	}
	kit.MustContain(t, ch.execs[0], "sweep_actions")

	if _, err := m.Runner().Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ch.inserts != 1 || ch.rows != 2 {
		t.Fatalf("audit flushed %d inserts %d rows", ch.inserts, ch.rows)
	}
}

func TestNew_SchemaFailures(t *testing.T) {
	swapAdapters(t, nil)
	_, err := New(context.Background(), modkit.Deps{AS: fakeAS{}, PG: failingPG{}}, sweepConfig(), Options{Ledger: true})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("ledger schema err = %v", err)
	}
	_, err = New(context.Background(), modkit.Deps{AS: fakeAS{}, CH: &fakeCH{execErr: stderrs.New("no table engine")}}, sweepConfig(), Options{Audit: true})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("audit schema err = %v", err)
	}

	// toggles off: broken stores are never touched
	if _, err := New(context.Background(), modkit.Deps{AS: fakeAS{}, PG: failingPG{}}, sweepConfig(), Options{}); err != nil {
		t.Fatalf("ledger off: %v", err)
	}
}

func TestMountRoutes(t *testing.T) {
	swapAdapters(t, nil)
	reg := prometheus.NewRegistry()
	deps := modkit.Deps{AS: fakeAS{}, Metrics: metrics.NewSweepMetricsWithRegistry(reg), Gatherer: reg}

	cases := []struct {
		name  string
		pprof bool
		path  string
		code  int
		body  string
	}{
		{"health", false, "/healthz", 200, `"ok":true`},
		{"status idle", false, "/v1/sweep/status", 200, `"state":"idle"`},
		{"runs without ledger", false, "/v1/sweep/runs", 404, "run ledger disabled"},
		{"metrics", false, "/metrics", 200, "asdelete_sweep_state"},
		{"pprof off", false, "/debug/pprof/", 404, ""},
		{"pprof on", true, "/debug/pprof/", 200, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(context.Background(), deps, sweepConfig(), Options{Output: io.Discard, Pprof: tc.pprof}, modkit.WithPrefix(""))
			if err != nil {
				t.Fatal(err)
			}
			mux := chi.NewRouter()
			modkit.MountAll(phttp.AdaptChi(mux), m)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.code {
				t.Fatalf("%s: code %d, want %d", tc.path, rec.Code, tc.code)
			}
			if tc.body != "" {
				kit.MustContain(t, rec.Body.String(), tc.body)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SWEEP_WORKERS", "8")
	t.Setenv("SWEEP_MAX_DPS", "250.5")
	t.Setenv("SWEEP_INCLUDE_BINS", "true")
	t.Setenv("SWEEP_ACTION_TIMEOUT", "2s")
	t.Setenv("SWEEP_PROGRESS_EVERY", "500")
	t.Setenv("SWEEP_LEDGER", "false")
	t.Setenv("SWEEP_STATUS_ADDR", ":9110")

	o := FromConfig(config.New())
	if o.Workers != 8 || o.MaxDPS != 250.5 || !o.IncludeBins || o.ActionTimeout != 2*time.Second {
		t.Fatalf("options = %+v", o)
	}
	if o.Ledger || !o.Audit || o.StatusAddr != ":9110" || o.LeaseTTL != 24*time.Hour {
		t.Fatalf("toggles = %+v", o)
	}

	c := domain.DefaultConfig()
	o.Apply(&c)
	if c.Workers != 8 || c.MaxDeletesPerSecond != 250.5 || !c.IncludeBins || c.ProgressEvery != 500 {
		t.Fatalf("applied = %+v", c)
	}
}
