package http

import (
	stdctx "context"
	"encoding/json"
	stderrs "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asdelete/internal/core/epoch"
	perr "asdelete/internal/platform/errors"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/services/sweep/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fakeRunner struct{ sum domain.Summary }

func (f fakeRunner) Run(stdctx.Context) (domain.Summary, error) { return f.sum, nil }
func (f fakeRunner) Status() domain.Summary                     { return f.sum }

type fakeRuns struct {
	ns  string
	n   int
	out []domain.Summary
	err error
}

func (f *fakeRuns) LastRuns(_ stdctx.Context, ns string, n int) ([]domain.Summary, error) {
	f.ns, f.n = ns, n
	return f.out, f.err
}

type pinger struct{ err error }

func (p pinger) Ping(stdctx.Context) error { return p.err }

type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       perr.ErrorCode  `json:"code"`
	Data       json.RawMessage `json:"data"`
}

func serve(t *testing.T, d Deps, path string) (int, envelope) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: bad body %q: %v", path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	code, env := serve(t, Deps{StartedAt: time.Now()}, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var h HealthResponse
	_ = json.Unmarshal(env.Data, &h)
	if !h.OK || h.Started == "" {
		t.Fatalf("health = %+v", h)
	}
}

func TestVersion(t *testing.T) {
	code, env := serve(t, Deps{}, "/version")
	var v struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	_ = json.Unmarshal(env.Data, &v)
	if code != http.StatusOK || v.Service != "asdelete" || v.Version == "" {
		t.Fatalf("version: %d %+v", code, v)
	}
}

func TestReady(t *testing.T) {
	cases := []struct {
		name     string
		deps     Deps
		code     int
		overall  string
		statuses []string
	}{
		{"all ok", Deps{AS: pinger{}, PG: pinger{}, CH: pinger{}}, 200, "ok", []string{"ok", "ok", "ok"}},
		{"optional skipped", Deps{AS: pinger{}}, 200, "ok", []string{"ok", "skipped", "skipped"}},
		{"ledger down", Deps{AS: pinger{}, PG: pinger{err: stderrs.New("refused")}}, 200, "degraded", []string{"ok", "fail", "skipped"}},
		{"unknown seam", Deps{AS: pinger{}, CH: struct{}{}}, 200, "ok", []string{"ok", "skipped", "unknown"}},
		{"store down", Deps{AS: pinger{err: stderrs.New("no nodes")}}, 503, "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := serve(t, tc.deps, "/readyz")
			if code != tc.code {
				t.Fatalf("code = %d, want %d", code, tc.code)
			}
			if tc.statuses == nil {
				if env.Code != perr.ErrorCodeUnavailable {
					t.Fatalf("error code = %q", env.Code)
				}
				return
			}
			var r ReadyResponse
			_ = json.Unmarshal(env.Data, &r)
			if r.Status != tc.overall || len(r.Checks) != 3 {
				t.Fatalf("ready = %+v", r)
			}
			for i, want := range tc.statuses {
				if r.Checks[i].Status != want {
					t.Fatalf("check %s = %s, want %s", r.Checks[i].Name, r.Checks[i].Status, want)
				}
			}
		})
	}
}

func TestStatus(t *testing.T) {
	th := epoch.ToStoreTime(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	sum := domain.Summary{
		RunID:     uuid.New(),
		Namespace: "test",
		State:     domain.StateScanning,
		Threshold: th,
		Counters:  domain.Counters{Observed: 10, Deleted: 4},
		Elapsed:   1500 * time.Millisecond,
	}
	code, env := serve(t, Deps{Runner: fakeRunner{sum: sum}}, "/v1/sweep/status")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var got StatusResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.State != domain.StateScanning || got.Counters.Deleted != 4 || got.RunID != sum.RunID {
		t.Fatalf("status = %+v", got)
	}
	if got.ThresholdUTC != "2024-03-06T00:00:00Z" || got.ElapsedSec != 1.5 {
		t.Fatalf("threshold %q elapsed %v", got.ThresholdUTC, got.ElapsedSec)
	}

	code, env = serve(t, Deps{}, "/v1/sweep/status")
	if code != http.StatusServiceUnavailable || env.Code != perr.ErrorCodeUnavailable {
		t.Fatalf("no runner: %d %q", code, env.Code)
	}
}

func TestRuns(t *testing.T) {
	runner := fakeRunner{sum: domain.Summary{Namespace: "test"}}

	code, env := serve(t, Deps{Runner: runner}, "/v1/sweep/runs")
	if code != http.StatusNotFound || env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("disabled ledger: %d %q", code, env.Code)
	}

	runs := &fakeRuns{out: []domain.Summary{{Namespace: "test", State: domain.StateDone}}}
	code, env = serve(t, Deps{Runner: runner, Runs: runs}, "/v1/sweep/runs")
	if code != http.StatusOK || runs.ns != "test" || runs.n != 10 {
		t.Fatalf("default query: %d ns=%q n=%d", code, runs.ns, runs.n)
	}
	var list []StatusResponse
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 1 || list[0].State != domain.StateDone {
		t.Fatalf("runs = %+v", list)
	}

	_, _ = serve(t, Deps{Runner: runner, Runs: runs}, "/v1/sweep/runs?limit=3&namespace=other")
	if runs.ns != "other" || runs.n != 3 {
		t.Fatalf("explicit query: ns=%q n=%d", runs.ns, runs.n)
	}

	for _, bad := range []string{"0", "101", "x"} {
		code, env = serve(t, Deps{Runner: runner, Runs: runs}, "/v1/sweep/runs?limit="+bad)
		if code != http.StatusUnprocessableEntity || env.Code != perr.ErrorCodeInvalidArgument {
			t.Fatalf("limit=%s: %d %q", bad, code, env.Code)
		}
	}

	runs.err = perr.DBf("ledger offline")
	code, _ = serve(t, Deps{Runner: runner, Runs: runs}, "/v1/sweep/runs")
	if code != http.StatusInternalServerError {
		t.Fatalf("ledger error: %d", code)
	}
}
