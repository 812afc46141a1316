package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/net/middleware"
	kit "asdelete/internal/platform/testkit"
)

func serve(t *testing.T, s *Server, method, path string, hdr map[string]string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().Mux().ServeHTTP(rec, req)
	var env Envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestGetJSON_Envelopes(t *testing.T) {
	s := NewServer(":0")
	s.Router().Route("/v1", func(r Router) {
		GetJSON(r, "/ok", func(*stdhttp.Request) (any, error) { return map[string]int{"n": 1}, nil })
		GetJSON(r, "/missing", func(*stdhttp.Request) (any, error) { return nil, perr.NotFoundf("nothing here") })
	})

	rec, env := serve(t, s, stdhttp.MethodGet, "/v1/ok", map[string]string{"X-Request-ID": "req-1"})
	if rec.Code != stdhttp.StatusOK || env.StatusCode != 200 || env.RequestID != "req-1" {
		t.Fatalf("ok: code=%d env=%+v", rec.Code, env)
	}
	kit.MustContain(t, rec.Header().Get("Content-Type"), "application/json")

	rec, env = serve(t, s, stdhttp.MethodGet, "/v1/missing", nil)
	if rec.Code != stdhttp.StatusNotFound || env.Code != perr.ErrorCodeNotFound || env.Error != "nothing here" {
		t.Fatalf("missing: code=%d env=%+v", rec.Code, env)
	}
	if env.RequestID == "" {
		t.Fatalf("request id middleware not installed")
	}
}

func TestRecoverJSON(t *testing.T) {
	s := NewServer(":0")
	s.Router().Get("/boom", func(stdhttp.ResponseWriter, *stdhttp.Request) { panic("kaput") })
	rec, _ := serve(t, s, stdhttp.MethodGet, "/boom", nil)
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	kit.MustContain(t, rec.Body.String(), "panic recovered")
}

func TestCORS(t *testing.T) {
	s := NewServer(":0", WithMiddleware(middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://dash.example"}})))
	s.Router().Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
	rec, _ := serve(t, s, stdhttp.MethodGet, "/healthz", map[string]string{"Origin": "https://dash.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestMountProfiler(t *testing.T) {
	s := NewServer(":0")
	MountProfiler(s.Router(), "/debug", false)
	if rec, _ := serve(t, s, stdhttp.MethodGet, "/debug/pprof/", nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("disabled profiler answered %d", rec.Code)
	}
	s = NewServer(":0")
	MountProfiler(s.Router(), "/debug", true)
	if rec, _ := serve(t, s, stdhttp.MethodGet, "/debug/pprof/", nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("profiler answered %d", rec.Code)
	}
}

func TestServer_RunAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.Router().Get("/healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) { RespondOK(w, r, "ok") })
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var code int
	kit.Eventually(t, 2*time.Second, func() bool {
		resp, err := stdhttp.Get("http://" + s.Addr() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		code = resp.StatusCode
		return true
	}, "server answers")
	if code != stdhttp.StatusOK {
		t.Fatalf("healthz = %d", code)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestServer_ListenConflict(t *testing.T) {
	a := NewServer("127.0.0.1:0")
	if err := a.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	b := NewServer(a.Addr())
	if err := b.Listen(); err == nil {
		t.Fatalf("second listen on %s should fail", a.Addr())
	}
}
