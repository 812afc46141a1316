// Package http provides the sweep status endpoints
package http

import (
	stdctx "context"
	"net/http"
	"strconv"
	"time"

	"asdelete/internal/core/epoch"
	"asdelete/internal/core/version"
	perr "asdelete/internal/platform/errors"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/services/sweep/domain"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// RunsLister reads past runs from the ledger
type RunsLister interface {
	LastRuns(ctx stdctx.Context, namespace string, n int) ([]domain.Summary, error)
}

// Deps are the handler dependencies
type Deps struct {
	Runner domain.RunnerPort

	// Runs is nil when the ledger is disabled
	Runs RunsLister

	StartedAt time.Time

	// AS, PG and CH are checked by /readyz when they implement Pinger
	AS any
	PG any
	CH any
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the sweep routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d, now: time.Now}

	phttp.GetJSON(r, "/healthz", h.health)
	phttp.GetJSON(r, "/readyz", h.ready)
	phttp.GetJSON(r, "/version", h.version)
	r.Route("/v1/sweep", func(rr phttp.Router) {
		phttp.GetJSON(rr, "/status", h.status)
		phttp.GetJSON(rr, "/runs", h.runs)
	})
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped unknown
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
}

// StatusResponse is the current or last run
type StatusResponse struct {
	domain.Summary
	ThresholdUTC string  `json:"threshold_utc,omitempty"`
	ElapsedSec   float64 `json:"elapsed_sec"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	check := func(name string, c any) ReadyCheck {
		if c == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		if p, ok := c.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
			}
			return ReadyCheck{Name: name, Status: "ok"}
		}
		return ReadyCheck{Name: name, Status: "unknown"}
	}

	checks := []ReadyCheck{check("as", h.deps.AS), check("pg", h.deps.PG), check("ch", h.deps.CH)}

	// the record store is mandatory, the ledger and audit sinks only degrade
	overall := "ok"
	for _, c := range checks {
		switch {
		case c.Status == "fail" && c.Name == "as":
			return nil, perr.Unavailablef("aerospike: %s", c.Error)
		case c.Status == "fail":
			overall = "degraded"
		}
	}
	return ReadyResponse{Status: overall, Checks: checks}, nil
}

func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info("asdelete"), nil
}

func (h *handlers) status(_ *http.Request) (any, error) {
	if h.deps.Runner == nil {
		return nil, perr.Unavailablef("sweep runner not configured")
	}
	return statusOf(h.deps.Runner.Status()), nil
}

func statusOf(s domain.Summary) StatusResponse {
	out := StatusResponse{Summary: s, ElapsedSec: s.Elapsed.Seconds()}
	if s.Threshold != 0 {
		out.ThresholdUTC = epoch.ToUTC(float64(s.Threshold)).Format(time.RFC3339)
	}
	return out
}

// runs answers /v1/sweep/runs?limit=n for the namespace being swept
func (h *handlers) runs(r *http.Request) (any, error) {
	if h.deps.Runs == nil {
		return nil, perr.NotFoundf("run ledger disabled")
	}
	n := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			return nil, perr.InvalidArgf("limit must be between 1 and 100")
		}
		n = v
	}
	ns := r.URL.Query().Get("namespace")
	if ns == "" && h.deps.Runner != nil {
		ns = h.deps.Runner.Status().Namespace
	}
	list, err := h.deps.Runs.LastRuns(r.Context(), ns, n)
	if err != nil {
		return nil, err
	}
	out := make([]StatusResponse, 0, len(list))
	for _, s := range list {
		out = append(out, statusOf(s))
	}
	return out, nil
}
