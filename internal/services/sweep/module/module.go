// Package module wires the sweep service, its adapters and its status routes
package module

import (
	"context"
	"net/http"
	"os"
	"time"

	"asdelete/internal/adapters/aerospike"
	"asdelete/internal/modkit"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/metrics"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/services/sweep/domain"
	"asdelete/internal/services/sweep/guardrails"
	sweephttp "asdelete/internal/services/sweep/http"
	"asdelete/internal/services/sweep/repo"
	"asdelete/internal/services/sweep/service"

	aero "github.com/aerospike/aerospike-client-go/v7"
	"github.com/prometheus/client_golang/prometheus"
)

// Ports defines the sweep module ports
type Ports struct {
	Runner domain.RunnerPort

	// Runs is nil when the ledger is off
	Runs sweephttp.RunsLister
}

// Module implements the sweep module
type Module struct {
	deps      modkit.Deps
	name      string
	prefix    string
	mws       []func(http.Handler) http.Handler
	ports     Ports
	pprof     bool
	startedAt time.Time
}

// adapters builds the record store seams; tests swap it to avoid a cluster
var adapters = func(c *aero.Client, durable bool) (domain.Scanner, domain.Deleter) {
	return aerospike.NewScanner(c), aerospike.NewDeleter(c, durable)
}

// New constructs the sweep module for cfg
// the ledger and the audit trail are wired only when their store is open and their toggle is on;
// their schema is created here so the first run does not race on it
func New(ctx context.Context, deps modkit.Deps, cfg domain.Config, o Options, opts ...modkit.Option) (*Module, error) {
	if deps.AS == nil {
		return nil, perr.InvalidArgf("sweep module needs an aerospike store")
	}
	b := modkit.Build("sweep", opts...)
	log := deps.Log.With().Str("module", b.Name).Logger()

	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	scanner, deleter := adapters(deps.Client(), o.DurableDelete)

	svcOpts := []service.Option{
		service.WithOutput(out),
		service.WithMetrics(deps.Metrics),
		service.WithProgress(service.MultiSink{service.NewConsoleSink(out), service.LogSink{Log: &log}}),
	}
	if cfg.MaxDeletesPerSecond > 0 {
		svcOpts = append(svcOpts, service.WithPacer(guardrails.NewPacer(cfg.MaxDeletesPerSecond)))
	}

	var runs sweephttp.RunsLister
	switch {
	case o.Ledger && deps.PG != nil:
		if err := repo.EnsureLedger(ctx, deps.PG); err != nil {
			return nil, err
		}
		l := repo.NewLedger(deps.PG, o.StatementTimeout)
		runs = l
		svcOpts = append(svcOpts,
			service.WithLedger(l),
			service.WithLease(guardrails.MakeLease(deps.PG, o.LeaseTTL)),
		)
	case o.Ledger:
		log.Debug().Msg("run ledger off: postgres not configured")
	}

	switch {
	case o.Audit && deps.CH != nil:
		if err := repo.EnsureAudit(ctx, deps.CH); err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithAudit(repo.NewAudit(deps.CH, o.AuditBatch)))
	case o.Audit:
		log.Debug().Msg("audit trail off: clickhouse not configured")
	}

	svc := service.New(scanner, deleter, service.Config{
		Sweep:         cfg,
		ActionRetries: o.ActionRetries,
		RetryBase:     o.RetryBase,
		LedgerTimeout: o.LedgerTimeout,
	}, svcOpts...)

	return &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		ports:     Ports{Runner: svc, Runs: runs},
		pprof:     o.Pprof,
		startedAt: time.Now(),
	}, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix
func (m *Module) Prefix() string { return m.prefix }

// Runner returns the sweep runner
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// MountRoutes mounts health, status, run history, metrics and, when enabled, pprof
func (m *Module) MountRoutes(r phttp.Router) {
	for _, mw := range m.mws {
		r.Use(mw)
	}
	sweephttp.Register(r, sweephttp.Deps{
		Runner:    m.ports.Runner,
		Runs:      m.ports.Runs,
		StartedAt: m.startedAt,
		AS:        m.deps.AS,
		PG:        m.deps.PG,
		CH:        m.deps.CH,
	})

	var g prometheus.Gatherer = prometheus.DefaultGatherer
	if m.deps.Gatherer != nil {
		g = m.deps.Gatherer
	}
	r.Handle("/metrics", metrics.Handler(g))
	phttp.MountProfiler(r, "/debug", m.pprof)
}

var _ modkit.Module = (*Module)(nil)
