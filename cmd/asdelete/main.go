// Command asdelete removes Aerospike records that are about to expire
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"asdelete/internal/modkit"
	"asdelete/internal/platform/config"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/metrics"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/platform/net/middleware"
	"asdelete/internal/platform/store"
	"asdelete/internal/platform/validate"
	sweepmod "asdelete/internal/services/sweep/module"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// console lines own stdout, logs go to stderr
	lo := logger.FromEnv()
	lo.Writer = stderr
	lo.Component = "asdelete"
	logger.Init(lo)
	l := logger.Get()

	root := config.New()
	c, err := parseArgs(args, sweepmod.FromConfig(root), stdout)
	if err != nil {
		return fail(l, stderr, err)
	}
	c.Opts.Output = stdout
	if err := validate.Struct(c.Sweep); err != nil {
		return fail(l, stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, storeConfig(root, c), store.WithLogger(*l))
	if err != nil {
		return fail(l, stderr, err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps := modkit.FromStore(st, *l, root)
	deps.Metrics = metrics.NewSweepMetricsWithRegistry(reg)
	deps.Gatherer = reg

	m, err := sweepmod.New(ctx, deps, c.Sweep, c.Opts)
	if err != nil {
		return fail(l, stderr, err)
	}

	if c.StatusAddr != "" {
		srv := phttp.NewServer(c.StatusAddr, phttp.WithMiddleware(middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: splitList(root.Prefix("SWEEP_").MayString("CORS_ORIGINS", "*")),
		})))
		modkit.MountAll(srv.Router(), m)
		if err := srv.Listen(); err != nil {
			return fail(l, stderr, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "status address %s", c.StatusAddr))
		}
		sctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Run(sctx); err != nil {
				l.Error().Err(err).Msg("status server stopped")
			}
		}()
		defer func() { cancel(); <-done }()
	}

	sum, err := m.Runner().Run(ctx)
	if err != nil {
		return fail(l, stderr, err)
	}
	if sum.Counters.Failures > 0 {
		l.Warn().Int64("failures", sum.Counters.Failures).Msg("some records could not be removed")
	}
	return perr.ExitOK
}

func storeConfig(root config.Conf, c cli) store.Config {
	asCfg := root.Prefix("SERVICE_AEROSPIKE_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	return store.Config{
		AppName: "asdelete",
		AS: store.ASConfig{
			Enabled:     true,
			Host:        c.Sweep.Host,
			Port:        c.Sweep.Port,
			User:        asCfg.MayString("USER", ""),
			Password:    asCfg.MayString("PASSWORD", ""),
			ClusterName: asCfg.MayString("CLUSTER", ""),
			Timeout:     asCfg.MayDuration("TIMEOUT", 0),
			QueueSize:   asCfg.MayInt("QUEUE_SIZE", 0),
		},
		PG: store.PGConfig{
			Enabled:     c.Opts.Ledger && pgCfg.Has("DBURL"),
			URL:         pgCfg.MayString("DBURL", ""),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:   c.Opts.Audit && chCfg.Has("DBURL"),
			URL:       chCfg.MayString("DBURL", ""),
			ClientTag: "sweep",
		},
	}
}

// fail prints a readable message and maps err to the exit code
func fail(l *logger.Logger, stderr io.Writer, err error) int {
	code := perr.ExitCode(err)
	if code == perr.ExitUsage {
		l.Debug().Err(err).Msg("usage error")
	} else {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("sweep failed")
	}
	_, _ = fmt.Fprintf(stderr, "asdelete: %v\n", err)
	return code
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
