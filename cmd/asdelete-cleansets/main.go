// Command asdelete-cleansets truncates every set of a namespace whose name starts with a prefix
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"asdelete/internal/modkit"
	"asdelete/internal/platform/config"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/metrics"
	"asdelete/internal/platform/store"
	"asdelete/internal/platform/validate"
	"asdelete/internal/services/cleansets/domain"
	cleanmod "asdelete/internal/services/cleansets/module"

	"github.com/prometheus/client_golang/prometheus"
)

const usage = `cleansets 2.0 - Truncate matching Aerospike sets.

Usage: asdelete-cleansets [-dry-run] [-before RFC3339] <host> <port> <namespace> <setprefix>

setprefix - Used to match set names. Caution: All non
            alphanumeric/underscore characters will be removed from
            the setprefix.

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	lo := logger.FromEnv()
	lo.Writer = stderr
	lo.Component = "cleansets"
	logger.Init(lo)
	l := logger.Get()

	cfg, err := parseArgs(args, stdout)
	if err != nil {
		return fail(stderr, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fail(stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asCfg := config.New().Prefix("SERVICE_AEROSPIKE_")
	st, err := store.Open(ctx, store.Config{
		AppName: "asdelete-cleansets",
		AS: store.ASConfig{
			Enabled:     true,
			Host:        cfg.Host,
			Port:        cfg.Port,
			User:        asCfg.MayString("USER", ""),
			Password:    asCfg.MayString("PASSWORD", ""),
			ClusterName: asCfg.MayString("CLUSTER", ""),
			Timeout:     asCfg.MayDuration("TIMEOUT", 0),
		},
	}, store.WithLogger(*l))
	if err != nil {
		return fail(stderr, err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.FromStore(st, *l, config.New())
	deps.Metrics = metrics.NewSweepMetricsWithRegistry(prometheus.NewRegistry())

	m, err := cleanmod.New(deps, cfg, stdout)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := modkit.MustPortsOf[domain.RunnerPort](m).Clean(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	if len(res.Failed) > 0 {
		return fail(stderr, perr.Newf(perr.ErrorCodeRecordAction, "%d of %d matching sets failed to truncate", len(res.Failed), len(res.Matched)))
	}
	return perr.ExitOK
}

func parseArgs(args []string, out io.Writer) (domain.Config, error) {
	var (
		cfg    domain.Config
		before string
	)
	fs := flag.NewFlagSet("asdelete-cleansets", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		_, _ = io.WriteString(out, usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "list matching sets without truncating")
	fs.StringVar(&before, "before", "", "only truncate records last updated before this RFC3339 instant")

	var pos []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return cfg, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bad flag")
		}
		if fs.NArg() == 0 {
			break
		}
		pos = append(pos, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if len(pos) != 4 {
		fs.Usage()
		return cfg, perr.InvalidArgf("expected 4 arguments, got %d", len(pos))
	}

	cfg.Host, cfg.Namespace, cfg.Prefix = pos[0], pos[2], pos[3]
	port, err := strconv.Atoi(pos[1])
	if err != nil {
		return cfg, perr.WithField(perr.InvalidArgf("port %q is not a number", pos[1]), "port")
	}
	cfg.Port = port
	if before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return cfg, perr.WithField(perr.InvalidArgf("before %q is not RFC3339", before), "before")
		}
		cfg.Before = t.UTC()
	}
	return cfg, nil
}

func fail(stderr io.Writer, err error) int {
	_, _ = fmt.Fprintf(stderr, "asdelete-cleansets: %v\n", err)
	return perr.ExitCode(err)
}
