package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"asdelete/internal/core/version"
	perr "asdelete/internal/platform/errors"
	"asdelete/internal/services/sweep/domain"
	sweepmod "asdelete/internal/services/sweep/module"
)

const usage = `Tool for pre-empty deletion of Aerospike objects that will soon be deleted due to their TTL.

Version %s

Usage: asdelete [-userewrite] [-verbose] [flags] <host> <port> <namespace> <sets> <days> <limit> [rangestart] [rangeend]

-userewrite Delete by setting a very low TTL on object.
-verbose:   Print expiration time for all objects that are deleted.

host:       Aerospike server.
port:       Aerospike port.
namespace:  Aerospike namespace.
sets:       Aerospike data set names (comma separated regex expressions).
days:       Days into the future - should be a *positive* integer.
limit:      Maximum number of objects to delete. Specify 0 to just perform a count.
rangestart: Lower bound of date range (exclusive). Optional.
rangeend:   Upper bound of date range (inclusive). Optional.

Flags:
`

// cli is everything the command line decides
type cli struct {
	Sweep      domain.Config
	Opts       sweepmod.Options
	StatusAddr string
}

// parseArgs accepts the classic positional grammar with flags anywhere on the line
// defaults come from opts, which FromConfig filled from SWEEP_*
func parseArgs(args []string, opts sweepmod.Options, out io.Writer) (cli, error) {
	c := cli{Sweep: domain.DefaultConfig(), Opts: opts}
	opts.Apply(&c.Sweep)

	var rewrite bool
	fs := flag.NewFlagSet("asdelete", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(out, usage, version.Info("asdelete").Version)
		fs.PrintDefaults()
	}
	fs.BoolVar(&rewrite, "userewrite", false, "delete by rewriting one bin with a one second ttl")
	fs.BoolVar(&c.Sweep.Verbose, "verbose", false, "log every deleted record")
	fs.IntVar(&c.Sweep.Workers, "workers", c.Sweep.Workers, "concurrent delete workers")
	fs.Float64Var(&c.Sweep.MaxDeletesPerSecond, "max-dps", c.Sweep.MaxDeletesPerSecond, "delete rate cap, 0 for none")
	fs.IntVar(&c.Sweep.ScanRecordsPerSecond, "scan-rps", c.Sweep.ScanRecordsPerSecond, "server side scan throttle, 0 for none")
	fs.BoolVar(&c.Sweep.IncludeBins, "include-bins", c.Sweep.IncludeBins, "fetch bin data; needed by -userewrite")
	fs.BoolVar(&c.Sweep.FoldSetCase, "fold-case", c.Sweep.FoldSetCase, "match set names case insensitively")
	fs.BoolVar(&c.Sweep.KeepPersistent, "keep-persistent", false, "never touch records without an expiration")
	fs.DurationVar(&c.Sweep.ActionTimeout, "action-timeout", c.Sweep.ActionTimeout, "timeout of one delete or rewrite")
	fs.Int64Var(&c.Sweep.ProgressEvery, "progress-every", c.Sweep.ProgressEvery, "deletions between progress lines")
	fs.StringVar(&c.StatusAddr, "status-addr", opts.StatusAddr, "serve status and metrics on this address")
	fs.BoolVar(&c.Opts.DurableDelete, "durable-delete", opts.DurableDelete, "leave tombstones on delete")

	var pos []string
	rest := args
	for {
		// negative days and range bounds would otherwise parse as flags
		if len(rest) > 0 && isNegativeInt(rest[0]) {
			pos = append(pos, rest[0])
			rest = rest[1:]
			continue
		}
		if err := fs.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return c, perr.InvalidArgf("help requested")
			}
			return c, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bad flag")
		}
		if fs.NArg() == 0 {
			break
		}
		pos = append(pos, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if rewrite {
		// the rewrite needs a bin value to write back
		c.Sweep.Strategy = domain.StrategyRewrite
		c.Sweep.IncludeBins = true
	}
	c.Opts.Workers = c.Sweep.Workers
	c.Opts.IncludeBins = c.Sweep.IncludeBins

	if err := positionals(&c.Sweep, pos); err != nil {
		fs.Usage()
		return c, err
	}
	return c, nil
}

func positionals(cfg *domain.Config, pos []string) error {
	if len(pos) != 6 && len(pos) != 8 {
		return perr.InvalidArgf("expected 6 or 8 arguments, got %d", len(pos))
	}
	var err error
	cfg.Host = pos[0]
	if cfg.Port, err = strconv.Atoi(pos[1]); err != nil {
		return perr.WithField(perr.InvalidArgf("port %q is not a number", pos[1]), "port")
	}
	cfg.Namespace = pos[2]
	cfg.Sets = strings.TrimSpace(pos[3])
	if cfg.Days, err = strconv.Atoi(pos[4]); err != nil {
		return perr.WithField(perr.InvalidArgf("days %q is not a number", pos[4]), "days")
	}
	if cfg.Limit, err = strconv.ParseInt(pos[5], 10, 64); err != nil {
		return perr.WithField(perr.InvalidArgf("limit %q is not a number", pos[5]), "limit")
	}
	if len(pos) == 8 {
		if cfg.RangeStart, err = strconv.ParseInt(pos[6], 10, 64); err != nil {
			return perr.WithField(perr.InvalidArgf("rangestart %q is not a number", pos[6]), "rangestart")
		}
		if cfg.RangeEnd, err = strconv.ParseInt(pos[7], 10, 64); err != nil {
			return perr.WithField(perr.InvalidArgf("rangeend %q is not a number", pos[7]), "rangeend")
		}
	}
	return nil
}

func isNegativeInt(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
