package store

import (
	"context"
	"fmt"
	"time"

	perr "asdelete/internal/platform/errors"
	asx "asdelete/internal/platform/store/as"
	chx "asdelete/internal/platform/store/ch"
	"asdelete/internal/platform/store/pg"
)

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// seams for tests
var (
	asOpen = asx.Open
	chOpen = func(ctx context.Context, cfg chx.Config) (chPort, error) {
		c, err := chx.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	sleep  = sleepCtx
)

// pingRetry calls ping until it succeeds, attempts run out, or ctx ends
// backoff doubles from backoffStart up to backoffCeiling
func pingRetry(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = ping(toCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		if backoff < backoffCeiling {
			backoff *= 2
			if backoff > backoffCeiling {
				backoff = backoffCeiling
			}
		}
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// openAS connects to the seed node and waits until the cluster reports a live node
func openAS(ctx context.Context, cfg Config, s *Store) (Aerospike, error) {
	a, err := asOpen(ctx, asx.Config{
		Host:        cfg.AS.Host,
		Port:        cfg.AS.Port,
		User:        cfg.AS.User,
		Password:    cfg.AS.Password,
		ClusterName: cfg.AS.ClusterName,
		Timeout:     cfg.AS.Timeout,
		QueueSize:   cfg.AS.QueueSize,
	})
	if err != nil {
		return nil, err
	}

	err = pingRetry(ctx, orInt(cfg.AS.ConnectRetries, 3), orDur(cfg.AS.PingTimeout, 5*time.Second), a.Ping)
	if err != nil {
		_ = a.Close()
		return nil, perr.Wrapf(err, perr.ErrorCodeConnection, "aerospike %s:%d", cfg.AS.Host, cfg.AS.Port)
	}
	s.Log.Debug().Str("host", cfg.AS.Host).Int("port", cfg.AS.Port).Msg("aerospike connected")
	return newASAdapter(a), nil
}

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
	}, tracer, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "postgres open")
	}

	// ping the pool directly so boot probes stay out of the sql trace
	err = pingRetry(ctx, orInt(cfg.PG.ConnectRetries, 6), orDur(cfg.PG.PingTimeout, 3*time.Second), p.Pool.Ping)
	if err != nil {
		p.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "postgres")
	}
	return newPGAdapter(p), nil
}

// openCH dials clickhouse lazily then waits for a successful ping
func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chOpen(ctx, chx.Config{URL: cfg.CH.URL, ClientName: cfg.AppName, ClientTag: cfg.CH.ClientTag})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse open")
	}
	err = pingRetry(ctx, orInt(cfg.CH.ConnectRetries, 3), orDur(cfg.CH.PingTimeout, 3*time.Second), c.Ping)
	if err != nil {
		_ = c.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "clickhouse")
	}
	return newCHAdapter(c), nil
}
