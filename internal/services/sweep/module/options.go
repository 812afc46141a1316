package module

import (
	"io"
	"time"

	"asdelete/internal/platform/config"
	"asdelete/internal/services/sweep/domain"
	"asdelete/internal/services/sweep/repo"
)

// Options holds the sweep knobs read from the environment
// the cli applies them as flag defaults, so flags win
type Options struct {
	Workers       int
	MaxDPS        float64
	ScanRPS       int
	IncludeBins   bool
	FoldCase      bool
	ActionTimeout time.Duration
	ActionRetries int
	RetryBase     time.Duration
	ProgressEvery int64
	DurableDelete bool

	StatusAddr string
	Pprof      bool

	// Ledger and Audit toggle the postgres run ledger and the clickhouse audit trail
	// both also need their store configured
	Ledger           bool
	LedgerTimeout    time.Duration
	StatementTimeout time.Duration
	LeaseTTL         time.Duration
	Audit            bool
	AuditBatch       int

	// Output receives the console lines; nil means stdout
	Output io.Writer
}

// FromConfig reads the sweep options from config with SWEEP_ prefix
func FromConfig(cfg config.Conf) Options {
	sw := cfg.Prefix("SWEEP_")
	return Options{
		Workers:          sw.MayInt("WORKERS", 1),
		MaxDPS:           sw.MayFloat64("MAX_DPS", 0),
		ScanRPS:          sw.MayInt("SCAN_RPS", 0),
		IncludeBins:      sw.MayBool("INCLUDE_BINS", false),
		FoldCase:         sw.MayBool("FOLD_CASE", false),
		ActionTimeout:    sw.MayDuration("ACTION_TIMEOUT", 0),
		ActionRetries:    sw.MayInt("ACTION_RETRIES", 0),
		RetryBase:        sw.MayDuration("RETRY_BASE", 100*time.Millisecond),
		ProgressEvery:    int64(sw.MayInt("PROGRESS_EVERY", int(domain.DefaultProgressEvery))),
		DurableDelete:    sw.MayBool("DURABLE_DELETE", false),
		StatusAddr:       sw.MayAddr("STATUS_ADDR", ""),
		Pprof:            sw.MayBool("PPROF", false),
		Ledger:           sw.MayBool("LEDGER", true),
		LedgerTimeout:    sw.MayDuration("LEDGER_TIMEOUT", 5*time.Second),
		StatementTimeout: sw.MayDuration("STATEMENT_TIMEOUT", 10*time.Second),
		LeaseTTL:         sw.MayDuration("LEASE_TTL", 24*time.Hour),
		Audit:            sw.MayBool("AUDIT", true),
		AuditBatch:       sw.MayInt("AUDIT_BATCH", repo.DefaultAuditBatch),
	}
}

// Apply copies the execution knobs into c
func (o Options) Apply(c *domain.Config) {
	c.Workers = o.Workers
	c.MaxDeletesPerSecond = o.MaxDPS
	c.ScanRecordsPerSecond = o.ScanRPS
	c.IncludeBins = o.IncludeBins
	c.FoldSetCase = o.FoldCase
	c.ActionTimeout = o.ActionTimeout
	c.ProgressEvery = o.ProgressEvery
}
