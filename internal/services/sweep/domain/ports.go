package domain

import (
	"context"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context) (Summary, error)
	Status() Summary
}

// Scanner starts a full scan and hands back a pull reader
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (RecordReader, error)
}

// RecordReader yields scanned records; io.EOF ends the scan
// Next is safe for concurrent callers
type RecordReader interface {
	Next() (Record, error)
	Close() error
}

// Deleter mutates single records
type Deleter interface {
	Delete(ctx context.Context, rec Record) error
	Rewrite(ctx context.Context, rec Record, bin string, value any, ttl uint32) error
}

// RunLedger records run start and finish; optional
type RunLedger interface {
	StartRun(ctx context.Context, s Summary) error
	FinishRun(ctx context.Context, s Summary) error
}

// AuditWriter receives every attempted mutation; optional
type AuditWriter interface {
	Append(ctx context.Context, a Action) error
	Flush(ctx context.Context) error
}

// ProgressSink receives progress reports
type ProgressSink interface {
	Progress(p Progress)
}

// LedgerRepo is the sql surface the run ledger binds to a transaction
type LedgerRepo interface {
	InsertRun(ctx context.Context, s Summary) error
	FinishRun(ctx context.Context, s Summary) error
	LastRuns(ctx context.Context, namespace string, n int) ([]Summary, error)
}
