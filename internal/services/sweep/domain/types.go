package domain

import (
	"time"

	"github.com/google/uuid"
)

// Strategy selects how a candidate record is removed
type Strategy string

const (
	// StrategyExplicit removes the record with a delete call
	StrategyExplicit Strategy = "explicit"
	// StrategyRewrite rewrites one bin with a one second ttl so the server expires it
	StrategyRewrite Strategy = "rewrite"
)

// NoRange disables the secondary expiration window
const NoRange int64 = -1

// DefaultProgressEvery is the deletion interval between progress lines
const DefaultProgressEvery int64 = 10000

// Config is the immutable configuration of one sweep run
type Config struct {
	Host      string `flag:"host" validate:"required"`
	Port      int    `flag:"port" validate:"min=1,max=65535"`
	Namespace string `flag:"namespace" validate:"required"`

	// Sets is the raw comma separated filter; empty means every set
	Sets string `flag:"sets" validate:"set_filter"`

	// Days moves the threshold from now; negative values are accepted
	Days  int   `flag:"days"`
	Limit int64 `flag:"limit" validate:"gte=0"`

	// RangeStart is exclusive, RangeEnd inclusive; both NoRange disables the window
	RangeStart int64 `flag:"rangestart"`
	RangeEnd   int64 `flag:"rangeend"`

	Strategy Strategy `flag:"strategy" validate:"oneof=explicit rewrite"`
	Verbose  bool     `flag:"verbose"`

	Workers              int           `flag:"workers" validate:"gte=1,lte=64"`
	MaxDeletesPerSecond  float64       `flag:"max-dps" validate:"gte=0"`
	ScanRecordsPerSecond int           `flag:"scan-rps" validate:"gte=0"`
	IncludeBins          bool          `flag:"include-bins"`
	FoldSetCase          bool          `flag:"fold-case"`
	KeepPersistent       bool          `flag:"keep-persistent"`
	ActionTimeout        time.Duration `flag:"action-timeout" validate:"gte=0"`
	ProgressEvery        int64         `flag:"progress-every" validate:"gte=1"`
}

// DefaultConfig returns the defaults applied before env and flags
func DefaultConfig() Config {
	return Config{
		RangeStart:    NoRange,
		RangeEnd:      NoRange,
		Strategy:      StrategyExplicit,
		Workers:       1,
		ProgressEvery: DefaultProgressEvery,
	}
}

// CountOnly reports whether the run never mutates records
func (c Config) CountOnly() bool { return c.Limit == 0 }

// Record is one scanned record as the sweep sees it
type Record struct {
	Namespace string
	SetName   string
	Digest    []byte
	UserKey   any

	// Expiration is seconds since the store epoch; 0 never expires
	Expiration int64
	Bins       map[string]any

	// Handle is the adapter's own key; the sweep passes it back untouched
	Handle any
}

// ScanRequest parameterizes a full namespace scan
type ScanRequest struct {
	Namespace        string
	Set              string
	IncludeBins      bool
	RecordsPerSecond int
}

// Counters are the run totals
type Counters struct {
	Observed   int64 `json:"observed"`
	Candidates int64 `json:"candidates"`
	Deleted    int64 `json:"deleted"`
	Rewrites   int64 `json:"rewrites"`
	Failures   int64 `json:"failures"`
	Skipped    int64 `json:"skipped"`
}

// State is the sweep lifecycle
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Gauge maps a state to its metric value
func (s State) Gauge() int {
	switch s {
	case StateScanning:
		return 1
	case StateDone:
		return 2
	case StateFailed:
		return 3
	}
	return 0
}

// Progress is one progress report
type Progress struct {
	RunID    uuid.UUID
	Deleted  int64
	Observed int64
	Percent  int64
	Rewrites int64
	Rate     int64
}

// Summary is the outcome of a run
type Summary struct {
	RunID     uuid.UUID     `json:"run_id"`
	Namespace string        `json:"namespace"`
	Sets      string        `json:"sets"`
	Strategy  Strategy      `json:"strategy"`
	Threshold int64         `json:"threshold"`
	State     State         `json:"state"`
	Counters  Counters      `json:"counters"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Error     string        `json:"error,omitempty"`
}

// Action is one mutation written to the audit sink
type Action struct {
	RunID      uuid.UUID
	At         time.Time
	Namespace  string
	SetName    string
	Digest     []byte
	Expiration int64
	Strategy   string
	Rewrote    bool
	Outcome    string
	ResultCode int
}
