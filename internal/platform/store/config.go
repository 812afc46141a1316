package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	AS ASConfig
	PG PGConfig
	CH CHConfig
}

// ASConfig configures the aerospike cluster the sweep runs against
type ASConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	ClusterName string
	Timeout     time.Duration
	QueueSize   int

	ConnectRetries int           // default 3
	PingTimeout    time.Duration // default 5s
}

// PGConfig configures the run ledger database
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 6 (63s(ish) max with exponential backoff)
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures the audit sink
type CHConfig struct {
	Enabled   bool
	URL       string
	ClientTag string

	ConnectRetries int           // default 3
	PingTimeout    time.Duration // default 3s
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDur(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
