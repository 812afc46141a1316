// Package modkit provides module wiring and core deps
package modkit

import (
	"asdelete/internal/modkit/repokit"
	"asdelete/internal/platform/config"
	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/metrics"
	"asdelete/internal/platform/store"

	aero "github.com/aerospike/aerospike-client-go/v7"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf

	// AS is required by every module that touches records
	AS store.Aerospike

	// PG and CH are optional; nil disables the ledger and the audit trail
	PG repokit.TxRunner
	CH store.Clickhouse

	Metrics  *metrics.SweepMetrics
	Gatherer prometheus.Gatherer
}

// FromStore copies the opened backends of s into deps
func FromStore(s *store.Store, log logger.Logger, cfg config.Conf) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if s == nil {
		return d
	}
	d.AS = s.AS
	d.PG = s.PG
	d.CH = s.CH
	return d
}

// Client returns the aerospike client or nil when AS is not configured
func (d Deps) Client() *aero.Client {
	if d.AS == nil {
		return nil
	}
	return d.AS.Client()
}
