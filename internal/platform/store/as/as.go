// Package as opens and owns the aerospike client used by the sweeper
package as

import (
	"context"
	"errors"
	"time"

	perr "asdelete/internal/platform/errors"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// Config configures the aerospike client
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	ClusterName string

	// Timeout bounds the initial cluster tend and login; zero keeps the client default
	Timeout time.Duration

	// QueueSize is the per-node connection pool size; zero keeps the client default
	QueueSize int
}

// AS is an aerospike client handle
type AS struct {
	Client *aero.Client
	Host   string
	Port   int
}

var newClient = func(p *aero.ClientPolicy, h *aero.Host) (*aero.Client, error) {
	c, err := aero.NewClientWithPolicyAndHost(p, h)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Policy builds the client policy for cfg
func Policy(cfg Config) *aero.ClientPolicy {
	p := aero.NewClientPolicy()
	p.User = cfg.User
	p.Password = cfg.Password
	p.ClusterName = cfg.ClusterName
	if cfg.Timeout > 0 {
		p.Timeout = cfg.Timeout
	}
	if cfg.QueueSize > 0 {
		p.ConnectionQueueSize = cfg.QueueSize
	}
	return p
}

// Open connects to the seed host and returns once the cluster is reachable
func Open(_ context.Context, cfg Config) (*AS, error) {
	if cfg.Host == "" {
		return nil, perr.InvalidArgf("aerospike host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, perr.InvalidArgf("aerospike port %d out of range", cfg.Port)
	}
	c, err := newClient(Policy(cfg), aero.NewHost(cfg.Host, cfg.Port))
	if err != nil {
		return nil, perr.FromAerospikef(err, perr.ErrorCodeConnection, "connect %s:%d", cfg.Host, cfg.Port)
	}
	return &AS{Client: c, Host: cfg.Host, Port: cfg.Port}, nil
}

// Ping reports whether the client still sees at least one live node
func (a *AS) Ping(_ context.Context) error {
	if a == nil || a.Client == nil {
		return errors.New("as: nil client")
	}
	if !a.Client.IsConnected() {
		return perr.Connectionf("aerospike %s:%d: no live nodes", a.Host, a.Port)
	}
	return nil
}

// Close releases all connections
func (a *AS) Close() error {
	if a != nil && a.Client != nil {
		a.Client.Close()
	}
	return nil
}
