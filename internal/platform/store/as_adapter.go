package store

import (
	"context"
	"fmt"

	asx "asdelete/internal/platform/store/as"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// asPort is the subset of *as.AS the adapter needs
type asPort interface {
	Ping(context.Context) error
	Close() error
}

// asAdapter adapts *as.AS to the store.Aerospike interface
type asAdapter struct {
	inner  asPort
	client *aero.Client
	addr   string
}

var _ Aerospike = (*asAdapter)(nil)

func newASAdapter(a *asx.AS) Aerospike {
	return &asAdapter{inner: a, client: a.Client, addr: fmt.Sprintf("%s:%d", a.Host, a.Port)}
}

func (a *asAdapter) Client() *aero.Client           { return a.client }
func (a *asAdapter) Addr() string                   { return a.addr }
func (a *asAdapter) Ping(ctx context.Context) error { return a.inner.Ping(ctx) }
func (a *asAdapter) Close() error                   { return a.inner.Close() }
