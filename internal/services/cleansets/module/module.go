// Package module provides the cleansets module implementation
package module

import (
	"io"
	"os"

	"asdelete/internal/adapters/aerospike"
	"asdelete/internal/modkit"
	perr "asdelete/internal/platform/errors"
	phttp "asdelete/internal/platform/net/http"
	"asdelete/internal/services/cleansets/domain"
	"asdelete/internal/services/cleansets/service"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// Ports defines the cleansets module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the cleansets module
type Module struct {
	name  string
	ports Ports
}

var setAdmin = func(c *aero.Client) domain.SetAdmin { return aerospike.NewSetAdmin(c) }

// New constructs the cleansets module; out nil means stdout
// It does not mount any routes.
func New(deps modkit.Deps, cfg domain.Config, out io.Writer, opts ...modkit.Option) (*Module, error) {
	if deps.AS == nil {
		return nil, perr.InvalidArgf("cleansets module needs an aerospike store")
	}
	if out == nil {
		out = os.Stdout
	}
	b := modkit.Build("cleansets", opts...)
	svc := service.New(setAdmin(deps.Client()), cfg,
		service.WithOutput(out),
		service.WithMetrics(deps.Metrics),
	)
	return &Module{name: b.Name, ports: Ports{Runner: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as cleansets has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
