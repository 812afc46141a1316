package modkit

import (
	phttp "asdelete/internal/platform/net/http"
)

// Module is the common surface for modules that can mount routes and expose ports
// keep this tiny so modules stay decoupled
type Module interface {
	// MountRoutes mounts HTTP routes under the provided router seam
	MountRoutes(r phttp.Router)
	// Ports returns a module specific port set for cross wiring
	Ports() any

	// Name returns the module name
	Name() string
}

// MountAll mounts every module on r, each under its own prefix when one was built in
func MountAll(r phttp.Router, mods ...Module) {
	for _, m := range mods {
		if m == nil {
			continue
		}
		p, ok := m.(interface{ Prefix() string })
		if !ok || p.Prefix() == "" {
			m.MountRoutes(r)
			continue
		}
		r.Route(p.Prefix(), m.MountRoutes)
	}
}
