// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "matchbook/internal/platform/net/http"
)

// Module defines the minimal contract used by modkit
// keep this sibling to avoid import knots when a module also exports its own ports type
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// MustPortsOf asserts a module's ports to a concrete type and panics on mismatch
// use at wiring time so misconfiguration fails at startup, not mid-request
func MustPortsOf[T any](m Module) T {
	p, ok := m.Ports().(T)
	if !ok {
		panic("module: ports type mismatch for " + m.Name())
	}
	return p
}
