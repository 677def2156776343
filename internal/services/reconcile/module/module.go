// Package module provides the reconcile engine module implementation
package module

import (
	"matchbook/internal/modkit"

	"matchbook/internal/adapters/discover"
	"matchbook/internal/services/reconcile/domain"
	"matchbook/internal/services/reconcile/repo"
	"matchbook/internal/services/reconcile/service"
)

// Ports defines the reconcile module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the reconcile module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the reconcile module
// It wires the discovery adapters and the runner using config from deps.Cfg
// It does not mount any routes.
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	runner := service.NewRunner(
		deps.PG,
		repo.NewBinder(),
		deps.CH,
		discover.NewFactory(),
		service.Config{SampleLimit: opts.SampleLimit},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "reconcile" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op as reconcile has no routes
func (m *Module) MountRoutes(_ interface{}) {}
