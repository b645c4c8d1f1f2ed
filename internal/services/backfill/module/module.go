// Package module provides the backfill module implementation
package module

import (
	"chronicle/internal/modkit"
	"chronicle/internal/modkit/httpkit"
	"chronicle/internal/services/backfill/domain"
	"chronicle/internal/services/backfill/service"
)

// Ports defines the backfill module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the backfill module.
// Callers must inject the consumed ports via modkit.WithPorts(backfill/domain.Ports)
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("backfill"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("backfill module: expected WithPorts(backfill/domain.Ports)")
	}
	if ports.Source == nil {
		panic("backfill module: Ports missing Source")
	}
	if ports.Snapshots.Writer == nil || ports.Snapshots.Reader == nil {
		panic("backfill module: Ports missing Snapshots")
	}

	cfg := FromConfig(deps.Cfg)
	svc := service.New(ports.Source, ports.Snapshots, service.Config{
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "backfill" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op as backfill has no routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
