// Package module implements the capture module
package module

import (
	"chronicle/internal/modkit"
	"chronicle/internal/modkit/httpkit"
	"chronicle/internal/services/capture/domain"
	"chronicle/internal/services/capture/guardrails"
	"chronicle/internal/services/capture/repo"
	"chronicle/internal/services/capture/service"
)

// Ports exposed by the capture module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new capture module.
// Callers must inject the consumed ports via modkit.WithPorts(capture/domain.Ports)
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("capture"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("capture module: expected WithPorts(capture/domain.Ports)")
	}
	if ports.Source == nil {
		panic("capture module: Ports missing Source")
	}
	if ports.Snapshots.Writer == nil || ports.Snapshots.Reader == nil {
		panic("capture module: Ports missing Snapshots")
	}

	cfg := FromConfig(deps.Cfg)
	leaseFn := guardrails.MakeAdvisoryLease(deps)

	svc := service.New(
		deps.PG, repo.NewPG(),
		ports.Source, ports.Snapshots,
		service.Config{
			Workers:          cfg.Workers,
			Overlap:          cfg.Overlap,
			FirstRunLookback: cfg.FirstRunLookback,
			RunTimeout:       cfg.RunTimeout,
			FetchTimeout:     cfg.FetchTimeout,
			MaxRetries:       cfg.MaxRetries,
			RetryBase:        cfg.RetryBase,
			EnableLeases:     cfg.EnableLeases,
		},
		leaseFn,
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "capture" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix satisfies modkit.Module
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
