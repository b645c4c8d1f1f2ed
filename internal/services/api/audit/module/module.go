// Package module wires audit into the API using modkit
package module

import (
	"net/http"

	modkit "chronicle/internal/modkit"
	"chronicle/internal/modkit/httpkit"
	str "chronicle/internal/platform/strings"
	"chronicle/internal/services/api/audit/domain"
	audithttp "chronicle/internal/services/api/audit/http"
	auditsvc "chronicle/internal/services/api/audit/service"
)

// Module implements the audit module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc auditsvc.Service
}

// New constructs the audit module.
// Callers must inject the consumed ports via modkit.WithPorts(audit/domain.Ports)
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("audit"), modkit.WithPrefix("/audit")}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("audit module: expected WithPorts(audit/domain.Ports)")
	}
	if ports.Snapshots == nil {
		panic("audit module: Ports missing Snapshots reader")
	}

	svc := auditsvc.New(ports.Snapshots)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptAuditPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		audithttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
