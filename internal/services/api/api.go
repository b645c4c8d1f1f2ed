// Package api provides the HTTP API for the application
package api

import (
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/logger"
	phttp "chronicle/internal/platform/net/http"
	"chronicle/internal/platform/store"

	"chronicle/internal/modkit"
	"chronicle/internal/modkit/httpkit"
	"chronicle/internal/modkit/module"
	"chronicle/internal/modkit/swaggerkit"

	auditdom "chronicle/internal/services/api/audit/domain"
	auditmod "chronicle/internal/services/api/audit/module"
	metamod "chronicle/internal/services/api/meta/module"

	// Snapshots module (owns the snapshot Reader and Writer ports)
	snapmod "chronicle/internal/services/snapshots/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}

	// Construct the snapshots module first and extract its Reader port
	snapshots := snapmod.New(deps)
	reader := module.MustPortsOf[snapmod.Ports](snapshots).Reader

	// Inject that Reader into the audit module
	audit := auditmod.New(
		deps,
		modkit.WithPorts(auditdom.Ports{
			Snapshots: reader,
		}),
	)

	mods := []module.Module{
		metamod.New(deps),
		snapshots, // include snapshots so its ports are registered
		audit,     // API module that reads through the snapshots Reader
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
