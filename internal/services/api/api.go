// Package api provides the HTTP API for the application
package api

import (
	"time"

	"matchbook/internal/platform/config"
	"matchbook/internal/platform/logger"
	phttp "matchbook/internal/platform/net/http"
	"matchbook/internal/platform/store"

	"matchbook/internal/modkit"
	"matchbook/internal/modkit/httpkit"
	"matchbook/internal/modkit/module"

	metamod "matchbook/internal/services/api/meta/module"
	runsmod "matchbook/internal/services/api/runs/module"
)

// Options are the API options
type Options struct {
	Config        config.Conf
	Store         *store.Store
	Logger        *logger.Logger
	EnableSwagger bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	mods := []module.Module{
		metamod.New(deps),
		runsmod.New(deps),
	}

	// versioned API with a common middleware stack
	origins := opt.Config.MayString("CORS_ORIGINS", "*")
	slow := opt.Config.MayDuration("SLOW_REQUEST", 2*time.Second)

	httpkit.MountAPIV1(r, httpkit.CommonStack(origins, slow), func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	// swagger UI at the server root, fed by the checked-in document
	phttp.MountSwagger(r, opt.EnableSwagger, "/api/v1/meta/openapi.json")
}
