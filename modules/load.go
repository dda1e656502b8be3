package modules

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/modules/billing"
	"github.com/iota-uz/tenancy/modules/core"
	"github.com/iota-uz/tenancy/modules/inventory"
	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/configuration"
	"github.com/iota-uz/tenancy/pkg/lazy"
	"github.com/iota-uz/tenancy/pkg/middleware"
)

var BuiltInModules = []application.Module{
	core.NewModule(),
	inventory.NewModule(),
	billing.NewModule(),
}

// Mountable is implemented by modules whose HTTP surface is built on first
// request instead of at boot.
type Mountable interface {
	application.Module
	Handler(app application.Application) (http.Handler, error)
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}

// LazyMountController serves every Mountable module under /api/{name},
// behind the tenant resolver.
type LazyMountController struct {
	app      application.Application
	cfg      *configuration.Configuration
	manifest *lazy.Manifest
	modules  []application.Module
	basePath string
}

func NewLazyMountController(
	app application.Application,
	cfg *configuration.Configuration,
	manifest *lazy.Manifest,
	mods []application.Module,
) application.Controller {
	return &LazyMountController{
		app:      app,
		cfg:      cfg,
		manifest: manifest,
		modules:  mods,
		basePath: "/api",
	}
}

func (c *LazyMountController) Key() string {
	return c.basePath
}

func (c *LazyMountController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenant(c.app, middleware.TenantResolverOptions{
		OverrideHeader: c.cfg.Tenancy.OverrideHeader,
		GatewayHosts:   c.cfg.Tenancy.GatewayHostSet(),
		DefaultTenant:  c.cfg.Tenancy.DefaultTenant,
		Production:     c.cfg.IsProduction(),
	}))

	for _, module := range c.modules {
		mountable, ok := module.(Mountable)
		if !ok {
			continue
		}
		name := module.Name()
		if c.manifest.Excluded(name) {
			continue
		}

		prefix := c.basePath + "/" + name
		mount := lazy.NewMount(name, lazy.MountOptions{
			States:          c.app.LoadStates(),
			Loader:          c.loader(mountable),
			Logger:          c.app.Logger(),
			Bus:             c.app.EventPublisher(),
			RetryBaseDelay:  c.cfg.Router.RetryBaseDelay,
			RetryMaxDelay:   c.cfg.Router.RetryMaxDelay,
			CircuitLimit:    c.cfg.Router.CircuitLimit,
			CircuitCooldown: c.cfg.Router.CircuitCooldown,
			LoadTimeout:     c.cfg.Router.LoadTimeout,
			HotReload:       c.cfg.Router.HotReload && !c.cfg.IsProduction(),
			SourceDir:       c.manifest.SourceDir(name),
		})
		router.PathPrefix("/" + name).Handler(http.StripPrefix(prefix, mount))
	}
}

func (c *LazyMountController) loader(m Mountable) lazy.Loader {
	return func(ctx context.Context) (http.Handler, error) {
		return m.Handler(c.app)
	}
}
