package core

import (
	"embed"

	"github.com/iota-uz/tenancy/modules/core/infrastructure/persistence"
	"github.com/iota-uz/tenancy/modules/core/presentation/controllers"
	"github.com/iota-uz/tenancy/modules/core/services"
	"github.com/iota-uz/tenancy/pkg/application"
)

//go:embed presentation/locales/*.json
var LocaleFiles embed.FS

//go:embed infrastructure/persistence/schema/core-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)
	app.RegisterLocaleFiles(&LocaleFiles)

	tenantRepo := persistence.NewTenantRepository()
	app.RegisterServices(
		services.NewTenantService(tenantRepo),
	)

	app.RegisterControllers(
		controllers.NewHealthController(app),
		controllers.NewTenantsController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
