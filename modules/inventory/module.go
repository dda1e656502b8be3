package inventory

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/modules/inventory/presentation/controllers"
	"github.com/iota-uz/tenancy/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "inventory"
}

// Register is intentionally empty: the module's HTTP surface is built
// lazily on first request through Handler.
func (m *Module) Register(app application.Application) error {
	return nil
}

// Handler builds the inventory routes against the caller's tenant store.
func (m *Module) Handler(app application.Application) (http.Handler, error) {
	r := mux.NewRouter()
	controllers.NewItemsController(app).Register(r)
	controllers.NewOrdersController(app).Register(r)
	return r, nil
}
