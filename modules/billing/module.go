package billing

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/modules/billing/presentation/controllers"
	"github.com/iota-uz/tenancy/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "billing"
}

func (m *Module) Register(app application.Application) error {
	return nil
}

// Handler builds the billing routes against the caller's tenant store.
func (m *Module) Handler(app application.Application) (http.Handler, error) {
	r := mux.NewRouter()
	controllers.NewInvoicesController(app).Register(r)
	controllers.NewCustomersController(app).Register(r)
	return r, nil
}
