package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/modules/core/services"
	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/constants"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

// TenantsController is the superadmin surface over the tenant directory and
// the module load states.
type TenantsController struct {
	app      application.Application
	basePath string
}

func NewTenantsController(app application.Application) application.Controller {
	return &TenantsController{
		app:      app,
		basePath: "/core/api",
	}
}

func (c *TenantsController) Key() string {
	return c.basePath
}

func (c *TenantsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(requireSuperadmin)

	router.HandleFunc("/tenants", c.listTenants).Methods(http.MethodGet)
	router.HandleFunc("/tenants", c.createTenant).Methods(http.MethodPost)
	router.HandleFunc("/modules", c.moduleStates).Methods(http.MethodGet)
}

func requireSuperadmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, ok := composables.UseAuthRole(r.Context()); !ok || role != constants.RoleSuperadmin {
			_ = httpapi.WriteError(w, http.StatusForbidden, "auth.forbidden", "superadmin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tenantDTO struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Domain         string   `json:"domain"`
	CustomDomains  []string `json:"customDomains,omitempty"`
	EnabledModules []string `json:"enabledModules"`
	IsActive       bool     `json:"isActive"`
}

func toTenantDTO(t *tenant.Tenant) tenantDTO {
	return tenantDTO{
		ID:             t.ID().String(),
		Slug:           t.Slug(),
		Name:           t.Name(),
		Domain:         t.Domain(),
		CustomDomains:  t.CustomDomains(),
		EnabledModules: t.EnabledModules(),
		IsActive:       t.IsActive(),
	}
}

func (c *TenantsController) tenantService() *services.TenantService {
	return c.app.Service(services.TenantService{}).(*services.TenantService)
}

func (c *TenantsController) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := c.tenantService().List(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "tenancy.list_failed", "failed to list tenants", nil)
		return
	}
	out := make([]tenantDTO, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantDTO(t))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

type createTenantRequest struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Domain         string   `json:"domain"`
	CustomDomains  []string `json:"customDomains"`
	EnabledModules []string `json:"enabledModules"`
	StorageLocator string   `json:"storageLocator"`
}

func (c *TenantsController) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "tenancy.invalid_body", "invalid request body", nil)
		return
	}
	if req.Slug == "" || req.Domain == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "tenancy.invalid_body", "slug and domain are required", nil)
		return
	}

	record := tenant.New(req.Slug,
		tenant.WithName(req.Name),
		tenant.WithDomain(req.Domain),
		tenant.WithCustomDomains(req.CustomDomains),
		tenant.WithEnabledModules(req.EnabledModules),
		tenant.WithStorageLocator(req.StorageLocator),
	)
	created, err := c.tenantService().Create(r.Context(), record)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "tenancy.create_failed", "failed to create tenant", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toTenantDTO(created))
}

func (c *TenantsController) moduleStates(w http.ResponseWriter, r *http.Request) {
	states := c.app.LoadStates()
	out := make(map[string]any)
	for _, name := range states.Names() {
		if state, ok := states.Status(name); ok {
			out[name] = state
		}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}
