package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/modules/core/infrastructure/persistence"
	"github.com/iota-uz/tenancy/modules/core/services"
	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/constants"
)

type memoryTenantRepository struct {
	tenants []*tenant.Tenant
}

func (r *memoryTenantRepository) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug() == slug {
			return t, nil
		}
	}
	return nil, persistence.ErrTenantNotFound
}

func (r *memoryTenantRepository) GetByDomain(_ context.Context, host string) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.Domain() == host {
			return t, nil
		}
		for _, d := range t.CustomDomains() {
			if d == host {
				return t, nil
			}
		}
	}
	return nil, persistence.ErrTenantNotFound
}

func (r *memoryTenantRepository) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	r.tenants = append(r.tenants, t)
	return t, nil
}

func (r *memoryTenantRepository) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return t, nil
}

func (r *memoryTenantRepository) List(_ context.Context) ([]*tenant.Tenant, error) {
	return r.tenants, nil
}

func resolverApp(t *testing.T, tenants ...*tenant.Tenant) application.Application {
	t.Helper()
	app := application.New(&application.ApplicationOptions{
		Bundle: application.LoadBundle(),
	})
	app.RegisterServices(services.NewTenantService(&memoryTenantRepository{tenants: tenants}))
	return app
}

// resolveThrough runs a request through RequireTenant and reports the slug
// the downstream handler observed.
func resolveThrough(t *testing.T, app application.Application, opts TenantResolverOptions, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var resolved string
	handler := RequireTenant(app, opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug, err := composables.UseTenantSlug(r.Context())
		require.NoError(t, err)
		resolved = slug
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, resolved
}

func TestRequireTenant_ResolvesByHost(t *testing.T) {
	app := resolverApp(t,
		tenant.New("acme", tenant.WithDomain("acme.example.com")),
		tenant.New("globex", tenant.WithDomain("globex.example.com")),
	)
	opts := TenantResolverOptions{Production: true}

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/items", nil)
	req.Host = "acme.example.com"

	rec, slug := resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)
}

func TestRequireTenant_HostResolutionIsDeterministic(t *testing.T) {
	app := resolverApp(t, tenant.New("acme", tenant.WithDomain("acme.example.com")))
	opts := TenantResolverOptions{Production: true}

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "ACME.example.com:8443"

		rec, slug := resolveThrough(t, app, opts, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", slug)
	}
}

func TestRequireTenant_StripsWWWAndPort(t *testing.T) {
	app := resolverApp(t, tenant.New("acme", tenant.WithDomain("acme.example.com")))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "www.acme.example.com:443"

	rec, slug := resolveThrough(t, app, TenantResolverOptions{Production: true}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)
}

func TestRequireTenant_CustomDomain(t *testing.T) {
	app := resolverApp(t, tenant.New("acme",
		tenant.WithDomain("acme.example.com"),
		tenant.WithCustomDomains([]string{"shop.acme.io"}),
	))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "shop.acme.io"

	rec, slug := resolveThrough(t, app, TenantResolverOptions{Production: true}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)
}

func TestRequireTenant_UnknownHostReturns404(t *testing.T) {
	app := resolverApp(t, tenant.New("acme", tenant.WithDomain("acme.example.com")))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nobody.example.com"

	rec, _ := resolveThrough(t, app, TenantResolverOptions{Production: true}, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "tenancy.not_found")
}

func TestRequireTenant_GatewayHostUsesOrigin(t *testing.T) {
	app := resolverApp(t, tenant.New("acme", tenant.WithDomain("acme.example.com")))
	opts := TenantResolverOptions{
		Production:   true,
		GatewayHosts: map[string]struct{}{"api.example.com": {}},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "api.example.com"
	req.Header.Set("Origin", "https://acme.example.com")

	rec, slug := resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)
}

func TestRequireTenant_GatewayHostFallsBackToReferer(t *testing.T) {
	app := resolverApp(t, tenant.New("acme", tenant.WithDomain("acme.example.com")))
	opts := TenantResolverOptions{
		Production:   true,
		GatewayHosts: map[string]struct{}{"api.example.com": {}},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "api.example.com"
	req.Header.Set("Referer", "https://acme.example.com/dashboard")

	rec, slug := resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)
}

func TestRequireTenant_OverrideHeaderRequiresSuperadmin(t *testing.T) {
	app := resolverApp(t,
		tenant.New("acme", tenant.WithDomain("acme.example.com")),
		tenant.New("globex", tenant.WithDomain("globex.example.com")),
	)
	opts := TenantResolverOptions{
		Production:     true,
		OverrideHeader: "X-Tenant-Override",
	}

	// Without the role the header is ignored and the host wins.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.example.com"
	req.Header.Set("X-Tenant-Override", "globex")

	rec, slug := resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", slug)

	// With the superadmin role the override takes effect.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.example.com"
	req.Header.Set("X-Tenant-Override", "globex")
	req = req.WithContext(composables.WithParams(req.Context(), &composables.Params{
		AuthRole: constants.RoleSuperadmin,
	}))

	rec, slug = resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "globex", slug)
}

func TestRequireTenant_LoopbackFallbackOutsideProduction(t *testing.T) {
	app := resolverApp(t, tenant.New("default", tenant.WithDomain("default.example.com")))

	for _, host := range []string{"localhost:3200", "127.0.0.1:3200", "[::1]:3200"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host

		rec, slug := resolveThrough(t, app, TenantResolverOptions{DefaultTenant: "default"}, req)
		assert.Equal(t, http.StatusOK, rec.Code, host)
		assert.Equal(t, "default", slug, host)
	}
}

func TestRequireTenant_NoLoopbackFallbackInProduction(t *testing.T) {
	app := resolverApp(t, tenant.New("default", tenant.WithDomain("default.example.com")))
	opts := TenantResolverOptions{Production: true, DefaultTenant: "default"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "localhost:3200"

	rec, _ := resolveThrough(t, app, opts, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequireTenant_VerboseDetailOnlyInDevelopment(t *testing.T) {
	app := resolverApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nobody.example.com"
	rec, _ := resolveThrough(t, app, TenantResolverOptions{}, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "nobody.example.com")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nobody.example.com"
	rec, _ = resolveThrough(t, app, TenantResolverOptions{Production: true}, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "nobody.example.com"))
}

func TestNormalizeHost(t *testing.T) {
	cases := map[string]string{
		"Acme.Example.COM":     "acme.example.com",
		"www.acme.example.com": "acme.example.com",
		"acme.example.com:443": "acme.example.com",
		"[::1]:8080":           "::1",
		"  localhost ":         "localhost",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHost(in), in)
	}
}
