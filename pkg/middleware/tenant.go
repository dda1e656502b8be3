package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/modules/core/infrastructure/persistence"
	"github.com/iota-uz/tenancy/modules/core/services"
	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/constants"
	"github.com/iota-uz/tenancy/pkg/httpapi"
	"github.com/iota-uz/tenancy/pkg/intl"
)

type TenantResolverOptions struct {
	// OverrideHeader names the header carrying an explicit tenant slug,
	// honored only for superadmin callers.
	OverrideHeader string
	// GatewayHosts are shared API-gateway hostnames; a request arriving on
	// one resolves via its Origin/Referer host instead.
	GatewayHosts map[string]struct{}
	// DefaultTenant is served to loopback hosts outside production.
	DefaultTenant string
	Production    bool
}

// RequireTenant resolves the tenant for every request before any routing
// happens. Downstream handlers always observe a fully-populated tenant
// context or never run at all.
func RequireTenant(app application.Application, opts TenantResolverOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantService := app.Service(services.TenantService{}).(*services.TenantService)

			record, err := resolveTenant(r, tenantService, opts)
			if err != nil {
				if logger, ok := composables.TryUseLogger(r.Context()); ok {
					logger.WithField("host", r.Host).WithField("path", r.URL.Path).WithError(err).Warn("tenant not found for host")
				}
				respondTenantNotFound(w, r, app, opts, err)
				return
			}

			tc := composables.NewTenantContext(record)
			next.ServeHTTP(w, r.WithContext(composables.WithTenant(r.Context(), tc)))
		})
	}
}

// resolveTenant applies the resolution order; the first match wins.
func resolveTenant(
	r *http.Request,
	tenantService *services.TenantService,
	opts TenantResolverOptions,
) (*tenant.Tenant, error) {
	ctx := r.Context()

	// 1. Privileged override: administrative tooling acting "as" a tenant.
	if opts.OverrideHeader != "" {
		if slug := strings.TrimSpace(r.Header.Get(opts.OverrideHeader)); slug != "" {
			if role, ok := composables.UseAuthRole(ctx); ok && role == constants.RoleSuperadmin {
				return tenantService.GetBySlug(ctx, slug)
			}
		}
	}

	// 2. Host-based mapping. Gateway hosts carry no tenant signal; use the
	// declared origin instead.
	host := normalizeHost(r.Host)
	if _, gateway := opts.GatewayHosts[host]; gateway {
		host = normalizeHost(originHost(r))
	}
	if host != "" {
		record, err := tenantService.GetByDomain(ctx, host)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, persistence.ErrTenantNotFound) {
			return nil, err
		}
	}

	// 3. Local-development fallback, never in production.
	if !opts.Production && isLoopback(host) {
		return tenantService.GetBySlug(ctx, opts.DefaultTenant)
	}

	return nil, persistence.ErrTenantNotFound
}

func respondTenantNotFound(
	w http.ResponseWriter,
	r *http.Request,
	app application.Application,
	opts TenantResolverOptions,
	err error,
) {
	langs := []string{r.Header.Get("Accept-Language")}
	for _, lang := range intl.SupportedLanguages {
		langs = append(langs, lang.Code)
	}
	localizer := i18n.NewLocalizer(app.Bundle(), langs...)
	message, localizeErr := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: "Tenancy.TenantNotFound",
		DefaultMessage: &i18n.Message{
			ID:    "Tenancy.TenantNotFound",
			Other: "No workspace is configured for this address.",
		},
	})
	if localizeErr != nil {
		message = "No workspace is configured for this address."
	}

	var meta map[string]any
	if !opts.Production {
		meta = map[string]any{
			"host":   r.Host,
			"detail": err.Error(),
		}
	}
	_ = httpapi.WriteError(w, http.StatusNotFound, "tenancy.not_found", message, meta)
}

// normalizeHost lowers the host, strips the port and a leading "www.".
func normalizeHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(raw); err == nil {
		raw = h
	}
	return strings.TrimPrefix(raw, "www.")
}

// originHost extracts the hostname declared by the client's Origin header,
// falling back to Referer.
func originHost(r *http.Request) string {
	for _, header := range []string{"Origin", "Referer"} {
		raw := r.Header.Get(header)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		return u.Hostname()
	}
	return ""
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
