package composables

import (
	"context"
	"errors"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/pkg/constants"
)

var ErrNoTenant = errors.New("tenant not found in context")

// TenantContext is attached to each request by the resolver middleware,
// exactly once, and is never mutated afterward.
type TenantContext struct {
	Slug           string
	Record         *tenant.Tenant
	EnabledModules []string
}

func NewTenantContext(record *tenant.Tenant) *TenantContext {
	return &TenantContext{
		Slug:           record.Slug(),
		Record:         record,
		EnabledModules: record.EnabledModules(),
	}
}

func (tc *TenantContext) ModuleEnabled(name string) bool {
	for _, m := range tc.EnabledModules {
		if m == name {
			return true
		}
	}
	return false
}

func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, constants.TenantKey, tc)
}

func UseTenant(ctx context.Context) (*TenantContext, error) {
	tc, ok := ctx.Value(constants.TenantKey).(*TenantContext)
	if !ok {
		return nil, ErrNoTenant
	}
	return tc, nil
}

// UseTenantSlug is a convenience accessor for handlers that only need the
// identity, not the full record.
func UseTenantSlug(ctx context.Context) (string, error) {
	tc, err := UseTenant(ctx)
	if err != nil {
		return "", err
	}
	return tc.Slug, nil
}
