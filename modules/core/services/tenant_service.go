package services

import (
	"context"
	"strings"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/pkg/composables"
)

// TenantService fronts the tenant directory store. Lookups are read-through:
// every resolution re-queries the directory so configuration changes become
// visible without a restart.
type TenantService struct {
	repo tenant.Repository
}

func NewTenantService(repo tenant.Repository) *TenantService {
	return &TenantService{repo: repo}
}

func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *TenantService) GetByDomain(ctx context.Context, host string) (*tenant.Tenant, error) {
	return s.repo.GetByDomain(ctx, host)
}

func (s *TenantService) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.repo.List(ctx)
}

func (s *TenantService) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	var created *tenant.Tenant
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var txErr error
		created, txErr = s.repo.Create(txCtx, t)
		return txErr
	})
	return created, err
}

func (s *TenantService) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	var updated *tenant.Tenant
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var txErr error
		updated, txErr = s.repo.Update(txCtx, t)
		return txErr
	})
	return updated, err
}
