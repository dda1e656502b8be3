package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/pkg/composables"
)

var (
	ErrTenantNotFound = fmt.Errorf("tenant not found")
)

const (
	tenantFindQuery = `SELECT id, slug, name, domain, custom_domains, enabled_modules, storage_locator, is_active, created_at, updated_at FROM tenants`
)

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	query := tenantFindQuery + " WHERE slug = $1 AND is_active"
	tenants, err := r.queryTenants(ctx, query, slug)
	if err != nil {
		return nil, err
	}

	if len(tenants) == 0 {
		return nil, ErrTenantNotFound
	}

	return tenants[0], nil
}

func (r *TenantRepository) GetByDomain(ctx context.Context, host string) (*tenant.Tenant, error) {
	query := tenantFindQuery + " WHERE (domain = $1 OR $1 = ANY(custom_domains)) AND is_active"
	tenants, err := r.queryTenants(ctx, query, host)
	if err != nil {
		return nil, err
	}

	if len(tenants) == 0 {
		return nil, ErrTenantNotFound
	}

	return tenants[0], nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.queryTenants(ctx, tenantFindQuery+" ORDER BY slug")
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	query := `
		INSERT INTO tenants (id, slug, name, domain, custom_domains, enabled_modules, storage_locator, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING slug
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var slug string
	if err := tx.QueryRow(
		ctx,
		query,
		t.ID().String(),
		t.Slug(),
		t.Name(),
		strings.ToLower(strings.TrimSpace(t.Domain())),
		t.CustomDomains(),
		t.EnabledModules(),
		t.StorageLocator(),
		t.IsActive(),
		t.CreatedAt(),
		t.UpdatedAt(),
	).Scan(&slug); err != nil {
		return nil, errors.Wrap(err, "create tenant")
	}

	return r.GetBySlug(ctx, slug)
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	query := `
		UPDATE tenants
		SET name = $1, domain = $2, custom_domains = $3, enabled_modules = $4, storage_locator = $5, is_active = $6, updated_at = $7
		WHERE slug = $8
		RETURNING slug
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var slug string
	if err := tx.QueryRow(
		ctx,
		query,
		t.Name(),
		strings.ToLower(strings.TrimSpace(t.Domain())),
		t.CustomDomains(),
		t.EnabledModules(),
		t.StorageLocator(),
		t.IsActive(),
		t.UpdatedAt(),
		t.Slug(),
	).Scan(&slug); err != nil {
		return nil, errors.Wrap(err, "update tenant")
	}

	return r.GetBySlug(ctx, slug)
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query tenants")
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func scanTenant(rows pgx.Rows) (*tenant.Tenant, error) {
	var row struct {
		id             string
		slug           string
		name           string
		domain         string
		customDomains  []string
		enabledModules []string
		storageLocator string
		isActive       bool
		createdAt      time.Time
		updatedAt      time.Time
	}
	if err := rows.Scan(
		&row.id,
		&row.slug,
		&row.name,
		&row.domain,
		&row.customDomains,
		&row.enabledModules,
		&row.storageLocator,
		&row.isActive,
		&row.createdAt,
		&row.updatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan tenant")
	}

	id, err := uuid.Parse(row.id)
	if err != nil {
		return nil, errors.Wrap(err, "parse tenant id")
	}

	return tenant.New(
		row.slug,
		tenant.WithID(id),
		tenant.WithName(row.name),
		tenant.WithDomain(row.domain),
		tenant.WithCustomDomains(row.customDomains),
		tenant.WithEnabledModules(row.enabledModules),
		tenant.WithStorageLocator(row.storageLocator),
		tenant.WithIsActive(row.isActive),
		tenant.WithCreatedAt(row.createdAt),
		tenant.WithUpdatedAt(row.updatedAt),
	), nil
}
