package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the tenant directory store. Administration happens out of
// band; the runtime only reads.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetByDomain(ctx context.Context, host string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}

type Tenant struct {
	id             uuid.UUID
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

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithName(name string) Option {
	return func(t *Tenant) {
		t.name = name
	}
}

func WithDomain(domain string) Option {
	return func(t *Tenant) {
		t.domain = domain
	}
}

func WithCustomDomains(domains []string) Option {
	return func(t *Tenant) {
		t.customDomains = domains
	}
}

func WithEnabledModules(modules []string) Option {
	return func(t *Tenant) {
		t.enabledModules = modules
	}
}

func WithStorageLocator(locator string) Option {
	return func(t *Tenant) {
		t.storageLocator = locator
	}
}

func WithIsActive(isActive bool) Option {
	return func(t *Tenant) {
		t.isActive = isActive
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = updatedAt
	}
}

func New(slug string, opts ...Option) *Tenant {
	t := &Tenant{
		id:        uuid.New(),
		slug:      strings.ToLower(strings.TrimSpace(slug)),
		isActive:  true,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tenant) ID() uuid.UUID {
	return t.id
}

func (t *Tenant) Slug() string {
	return t.slug
}

func (t *Tenant) Name() string {
	return t.name
}

func (t *Tenant) Domain() string {
	return t.domain
}

func (t *Tenant) CustomDomains() []string {
	return t.customDomains
}

func (t *Tenant) StorageLocator() string {
	return t.storageLocator
}

func (t *Tenant) IsActive() bool {
	return t.isActive
}

func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

// EnabledModules returns the module names visible to this tenant,
// normalized to lowercase with surrounding whitespace removed.
func (t *Tenant) EnabledModules() []string {
	normalized := make([]string, 0, len(t.enabledModules))
	for _, m := range t.enabledModules {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			normalized = append(normalized, m)
		}
	}
	return normalized
}

func (t *Tenant) ModuleEnabled(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range t.EnabledModules() {
		if m == name {
			return true
		}
	}
	return false
}

func (t *Tenant) SetDomain(domain string) {
	t.domain = domain
	t.updatedAt = time.Now()
}

func (t *Tenant) SetEnabledModules(modules []string) {
	t.enabledModules = modules
	t.updatedAt = time.Now()
}

func (t *Tenant) SetStorageLocator(locator string) {
	t.storageLocator = locator
	t.updatedAt = time.Now()
}
