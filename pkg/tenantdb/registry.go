package tenantdb

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/tenancy/pkg/composables"
)

var ErrUnknownEntity = errors.New("unknown entity type")

type bindingKey struct {
	conn   string
	entity string
}

// Registry multiplexes data access across tenants: it owns one lazily-opened
// pool per storage locator and a cache of compiled model bindings keyed by
// (connection identity, entity name). Bindings are never evicted; pools are
// assumed long-lived for the process.
type Registry struct {
	logger  *logrus.Logger
	catalog map[string]EntityDef

	mu       sync.Mutex
	pools    map[string]*pgxpool.Pool
	bindings map[bindingKey]*Binding
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return NewRegistryWithCatalog(logger, DefaultCatalog())
}

func NewRegistryWithCatalog(logger *logrus.Logger, defs []EntityDef) *Registry {
	catalog := make(map[string]EntityDef, len(defs))
	for _, def := range defs {
		catalog[def.Name] = def
	}
	return &Registry{
		logger:   logger,
		catalog:  catalog,
		pools:    make(map[string]*pgxpool.Pool),
		bindings: make(map[bindingKey]*Binding),
	}
}

// Model returns the binding for one entity scoped to the tenant resolved on
// this request. The binding is compiled on first use per tenant+entity pair.
func (r *Registry) Model(ctx context.Context, entityName string) (*Binding, error) {
	tc, err := composables.UseTenant(ctx)
	if err != nil {
		return nil, err
	}
	pool, locator, err := r.pool(ctx, tc.Record.StorageLocator())
	if err != nil {
		return nil, err
	}
	return r.binding(locator, entityName, pool)
}

// ModelsFor returns bindings for the full entity catalog against a raw
// connection handle, for batch and background work outside request scope.
func (r *Registry) ModelsFor(pool *pgxpool.Pool) map[string]*Binding {
	conn := pool.Config().ConnString()
	models := make(map[string]*Binding, len(r.catalog))
	for name := range r.catalog {
		binding, err := r.binding(conn, name, pool)
		if err != nil {
			// catalog-driven: every name is known
			continue
		}
		models[name] = binding
	}
	return models
}

// Pool returns the tenant's storage pool, opening it on first use. An
// unreachable locator fails here and the error propagates to the caller;
// retrying is not this layer's concern.
func (r *Registry) Pool(ctx context.Context, storageLocator string) (*pgxpool.Pool, error) {
	pool, _, err := r.pool(ctx, storageLocator)
	return pool, err
}

func (r *Registry) pool(ctx context.Context, locator string) (*pgxpool.Pool, string, error) {
	if locator == "" {
		return nil, "", errors.New("tenant has no storage locator")
	}

	r.mu.Lock()
	if pool, ok := r.pools[locator]; ok {
		r.mu.Unlock()
		return pool, locator, nil
	}
	r.mu.Unlock()

	pool, err := pgxpool.New(ctx, locator)
	if err != nil {
		return nil, "", errors.Wrap(err, "open tenant storage")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, "", errors.Wrap(err, "connect tenant storage")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pools[locator]; ok {
		// lost the race; keep the first pool
		pool.Close()
		return existing, locator, nil
	}
	r.pools[locator] = pool
	if r.logger != nil {
		r.logger.WithField("entities", len(r.catalog)).Debug("opened tenant storage pool")
	}
	return pool, locator, nil
}

// binding returns the cached binding or compiles it once. Two callers asking
// for the same (connection, entity) always receive the identical instance.
func (r *Registry) binding(conn, entityName string, pool *pgxpool.Pool) (*Binding, error) {
	key := bindingKey{conn: conn, entity: entityName}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[key]; ok {
		return b, nil
	}
	def, ok := r.catalog[entityName]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "%q", entityName)
	}
	b := compileBinding(def, pool)
	r.bindings[key] = b
	return b, nil
}

// Close shuts down every tenant pool. Only used on process teardown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pool := range r.pools {
		pool.Close()
	}
	r.pools = make(map[string]*pgxpool.Pool)
}
