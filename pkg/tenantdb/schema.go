package tenantdb

// EntityDef describes one logical entity type in a tenant's isolated store.
// The catalog is fixed at deploy time; it is not runtime-extensible.
type EntityDef struct {
	Name    string
	Table   string
	IDCol   string
	Columns []string
}

// DefaultCatalog lists every entity type the runtime knows how to bind.
func DefaultCatalog() []EntityDef {
	return []EntityDef{
		{
			Name:    "item",
			Table:   "items",
			IDCol:   "id",
			Columns: []string{"id", "sku", "name", "quantity", "created_at", "updated_at"},
		},
		{
			Name:    "order",
			Table:   "orders",
			IDCol:   "id",
			Columns: []string{"id", "number", "status", "total", "created_at", "updated_at"},
		},
		{
			Name:    "invoice",
			Table:   "invoices",
			IDCol:   "id",
			Columns: []string{"id", "number", "amount", "currency", "issued_at", "paid_at"},
		},
		{
			Name:    "customer",
			Table:   "customers",
			IDCol:   "id",
			Columns: []string{"id", "name", "email", "created_at", "updated_at"},
		},
	}
}
