package tenantdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Binding is a compiled accessor for one entity type scoped to one tenant's
// storage handle. Bindings are compiled once per (connection, entity) pair
// and live as long as the connection does.
type Binding struct {
	def  EntityDef
	pool *pgxpool.Pool

	listSQL   string
	getSQL    string
	insertSQL string
	deleteSQL string
}

func compileBinding(def EntityDef, pool *pgxpool.Pool) *Binding {
	cols := strings.Join(def.Columns, ", ")

	placeholders := make([]string, len(def.Columns))
	for i := range def.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return &Binding{
		def:  def,
		pool: pool,
		listSQL: fmt.Sprintf(
			"SELECT %s FROM %s ORDER BY %s", cols, def.Table, def.IDCol,
		),
		getSQL: fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s = $1", cols, def.Table, def.IDCol,
		),
		insertSQL: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)", def.Table, cols, strings.Join(placeholders, ", "),
		),
		deleteSQL: fmt.Sprintf(
			"DELETE FROM %s WHERE %s = $1", def.Table, def.IDCol,
		),
	}
}

func (b *Binding) Entity() string {
	return b.def.Name
}

func (b *Binding) Table() string {
	return b.def.Table
}

func (b *Binding) List(ctx context.Context) ([]map[string]any, error) {
	rows, err := b.pool.Query(ctx, b.listSQL)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", b.def.Name)
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

func (b *Binding) Get(ctx context.Context, id any) (map[string]any, error) {
	rows, err := b.pool.Query(ctx, b.getSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", b.def.Name)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", b.def.Name)
	}
	return record, nil
}

func (b *Binding) Insert(ctx context.Context, values []any) error {
	if len(values) != len(b.def.Columns) {
		return errors.Errorf("insert %s: expected %d values, got %d", b.def.Name, len(b.def.Columns), len(values))
	}
	if _, err := b.pool.Exec(ctx, b.insertSQL, values...); err != nil {
		return errors.Wrapf(err, "insert %s", b.def.Name)
	}
	return nil
}

func (b *Binding) Delete(ctx context.Context, id any) error {
	if _, err := b.pool.Exec(ctx, b.deleteSQL, id); err != nil {
		return errors.Wrapf(err, "delete %s", b.def.Name)
	}
	return nil
}
