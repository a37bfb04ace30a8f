package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternity/records/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) ListClinics(ctx context.Context) ([]*Clinic, error) {
	return listActive(ctx, r.conn(ctx), `SELECT id, name, commune, active FROM clinic WHERE active ORDER BY name`,
		func(row pgx.Row) (*Clinic, error) {
			var c Clinic
			err := row.Scan(&c.ID, &c.Name, &c.Commune, &c.Active)
			return &c, err
		})
}

func (r *repoPG) ListNationalities(ctx context.Context) ([]*Nationality, error) {
	return listActive(ctx, r.conn(ctx), `SELECT code, name, active FROM nationality WHERE active ORDER BY name`,
		func(row pgx.Row) (*Nationality, error) {
			var n Nationality
			err := row.Scan(&n.Code, &n.Name, &n.Active)
			return &n, err
		})
}

func (r *repoPG) ListIndigenousGroups(ctx context.Context) ([]*IndigenousGroup, error) {
	return listActive(ctx, r.conn(ctx), `SELECT id, name, active FROM indigenous_group WHERE active ORDER BY name`,
		func(row pgx.Row) (*IndigenousGroup, error) {
			var g IndigenousGroup
			err := row.Scan(&g.ID, &g.Name, &g.Active)
			return &g, err
		})
}

func scanBirthType(row pgx.Row) (*BirthType, error) {
	var b BirthType
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Active)
	return &b, err
}

func (r *repoPG) ListBirthTypes(ctx context.Context) ([]*BirthType, error) {
	return listActive(ctx, r.conn(ctx), `SELECT id, name, description, active FROM birth_type WHERE active ORDER BY name`, scanBirthType)
}

func (r *repoPG) GetBirthType(ctx context.Context, id uuid.UUID) (*BirthType, error) {
	return scanBirthType(r.conn(ctx).QueryRow(ctx, `SELECT id, name, description, active FROM birth_type WHERE id = $1`, id))
}

func listActive[T any](ctx context.Context, q queryable, sql string, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
