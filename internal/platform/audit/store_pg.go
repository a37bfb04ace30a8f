package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternity/records/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// StorePG keeps the audit trail in the audit_entry table. It has no update
// or delete path.
type StorePG struct {
	pool *pgxpool.Pool
}

func NewStorePG(pool *pgxpool.Pool) *StorePG {
	return &StorePG{pool: pool}
}

func (s *StorePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *StorePG) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO audit_entry (id, patient_id, actor_id, label, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.PatientID, e.ActorID, e.Label, e.OldValue, e.NewValue, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *StorePG) Search(ctx context.Context, p SearchParams) ([]*Entry, error) {
	query, args := buildSearchQuery(p)
	return s.list(ctx, query, args...)
}

// ListByPatient returns the trail of one patient, newest first.
func (s *StorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.list(ctx, entrySelect+`
	WHERE e.patient_id = $1
	ORDER BY e.created_at DESC, e.id DESC
	LIMIT $2`, patientID, limit)
}

func (s *StorePG) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.ActorID, &e.Label, &e.OldValue, &e.NewValue, &e.CreatedAt,
			&e.PatientName, &e.NationalID, &e.ActorName); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
