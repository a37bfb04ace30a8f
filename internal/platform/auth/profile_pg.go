package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepoPG struct {
	pool *pgxpool.Pool
}

func NewProfileRepoPG(pool *pgxpool.Pool) *ProfileRepoPG {
	return &ProfileRepoPG{pool: pool}
}

func (r *ProfileRepoPG) ResolveProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var (
		p       Profile
		posID   *uuid.UUID
		posName *string
		code    *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT sp.user_id, sp.display_name, pos.id, pos.name, pos.permission_code
		FROM staff_profile sp
		LEFT JOIN staff_position pos ON pos.id = sp.position_id
		WHERE sp.user_id = $1 AND sp.active`, userID,
	).Scan(&p.UserID, &p.DisplayName, &posID, &posName, &code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("resolve profile %s: %w", userID, err)
	}

	if posID != nil {
		p.Position = &Position{ID: *posID}
		if posName != nil {
			p.Position.Name = *posName
		}
		if code != nil {
			p.Position.Code = Code(*code)
		}
	}
	return &p, nil
}
