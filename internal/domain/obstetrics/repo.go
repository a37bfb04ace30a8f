package obstetrics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BirthRepository interface {
	Create(ctx context.Context, b *BirthEpisode) error
	GetByID(ctx context.Context, id uuid.UUID) (*BirthEpisode, error)
	Update(ctx context.Context, b *BirthEpisode) error
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*BirthEpisode, int, error)
	// ListByPatient returns every episode of a patient, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*BirthEpisode, error)
}

type NewbornRepository interface {
	Create(ctx context.Context, n *Newborn) error
	GetByID(ctx context.Context, id uuid.UUID) (*Newborn, error)
	Update(ctx context.Context, n *Newborn) error
	List(ctx context.Context, birthEpisodeID *uuid.UUID, limit, offset int) ([]*Newborn, int, error)
	ListByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) ([]*Newborn, error)
	CountByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) (int, error)
	// Events
	AddEvent(ctx context.Context, e *NewbornEvent) error
	ListEvents(ctx context.Context, newbornID uuid.UUID) ([]*NewbornEvent, error)
}

type DischargeRepository interface {
	Create(ctx context.Context, d *Discharge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Discharge, error)
	Update(ctx context.Context, d *Discharge) error
	// GetByEpisode returns pgx.ErrNoRows when the episode has no discharge.
	GetByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) (*Discharge, error)
}

// BoardReader feeds the home board.
type BoardReader interface {
	// BirthsSince lists episodes born at or after since, newest first.
	BirthsSince(ctx context.Context, since time.Time) ([]*BoardItem, error)
	// UndischargedBefore lists episodes born before t without a discharge,
	// oldest first.
	UndischargedBefore(ctx context.Context, t time.Time) ([]*BoardItem, error)
	// DischargedBetween lists episodes discharged in [from, to), newest first.
	DischargedBetween(ctx context.Context, from, to time.Time) ([]*BoardItem, error)
}
