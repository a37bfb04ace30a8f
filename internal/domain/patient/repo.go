package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/maternity/records/pkg/civil"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
	// NationalIDTaken reports whether another patient than exclude holds
	// nationalID, compared case-insensitively.
	NationalIDTaken(ctx context.Context, nationalID string, exclude uuid.UUID) (bool, error)
	FindSimilar(ctx context.Context, q SimilarQuery) ([]*Patient, error)
}

// SimilarQuery looks for probable duplicates of a patient being registered.
type SimilarQuery struct {
	PaternalSurname string
	MaternalSurname string
	BirthDate       civil.Date
	Exclude         uuid.UUID
	Limit           int
}

type CaseRepository interface {
	Create(ctx context.Context, c *ClinicalCase) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalCase, error)
	Update(ctx context.Context, c *ClinicalCase) error
	List(ctx context.Context, f CaseFilter, limit, offset int) ([]*ClinicalCase, int, error)
}
