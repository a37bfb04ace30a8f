package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads the reference catalogs. Every List returns active
// entries only, ordered by name.
type Repository interface {
	ListClinics(ctx context.Context) ([]*Clinic, error)
	ListNationalities(ctx context.Context) ([]*Nationality, error)
	ListIndigenousGroups(ctx context.Context) ([]*IndigenousGroup, error)
	ListBirthTypes(ctx context.Context) ([]*BirthType, error)
	GetBirthType(ctx context.Context, id uuid.UUID) (*BirthType, error)
}
