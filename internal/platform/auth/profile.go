package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Code is the coarse permission tag derived from a staff position.
type Code string

const (
	CodeClinicalFull    Code = "CLINICAL_FULL"
	CodeClinicalSupport Code = "CLINICAL_SUPPORT"
	CodeAdministrative  Code = "ADMINISTRATIVE"
	CodeReadOnly        Code = "READ_ONLY"
	CodeTotalAccess     Code = "TOTAL_ACCESS"
)

// AllCodes lists every code a position can carry.
var AllCodes = []Code{CodeClinicalFull, CodeClinicalSupport, CodeAdministrative, CodeReadOnly, CodeTotalAccess}

var ErrNoProfile = errors.New("auth: no active profile")

type Position struct {
	ID   uuid.UUID
	Name string
	Code Code
}

// Profile is the staff record attached to an actor. Position is nil when no
// position has been assigned.
type Profile struct {
	UserID      uuid.UUID
	DisplayName string
	Position    *Position
}

// ProfileResolver looks up the active profile of a user. It returns
// ErrNoProfile when the user has none.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}
