package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one row of the patient audit trail.
type Entry struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Label     string     `json:"label"`
	OldValue  string     `json:"old_value"`
	NewValue  string     `json:"new_value"`
	CreatedAt time.Time  `json:"created_at"`

	// Filled on reads.
	PatientName string `json:"patient_name,omitempty"`
	NationalID  string `json:"national_id,omitempty"`
	ActorName   string `json:"actor_name,omitempty"`
}
