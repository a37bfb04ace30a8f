package audit

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/records/pkg/civil"
)

// Snapshot is the comparable, stringified state of an entity. A missing key
// and an empty value are the same thing.
type Snapshot map[string]string

func (s Snapshot) Get(field string) string {
	if s == nil {
		return ""
	}
	return s[field]
}

// The helpers below render field values the way they are stored in audit
// entries. Nil pointers render as the empty string.

func OptString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func Int(v int) string {
	return strconv.Itoa(v)
}

func OptInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func OptFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func Bool(b bool) string {
	return strconv.FormatBool(b)
}

func OptUUID(p *uuid.UUID) string {
	if p == nil || *p == uuid.Nil {
		return ""
	}
	return p.String()
}

// Time renders t in UTC with second precision; the zero time is empty.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// OptDate renders a calendar date as YYYY-MM-DD.
func OptDate(p *civil.Date) string {
	if p == nil || p.IsZero() {
		return ""
	}
	return p.String()
}
