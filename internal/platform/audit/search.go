package audit

import (
	"fmt"
	"strings"
	"time"
)

// MaxSearchLimit caps every audit listing.
const MaxSearchLimit = 200

type SearchParams struct {
	// Query matches patient names, national ID or actor display name,
	// case-insensitively.
	Query string
	// From and To bound created_at; both are inclusive dates.
	From  *time.Time
	To    *time.Time
	Limit int
}

func (p SearchParams) limit() int {
	if p.Limit <= 0 || p.Limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return p.Limit
}

const entrySelect = `
	SELECT e.id, e.patient_id, e.actor_id, e.label, e.old_value, e.new_value, e.created_at,
		COALESCE(p.full_name, ''), COALESCE(p.national_id, ''), COALESCE(sp.display_name, '')
	FROM audit_entry e
	JOIN patient p ON p.id = e.patient_id
	LEFT JOIN staff_profile sp ON sp.user_id = e.actor_id`

// buildSearchQuery renders the listing query, newest first.
func buildSearchQuery(p SearchParams) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(p.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(p.full_name ILIKE $%[1]d OR p.given_names ILIKE $%[1]d
			OR p.paternal_surname ILIKE $%[1]d OR p.maternal_surname ILIKE $%[1]d
			OR p.national_id ILIKE $%[1]d OR sp.display_name ILIKE $%[1]d)`, n))
	}
	if p.From != nil {
		args = append(args, dayStart(*p.From))
		where = append(where, fmt.Sprintf("e.created_at >= $%d", len(args)))
	}
	if p.To != nil {
		args = append(args, dayStart(*p.To).AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("e.created_at < $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(entrySelect)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, p.limit())
	fmt.Fprintf(&b, "\n\tORDER BY e.created_at DESC, e.id DESC\n\tLIMIT $%d", len(args))
	return b.String(), args
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
