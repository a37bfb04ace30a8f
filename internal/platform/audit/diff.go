package audit

// Change is one audited field whose value differs between two snapshots.
type Change struct {
	Field string
	Old   string
	New   string
}

// Diff compares before and after over the audited fields of kind, in table
// order. Fields outside the table are ignored.
func Diff(kind Kind, before, after Snapshot) []Change {
	var changes []Change
	for _, field := range auditedFields[kind] {
		old, cur := before.Get(field), after.Get(field)
		if old != cur {
			changes = append(changes, Change{Field: field, Old: old, New: cur})
		}
	}
	return changes
}
