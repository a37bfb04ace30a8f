package audit

// Kind identifies an audited entity type.
type Kind string

const (
	KindPatient      Kind = "patient"
	KindBirthEpisode Kind = "birth_episode"
	KindNewborn      Kind = "newborn"
)

var creationLabels = map[Kind]string{
	KindPatient:      "PATIENT CREATED",
	KindBirthEpisode: "BIRTH EPISODE CREATED",
	KindNewborn:      "NEWBORN BIRTH",
}

// auditedFields lists, in entry order, the snapshot keys whose changes are
// written to the trail. Any other field may change without an entry.
var auditedFields = map[Kind][]string{
	KindPatient: {
		"given_names",
		"paternal_surname",
		"phone",
		"care_state",
		"obstetric_risk",
		"active",
		"clinic_id",
	},
	KindBirthEpisode: {
		"birth_at",
		"birth_type_id",
		"room",
		"complications",
		"observations",
		"labor_duration_min",
	},
	KindNewborn: {
		"weight_grams",
		"length_cm",
		"apgar1",
		"apgar5",
		"resuscitation",
		"follow_up_control_date",
	},
}

// CreationLabel is the label of the single entry written when an entity of
// this kind is created.
func (k Kind) CreationLabel() string {
	return creationLabels[k]
}

// Fields returns the audited fields of k.
func (k Kind) Fields() []string {
	out := make([]string, len(auditedFields[k]))
	copy(out, auditedFields[k])
	return out
}

func (k Kind) Valid() bool {
	_, ok := auditedFields[k]
	return ok
}
