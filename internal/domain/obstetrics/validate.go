package obstetrics

import (
	"strings"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/platform/validation"
)

const (
	MsgApgarRange        = "The APGAR score must be between 0 and 10."
	MsgInvalidEpisode    = "Select a valid birth episode."
	MsgAlreadyDischarged = "This birth episode already has a discharge registered."
	MsgNoNewborns        = "cannot register discharge without newborns"
	MsgDuplicateEvent    = "This event is already registered for this newborn."

	MinWeightGrams = 400
	MaxWeightGrams = 6500
)

var (
	validPositions = map[string]bool{
		"semi_seated": true, "seated": true, "lithotomy": true, "quadruped": true,
		"standing": true, "squatting": true, PositionOther: true,
	}
	validNewbornSexes   = map[string]bool{"M": true, "F": true, "I": true}
	validResuscitations = map[string]bool{"none": true, "basic": true, "advanced": true}
	validDischargeTypes = map[string]bool{"medical": true, "transfer": true, "deceased": true, "other": true}
	validEventTypes     = map[string]bool{
		"eye_prophylaxis": true, "hepatitis_b_vaccine": true, "bcg_vaccine": true,
		"hearing_screening": true, "pku_tsh_screening": true, "cardiac_screening": true,
	}
)

func inRange(p *int, lo, hi int) bool {
	return p == nil || (*p >= lo && *p <= hi)
}

func validateBirth(b *BirthEpisode) *validation.Errors {
	errs := validation.New()
	errs.Required("patient_id", b.PatientID == uuid.Nil)
	errs.Required("birth_at", b.BirthAt.IsZero())
	errs.Required("birth_type_id", b.BirthTypeID == nil || *b.BirthTypeID == uuid.Nil)
	errs.Required("responsible_professional_id", b.ResponsibleProfessionalID == nil || *b.ResponsibleProfessionalID == uuid.Nil)
	errs.OneOf("birth_position", b.BirthPosition, validPositions)
	if b.BirthPosition == PositionOther && strings.TrimSpace(b.BirthPositionOther) == "" {
		errs.Add("birth_position_other", "Describe the birth position when selecting other.")
	}
	if !inRange(b.MaternalAge, 10, 60) {
		errs.Add("maternal_age", "Maternal age must be between 10 and 60.")
	}
	if b.Parity != nil && *b.Parity < 0 {
		errs.Add("parity", "Ensure this value is greater than or equal to 0.")
	}
	if b.SkinToSkinMinutes != nil && *b.SkinToSkinMinutes < 0 {
		errs.Add("skin_to_skin_minutes", "Ensure this value is greater than or equal to 0.")
	}
	if b.LaborDurationMin != nil && *b.LaborDurationMin < 0 {
		errs.Add("labor_duration_min", "Ensure this value is greater than or equal to 0.")
	}
	return errs
}

func validateNewborn(n *Newborn) *validation.Errors {
	errs := validation.New()
	errs.Required("birth_episode_id", n.BirthEpisodeID == uuid.Nil)
	errs.Required("sex", n.Sex == "")
	errs.OneOf("sex", n.Sex, validNewbornSexes)
	errs.OneOf("resuscitation", n.Resuscitation, validResuscitations)

	switch {
	case n.WeightGrams <= 0:
		errs.Add("weight_grams", "Weight must be greater than 0.")
	case n.WeightGrams < MinWeightGrams || n.WeightGrams > MaxWeightGrams:
		errs.Add("weight_grams", "Weight must be between 400 and 6500 grams.")
	}
	if n.LengthCM <= 0 {
		errs.Add("length_cm", "Length must be greater than 0.")
	}
	if n.HeadCircumferenceCM != nil && *n.HeadCircumferenceCM <= 0 {
		errs.Add("head_circumference_cm", "Head circumference must be greater than 0.")
	}
	if !inRange(n.Apgar1, 0, 10) {
		errs.Add("apgar1", MsgApgarRange)
	}
	if !inRange(n.Apgar5, 0, 10) {
		errs.Add("apgar5", MsgApgarRange)
	}
	if !inRange(n.GestationalAgeWeeks, 20, 45) {
		errs.Add("gestational_age_weeks", "Gestational age must be between 20 and 45 weeks.")
	}
	if n.HasMalformation && strings.TrimSpace(n.MalformationDetail) == "" {
		errs.Add("malformation_detail", "Describe the malformation.")
	}
	return errs
}

func validateDischarge(d *Discharge) *validation.Errors {
	errs := validation.New()
	errs.Required("birth_episode_id", d.BirthEpisodeID == uuid.Nil)
	errs.Required("condition", strings.TrimSpace(d.Condition) == "")
	errs.OneOf("discharge_type", d.DischargeType, validDischargeTypes)
	if d.RequiresFollowUp && d.NextAppointment == nil {
		errs.Add("next_appointment", "Set the next appointment when follow-up is required.")
	}
	return errs
}

func validateEvent(e *NewbornEvent) *validation.Errors {
	errs := validation.New()
	errs.Required("event_type", e.EventType == "")
	errs.OneOf("event_type", e.EventType, validEventTypes)
	return errs
}
