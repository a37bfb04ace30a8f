package obstetrics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/domain/patient"
	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/pkg/civil"
)

const (
	PositionOther = "other"

	ResuscitationNone = "none"
	DischargeMedical  = "medical"
)

// BirthEpisode maps to the birth_episode table. PatientID is the mother.
type BirthEpisode struct {
	ID                        uuid.UUID  `db:"id" json:"id"`
	PatientID                 uuid.UUID  `db:"patient_id" json:"patient_id"`
	BirthAt                   time.Time  `db:"birth_at" json:"birth_at"`
	AdmittedAt                *time.Time `db:"admitted_at" json:"admitted_at,omitempty"`
	BirthTypeID               *uuid.UUID `db:"birth_type_id" json:"birth_type_id,omitempty"`
	BirthPosition             string     `db:"birth_position" json:"birth_position"`
	BirthPositionOther        string     `db:"birth_position_other" json:"birth_position_other"`
	Room                      string     `db:"room" json:"room"`
	MaternalAge               *int       `db:"maternal_age" json:"maternal_age,omitempty"`
	Parity                    *int       `db:"parity" json:"parity,omitempty"`
	PrenatalControl           bool       `db:"prenatal_control" json:"prenatal_control"`
	SeverePreeclampsia        bool       `db:"severe_preeclampsia" json:"severe_preeclampsia"`
	Eclampsia                 bool       `db:"eclampsia" json:"eclampsia"`
	Sepsis                    bool       `db:"sepsis" json:"sepsis"`
	OvularInfection           bool       `db:"ovular_infection" json:"ovular_infection"`
	OtherPathologyDetail      string     `db:"other_pathology_detail" json:"other_pathology_detail"`
	DelayedCordClamping       bool       `db:"delayed_cord_clamping" json:"delayed_cord_clamping"`
	SkinToSkin                bool       `db:"skin_to_skin" json:"skin_to_skin"`
	SkinToSkinMinutes         *int       `db:"skin_to_skin_minutes" json:"skin_to_skin_minutes,omitempty"`
	FirstHourBreastfeeding    bool       `db:"first_hour_breastfeeding" json:"first_hour_breastfeeding"`
	RoomingIn                 bool       `db:"rooming_in" json:"rooming_in"`
	VDRLPositive              bool       `db:"vdrl_positive" json:"vdrl_positive"`
	HepatitisBPositive        bool       `db:"hepatitis_b_positive" json:"hepatitis_b_positive"`
	HIVPositive               bool       `db:"hiv_positive" json:"hiv_positive"`
	Complications             string     `db:"complications" json:"complications"`
	Observations              string     `db:"observations" json:"observations"`
	LaborDurationMin          *int       `db:"labor_duration_min" json:"labor_duration_min,omitempty"`
	ResponsibleProfessionalID *uuid.UUID `db:"responsible_professional_id" json:"responsible_professional_id,omitempty"`
	CreatedAt                 time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at" json:"updated_at"`
}

func (b *BirthEpisode) AuditSnapshot() audit.Snapshot {
	return audit.Snapshot{
		"birth_at":           audit.Time(b.BirthAt),
		"birth_type_id":      audit.OptUUID(b.BirthTypeID),
		"room":               b.Room,
		"complications":      b.Complications,
		"observations":       b.Observations,
		"labor_duration_min": audit.OptInt(b.LaborDurationMin),
	}
}

// Newborn maps to the newborn table.
type Newborn struct {
	ID                  uuid.UUID   `db:"id" json:"id"`
	BirthEpisodeID      uuid.UUID   `db:"birth_episode_id" json:"birth_episode_id"`
	Identifier          string      `db:"identifier" json:"identifier"`
	Sex                 string      `db:"sex" json:"sex"`
	WeightGrams         int         `db:"weight_grams" json:"weight_grams"`
	LengthCM            int         `db:"length_cm" json:"length_cm"`
	HeadCircumferenceCM *float64    `db:"head_circumference_cm" json:"head_circumference_cm,omitempty"`
	Apgar1              *int        `db:"apgar1" json:"apgar1,omitempty"`
	Apgar5              *int        `db:"apgar5" json:"apgar5,omitempty"`
	GestationalAgeWeeks *int        `db:"gestational_age_weeks" json:"gestational_age_weeks,omitempty"`
	Resuscitation       string      `db:"resuscitation" json:"resuscitation"`
	HasMalformation     bool        `db:"has_malformation" json:"has_malformation"`
	MalformationDetail  string      `db:"malformation_detail" json:"malformation_detail"`
	InitialCondition    string      `db:"initial_condition" json:"initial_condition"`
	Referral            string      `db:"referral" json:"referral"`
	DischargeDiagnosis  string      `db:"discharge_diagnosis" json:"discharge_diagnosis"`
	FollowUpControlDate *civil.Date `db:"follow_up_control_date" json:"follow_up_control_date,omitempty"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

func (n *Newborn) AuditSnapshot() audit.Snapshot {
	return audit.Snapshot{
		"weight_grams":           audit.Int(n.WeightGrams),
		"length_cm":              audit.Int(n.LengthCM),
		"apgar1":                 audit.OptInt(n.Apgar1),
		"apgar5":                 audit.OptInt(n.Apgar5),
		"resuscitation":          n.Resuscitation,
		"follow_up_control_date": audit.OptDate(n.FollowUpControlDate),
	}
}

// AuditLabel names the newborn in trail entries.
func (n *Newborn) AuditLabel() string {
	if n.Identifier != "" {
		return "Newborn (" + n.Identifier + ")"
	}
	return "Newborn (RN " + n.ID.String() + ")"
}

var sexNames = map[string]string{"M": "male", "F": "female", "I": "indeterminate"}

// BirthDescription is the value of the creation entry, as in
// "Born female (3000g)".
func (n *Newborn) BirthDescription() string {
	sex, ok := sexNames[n.Sex]
	if !ok {
		sex = n.Sex
	}
	return fmt.Sprintf("Born %s (%dg)", sex, n.WeightGrams)
}

// NewbornEvent is a clinical event recorded once per newborn and type.
type NewbornEvent struct {
	ID           uuid.UUID `db:"id" json:"id"`
	NewbornID    uuid.UUID `db:"newborn_id" json:"newborn_id"`
	EventType    string    `db:"event_type" json:"event_type"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
	Result       string    `db:"result" json:"result"`
	Observations string    `db:"observations" json:"observations"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Discharge maps to the discharge table. A birth episode has at most one.
type Discharge struct {
	ID                        uuid.UUID   `db:"id" json:"id"`
	BirthEpisodeID            uuid.UUID   `db:"birth_episode_id" json:"birth_episode_id"`
	DischargedAt              time.Time   `db:"discharged_at" json:"discharged_at"`
	DischargeType             string      `db:"discharge_type" json:"discharge_type"`
	ResponsibleProfessionalID *uuid.UUID  `db:"responsible_professional_id" json:"responsible_professional_id,omitempty"`
	Condition                 string      `db:"condition" json:"condition"`
	RequiresFollowUp          bool        `db:"requires_follow_up" json:"requires_follow_up"`
	NextAppointment           *civil.Date `db:"next_appointment" json:"next_appointment,omitempty"`
	Observations              string      `db:"observations" json:"observations"`
	CreatedAt                 time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time   `db:"updated_at" json:"updated_at"`
}

// BoardItem is one birth episode on the home board.
type BoardItem struct {
	BirthEpisodeID uuid.UUID  `json:"birth_episode_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	NationalID     string     `json:"national_id"`
	Room           string     `json:"room"`
	BirthAt        time.Time  `json:"birth_at"`
	NewbornCount   int        `json:"newborn_count"`
	DischargedAt   *time.Time `json:"discharged_at,omitempty"`
}

type BoardColumn struct {
	Items []*BoardItem `json:"items"`
	Total int          `json:"total"`
}

func column(items []*BoardItem) BoardColumn {
	if items == nil {
		items = []*BoardItem{}
	}
	return BoardColumn{Items: items, Total: len(items)}
}

// Board is the unit overview: mothers in immediate recovery, mothers on the
// ward awaiting discharge and the discharges of the day.
type Board struct {
	GeneratedAt     time.Time   `json:"generated_at"`
	Recovery        BoardColumn `json:"recovery"`
	Ward            BoardColumn `json:"ward"`
	DischargedToday BoardColumn `json:"discharged_today"`
}

// Trace is the full obstetric history of one patient.
type Trace struct {
	Patient *patient.Patient `json:"patient"`
	Births  []*TraceBirth    `json:"births"`
}

type TraceBirth struct {
	Episode   *BirthEpisode `json:"episode"`
	Newborns  []*Newborn    `json:"newborns"`
	Discharge *Discharge    `json:"discharge,omitempty"`
}
