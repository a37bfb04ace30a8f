package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/pkg/civil"
)

const (
	CareStateWaiting = "waiting"
	RiskLow          = "low"

	CasePriorityMedium = "medium"
	CaseStatusOpen     = "open"
)

// Patient maps to the patient table. Patients are never deleted; Active is
// cleared instead.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	NationalID            string     `db:"national_id" json:"national_id"`
	CheckDigit            string     `db:"check_digit" json:"check_digit"`
	GivenNames            string     `db:"given_names" json:"given_names"`
	PaternalSurname       string     `db:"paternal_surname" json:"paternal_surname"`
	MaternalSurname       string     `db:"maternal_surname" json:"maternal_surname"`
	FullName              string     `db:"full_name" json:"full_name"`
	BirthDate             civil.Date `db:"birth_date" json:"birth_date"`
	Sex                   string     `db:"sex" json:"sex"`
	Phone                 string     `db:"phone" json:"phone"`
	Email                 string     `db:"email" json:"email"`
	Address               string     `db:"address" json:"address"`
	MaritalStatus         string     `db:"marital_status" json:"marital_status"`
	EducationLevel        string     `db:"education_level" json:"education_level"`
	ClinicID              *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	NationalityCode       *string    `db:"nationality_code" json:"nationality_code,omitempty"`
	IndigenousGroupID     *uuid.UUID `db:"indigenous_group_id" json:"indigenous_group_id,omitempty"`
	CareState             string     `db:"care_state" json:"care_state"`
	ObstetricRisk         string     `db:"obstetric_risk" json:"obstetric_risk"`
	EmergencyContactName  string     `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string     `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	RegisteredBy          *uuid.UUID `db:"registered_by" json:"registered_by,omitempty"`
	Active                bool       `db:"active" json:"active"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// normalize trims identity fields and composes FullName when it is blank.
func (p *Patient) normalize() {
	p.NationalID = strings.TrimSpace(p.NationalID)
	p.GivenNames = strings.TrimSpace(p.GivenNames)
	p.PaternalSurname = strings.TrimSpace(p.PaternalSurname)
	p.MaternalSurname = strings.TrimSpace(p.MaternalSurname)
	if strings.TrimSpace(p.FullName) == "" {
		p.FullName = p.ComposedName()
	}
	if p.CareState == "" {
		p.CareState = CareStateWaiting
	}
	if p.ObstetricRisk == "" {
		p.ObstetricRisk = RiskLow
	}
	if p.MaritalStatus == "" {
		p.MaritalStatus = "other"
	}
	if p.EducationLevel == "" {
		p.EducationLevel = "other"
	}
}

func (p *Patient) ComposedName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.GivenNames, p.PaternalSurname, p.MaternalSurname} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// DisplayName is the name shown in listings and validation messages.
func (p *Patient) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.ComposedName()
}

func (p *Patient) AuditSnapshot() audit.Snapshot {
	return audit.Snapshot{
		"given_names":      p.GivenNames,
		"paternal_surname": p.PaternalSurname,
		"phone":            p.Phone,
		"care_state":       p.CareState,
		"obstetric_risk":   p.ObstetricRisk,
		"active":           audit.Bool(p.Active),
		"clinic_id":        audit.OptUUID(p.ClinicID),
	}
}

// ClinicalCase maps to the clinical_case table.
type ClinicalCase struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	PatientID              uuid.UUID `db:"patient_id" json:"patient_id"`
	Title                  string    `db:"title" json:"title"`
	Summary                string    `db:"summary" json:"summary"`
	Specialty              string    `db:"specialty" json:"specialty"`
	Priority               string    `db:"priority" json:"priority"`
	Status                 string    `db:"status" json:"status"`
	ResponsibleClinicianID uuid.UUID `db:"responsible_clinician_id" json:"responsible_clinician_id"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// Filter narrows the patient list. Query is a case-insensitive substring
// matched against the national ID and every name field.
type Filter struct {
	Query         string
	CareState     string
	ObstetricRisk string
}

type CaseFilter struct {
	PatientID *uuid.UUID
	Status    string
}
