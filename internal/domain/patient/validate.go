package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/platform/validation"
)

const (
	MsgDuplicateNationalID = "A patient with this national ID is already registered."

	maxSimilar = 3
)

var (
	validSexes = map[string]bool{"F": true, "M": true, "O": true}

	validMaritalStatuses = map[string]bool{
		"single": true, "married": true, "widowed": true,
		"divorced": true, "cohabiting": true, "other": true,
	}
	validEducationLevels = map[string]bool{
		"none": true, "primary": true, "secondary": true,
		"technical": true, "university": true, "other": true,
	}
	validCareStates     = map[string]bool{"waiting": true, "observation": true, "attended": true, "referred": true}
	validObstetricRisks = map[string]bool{"low": true, "medium": true, "high": true}
	validCasePriorities = map[string]bool{"low": true, "medium": true, "high": true}
	validCaseStatuses   = map[string]bool{"open": true, "in_study": true, "closed": true}
)

// validatePatient checks the fields of p that need no database access.
func validatePatient(p *Patient) *validation.Errors {
	errs := validation.New()
	errs.Required("national_id", p.NationalID == "")
	errs.Required("birth_date", p.BirthDate.IsZero())
	errs.Required("sex", p.Sex == "")
	errs.OneOf("sex", p.Sex, validSexes)
	errs.OneOf("marital_status", p.MaritalStatus, validMaritalStatuses)
	errs.OneOf("education_level", p.EducationLevel, validEducationLevels)
	errs.OneOf("care_state", p.CareState, validCareStates)
	errs.OneOf("obstetric_risk", p.ObstetricRisk, validObstetricRisks)
	if len(p.NationalID) > 12 {
		errs.Add("national_id", "Ensure this value has at most 12 characters.")
	}
	return errs
}

// checkIdentity rejects a national ID already held by another patient and,
// unless confirmed, a registration that looks like an existing patient.
func (s *Service) checkIdentity(ctx context.Context, p *Patient, confirmSimilar bool) error {
	taken, err := s.patients.NationalIDTaken(ctx, p.NationalID, p.ID)
	if err != nil {
		return fmt.Errorf("check national id: %w", err)
	}
	if taken {
		return validation.Field("national_id", MsgDuplicateNationalID)
	}

	if confirmSimilar || p.PaternalSurname == "" || p.BirthDate.IsZero() {
		return nil
	}
	similar, err := s.patients.FindSimilar(ctx, SimilarQuery{
		PaternalSurname: p.PaternalSurname,
		MaternalSurname: p.MaternalSurname,
		BirthDate:       p.BirthDate,
		Exclude:         p.ID,
		Limit:           maxSimilar,
	})
	if err != nil {
		return fmt.Errorf("find similar patients: %w", err)
	}
	if len(similar) == 0 {
		return nil
	}
	errs := validation.New()
	errs.AddNonField(similarMessage(similar))
	return errs
}

func similarMessage(similar []*Patient) string {
	names := make([]string, len(similar))
	for i, p := range similar {
		names[i] = fmt.Sprintf("%s (%s)", p.DisplayName(), p.NationalID)
	}
	return "Similar patients exist: " + strings.Join(names, ", ") + ". Confirm to register anyway."
}

func validateCase(c *ClinicalCase) *validation.Errors {
	errs := validation.New()
	errs.Required("patient_id", c.PatientID == uuid.Nil)
	errs.Required("title", strings.TrimSpace(c.Title) == "")
	errs.Required("summary", strings.TrimSpace(c.Summary) == "")
	errs.Required("specialty", strings.TrimSpace(c.Specialty) == "")
	errs.Required("responsible_clinician_id", c.ResponsibleClinicianID == uuid.Nil)
	errs.OneOf("priority", c.Priority, validCasePriorities)
	errs.OneOf("status", c.Status, validCaseStatuses)
	return errs
}
