package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/internal/platform/auth"
	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/validation"
)

// SaveOptions carries the human overrides a form may submit.
type SaveOptions struct {
	// ConfirmSimilar registers the patient even when similar patients exist.
	ConfirmSimilar bool
}

type Service struct {
	patients PatientRepository
	cases    CaseRepository
	tx       db.Transactor
	audit    *audit.Recorder
}

func NewService(patients PatientRepository, cases CaseRepository, tx db.Transactor, rec *audit.Recorder) *Service {
	return &Service{patients: patients, cases: cases, tx: tx, audit: rec}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient, opts SaveOptions) error {
	p.ID = uuid.Nil
	p.Active = true
	p.normalize()
	if p.RegisteredBy == nil {
		if id, ok := audit.ActorFromContext(ctx); ok {
			p.RegisteredBy = &id
		}
	}
	if err := validatePatient(p).Err(); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkIdentity(ctx, p, opts.ConfirmSimilar); err != nil {
			return err
		}
		m := s.audit.Capture(ctx, audit.KindPatient, uuid.Nil, nil)
		if err := s.patients.Create(ctx, p); err != nil {
			if db.IsUniqueViolation(err, "uq_patient_national_id") {
				return validation.Field("national_id", MsgDuplicateNationalID)
			}
			return fmt.Errorf("create patient: %w", err)
		}
		s.audit.Record(ctx, m, p.AuditSnapshot(), audit.Subject{
			PatientID:   p.ID,
			Label:       "Patient",
			Description: "Registered by " + registeredBy(ctx),
			Fallback:    p.RegisteredBy,
		})
		return nil
	})
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdatePatient persists p and writes one audit entry per changed audited
// field. The prior state is read inside the same transaction.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient, opts SaveOptions) error {
	p.normalize()
	if err := validatePatient(p).Err(); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkIdentity(ctx, p, opts.ConfirmSimilar); err != nil {
			return err
		}
		return s.save(ctx, p)
	})
}

// DeactivatePatient clears the active flag. Patients are never deleted.
func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p *Patient
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.patients.GetByID(ctx, id); err != nil {
			return err
		}
		if !p.Active {
			return nil
		}
		p.Active = false
		return s.save(ctx, p)
	})
	return p, err
}

func (s *Service) save(ctx context.Context, p *Patient) error {
	m := s.audit.Capture(ctx, audit.KindPatient, p.ID, func(ctx context.Context) (audit.Snapshot, error) {
		prior, err := s.patients.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return prior.AuditSnapshot(), nil
	})
	if err := s.patients.Update(ctx, p); err != nil {
		if db.IsUniqueViolation(err, "uq_patient_national_id") {
			return validation.Field("national_id", MsgDuplicateNationalID)
		}
		return fmt.Errorf("update patient: %w", err)
	}
	s.audit.Record(ctx, m, p.AuditSnapshot(), audit.Subject{
		PatientID: p.ID,
		Label:     "Patient",
		Fallback:  p.RegisteredBy,
	})
	return nil
}

func (s *Service) ListPatients(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}

func registeredBy(ctx context.Context) string {
	if name := auth.ActorFromContext(ctx).DisplayName(); name != "" {
		return name
	}
	return "system"
}

// -- Clinical Case --

func (s *Service) CreateCase(ctx context.Context, c *ClinicalCase) error {
	if c.Priority == "" {
		c.Priority = CasePriorityMedium
	}
	if c.Status == "" {
		c.Status = CaseStatusOpen
	}
	if err := validateCase(c).Err(); err != nil {
		return err
	}
	if _, err := s.patients.GetByID(ctx, c.PatientID); err != nil {
		if db.IsNotFound(err) {
			return validation.Field("patient_id", "Select a valid patient.")
		}
		return fmt.Errorf("load patient: %w", err)
	}
	return s.cases.Create(ctx, c)
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*ClinicalCase, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) UpdateCase(ctx context.Context, c *ClinicalCase) error {
	if err := validateCase(c).Err(); err != nil {
		return err
	}
	return s.cases.Update(ctx, c)
}

func (s *Service) ListCases(ctx context.Context, f CaseFilter, limit, offset int) ([]*ClinicalCase, int, error) {
	return s.cases.List(ctx, f, limit, offset)
}
