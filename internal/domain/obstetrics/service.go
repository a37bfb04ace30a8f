package obstetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/domain/catalog"
	"github.com/maternity/records/internal/domain/patient"
	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/validation"
)

// RecoveryWindow is how long after birth a mother stays on the recovery
// column of the board.
const RecoveryWindow = 2 * time.Hour

// PatientLookup resolves mothers. *patient.Service satisfies it.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// BirthTypeLookup resolves birth types. catalog.Repository satisfies it.
type BirthTypeLookup interface {
	GetBirthType(ctx context.Context, id uuid.UUID) (*catalog.BirthType, error)
}

type Service struct {
	births     BirthRepository
	newborns   NewbornRepository
	discharges DischargeRepository
	board      BoardReader
	patients   PatientLookup
	birthTypes BirthTypeLookup
	tx         db.Transactor
	audit      *audit.Recorder
	now        func() time.Time
}

type Deps struct {
	Births     BirthRepository
	Newborns   NewbornRepository
	Discharges DischargeRepository
	Board      BoardReader
	Patients   PatientLookup
	BirthTypes BirthTypeLookup
	Tx         db.Transactor
	Audit      *audit.Recorder
}

func NewService(d Deps) *Service {
	return &Service{
		births:     d.Births,
		newborns:   d.Newborns,
		discharges: d.Discharges,
		board:      d.Board,
		patients:   d.Patients,
		birthTypes: d.BirthTypes,
		tx:         d.Tx,
		audit:      d.Audit,
		now:        time.Now,
	}
}

func actorOr(ctx context.Context, id *uuid.UUID) *uuid.UUID {
	if id != nil && *id != uuid.Nil {
		return id
	}
	if actor, ok := audit.ActorFromContext(ctx); ok {
		return &actor
	}
	return nil
}

// -- Birth Episode --

func (s *Service) CreateBirth(ctx context.Context, b *BirthEpisode) error {
	b.ID = uuid.Nil
	b.ResponsibleProfessionalID = actorOr(ctx, b.ResponsibleProfessionalID)
	errs := validateBirth(b)
	if !errs.Empty() {
		return errs.Err()
	}

	mother, err := s.patients.GetPatient(ctx, b.PatientID)
	if err != nil {
		if db.IsNotFound(err) {
			return validation.Field("patient_id", "Select a valid patient.")
		}
		return fmt.Errorf("load patient: %w", err)
	}
	if b.MaternalAge == nil {
		if age, ok := ageAt(mother.BirthDate.Time, b.BirthAt); ok {
			b.MaternalAge = &age
		}
	}
	birthType, err := s.birthTypes.GetBirthType(ctx, *b.BirthTypeID)
	if err != nil {
		if db.IsNotFound(err) {
			return validation.Field("birth_type_id", "Select a valid birth type.")
		}
		return fmt.Errorf("load birth type: %w", err)
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		m := s.audit.Capture(ctx, audit.KindBirthEpisode, uuid.Nil, nil)
		if err := s.births.Create(ctx, b); err != nil {
			return fmt.Errorf("create birth episode: %w", err)
		}
		s.audit.Record(ctx, m, b.AuditSnapshot(), audit.Subject{
			PatientID:   b.PatientID,
			Label:       "Birth episode",
			Description: "Birth " + birthType.Name,
			Fallback:    b.ResponsibleProfessionalID,
		})
		return nil
	})
}

// ageAt returns the age in whole years at t, when it falls in the range a
// birth episode accepts.
func ageAt(birthDate, t time.Time) (int, bool) {
	if birthDate.IsZero() || t.IsZero() {
		return 0, false
	}
	age := t.Year() - birthDate.Year()
	if t.Month() < birthDate.Month() || (t.Month() == birthDate.Month() && t.Day() < birthDate.Day()) {
		age--
	}
	return age, age >= 10 && age <= 60
}

func (s *Service) GetBirth(ctx context.Context, id uuid.UUID) (*BirthEpisode, error) {
	return s.births.GetByID(ctx, id)
}

func (s *Service) UpdateBirth(ctx context.Context, b *BirthEpisode) error {
	if err := validateBirth(b).Err(); err != nil {
		return err
	}
	if _, err := s.birthTypes.GetBirthType(ctx, *b.BirthTypeID); err != nil {
		if db.IsNotFound(err) {
			return validation.Field("birth_type_id", "Select a valid birth type.")
		}
		return fmt.Errorf("load birth type: %w", err)
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		m := s.audit.Capture(ctx, audit.KindBirthEpisode, b.ID, func(ctx context.Context) (audit.Snapshot, error) {
			prior, err := s.births.GetByID(ctx, b.ID)
			if err != nil {
				return nil, err
			}
			return prior.AuditSnapshot(), nil
		})
		if err := s.births.Update(ctx, b); err != nil {
			return fmt.Errorf("update birth episode: %w", err)
		}
		s.audit.Record(ctx, m, b.AuditSnapshot(), audit.Subject{
			PatientID: b.PatientID,
			Label:     "Birth episode",
			Fallback:  b.ResponsibleProfessionalID,
		})
		return nil
	})
}

func (s *Service) ListBirths(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*BirthEpisode, int, error) {
	return s.births.List(ctx, patientID, limit, offset)
}

// -- Newborn --

func (s *Service) episodeFor(ctx context.Context, id uuid.UUID) (*BirthEpisode, error) {
	b, err := s.births.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, validation.Field("birth_episode_id", MsgInvalidEpisode)
		}
		return nil, fmt.Errorf("load birth episode: %w", err)
	}
	return b, nil
}

func (s *Service) CreateNewborn(ctx context.Context, n *Newborn) error {
	n.ID = uuid.Nil
	if n.Resuscitation == "" {
		n.Resuscitation = ResuscitationNone
	}
	if err := validateNewborn(n).Err(); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		episode, err := s.episodeFor(ctx, n.BirthEpisodeID)
		if err != nil {
			return err
		}
		m := s.audit.Capture(ctx, audit.KindNewborn, uuid.Nil, nil)
		if err := s.newborns.Create(ctx, n); err != nil {
			return fmt.Errorf("create newborn: %w", err)
		}
		s.audit.Record(ctx, m, n.AuditSnapshot(), audit.Subject{
			PatientID:   episode.PatientID,
			Label:       n.AuditLabel(),
			Description: n.BirthDescription(),
			Fallback:    episode.ResponsibleProfessionalID,
		})
		return nil
	})
}

func (s *Service) GetNewborn(ctx context.Context, id uuid.UUID) (*Newborn, error) {
	return s.newborns.GetByID(ctx, id)
}

// UpdateNewborn writes the trail entries under the mother of the episode
// the newborn belongs to.
func (s *Service) UpdateNewborn(ctx context.Context, n *Newborn) error {
	if err := validateNewborn(n).Err(); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		episode, err := s.episodeFor(ctx, n.BirthEpisodeID)
		if err != nil {
			return err
		}
		m := s.audit.Capture(ctx, audit.KindNewborn, n.ID, func(ctx context.Context) (audit.Snapshot, error) {
			prior, err := s.newborns.GetByID(ctx, n.ID)
			if err != nil {
				return nil, err
			}
			return prior.AuditSnapshot(), nil
		})
		if err := s.newborns.Update(ctx, n); err != nil {
			return fmt.Errorf("update newborn: %w", err)
		}
		s.audit.Record(ctx, m, n.AuditSnapshot(), audit.Subject{
			PatientID: episode.PatientID,
			Label:     n.AuditLabel(),
			Fallback:  episode.ResponsibleProfessionalID,
		})
		return nil
	})
}

func (s *Service) ListNewborns(ctx context.Context, birthEpisodeID *uuid.UUID, limit, offset int) ([]*Newborn, int, error) {
	return s.newborns.List(ctx, birthEpisodeID, limit, offset)
}

// RecordEvent registers a clinical event. Each event type is recorded at
// most once per newborn.
func (s *Service) RecordEvent(ctx context.Context, e *NewbornEvent) error {
	if err := validateEvent(e).Err(); err != nil {
		return err
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	if _, err := s.newborns.GetByID(ctx, e.NewbornID); err != nil {
		return err
	}

	existing, err := s.newborns.ListEvents(ctx, e.NewbornID)
	if err != nil {
		return fmt.Errorf("list newborn events: %w", err)
	}
	for _, ex := range existing {
		if ex.EventType == e.EventType {
			return validation.Field("event_type", MsgDuplicateEvent)
		}
	}
	if err := s.newborns.AddEvent(ctx, e); err != nil {
		if db.IsUniqueViolation(err, "uq_newborn_event") {
			return validation.Field("event_type", MsgDuplicateEvent)
		}
		return fmt.Errorf("add newborn event: %w", err)
	}
	return nil
}

func (s *Service) ListEvents(ctx context.Context, newbornID uuid.UUID) ([]*NewbornEvent, error) {
	if _, err := s.newborns.GetByID(ctx, newbornID); err != nil {
		return nil, err
	}
	return s.newborns.ListEvents(ctx, newbornID)
}

// -- Discharge --

// checkDischargeable enforces the discharge workflow: the episode exists,
// has no other discharge and has at least one newborn.
func (s *Service) checkDischargeable(ctx context.Context, episodeID, self uuid.UUID) error {
	if _, err := s.episodeFor(ctx, episodeID); err != nil {
		return err
	}

	existing, err := s.discharges.GetByEpisode(ctx, episodeID)
	switch {
	case err == nil && existing.ID != self:
		return validation.Field("birth_episode_id", MsgAlreadyDischarged)
	case err != nil && !db.IsNotFound(err):
		return fmt.Errorf("load discharge: %w", err)
	}

	count, err := s.newborns.CountByEpisode(ctx, episodeID)
	if err != nil {
		return fmt.Errorf("count newborns: %w", err)
	}
	if count == 0 {
		return validation.Precondition(MsgNoNewborns)
	}
	return nil
}

func (s *Service) CreateDischarge(ctx context.Context, d *Discharge) error {
	d.ID = uuid.Nil
	if d.DischargeType == "" {
		d.DischargeType = DischargeMedical
	}
	if d.DischargedAt.IsZero() {
		d.DischargedAt = s.now()
	}
	d.ResponsibleProfessionalID = actorOr(ctx, d.ResponsibleProfessionalID)
	if err := validateDischarge(d).Err(); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkDischargeable(ctx, d.BirthEpisodeID, uuid.Nil); err != nil {
			return err
		}
		if err := s.discharges.Create(ctx, d); err != nil {
			if db.IsUniqueViolation(err, "") {
				return validation.Field("birth_episode_id", MsgAlreadyDischarged)
			}
			return fmt.Errorf("create discharge: %w", err)
		}
		return nil
	})
}

func (s *Service) GetDischarge(ctx context.Context, id uuid.UUID) (*Discharge, error) {
	return s.discharges.GetByID(ctx, id)
}

func (s *Service) UpdateDischarge(ctx context.Context, d *Discharge) error {
	d.ResponsibleProfessionalID = actorOr(ctx, d.ResponsibleProfessionalID)
	if err := validateDischarge(d).Err(); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkDischargeable(ctx, d.BirthEpisodeID, d.ID); err != nil {
			return err
		}
		if err := s.discharges.Update(ctx, d); err != nil {
			return fmt.Errorf("update discharge: %w", err)
		}
		return nil
	})
}

// -- Board & Trace --

func (s *Service) Board(ctx context.Context, now time.Time) (*Board, error) {
	cutoff := now.Add(-RecoveryWindow)
	recovery, err := s.board.BirthsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("board recovery: %w", err)
	}
	ward, err := s.board.UndischargedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("board ward: %w", err)
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	discharged, err := s.board.DischargedBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("board discharges: %w", err)
	}
	return &Board{
		GeneratedAt:     now,
		Recovery:        column(recovery),
		Ward:            column(ward),
		DischargedToday: column(discharged),
	}, nil
}

// Trace collects a patient's birth episodes with their newborns and
// discharge, newest episode first.
func (s *Service) Trace(ctx context.Context, patientID uuid.UUID) (*Trace, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	episodes, err := s.births.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list birth episodes: %w", err)
	}

	t := &Trace{Patient: p, Births: make([]*TraceBirth, 0, len(episodes))}
	for _, b := range episodes {
		newborns, err := s.newborns.ListByEpisode(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("list newborns: %w", err)
		}
		if newborns == nil {
			newborns = []*Newborn{}
		}
		d, err := s.discharges.GetByEpisode(ctx, b.ID)
		if err != nil && !db.IsNotFound(err) {
			return nil, fmt.Errorf("load discharge: %w", err)
		}
		t.Births = append(t.Births, &TraceBirth{Episode: b, Newborns: newborns, Discharge: d})
	}
	return t, nil
}
