package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/metrics"
)

type contextKey string

const actorKey contextKey = "audit_actor"

// WithActor attaches the identity that is performing the current request.
// It takes precedence over an entity's own responsible-user field.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Appender persists audit entries. The trail is append-only.
type Appender interface {
	Append(ctx context.Context, e *Entry) error
}

// Loader reads the current persisted state of the entity being mutated.
type Loader func(ctx context.Context) (Snapshot, error)

// Mutation is the context of one create or update, created by Capture before
// the write and consumed by Record after it.
type Mutation struct {
	Kind     Kind
	EntityID uuid.UUID
	Before   Snapshot
	captured bool
}

func (m *Mutation) Creating() bool {
	return m.EntityID == uuid.Nil
}

// Captured reports whether the prior state is available for diffing.
func (m *Mutation) Captured() bool {
	return m.captured
}

// Subject describes who the entries are about and how to label them.
type Subject struct {
	// PatientID is the patient the trail belongs to. For births and
	// newborns it is the mother.
	PatientID uuid.UUID
	// Label prefixes field names in update entries, as in "Patient: phone".
	Label string
	// Description is the new value of the creation entry.
	Description string
	// Fallback is the actor used when the context carries none.
	Fallback *uuid.UUID
}

type Recorder struct {
	store   Appender
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecorder(store Appender, logger zerolog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger.With().Str("component", "audit").Logger(),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Capture snapshots the entity identified by id before it is written. A nil
// id means the entity is being created and nothing is loaded. When load
// fails the mutation is marked uncaptured and Record will skip the diff.
func (r *Recorder) Capture(ctx context.Context, kind Kind, id uuid.UUID, load Loader) *Mutation {
	m := &Mutation{Kind: kind, EntityID: id}
	if id == uuid.Nil {
		m.captured = true
		return m
	}

	before, err := load(ctx)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("kind", string(kind)).
			Str("entity_id", id.String()).
			Msg("could not capture prior state, update will not be audited")
		r.metrics.AuditFailed(string(kind), "capture")
		return m
	}
	m.Before = before
	m.captured = true
	return m
}

// Record writes the audit entries for a completed mutation and returns how
// many were written. It never fails the caller: store errors and panics are
// logged and counted. Each append runs in a savepoint so a failed insert
// leaves the surrounding transaction usable.
func (r *Recorder) Record(ctx context.Context, m *Mutation, after Snapshot, s Subject) (written int) {
	if m == nil {
		return 0
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("kind", string(m.Kind)).
				Str("patient_id", s.PatientID.String()).
				Str("panic", fmt.Sprint(p)).
				Msg("audit recording panicked")
			r.metrics.AuditFailed(string(m.Kind), "panic")
		}
	}()

	if !m.captured {
		return 0
	}

	actor := r.actor(ctx, s.Fallback)
	at := r.now()

	var entries []*Entry
	if m.Creating() {
		entries = append(entries, &Entry{
			PatientID: s.PatientID,
			ActorID:   actor,
			Label:     m.Kind.CreationLabel(),
			OldValue:  "-",
			NewValue:  s.Description,
			CreatedAt: at,
		})
	} else {
		for _, ch := range Diff(m.Kind, m.Before, after) {
			entries = append(entries, &Entry{
				PatientID: s.PatientID,
				ActorID:   actor,
				Label:     s.Label + ": " + ch.Field,
				OldValue:  ch.Old,
				NewValue:  ch.New,
				CreatedAt: at,
			})
		}
	}

	for _, e := range entries {
		err := db.Savepoint(ctx, func(ctx context.Context) error {
			return r.store.Append(ctx, e)
		})
		if err != nil {
			r.logger.Error().Err(err).
				Str("kind", string(m.Kind)).
				Str("patient_id", s.PatientID.String()).
				Str("label", e.Label).
				Msg("failed to append audit entry")
			r.metrics.AuditFailed(string(m.Kind), "append")
			continue
		}
		r.metrics.AuditWritten(string(m.Kind))
		written++
	}
	return written
}

func (r *Recorder) actor(ctx context.Context, fallback *uuid.UUID) *uuid.UUID {
	if id, ok := ActorFromContext(ctx); ok {
		return &id
	}
	if fallback != nil && *fallback != uuid.Nil {
		id := *fallback
		return &id
	}
	return nil
}
