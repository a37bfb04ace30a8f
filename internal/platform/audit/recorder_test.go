package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternity/records/internal/platform/metrics"
)

type memStore struct {
	entries []*Entry
	failOn  string
	panic   bool
}

func (s *memStore) Append(_ context.Context, e *Entry) error {
	if s.panic {
		panic("store exploded")
	}
	if s.failOn != "" && e.Label == s.failOn {
		return errors.New("insert failed")
	}
	s.entries = append(s.entries, e)
	return nil
}

func assertFailureSeries(t *testing.T, m *metrics.Metrics, series string) {
	t.Helper()
	expected := "# HELP maternity_audit_failures_total Swallowed audit failures, by entity kind and pipeline stage.\n" +
		"# TYPE maternity_audit_failures_total counter\n" + series + "\n"
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "maternity_audit_failures_total"))
}

func patientSnapshot(phone, careState string) Snapshot {
	return Snapshot{
		"given_names":      "Maria",
		"paternal_surname": "Soto",
		"phone":            phone,
		"care_state":       careState,
		"obstetric_risk":   "low",
		"active":           "true",
		"clinic_id":        "",
		"email":            "maria@example.com",
	}
}

func loaderOf(s Snapshot, err error) Loader {
	return func(context.Context) (Snapshot, error) { return s, err }
}

func TestRecorder_Creation(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zerolog.Nop(), nil)
	registeredBy := uuid.New()
	patientID := uuid.New()

	m := r.Capture(context.Background(), KindPatient, uuid.Nil, nil)
	require.True(t, m.Creating())

	n := r.Record(context.Background(), m, patientSnapshot("555", "waiting"), Subject{
		PatientID:   patientID,
		Label:       "Patient",
		Description: "Registered by nurse",
		Fallback:    &registeredBy,
	})

	require.Equal(t, 1, n)
	e := store.entries[0]
	assert.Equal(t, "PATIENT CREATED", e.Label)
	assert.Equal(t, "-", e.OldValue)
	assert.Equal(t, "Registered by nurse", e.NewValue)
	assert.Equal(t, patientID, e.PatientID)
	require.NotNil(t, e.ActorID)
	assert.Equal(t, registeredBy, *e.ActorID)
}

func TestRecorder_UpdateOneAuditedField(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zerolog.Nop(), nil)
	id := uuid.New()

	m := r.Capture(context.Background(), KindPatient, id, loaderOf(patientSnapshot("555", "waiting"), nil))
	n := r.Record(context.Background(), m, patientSnapshot("555", "attended"), Subject{PatientID: id, Label: "Patient"})

	require.Equal(t, 1, n)
	e := store.entries[0]
	assert.Equal(t, "Patient: care_state", e.Label)
	assert.Equal(t, "waiting", e.OldValue)
	assert.Equal(t, "attended", e.NewValue)
	assert.Nil(t, e.ActorID)
}

func TestRecorder_UpdateNonAuditedFieldOnly(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zerolog.Nop(), nil)
	id := uuid.New()

	before := patientSnapshot("555", "waiting")
	after := patientSnapshot("555", "waiting")
	after["email"] = "new@example.com"

	m := r.Capture(context.Background(), KindPatient, id, loaderOf(before, nil))
	assert.Zero(t, r.Record(context.Background(), m, after, Subject{PatientID: id, Label: "Patient"}))
	assert.Empty(t, store.entries)
}

func TestRecorder_ActorPrecedence(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zerolog.Nop(), nil)
	explicit, fallback := uuid.New(), uuid.New()
	id := uuid.New()

	ctx := WithActor(context.Background(), explicit)
	m := r.Capture(ctx, KindPatient, id, loaderOf(patientSnapshot("1", "waiting"), nil))
	r.Record(ctx, m, patientSnapshot("2", "waiting"), Subject{PatientID: id, Label: "Patient", Fallback: &fallback})

	require.Len(t, store.entries, 1)
	require.NotNil(t, store.entries[0].ActorID)
	assert.Equal(t, explicit, *store.entries[0].ActorID)
}

func TestRecorder_CaptureFailureSkipsDiff(t *testing.T) {
	store := &memStore{}
	m := metrics.New()
	r := NewRecorder(store, zerolog.Nop(), m)
	id := uuid.New()

	mut := r.Capture(context.Background(), KindBirthEpisode, id, loaderOf(nil, errors.New("no rows")))
	assert.False(t, mut.Captured())
	assert.Zero(t, r.Record(context.Background(), mut, Snapshot{"room": "2"}, Subject{PatientID: id, Label: "Birth"}))
	assert.Empty(t, store.entries)
	assertFailureSeries(t, m, `maternity_audit_failures_total{kind="birth_episode",stage="capture"} 1`)
}

func TestRecorder_StoreErrorsAreSwallowed(t *testing.T) {
	store := &memStore{failOn: "Newborn (RN-1): apgar1"}
	m := metrics.New()
	r := NewRecorder(store, zerolog.Nop(), m)
	id := uuid.New()

	before := Snapshot{"apgar1": "7", "apgar5": "8"}
	after := Snapshot{"apgar1": "8", "apgar5": "9"}
	mut := r.Capture(context.Background(), KindNewborn, id, loaderOf(before, nil))

	var n int
	assert.NotPanics(t, func() {
		n = r.Record(context.Background(), mut, after, Subject{PatientID: id, Label: "Newborn (RN-1)"})
	})
	assert.Equal(t, 1, n)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "Newborn (RN-1): apgar5", store.entries[0].Label)
	assertFailureSeries(t, m, `maternity_audit_failures_total{kind="newborn",stage="append"} 1`)
}

func TestRecorder_PanicIsSwallowed(t *testing.T) {
	r := NewRecorder(&memStore{panic: true}, zerolog.Nop(), nil)
	m := r.Capture(context.Background(), KindPatient, uuid.Nil, nil)

	assert.NotPanics(t, func() {
		assert.Zero(t, r.Record(context.Background(), m, Snapshot{}, Subject{PatientID: uuid.New()}))
	})
}

func TestRecorder_NilMutation(t *testing.T) {
	r := NewRecorder(&memStore{}, zerolog.Nop(), nil)
	assert.Zero(t, r.Record(context.Background(), nil, Snapshot{}, Subject{}))
}

func TestActorFromContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ActorFromContext(WithActor(context.Background(), uuid.Nil))
	assert.False(t, ok, "nil uuid is not an actor")

	id := uuid.New()
	got, ok := ActorFromContext(WithActor(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
