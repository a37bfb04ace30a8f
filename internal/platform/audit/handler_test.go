package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/auth"
)

type mockReader struct {
	entries    []*Entry
	lastSearch SearchParams
	lastLimit  int
}

func (m *mockReader) Search(_ context.Context, p SearchParams) ([]*Entry, error) {
	m.lastSearch = p
	return m.entries, nil
}

func (m *mockReader) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*Entry, error) {
	m.lastLimit = limit
	var out []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestHandler(r Reader, limit int) (*Handler, *echo.Echo) {
	gate := auth.NewGate(nil, zerolog.Nop(), nil, auth.GateConfig{})
	h := NewHandler(r, gate, limit)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	return h, e
}

func superuserRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithActor(req.Context(), &auth.Actor{ID: uuid.New(), Superuser: true}))
}

func TestHandler_Search(t *testing.T) {
	patientID := uuid.New()
	store := &mockReader{entries: []*Entry{
		{ID: uuid.New(), PatientID: patientID, Label: "Patient: phone", CreatedAt: time.Now()},
	}}
	_, e := newTestHandler(store, 100)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, superuserRequest(http.MethodGet, "/api/v1/audit?q=soto&from=2024-01-01&to=2024-01-31"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastSearch.Query != "soto" || store.lastSearch.Limit != 100 {
		t.Errorf("unexpected search params %+v", store.lastSearch)
	}
	if store.lastSearch.From == nil || store.lastSearch.To == nil {
		t.Fatal("expected date range to be parsed")
	}

	var body struct {
		Data  []Entry `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Total != 1 || body.Data[0].Label != "Patient: phone" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHandler_SearchBadDate(t *testing.T) {
	_, e := newTestHandler(&mockReader{}, 0)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, superuserRequest(http.MethodGet, "/api/v1/audit?from=01-01-2024"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_SearchRequiresLogin(t *testing.T) {
	_, e := newTestHandler(&mockReader{}, 0)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
}

func TestHandler_PatientHistory(t *testing.T) {
	patientID := uuid.New()
	store := &mockReader{entries: []*Entry{
		{ID: uuid.New(), PatientID: patientID, Label: "PATIENT CREATED"},
		{ID: uuid.New(), PatientID: uuid.New(), Label: "PATIENT CREATED"},
	}}
	h, e := newTestHandler(store, 500)
	if h.limit != MaxSearchLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxSearchLimit, h.limit)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, superuserRequest(http.MethodGet, "/api/v1/patients/"+patientID.String()+"/history"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("expected 1 entry, got %d", body.Total)
	}
}

func TestHandler_PatientHistoryInvalidID(t *testing.T) {
	_, e := newTestHandler(&mockReader{}, 0)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, superuserRequest(http.MethodGet, "/api/v1/patients/not-a-uuid/history"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
