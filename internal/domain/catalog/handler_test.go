package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/auth"
)

type mockRepo struct {
	clinics []*Clinic
	types   []*BirthType
	err     error
}

func (m *mockRepo) ListClinics(context.Context) ([]*Clinic, error) { return m.clinics, m.err }
func (m *mockRepo) ListNationalities(context.Context) ([]*Nationality, error) {
	return []*Nationality{{Code: "CHL", Name: "Chile", Active: true}}, m.err
}
func (m *mockRepo) ListIndigenousGroups(context.Context) ([]*IndigenousGroup, error) {
	return nil, m.err
}
func (m *mockRepo) ListBirthTypes(context.Context) ([]*BirthType, error) { return m.types, m.err }
func (m *mockRepo) GetBirthType(_ context.Context, id uuid.UUID) (*BirthType, error) {
	for _, b := range m.types {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, errors.New("not found")
}

func serve(t *testing.T, repo Repository, actor *auth.Actor, target string) *httptest.ResponseRecorder {
	t.Helper()
	gate := auth.NewGate(nil, zerolog.Nop(), nil, auth.GateConfig{})
	e := echo.New()
	NewHandler(repo, gate).RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListClinics(t *testing.T) {
	repo := &mockRepo{clinics: []*Clinic{
		{ID: uuid.New(), Name: "CESFAM Centro", Commune: "Temuco", Active: true},
		{ID: uuid.New(), Name: "CESFAM Norte", Commune: "Temuco", Active: true},
	}}
	rec := serve(t, repo, &auth.Actor{ID: uuid.New(), Superuser: true}, "/api/v1/catalogs/clinics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data  []Clinic `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || body.Data[0].Name != "CESFAM Centro" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHandler_EmptyListIsArray(t *testing.T) {
	rec := serve(t, &mockRepo{}, &auth.Actor{ID: uuid.New(), Superuser: true}, "/api/v1/catalogs/indigenous-groups")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"data\":[],\"total\":0}\n" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestHandler_RepositoryError(t *testing.T) {
	rec := serve(t, &mockRepo{err: errors.New("boom")}, &auth.Actor{ID: uuid.New(), Superuser: true}, "/api/v1/catalogs/birth-types")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_AnonymousRedirected(t *testing.T) {
	rec := serve(t, &mockRepo{}, nil, "/api/v1/catalogs/nationalities")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
}
