package obstetrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternity/records/internal/platform/auth"
	"github.com/maternity/records/internal/platform/middleware"
)

type codeResolver map[uuid.UUID]auth.Code

func (r codeResolver) ResolveProfile(_ context.Context, id uuid.UUID) (*auth.Profile, error) {
	code, ok := r[id]
	if !ok {
		return nil, auth.ErrNoProfile
	}
	return &auth.Profile{UserID: id, Position: &auth.Position{ID: uuid.New(), Name: string(code), Code: code}}, nil
}

func newTestServer(f *fixture, resolver auth.ProfileResolver) *echo.Echo {
	gate := auth.NewGate(resolver, zerolog.Nop(), nil, auth.GateConfig{LoginURL: "/login", HomeURL: "/"})
	e := echo.New()
	e.Use(middleware.AuditActor(zerolog.Nop()))
	NewHandler(f.svc, gate).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func do(e *echo.Echo, actor *auth.Actor, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

var superuser = &auth.Actor{ID: uuid.New(), Name: "Unit Head", Superuser: true}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHandler_BirthToDischarge(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, nil)

	rec := do(e, superuser, http.MethodPost, "/api/v1/births", fmt.Sprintf(
		`{"patient_id":%q,"birth_at":"2024-03-10T08:30:00Z","birth_type_id":%q,"birth_position":"semi_seated"}`,
		f.mother.ID, f.vaginal.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var birth BirthEpisode
	decode(t, rec, &birth)
	assert.True(t, birth.PrenatalControl, "prenatal control defaults to true")
	require.NotNil(t, birth.ResponsibleProfessionalID)
	assert.Equal(t, superuser.ID, *birth.ResponsibleProfessionalID)

	discharge := fmt.Sprintf(`{"birth_episode_id":%q,"condition":"Stable"}`, birth.ID)
	rec = do(e, superuser, http.MethodPost, "/api/v1/discharges", discharge)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var rejected struct {
		NonFieldErrors []string `json:"non_field_errors"`
	}
	decode(t, rec, &rejected)
	assert.Equal(t, []string{MsgNoNewborns}, rejected.NonFieldErrors)
	assert.Empty(t, f.discharges.records)

	rec = do(e, superuser, http.MethodPost, "/api/v1/newborns", fmt.Sprintf(
		`{"birth_episode_id":%q,"sex":"F","weight_grams":3000,"length_cm":48,"apgar1":7,"apgar5":9}`, birth.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, superuser, http.MethodPost, "/api/v1/discharges", discharge)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, f.discharges.records, 1)

	rec = do(e, superuser, http.MethodGet, "/api/v1/patients/"+f.mother.ID.String()+"/trace", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trace struct {
		Births []struct {
			Newborns  []Newborn  `json:"newborns"`
			Discharge *Discharge `json:"discharge"`
		} `json:"births"`
	}
	decode(t, rec, &trace)
	require.Len(t, trace.Births, 1)
	assert.Len(t, trace.Births[0].Newborns, 1)
	assert.NotNil(t, trace.Births[0].Discharge)
}

func TestHandler_CreateNewborn_ApgarOutOfRange(t *testing.T) {
	f := newFixture()
	ctx, _ := withActor()
	b := f.birth(t, ctx)
	e := newTestServer(f, nil)

	rec := do(e, superuser, http.MethodPost, "/api/v1/newborns", fmt.Sprintf(
		`{"birth_episode_id":%q,"sex":"F","weight_grams":3000,"length_cm":48,"apgar1":12,"apgar5":9}`, b.ID))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors    map[string][]string    `json:"errors"`
		Submitted map[string]interface{} `json:"submitted"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []string{MsgApgarRange}, body.Errors["apgar1"])
	assert.EqualValues(t, 12, body.Submitted["apgar1"])
	assert.Empty(t, f.newborns.records)
}

func TestHandler_UpdateNewborn_KeepsEpisode(t *testing.T) {
	f := newFixture()
	ctx, _ := withActor()
	b := f.birth(t, ctx)
	n := f.newborn(t, ctx, b.ID)
	e := newTestServer(f, nil)

	rec := do(e, superuser, http.MethodPut, "/api/v1/newborns/"+n.ID.String(),
		fmt.Sprintf(`{"birth_episode_id":%q,"weight_grams":3050}`, uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := f.newborns.records[n.ID]
	assert.Equal(t, b.ID, stored.BirthEpisodeID)
	assert.Equal(t, 3050, stored.WeightGrams)
	assert.Equal(t, 48, stored.LengthCM, "fields absent from the body are kept")
}

func TestHandler_DateOnlyFields(t *testing.T) {
	f := newFixture()
	ctx, _ := withActor()
	b := f.birth(t, ctx)
	e := newTestServer(f, nil)

	rec := do(e, superuser, http.MethodPost, "/api/v1/newborns", fmt.Sprintf(
		`{"birth_episode_id":%q,"sex":"M","weight_grams":3200,"length_cm":50,"apgar1":8,"apgar5":9,
		"follow_up_control_date":"2024-03-17"}`, b.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var newborn map[string]interface{}
	decode(t, rec, &newborn)
	assert.Equal(t, "2024-03-17", newborn["follow_up_control_date"])

	rec = do(e, superuser, http.MethodPost, "/api/v1/discharges", fmt.Sprintf(
		`{"birth_episode_id":%q,"condition":"Stable","requires_follow_up":true,"next_appointment":"2024-03-20"}`, b.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var discharge map[string]interface{}
	decode(t, rec, &discharge)
	assert.Equal(t, "2024-03-20", discharge["next_appointment"])

	rec = do(e, superuser, http.MethodPost, "/api/v1/newborns", fmt.Sprintf(
		`{"birth_episode_id":%q,"sex":"F","weight_grams":3000,"length_cm":48,"follow_up_control_date":"17/03/2024"}`, b.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Events(t *testing.T) {
	f := newFixture()
	ctx, _ := withActor()
	n := f.newborn(t, ctx, f.birth(t, ctx).ID)
	e := newTestServer(f, nil)
	target := "/api/v1/newborns/" + n.ID.String() + "/events"

	rec := do(e, superuser, http.MethodPost, target, `{"event_type":"hearing_screening","result":"pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(e, superuser, http.MethodPost, target, `{"event_type":"hearing_screening"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, superuser, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data  []NewbornEvent `json:"data"`
		Total int            `json:"total"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "pass", list.Data[0].Result)
}

func TestHandler_NotFoundAndBadID(t *testing.T) {
	e := newTestServer(newFixture(), nil)

	assert.Equal(t, http.StatusNotFound, do(e, superuser, http.MethodGet, "/api/v1/births/"+uuid.New().String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, superuser, http.MethodGet, "/api/v1/discharges/"+uuid.New().String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, superuser, http.MethodGet, "/api/v1/newborns/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, superuser, http.MethodGet, "/api/v1/births?patient_id=abc", "").Code)
}

func TestHandler_ListBirthsByPatient(t *testing.T) {
	f := newFixture()
	ctx, _ := withActor()
	f.birth(t, ctx)
	e := newTestServer(f, nil)

	rec := do(e, superuser, http.MethodGet, "/api/v1/births?patient_id="+f.mother.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data  []BirthEpisode `json:"data"`
		Total int            `json:"total"`
	}
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Total)

	rec = do(e, superuser, http.MethodGet, "/api/v1/births?patient_id="+uuid.New().String(), "")
	decode(t, rec, &page)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Data)
}

func TestHandler_Permissions(t *testing.T) {
	f := newFixture()
	support := &auth.Actor{ID: uuid.New(), Username: "tens"}
	full := &auth.Actor{ID: uuid.New(), Username: "matrona"}
	admin := &auth.Actor{ID: uuid.New(), Username: "admision"}
	e := newTestServer(f, codeResolver{
		support.ID: auth.CodeClinicalSupport,
		full.ID:    auth.CodeClinicalFull,
		admin.ID:   auth.CodeAdministrative,
	})
	birthBody := fmt.Sprintf(`{"patient_id":%q,"birth_at":"2024-03-10T08:30:00Z","birth_type_id":%q}`, f.mother.ID, f.vaginal.ID)

	tests := []struct {
		name   string
		actor  *auth.Actor
		method string
		target string
		body   string
		want   int
	}{
		{"support cannot register births", support, http.MethodPost, "/api/v1/births", birthBody, http.StatusSeeOther},
		{"support reads births", support, http.MethodGet, "/api/v1/births", "", http.StatusOK},
		{"administrative cannot read births", admin, http.MethodGet, "/api/v1/births", "", http.StatusSeeOther},
		{"administrative sees the board", admin, http.MethodGet, "/api/v1/board", "", http.StatusOK},
		{"anonymous board", nil, http.MethodGet, "/api/v1/board", "", http.StatusSeeOther},
		{"full registers births", full, http.MethodPost, "/api/v1/births", birthBody, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.births.records)
			rec := do(e, tt.actor, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusSeeOther && tt.method == http.MethodPost {
				assert.Len(t, f.births.records, before, "denied request must not write")
			}
		})
	}
}

func TestHandler_Board(t *testing.T) {
	e := newTestServer(newFixture(), nil)
	rec := do(e, superuser, http.MethodGet, "/api/v1/board", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var board map[string]json.RawMessage
	decode(t, rec, &board)
	for _, col := range []string{"recovery", "ward", "discharged_today"} {
		assert.Contains(t, board, col)
	}
	assert.JSONEq(t, `{"items":[],"total":0}`, string(board["ward"]))
}
