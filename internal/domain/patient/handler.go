package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maternity/records/internal/platform/auth"
	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/validation"
	"github.com/maternity/records/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate *auth.Gate
}

func NewHandler(svc *Service, gate *auth.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	full, support, admin := auth.CodeClinicalFull, auth.CodeClinicalSupport, auth.CodeAdministrative

	api.GET("/patients", h.ListPatients, h.gate.Require(full, support, admin))
	api.POST("/patients", h.CreatePatient, h.gate.Require(full, admin))
	api.GET("/patients/:id", h.GetPatient, h.gate.Require(full, support))
	api.PUT("/patients/:id", h.UpdatePatient, h.gate.Require(full, admin))
	api.DELETE("/patients/:id", h.DeactivatePatient, h.gate.Require(full, admin))

	api.GET("/cases", h.ListCases, h.gate.Require(full, support))
	api.GET("/cases/:id", h.GetCase, h.gate.Require(full, support))
	api.POST("/cases", h.CreateCase, h.gate.Require(full))
	api.PUT("/cases/:id", h.UpdateCase, h.gate.Require(full))
}

// patientRequest is the patient form: the record plus the override flag.
type patientRequest struct {
	Patient
	ConfirmSimilar bool `json:"confirm_similar"`
}

func (r *patientRequest) options() SaveOptions {
	return SaveOptions{ConfirmSimilar: r.ConfirmSimilar}
}

// fail maps service errors to responses. Validation and precondition
// errors are rendered with the submitted payload.
func fail(c echo.Context, err error, submitted interface{}, what string) error {
	if _, ok := validation.As(err); ok {
		return validation.Render(c, err, submitted)
	}
	if db.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &req.Patient, req.options()); err != nil {
		return fail(c, err, req, "patient")
	}
	return c.JSON(http.StatusCreated, req.Patient)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Query:         c.QueryParam("q"),
		CareState:     c.QueryParam("care_state"),
		ObstetricRisk: c.QueryParam("obstetric_risk"),
	}
	items, total, err := h.svc.ListPatients(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// UpdatePatient overlays the submitted fields on the stored record.
func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "patient")
	}
	req := patientRequest{Patient: *existing}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &req.Patient, req.options()); err != nil {
		return fail(c, err, req, "patient")
	}
	return c.JSON(http.StatusOK, req.Patient)
}

func (h *Handler) DeactivatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.DeactivatePatient(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

// -- Clinical Case Handlers --

func (h *Handler) CreateCase(c echo.Context) error {
	var cc ClinicalCase
	if err := c.Bind(&cc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCase(c.Request().Context(), &cc); err != nil {
		return fail(c, err, cc, "clinical case")
	}
	return c.JSON(http.StatusCreated, cc)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cc, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "clinical case")
	}
	return c.JSON(http.StatusOK, cc)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := CaseFilter{Status: c.QueryParam("status")}
	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	items, total, err := h.svc.ListCases(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*ClinicalCase{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "clinical case")
	}
	cc := *existing
	if err := c.Bind(&cc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cc.ID = id
	cc.PatientID = existing.PatientID
	if err := h.svc.UpdateCase(c.Request().Context(), &cc); err != nil {
		return fail(c, err, cc, "clinical case")
	}
	return c.JSON(http.StatusOK, cc)
}
