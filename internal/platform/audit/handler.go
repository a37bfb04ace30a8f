package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maternity/records/internal/platform/auth"
)

// Reader is the read side of the audit store.
type Reader interface {
	Search(ctx context.Context, p SearchParams) ([]*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Entry, error)
}

type Handler struct {
	store Reader
	gate  *auth.Gate
	limit int
}

// NewHandler serves the audit listings. limit is clamped to MaxSearchLimit.
func NewHandler(store Reader, gate *auth.Gate, limit int) *Handler {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return &Handler{store: store, gate: gate, limit: limit}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit", h.Search, h.gate.Require(auth.CodeClinicalFull))
	api.GET("/patients/:id/history", h.PatientHistory,
		h.gate.Require(auth.CodeClinicalFull, auth.CodeClinicalSupport))
}

type listResponse struct {
	Data  []*Entry `json:"data"`
	Total int      `json:"total"`
	Limit int      `json:"limit"`
}

func (h *Handler) Search(c echo.Context) error {
	p := SearchParams{Query: c.QueryParam("q"), Limit: h.limit}
	var err error
	if p.From, err = parseDate(c.QueryParam("from")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	if p.To, err = parseDate(c.QueryParam("to")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}

	items, err := h.store.Search(c.Request().Context(), p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, listResponse{Data: nonNil(items), Total: len(items), Limit: h.limit})
}

func (h *Handler) PatientHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.store.ListByPatient(c.Request().Context(), id, h.limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, listResponse{Data: nonNil(items), Total: len(items), Limit: h.limit})
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(items []*Entry) []*Entry {
	if items == nil {
		return []*Entry{}
	}
	return items
}
