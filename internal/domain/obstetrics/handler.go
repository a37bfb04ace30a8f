package obstetrics

import (
	"net/http"
	"time"

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
	read := h.gate.Require(auth.CodeClinicalFull, auth.CodeClinicalSupport)
	write := h.gate.Require(auth.CodeClinicalFull)

	api.GET("/births", h.ListBirths, read)
	api.GET("/births/:id", h.GetBirth, read)
	api.POST("/births", h.CreateBirth, write)
	api.PUT("/births/:id", h.UpdateBirth, write)

	api.GET("/newborns", h.ListNewborns, read)
	api.GET("/newborns/:id", h.GetNewborn, read)
	api.GET("/newborns/:id/events", h.ListEvents, read)
	api.POST("/newborns", h.CreateNewborn, write)
	api.PUT("/newborns/:id", h.UpdateNewborn, write)
	api.POST("/newborns/:id/events", h.RecordEvent, write)

	api.GET("/discharges/:id", h.GetDischarge, read)
	api.POST("/discharges", h.CreateDischarge, write)
	api.PUT("/discharges/:id", h.UpdateDischarge, write)

	api.GET("/patients/:id/trace", h.Trace, read)
	api.GET("/board", h.Board, h.gate.Require(auth.AllCodes...))
}

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

func optionalID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

// -- Birth Episode Handlers --

func (h *Handler) CreateBirth(c echo.Context) error {
	b := BirthEpisode{PrenatalControl: true}
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBirth(c.Request().Context(), &b); err != nil {
		return fail(c, err, b, "birth episode")
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBirth(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBirth(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "birth episode")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBirths(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListBirths(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*BirthEpisode{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateBirth(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetBirth(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "birth episode")
	}
	b := *existing
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID, b.PatientID = id, existing.PatientID
	if err := h.svc.UpdateBirth(c.Request().Context(), &b); err != nil {
		return fail(c, err, b, "birth episode")
	}
	return c.JSON(http.StatusOK, b)
}

// -- Newborn Handlers --

func (h *Handler) CreateNewborn(c echo.Context) error {
	var n Newborn
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateNewborn(c.Request().Context(), &n); err != nil {
		return fail(c, err, n, "newborn")
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNewborn(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNewborn(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "newborn")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNewborns(c echo.Context) error {
	pg := pagination.FromContext(c)
	episodeID, err := optionalID(c, "birth_episode_id")
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListNewborns(c.Request().Context(), episodeID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Newborn{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateNewborn(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetNewborn(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "newborn")
	}
	n := *existing
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.ID, n.BirthEpisodeID = id, existing.BirthEpisodeID
	if err := h.svc.UpdateNewborn(c.Request().Context(), &n); err != nil {
		return fail(c, err, n, "newborn")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) RecordEvent(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var e NewbornEvent
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.NewbornID = id
	if err := h.svc.RecordEvent(c.Request().Context(), &e); err != nil {
		return fail(c, err, e, "newborn")
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListEvents(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListEvents(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "newborn")
	}
	if items == nil {
		items = []*NewbornEvent{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

// -- Discharge Handlers --

func (h *Handler) CreateDischarge(c echo.Context) error {
	var d Discharge
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDischarge(c.Request().Context(), &d); err != nil {
		return fail(c, err, d, "discharge")
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDischarge(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDischarge(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "discharge")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDischarge(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetDischarge(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "discharge")
	}
	d := *existing
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID, d.BirthEpisodeID = id, existing.BirthEpisodeID
	if err := h.svc.UpdateDischarge(c.Request().Context(), &d); err != nil {
		return fail(c, err, d, "discharge")
	}
	return c.JSON(http.StatusOK, d)
}

// -- Board & Trace Handlers --

func (h *Handler) Board(c echo.Context) error {
	b, err := h.svc.Board(c.Request().Context(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Trace(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Trace(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, nil, "patient")
	}
	return c.JSON(http.StatusOK, t)
}
