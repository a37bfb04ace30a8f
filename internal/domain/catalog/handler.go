package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maternity/records/internal/platform/auth"
)

type Handler struct {
	repo Repository
	gate *auth.Gate
}

func NewHandler(repo Repository, gate *auth.Gate) *Handler {
	return &Handler{repo: repo, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/catalogs", h.gate.Require(auth.AllCodes...))
	g.GET("/clinics", h.ListClinics)
	g.GET("/nationalities", h.ListNationalities)
	g.GET("/indigenous-groups", h.ListIndigenousGroups)
	g.GET("/birth-types", h.ListBirthTypes)
}

type listResponse[T any] struct {
	Data  []*T `json:"data"`
	Total int  `json:"total"`
}

func respond[T any](c echo.Context, items []*T, err error) error {
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*T{}
	}
	return c.JSON(http.StatusOK, listResponse[T]{Data: items, Total: len(items)})
}

func (h *Handler) ListClinics(c echo.Context) error {
	items, err := h.repo.ListClinics(c.Request().Context())
	return respond(c, items, err)
}

func (h *Handler) ListNationalities(c echo.Context) error {
	items, err := h.repo.ListNationalities(c.Request().Context())
	return respond(c, items, err)
}

func (h *Handler) ListIndigenousGroups(c echo.Context) error {
	items, err := h.repo.ListIndigenousGroups(c.Request().Context())
	return respond(c, items, err)
}

func (h *Handler) ListBirthTypes(c echo.Context) error {
	items, err := h.repo.ListBirthTypes(c.Request().Context())
	return respond(c, items, err)
}
