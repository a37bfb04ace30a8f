package reporting

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maternity/records/internal/platform/auth"
)

type Handler struct {
	svc  *Service
	gate *auth.Gate
}

func NewHandler(svc *Service, gate *auth.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", h.gate.Require(
		auth.CodeClinicalFull, auth.CodeClinicalSupport, auth.CodeAdministrative, auth.CodeReadOnly,
	))
	g.GET("/obstetrics", h.Obstetrics)
	g.GET("/obstetrics/export.xlsx", h.ExportXLSX)
	g.GET("/obstetrics/export.pdf", h.ExportPDF)
	g.GET("/quality", h.Quality)
	g.GET("/newborns", h.Newborns)
}

func rangeFrom(c echo.Context) (Range, error) {
	r, err := ParseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return r, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return r, nil
}

func (h *Handler) report(c echo.Context) (*ObstetricsReport, error) {
	r, err := rangeFrom(c)
	if err != nil {
		return nil, err
	}
	rep, err := h.svc.Obstetrics(c.Request().Context(), r)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return rep, nil
}

func (h *Handler) Obstetrics(c echo.Context) error {
	rep, err := h.report(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ExportXLSX(c echo.Context) error {
	return h.export(c, ContentTypeXLSX, "xlsx", WriteXLSX)
}

func (h *Handler) ExportPDF(c echo.Context) error {
	return h.export(c, ContentTypePDF, "pdf", WritePDF)
}

func (h *Handler) export(c echo.Context, contentType, ext string, write func(io.Writer, *ObstetricsReport) error) error {
	rep, err := h.report(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := write(&buf, rep); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render report: "+err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+Filename(rep, ext)+`"`)
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// Filename names an export after its period, as in
// obstetrics-report_2024-01-01_2024-03-31.xlsx.
func Filename(r *ObstetricsReport, ext string) string {
	name := "obstetrics-report"
	if r.From != "" {
		name += "_" + r.From
	}
	if r.To != "" {
		name += "_" + r.To
	}
	return name + "." + ext
}

func (h *Handler) Quality(c echo.Context) error {
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.MonthlyQuality(c.Request().Context(), r)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": rows, "total": len(rows)})
}

func (h *Handler) Newborns(c echo.Context) error {
	r, err := rangeFrom(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.MonthlyNewborns(c.Request().Context(), r)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": rows, "total": len(rows)})
}
