package validation

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type response struct {
	Errors         map[string][]string `json:"errors"`
	NonFieldErrors []string            `json:"non_field_errors"`
	Submitted      interface{}         `json:"submitted,omitempty"`
}

// Status is 409 for precondition failures and 422 otherwise.
func (e *Errors) Status() int {
	if e.Kind == KindPrecondition {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

// Render writes err when it is an *Errors, echoing submitted back so the
// client can redisplay the form. Any other error is returned unchanged for
// the caller to map.
func Render(c echo.Context, err error, submitted interface{}) error {
	ve, ok := As(err)
	if !ok {
		return err
	}
	body := response{
		Errors:         ve.Fields,
		NonFieldErrors: ve.NonField,
		Submitted:      submitted,
	}
	if body.Errors == nil {
		body.Errors = map[string][]string{}
	}
	if body.NonFieldErrors == nil {
		body.NonFieldErrors = []string{}
	}
	return c.JSON(ve.Status(), body)
}
