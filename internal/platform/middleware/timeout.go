package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Report exports are
// exempt since building a spreadsheet over a long range can take a while.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || strings.Contains(c.Request().URL.Path, "/export.") {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if ctx.Err() == context.DeadlineExceeded && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
			}
			return err
		}
	}
}
