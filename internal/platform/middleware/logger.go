package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/auth"
	"github.com/maternity/records/internal/platform/metrics"
)

// Logger writes one line per request and feeds the HTTP metrics. The route
// label is the registered path pattern, not the raw URL.
func Logger(logger zerolog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(req.Method, route, status, elapsed)

			evt := logger.Info()
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case err != nil:
				evt = logger.Warn().Err(err)
			}

			actorID := ""
			if a := auth.ActorFromContext(req.Context()); a != nil {
				actorID = a.ID.String()
			}

			evt.
				Str("request_id", rid).
				Str("actor_id", actorID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", elapsed).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}
