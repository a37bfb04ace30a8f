package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/internal/platform/auth"
)

// AuditActor attributes record changes to the authenticated user: on
// mutating /api/v1 requests it hands the actor to the audit recorder through
// the request context, then writes an access line naming the touched
// resource and patient.
func AuditActor(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			actor := auth.ActorFromContext(req.Context())
			action := methodToAction(req.Method)
			if action != "read" && actor.Authenticated() {
				c.SetRequest(req.WithContext(audit.WithActor(req.Context(), actor.ID)))
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			actorID := ""
			if actor != nil {
				actorID = actor.ID.String()
			}
			rid, _ := c.Get("request_id").(string)
			logger.Info().
				Str("type", "record_access").
				Str("request_id", rid).
				Str("actor_id", actorID).
				Str("resource", resourceOf(req.URL.Path)).
				Str("patient_id", patientOf(c)).
				Str("action", action).
				Int("status", status).
				Msg("record_access")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf returns the first path segment under /api/v1, e.g. "births".
func resourceOf(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/api/v1/"), "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}

// patientOf finds a patient id in /api/v1/patients/<id> or ?patient_id=.
func patientOf(c echo.Context) string {
	path := c.Request().URL.Path
	if rest, ok := strings.CutPrefix(path, "/api/v1/patients/"); ok {
		seg, _, _ := strings.Cut(rest, "/")
		if _, err := uuid.Parse(seg); err == nil {
			return seg
		}
	}
	if pid := c.QueryParam("patient_id"); pid != "" {
		if _, err := uuid.Parse(pid); err == nil {
			return pid
		}
	}
	return ""
}
