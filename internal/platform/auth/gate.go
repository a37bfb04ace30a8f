package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/flash"
	"github.com/maternity/records/internal/platform/metrics"
)

// DenyReason names why the gate refused a request. It is empty when allowed.
type DenyReason string

const (
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonNoProfile       DenyReason = "no_profile"
	ReasonNoPosition      DenyReason = "no_position"
	ReasonNotAuthorized   DenyReason = "not_authorized"
	ReasonError           DenyReason = "error"
)

const (
	MsgNoProfile     = "Your user does not have an active profile."
	MsgNoPosition    = "No position is assigned to your profile."
	MsgNotAuthorized = "You do not have permission to view this section."
	MsgCheckFailed   = "An error occurred while verifying your permissions."
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
	Message string
	// Code is the resolved permission code, when resolution got that far.
	Code Code
}

type GateConfig struct {
	LoginURL string
	HomeURL  string
}

// Gate decides whether an actor may run an operation given the permission
// codes the operation accepts.
type Gate struct {
	profiles ProfileResolver
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	loginURL string
	homeURL  string
}

func NewGate(profiles ProfileResolver, logger zerolog.Logger, m *metrics.Metrics, cfg GateConfig) *Gate {
	if cfg.LoginURL == "" {
		cfg.LoginURL = "/login"
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = "/"
	}
	return &Gate{
		profiles: profiles,
		logger:   logger.With().Str("component", "permission_gate").Logger(),
		metrics:  m,
		loginURL: cfg.LoginURL,
		homeURL:  cfg.HomeURL,
	}
}

// Check never returns an error and never panics: resolution failures become
// a deny decision with MsgCheckFailed and are logged.
func (g *Gate) Check(ctx context.Context, actor *Actor, accepted ...Code) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().
				Str("actor_id", actorID(actor)).
				Strs("accepted", codeStrings(accepted)).
				Str("panic", fmt.Sprint(r)).
				Msg("permission check panicked")
			d = Decision{Reason: ReasonError, Message: MsgCheckFailed}
		}
		g.metrics.GateDecision(d.Allowed, string(d.Reason))
	}()

	if !actor.Authenticated() {
		return Decision{Reason: ReasonUnauthenticated}
	}
	if actor.Superuser {
		return Decision{Allowed: true}
	}

	profile, err := g.profiles.ResolveProfile(ctx, actor.ID)
	switch {
	case errors.Is(err, ErrNoProfile), err == nil && profile == nil:
		g.logger.Warn().Str("actor_id", actorID(actor)).Msg("actor has no active profile")
		return Decision{Reason: ReasonNoProfile, Message: MsgNoProfile}
	case err != nil:
		g.logger.Error().Err(err).
			Str("actor_id", actorID(actor)).
			Strs("accepted", codeStrings(accepted)).
			Msg("permission resolution failed")
		return Decision{Reason: ReasonError, Message: MsgCheckFailed}
	}

	if profile.Position == nil {
		g.logger.Warn().Str("actor_id", actorID(actor)).Msg("profile has no position")
		return Decision{Reason: ReasonNoPosition, Message: MsgNoPosition}
	}

	code := profile.Position.Code
	if code == CodeTotalAccess || slices.Contains(accepted, code) {
		return Decision{Allowed: true, Code: code}
	}

	g.logger.Info().
		Str("actor_id", actorID(actor)).
		Str("code", string(code)).
		Strs("accepted", codeStrings(accepted)).
		Msg("permission denied")
	return Decision{Reason: ReasonNotAuthorized, Message: MsgNotAuthorized, Code: code}
}

// Require returns middleware that runs Check for the request actor and only
// calls the next handler when allowed. Unauthenticated requests are sent to
// the login URL; every other denial goes to the home URL with a flash
// message.
func (g *Gate) Require(accepted ...Code) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			d := g.Check(ctx, ActorFromContext(ctx), accepted...)
			if d.Allowed {
				return next(c)
			}
			return g.redirect(c, d)
		}
	}
}

func (g *Gate) redirect(c echo.Context, d Decision) error {
	if d.Reason == ReasonUnauthenticated {
		target := g.loginURL + "?next=" + url.QueryEscape(c.Request().URL.RequestURI())
		return c.Redirect(http.StatusSeeOther, target)
	}

	level := flash.Warning
	if d.Reason == ReasonError {
		level = flash.Error
	}
	flash.Add(c, level, d.Message)
	return c.Redirect(http.StatusSeeOther, g.homeURL)
}

func actorID(a *Actor) string {
	if a == nil {
		return ""
	}
	return a.ID.String()
}

func codeStrings(codes []Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
