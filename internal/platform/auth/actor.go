package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID        uuid.UUID
	Username  string
	Name      string
	Superuser bool
}

func (a *Actor) Authenticated() bool {
	return a != nil && a.ID != uuid.Nil
}

// DisplayName prefers the full name, then the username, then the id.
func (a *Actor) DisplayName() string {
	switch {
	case a == nil:
		return ""
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return a.Username
	default:
		return a.ID.String()
	}
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the request actor, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey).(*Actor)
	return a
}
