package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// DevActorID identifies the actor installed by DevAuthMiddleware.
var DevActorID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

type Claims struct {
	jwt.RegisteredClaims
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Superuser         bool   `json:"superuser"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey switches validation to HS256; for development and tests.
	SigningKey []byte
	Logger     zerolog.Logger
}

// Authenticate validates a bearer token when one is present and attaches
// the resulting Actor to the request context. Requests without a token, or
// with one that fails validation, continue anonymously; the permission gate
// decides what anonymous requests may do.
func Authenticate(cfg JWTConfig) echo.MiddlewareFunc {
	keys := &keySource{cfg: cfg}

	methods := []string{"RS256"}
	if len(cfg.SigningKey) > 0 {
		methods = []string{"HS256"}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			actor, err := parseBearer(header, keys.keyfunc, opts)
			if err != nil {
				cfg.Logger.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("ignoring invalid bearer token")
				return next(c)
			}

			c.Set("actor_id", actor.ID.String())
			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

func parseBearer(header string, keyfunc jwt.Keyfunc, opts []jwt.ParserOption) (*Actor, error) {
	scheme, tokenStr, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
		return nil, fmt.Errorf("invalid authorization format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), claims, keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject %q is not a user id: %w", claims.Subject, err)
	}
	return &Actor{
		ID:        id,
		Username:  claims.PreferredUsername,
		Name:      claims.Name,
		Superuser: claims.Superuser,
	}, nil
}

// keySource resolves verification keys: the HMAC key when configured,
// otherwise RSA keys from the JWKS endpoint, discovered from the issuer on
// first use when no JWKS URL is configured.
type keySource struct {
	cfg   JWTConfig
	mu    sync.Mutex
	cache *JWKSCache
}

func (s *keySource) keyfunc(token *jwt.Token) (interface{}, error) {
	if len(s.cfg.SigningKey) > 0 {
		return s.cfg.SigningKey, nil
	}

	s.mu.Lock()
	if s.cache == nil {
		jwksURL := s.cfg.JWKSURL
		if jwksURL == "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			discovered, err := DiscoverJWKSURL(ctx, s.cfg.Issuer)
			cancel()
			if err != nil {
				s.mu.Unlock()
				return nil, err
			}
			jwksURL = discovered
		}
		s.cache = NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	}
	cache := s.cache
	s.mu.Unlock()

	return cache.Keyfunc()(token)
}

// DevAuthMiddleware gives requests that reached it without an actor the
// development superuser. Only installed when ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	dev := &Actor{ID: DevActorID, Username: "dev", Name: "Development User", Superuser: true}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if ActorFromContext(ctx) == nil {
				c.Set("actor_id", dev.ID.String())
				c.SetRequest(c.Request().WithContext(WithActor(ctx, dev)))
			}
			return next(c)
		}
	}
}
