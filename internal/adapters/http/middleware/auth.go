package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

const (
	// ContextKeyActor is the gin context key for the verified identity.
	ContextKeyActor = "actor"

	// Default header names if not configured.
	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultNameHeader    = "X-User-Name"

	bearerPrefix = "Bearer "
)

type actorCtxKey struct{}

// ActorFromContext returns the identity stored by Authenticate, or the
// anonymous actor.
func ActorFromContext(ctx context.Context) domain.Actor {
	if ctx == nil {
		return domain.Actor{}
	}

	actor, _ := ctx.Value(actorCtxKey{}).(domain.Actor)

	return actor
}

// ContextWithActor stores the verified identity in the context.
func ContextWithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// GetActor returns the identity attached to the gin context.
func GetActor(c *gin.Context) domain.Actor {
	if v, ok := c.Get(ContextKeyActor); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}

	return ActorFromContext(c.Request.Context())
}

// tokenClaims are the claims read from a bearer token.
type tokenClaims struct {
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator turns request credentials into a domain.Actor.
//
// In header mode a trusted gateway has already verified the caller and passes
// the identity in headers. In jwt mode the service verifies an HS256 bearer
// token itself.
type Authenticator struct {
	mode          string
	secret        []byte
	parser        *jwt.Parser
	subjectHeader string
	rolesHeader   string
	nameHeader    string
}

// NewAuthenticator creates an Authenticator from the auth config.
func NewAuthenticator(cfg *config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{
		mode:          cfg.Mode,
		subjectHeader: cmpOr(cfg.SubjectHeader, defaultSubjectHeader),
		rolesHeader:   cmpOr(cfg.RolesHeader, defaultRolesHeader),
		nameHeader:    cmpOr(cfg.NameHeader, defaultNameHeader),
	}

	switch cfg.Mode {
	case config.AuthModeHeader, "":
		a.mode = config.AuthModeHeader
	case config.AuthModeJWT:
		if cfg.JWTSecret == "" {
			return nil, errors.New("jwt mode requires a secret")
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
		if cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.Issuer))
		}

		if cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(cfg.Audience))
		}

		a.secret = []byte(cfg.JWTSecret)
		a.parser = jwt.NewParser(opts...)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	return a, nil
}

// Identify returns the caller's identity. A request without credentials yields
// the anonymous actor and no error; credentials that fail verification yield
// an UnauthorizedError.
func (a *Authenticator) Identify(r *http.Request) (domain.Actor, error) {
	if a.mode == config.AuthModeJWT {
		return a.fromToken(r)
	}

	return a.fromHeaders(r), nil
}

func (a *Authenticator) fromHeaders(r *http.Request) domain.Actor {
	subject := strings.TrimSpace(r.Header.Get(a.subjectHeader))
	if subject == "" {
		return domain.Actor{}
	}

	return domain.Actor{
		UserID:   subject,
		Username: strings.TrimSpace(r.Header.Get(a.nameHeader)),
		Role:     roleOf(parseCommaSeparated(r.Header.Get(a.rolesHeader))),
	}
}

func (a *Authenticator) fromToken(r *http.Request) (domain.Actor, error) {
	raw := r.Header.Get("Authorization")
	if raw == "" {
		// Browsers cannot set headers on WebSocket upgrades.
		raw = r.URL.Query().Get("access_token")
		if raw == "" {
			return domain.Actor{}, nil
		}
	} else {
		token, ok := strings.CutPrefix(raw, bearerPrefix)
		if !ok {
			return domain.Actor{}, domain.NewUnauthorizedError("authorization must be a bearer token")
		}

		raw = token
	}

	claims := &tokenClaims{}

	_, err := a.parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return domain.Actor{}, domain.NewUnauthorizedError("invalid token: " + tokenProblem(err))
	}

	if claims.Subject == "" {
		return domain.Actor{}, domain.NewUnauthorizedError("token has no subject")
	}

	roles := claims.Roles
	if claims.Role != "" {
		roles = append(roles, claims.Role)
	}

	return domain.Actor{
		UserID:   claims.Subject,
		Username: claims.Name,
		Role:     roleOf(roles),
	}, nil
}

// tokenProblem names the failure without echoing token contents.
func tokenProblem(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not valid yet"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong audience"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "bad signature"
	default:
		return "malformed"
	}
}

// Authenticate resolves the caller on every request and stores the actor in
// both the gin and request contexts. Anonymous requests pass through;
// requests with bad credentials are rejected with 401.
func Authenticate(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.Identify(c.Request)
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		if actor.Authenticated() {
			ctx := ContextWithActor(c.Request.Context(), actor)
			ctx = logging.WithUserID(ctx, actor.UserID)
			c.Request = c.Request.WithContext(ctx)
			c.Set(ContextKeyActor, actor)
		}

		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := GetActor(c).RequireAuthenticated()
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

// RequireRole rejects callers without the role with 403. It must run after
// Authenticate; anonymous callers get 401.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)

		err := actor.RequireAuthenticated()
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		if actor.Role != role {
			dto.AbortWithError(c, domain.NewForbiddenError(c.FullPath(), "requires role "+string(role)))
			return
		}

		c.Next()
	}
}

func roleOf(roles []string) domain.Role {
	if slices.Contains(roles, string(domain.RoleAdmin)) {
		return domain.RoleAdmin
	}

	return domain.RoleUser
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}

// parseCommaSeparated splits a comma-separated string into trimmed values.
func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")

	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
