package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authz "github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/config"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
)

// Claims is the token payload. Roles are not carried in the token; they are
// resolved from the personnel store on every request so role changes take
// effect without reissuing tokens.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// PrincipalResolver loads the current roles of an authenticated user
type PrincipalResolver interface {
	Principal(ctx context.Context, id types.ID) (authz.Principal, error)
}

// Middleware creates JWT authentication middleware
func Middleware(cfg config.AuthConfig, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			id, err := types.ParseID(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			principal, err := resolver.Principal(r.Context(), id)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "unknown or inactive user")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to resolve principal")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// ParseToken validates a signed token and returns its claims
func ParseToken(cfg config.AuthConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, errors.Unauthenticated("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.Unauthenticated("invalid token claims")
	}
	return claims, nil
}

// IssueToken signs a token for a user. Used by the CLI and by tests.
func IssueToken(cfg config.AuthConfig, id types.ID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// GetPrincipal extracts the principal from request context
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(authz.Principal)
	if !ok || p.IsZero() {
		return authz.Principal{}, false
	}
	return p, true
}

// RequireActions creates middleware that requires every listed action
func RequireActions(authority *authz.Authority, actions ...authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, action := range actions {
				if err := authority.Authorize(p, action); err != nil {
					writeError(w, http.StatusForbidden, "no permission")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
