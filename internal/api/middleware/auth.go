package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/rsvp/internal/api/problem"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/rs/zerolog"
)

const identityKey contextKey = "identity"

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

// Authenticate requires a bearer token. A missing token is answered with 401,
// a token that fails verification with 403.
func Authenticate(tokens TokenVerifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				metrics.RecordAuthFailure("missing_token")
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Authentication required", err, env)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, auth.ErrMissingToken) {
					reason = "missing_token"
				}
				metrics.RecordAuthFailure(reason)
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Invalid or expired token", err, env)
				return
			}

			identity := claims.Identity()
			ctx := WithIdentity(r.Context(), identity)
			logger := zerolog.Ctx(ctx).With().Int64("user_id", identity.UserID).Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize admits callers whose role is one of allowed. It must run after
// Authenticate; a request without an identity is refused with 403.
func Authorize(env string, allowed ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				metrics.RecordAuthFailure("no_identity")
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", auth.ErrForbidden, env)
				return
			}
			if err := auth.Require(identity, allowed...); err != nil {
				metrics.RecordAuthFailure("role_mismatch")
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
