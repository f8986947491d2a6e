// Package handlers adapts the domain services to HTTP. Handlers decode the
// request, take the caller from the context populated by the auth middleware,
// and translate domain errors into status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/rsvp/internal/api/middleware"
	"github.com/Togather-Foundation/rsvp/internal/api/problem"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/events"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
	"github.com/Togather-Foundation/rsvp/internal/validation"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON value into dst. Malformed bodies become a
// ValidationError; bodies over the size limit are passed through unchanged.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return err
		case errors.Is(err, io.EOF):
			return validation.Invalid("", "request body is required")
		default:
			return validation.Invalid("", "request body must be valid JSON")
		}
	}
	return nil
}

// pathID parses a numeric path segment. Ids are bounded by the 32-bit
// INTEGER key columns.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, validation.Invalid(name, "must be a numeric id")
	}
	return id, nil
}

// caller returns the identity stored by the auth middleware. Routes that use
// it are always wrapped in Authenticate, so a missing identity is a wiring
// error and is refused.
func caller(r *http.Request) (auth.Identity, error) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return auth.Identity{}, auth.ErrForbidden
	}
	return identity, nil
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var (
		verr   validation.ValidationError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation failed", err, env,
			problem.WithDetail(verr.Error()), problem.WithFieldError(verr.Field, verr.Message))
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Request body too large", err, env)
	case errors.Is(err, auth.ErrMissingToken):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Authentication required", err, env)
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrForbidden),
		errors.Is(err, events.ErrNotOwned):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env)
	case errors.Is(err, users.ErrUsernameTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Username already exists", err, env,
			problem.WithDetail("username already exists"))
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidCredentials, "Invalid credentials", err, env,
			problem.WithDetail("invalid username or password"))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal server error", err, env)
	}
}
