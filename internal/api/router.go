// Package api assembles the HTTP surface: routes, the middleware chain and
// the JSON 404 fallback.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/Togather-Foundation/rsvp/internal/api/handlers"
	"github.com/Togather-Foundation/rsvp/internal/api/middleware"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/config"
	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the router wires into handlers. DB may be nil
// when the server runs on the in-memory store; RateLimiter may be nil to
// disable limiting.
type Deps struct {
	Config        config.Config
	Logger        zerolog.Logger
	Users         handlers.UserService
	Events        handlers.EventService
	Registrations handlers.RegistrationService
	Tokens        middleware.TokenVerifier
	DB            handlers.Pinger
	RateLimiter   *middleware.RateLimiter
	Build         BuildInfo
}

func NewRouter(deps Deps) http.Handler {
	env := deps.Config.Environment

	authHandler := handlers.NewAuthHandler(deps.Users, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	regsHandler := handlers.NewRegistrationsHandler(deps.Registrations, env)
	health := handlers.NewHealthChecker(deps.DB, deps.Build.Version, deps.Build.GitCommit)

	limit := func(tier middleware.RateLimitTier, h http.Handler) http.Handler {
		if deps.RateLimiter == nil {
			return h
		}
		return middleware.WithRateLimitTierHandler(tier)(deps.RateLimiter.Handler(h))
	}
	authenticate := middleware.Authenticate(deps.Tokens, env)
	as := func(role auth.Role, h http.HandlerFunc) http.Handler {
		return limit(middleware.TierPublic, authenticate(middleware.Authorize(env, role)(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", methodMux(map[string]http.Handler{http.MethodGet: http.HandlerFunc(health.Healthz)}))
	mux.Handle("/readyz", methodMux(map[string]http.Handler{http.MethodGet: http.HandlerFunc(health.Readyz)}))
	mux.Handle("/version", methodMux(map[string]http.Handler{http.MethodGet: versionHandler(deps.Build)}))
	mux.Handle("/metrics", methodMux(map[string]http.Handler{
		http.MethodGet: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}),
	}))

	mux.Handle("/api/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: limit(middleware.TierLogin, http.HandlerFunc(authHandler.Register)),
	}))
	mux.Handle("/api/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: limit(middleware.TierLogin, http.HandlerFunc(authHandler.Login)),
	}))

	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet:  limit(middleware.TierPublic, http.HandlerFunc(eventsHandler.List)),
		http.MethodPost: as(auth.RoleOrganizer, eventsHandler.Create),
	}))
	mux.Handle("/api/events/{id}", methodMux(map[string]http.Handler{
		http.MethodPut:    as(auth.RoleOrganizer, eventsHandler.Update),
		http.MethodDelete: as(auth.RoleOrganizer, eventsHandler.Delete),
	}))

	mux.Handle("/api/registrations", methodMux(map[string]http.Handler{
		http.MethodPost: as(auth.RoleAttendee, regsHandler.Create),
	}))
	mux.Handle("/api/registrations/my-registrations", methodMux(map[string]http.Handler{
		http.MethodGet: as(auth.RoleAttendee, regsHandler.ListMine),
	}))
	mux.Handle("/api/registrations/event/{eventId}", methodMux(map[string]http.Handler{
		http.MethodGet: as(auth.RoleOrganizer, regsHandler.ListForEvent),
	}))
	mux.Handle("/api/registrations/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: as(auth.RoleAttendee, regsHandler.Cancel),
	}))

	mux.Handle("/", http.HandlerFunc(notFound))

	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}

// methodMux dispatches on method and answers 405 with an Allow header for
// anything else. OPTIONS is left to the CORS middleware.
func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
