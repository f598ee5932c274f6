package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gatherhall/server/internal/api/handlers"
	"github.com/gatherhall/server/internal/api/middleware"
	"github.com/gatherhall/server/internal/auth"
	"github.com/gatherhall/server/internal/config"
	"github.com/gatherhall/server/internal/domain/events"
	"github.com/gatherhall/server/internal/domain/rsvps"
	"github.com/gatherhall/server/internal/domain/users"
	"github.com/gatherhall/server/internal/email"
	"github.com/gatherhall/server/internal/metrics"
	"github.com/gatherhall/server/internal/realtime"
	"github.com/gatherhall/server/internal/storage/postgres"
	"github.com/gatherhall/server/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Router owns the HTTP handler tree and the realtime hub behind /ws.
type Router struct {
	Handler http.Handler
	Hub     *realtime.Hub
}

func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (*Router, error) {
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(logger)
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)

	userService := users.NewService(repo.Users(), tokens, mailer, logger)
	eventService := events.NewService(repo.Events(), hub, logger)
	rsvpService := rsvps.NewService(repo.Rsvps(), repo.Events(), hub, logger)

	authHandler := handlers.NewAuthHandler(userService, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventService, rsvpService, cfg.Environment)

	requireAuth := middleware.RequireAuth(tokens, cfg.Environment)
	requireOrganizer := middleware.RequireRole(cfg.Environment, auth.RoleOrganizer, auth.RoleAdmin)
	requireAdmin := middleware.RequireRole(cfg.Environment, auth.RoleAdmin)

	// One limiter store shared across routes. The tier wrapper has to
	// sit outside the limiter so the tier is on the context before the
	// bucket is chosen.
	rateLimit := middleware.RateLimit(cfg.RateLimit)
	limitLogin := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(rateLimit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/{$}", web.IndexHandler())
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(pool))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/ws", realtime.Handler(hub, logger))

	mux.Handle("/api/auth/signup", methodMux(map[string]http.Handler{
		http.MethodPost: rateLimit(http.HandlerFunc(authHandler.Signup)),
	}))
	mux.Handle("/api/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: limitLogin(http.HandlerFunc(authHandler.Login)),
	}))

	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet:  rateLimit(requireAuth(http.HandlerFunc(eventsHandler.List))),
		http.MethodPost: rateLimit(requireAuth(requireOrganizer(http.HandlerFunc(eventsHandler.Create)))),
	}))
	mux.Handle("/api/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    rateLimit(requireAuth(http.HandlerFunc(eventsHandler.Get))),
		http.MethodPut:    rateLimit(requireAuth(http.HandlerFunc(eventsHandler.Update))),
		http.MethodDelete: rateLimit(requireAuth(http.HandlerFunc(eventsHandler.Delete))),
	}))
	mux.Handle("/api/events/{id}/approve", methodMux(map[string]http.Handler{
		http.MethodPut: rateLimit(requireAuth(requireAdmin(http.HandlerFunc(eventsHandler.Approve)))),
	}))
	mux.Handle("/api/events/{id}/rsvp", methodMux(map[string]http.Handler{
		http.MethodPost: rateLimit(requireAuth(http.HandlerFunc(eventsHandler.RSVP))),
	}))

	handler := middleware.RequestLogging(logger)(metrics.HTTPMiddleware(mux))

	return &Router{Handler: handler, Hub: hub}, nil
}

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
