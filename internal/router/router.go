package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"racoonsmeal/internal/config"
	"racoonsmeal/internal/handler"
	"racoonsmeal/internal/metrics"
	"racoonsmeal/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
}

// Deps are the non-handler collaborators of the router. Any of them may be nil.
type Deps struct {
	Metrics   *metrics.Metrics
	MediaRoot string
	Health    func(ctx context.Context) error
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, deps Deps) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(middleware.Metrics(deps.Metrics))

	r.Get("/health", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	if deps.MediaRoot != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaRoot))))
	}

	r.Route("/api/users", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/register/", h.Auth.Register)
		api.Post("/login/", h.Auth.Login)
		api.Post("/token/refresh/", h.Auth.Refresh)

		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.Get("/me/", h.Auth.Me)
			protected.Get("/profile/{username}/", h.Profile.Get)
			protected.Post("/profile/{username}/", h.Profile.Post)
		})
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
