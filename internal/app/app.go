package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"racoonsmeal/internal/config"
	"racoonsmeal/internal/database"
	"racoonsmeal/internal/handler"
	"racoonsmeal/internal/metrics"
	"racoonsmeal/internal/middleware"
	"racoonsmeal/internal/repository"
	"racoonsmeal/internal/router"
	"racoonsmeal/internal/service"
	"racoonsmeal/internal/storage"
)

const mediaURLPrefix = "/media"

type App struct {
	cfg          *config.Config
	server       *http.Server
	auth         *service.AuthService
	db           *database.DB
	cleanupFuncs []func()
}

type stores struct {
	users    repository.UserStore
	tokens   repository.TokenStore
	profiles repository.ProfileStore
}

// New wires the reference backend. An empty DatabaseURL selects in-memory
// repositories.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	media, err := storage.NewMedia(cfg.MediaRoot, mediaURLPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media storage: %w", err)
	}

	var db *database.DB
	repos := stores{
		users:    repository.NewMemoryUserRepository(),
		tokens:   repository.NewMemoryTokenRepository(),
		profiles: repository.NewMemoryProfileRepository(),
	}

	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err = database.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		repos = stores{
			users:    repository.NewUserRepository(db.Pool),
			tokens:   repository.NewTokenRepository(db.Pool),
			profiles: repository.NewProfileRepository(db.Pool),
		}
		slog.Info("database ready")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	authService, err := service.NewAuthService(service.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
		BcryptCost: cfg.BcryptCost,
	}, repos.users, repos.tokens, m)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	profileService := service.NewProfileService(repos.profiles, repos.users, media, cfg.PictureMaxDimension, m)

	deps := router.Deps{Metrics: m, MediaRoot: media.Root()}
	if db != nil {
		deps.Health = db.Health
	}

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Profile: handler.NewProfileHandler(profileService, cfg.MaxPictureSize),
	}, deps)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		cfg:          cfg,
		server:       server,
		auth:         authService,
		db:           db,
		cleanupFuncs: []func(){db.Close},
	}, nil
}

// Handler exposes the fully wired router for in-process servers.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go a.auth.StartTokenCleanup(cleanupCtx, a.cfg.TokenCleanupInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(shutdownCtx)
	a.Close()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) Close() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
	a.cleanupFuncs = nil
}
