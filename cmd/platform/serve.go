package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	caseapi "github.com/citypd/platform/internal/case/api"
	caseinfra "github.com/citypd/platform/internal/case/infrastructure"
	"github.com/citypd/platform/internal/case/service"
	"github.com/citypd/platform/internal/notification"
	"github.com/citypd/platform/internal/personnel"
	httpauth "github.com/citypd/platform/internal/shared/auth"
	"github.com/citypd/platform/internal/shared/config"
	"github.com/citypd/platform/internal/shared/database"
	"github.com/citypd/platform/internal/shared/events"
	"github.com/citypd/platform/internal/shared/metrics"
	secmiddleware "github.com/citypd/platform/internal/shared/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return serve(cmd.Context(), cfg, logger)
	},
}

// app holds the long-lived dependencies of the server process
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *database.DB
	redis        *redis.Client
	bus          *events.Bus
	push         *notification.NATSProvider
	notification *notification.Service
	directory    *personnel.Directory
	cases        *service.Service
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	// workers outlive the signal context; Stop drains them after shutdown
	if err := a.notification.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start notification service: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go a.recordPoolStats(ctx)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := a.notification.Stop(); err != nil {
		logger.Warn("notification service stop", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	logger.Info("connected to database")

	if err := database.Migrate(cfg.Database.URL(), logger); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var cache *personnel.PrincipalCache
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, principal cache disabled", zap.Error(err))
			a.redis.Close()
			a.redis = nil
		} else {
			cache = personnel.NewPrincipalCache(a.redis, cfg.Auth.RoleCacheTTL)
		}
	}

	store := personnel.NewRepository(db.Pool)
	authority, err := personnel.LoadAuthority(ctx, store)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load role table: %w", err)
	}
	a.directory = personnel.NewDirectory(store, cache, authority, logger)

	var push notification.PushProvider
	if cfg.NATS.URL != "" {
		provider, err := notification.NewNATSProvider(notification.DefaultNATSConfig(cfg.NATS.URL), logger)
		if err != nil {
			logger.Warn("NATS unavailable, live push disabled", zap.Error(err))
		} else {
			a.push = provider
			push = provider
		}
	}
	notifyCfg := notification.DefaultServiceConfig()
	if cfg.Notifications.Workers > 0 {
		notifyCfg.Workers = cfg.Notifications.Workers
	}
	if cfg.Notifications.Buffer > 0 {
		notifyCfg.BufferSize = cfg.Notifications.Buffer
	}
	a.notification = notification.NewService(notification.NewPostgresInbox(db.Pool), push, notifyCfg, logger)

	var publisher events.Publisher
	if cfg.KurrentDB.Enabled {
		bus, err := events.NewBus(cfg.KurrentDB)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to KurrentDB: %w", err)
		}
		a.bus = bus
		publisher = bus
		logger.Info("case journal publishing to KurrentDB",
			zap.String("host", cfg.KurrentDB.Host),
			zap.Int("port", cfg.KurrentDB.Port),
		)
	}

	a.cases = service.NewService(
		caseinfra.NewPostgresRepository(db.Pool),
		authority,
		a.directory,
		a.notification,
		publisher,
		logger,
	)
	return a, nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))
	r.Use(secmiddleware.InputSanitizer)
	r.Use(secmiddleware.NewIPRateLimiter(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst).Middleware)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Get("/ready", a.ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httpauth.Middleware(a.cfg.Auth, a.directory))

		r.Mount("/", caseapi.NewHandler(a.cases).Routes())
		r.Mount("/notifications", notification.NewHandler(a.notification).Routes())
		r.Mount("/personnel", personnel.NewHandler(a.directory).Routes())
	})

	return r
}

func (a *app) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := a.db.Health(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if a.bus != nil {
		if err := a.bus.Health(ctx); err != nil {
			checks["kurrentdb"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["kurrentdb"] = "healthy"
		}
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// cache misses fall through to postgres
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := "ready"
	code := http.StatusOK
	if !healthy {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (a *app) recordPoolStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.db.RecordPoolStats()
		}
	}
}

func (a *app) close() {
	if a.push != nil {
		if err := a.push.Close(); err != nil {
			a.logger.Warn("NATS close", zap.Error(err))
		}
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
