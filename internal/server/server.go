package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/config"
	"github.com/xinodeprinz/edstock-server/internal/database"
	"github.com/xinodeprinz/edstock-server/internal/metrics"
	custommiddleware "github.com/xinodeprinz/edstock-server/internal/middleware"
	"github.com/xinodeprinz/edstock-server/internal/notify"
	"github.com/xinodeprinz/edstock-server/internal/photo"
	"github.com/xinodeprinz/edstock-server/internal/repository"
	"github.com/xinodeprinz/edstock-server/internal/service"
	"github.com/xinodeprinz/edstock-server/internal/storage"
	"github.com/xinodeprinz/edstock-server/internal/transport"
)

// Deps are the long-lived resources the server owns once constructed
type Deps struct {
	DB      database.Service
	Redis   *redis.Client
	Store   storage.Store
	Metrics *metrics.Metrics
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

// NewLowStockNotifier wires the notifier to the database and the configured mailer
func NewLowStockNotifier(cfg *config.Config, db *sql.DB, logger *zap.Logger, m *metrics.Metrics) *notify.Notifier {
	return notify.NewNotifier(
		repository.NewProductRepository(db),
		repository.NewUserRepository(db),
		notify.NewMailer(cfg.Mail, logger),
		logger,
		m,
		notify.Options{
			DefaultThreshold: cfg.Notify.Threshold,
			IsolateFailures:  cfg.Notify.IsolateFailures,
		},
	)
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           NewRouter(cfg, logger, deps),
			IdleTimeout:       time.Minute,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       time.Minute,
			// Product mutations may wait on SMTP delivery
			WriteTimeout: 2*cfg.Mail.Timeout + 30*time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

// NewRouter builds the HTTP routes over deps
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger, deps.Metrics))

	router.Get("/health", healthHandler(deps))

	if registry := deps.Metrics.Registry(); registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	router.Handle(photo.URLPrefix+"*",
		http.StripPrefix(photo.URLPrefix, http.FileServer(deps.Store.FileSystem())))

	db := deps.DB.DB()

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	userService := service.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiry, logger)
	productService := service.NewProductService(
		productRepo,
		categoryRepo,
		photo.NewManager(deps.Store, logger, deps.Metrics),
		NewLowStockNotifier(cfg, db, logger, deps.Metrics),
		logger,
		service.ProductOptions{
			Trigger: cfg.Notify.Trigger,
			Failure: cfg.Notify.Failure,
		},
	)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	signInLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil && cfg.Server.SignInLimit > 0 {
		signInLimit = custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Server.SignInLimit,
			Window:            time.Minute,
			KeyPrefix:         "edstock:ratelimit:signin",
		}, logger)
	}

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, signInLimit)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware)

	return router
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		status := http.StatusOK

		db := deps.DB.Health(r.Context())
		body["database"] = db
		if db["status"] != "up" {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// Redis only guards sign-in, so it never fails the check
		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				body["redis"] = "down"
			} else {
				body["redis"] = "up"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var err error
	if s.deps.Redis != nil {
		if cerr := s.deps.Redis.Close(); cerr != nil {
			s.logger.Error("Failed to close redis client", zap.Error(cerr))
			err = multierr.Append(err, cerr)
		}
	}
	if s.deps.DB != nil {
		if cerr := s.deps.DB.Close(); cerr != nil {
			s.logger.Error("Failed to close database connection", zap.Error(cerr))
			err = multierr.Append(err, cerr)
		}
	}

	_ = s.logger.Sync()
	return err
}
