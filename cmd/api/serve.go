package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/metrics"
	"github.com/xinodeprinz/edstock-server/internal/server"
	"github.com/xinodeprinz/edstock-server/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx)
		},
	}
}

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func runServer(parent context.Context, ctx *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, log := ctx.config, ctx.logger

	log.Info("Starting Edstock API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	dbService, err := ctx.openDatabase(parent)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(parent)))

	store, err := storage.NewLocalStore(cfg.Uploads.Dir)
	if err != nil {
		dbService.Close()
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(parent).Err(); err != nil {
		// Sign-in rate limiting fails open
		log.Warn("Redis unreachable, sign-in is not rate limited", zap.Error(err))
	}

	srv := server.NewServer(cfg, log, server.Deps{
		DB:      dbService,
		Redis:   redisClient,
		Store:   store,
		Metrics: metrics.New(),
	})

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	<-done
	log.Info("Graceful shutdown complete")
	return nil
}
