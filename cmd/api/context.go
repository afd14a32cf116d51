package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/config"
	"github.com/xinodeprinz/edstock-server/internal/database"
	"github.com/xinodeprinz/edstock-server/internal/logger"
)

// commandContext lazily loads what every subcommand shares
type commandContext struct {
	migrationsDir *string

	configOnce sync.Once
	config     *config.Config
	logger     *zap.Logger
	configErr  error
}

func newCommandContext(migrationsDir *string) *commandContext {
	return &commandContext{migrationsDir: migrationsDir}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		log, err := logger.New(cfg.Server.Env, cfg.Log.File)
		if err != nil {
			c.configErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		c.config = cfg
		c.logger = log
	})
	return c.config, c.configErr
}

func (c *commandContext) migrations() string {
	if c.migrationsDir == nil || *c.migrationsDir == "" {
		return "migrations"
	}
	return *c.migrationsDir
}

// openDatabase connects and brings the schema up to date
func (c *commandContext) openDatabase(ctx context.Context) (database.Service, error) {
	dbService, err := database.New(ctx, c.config.Database)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(ctx, dbService.DB(), c.migrations(), c.logger); err != nil {
		dbService.Close()
		return nil, err
	}

	return dbService, nil
}

func (c *commandContext) syncLogger() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
