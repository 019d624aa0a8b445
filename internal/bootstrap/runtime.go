// Package bootstrap wires the process-wide runtime: database, Redis and
// optional reference data.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"approvals/internal/cache"
	"approvals/internal/config"
	"approvals/internal/database"
	"approvals/internal/middleware"
	"approvals/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedReferenceData bool
}

// InitRuntime connects to DB and Redis and optionally loads reference data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client means Redis is unreachable; callers degrade gracefully.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedReferenceData {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := seed.ReferenceData(ctx, db, cfg.FiscalYear); err != nil {
			return nil, nil, fmt.Errorf("failed to seed reference data: %w", err)
		}
		middleware.Logger.Info("reference data loaded")
	}

	return db, r, nil
}
