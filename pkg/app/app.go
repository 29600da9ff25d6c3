// Package app wires the repository, optional cache, services and router from a Config.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/adapters/cache"
	"github.com/wadjakorntonsri/linkstats/pkg/adapters/handler"
	"github.com/wadjakorntonsri/linkstats/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkstats/pkg/config"
	"github.com/wadjakorntonsri/linkstats/pkg/core/services"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

type App struct {
	Repo      ports.Repository
	Links     *services.LinkService
	Clicks    *services.ClickService
	Analytics *services.AnalyticsService
	Handler   http.Handler

	rdb *redis.Client
	log logrus.FieldLogger
}

// Build opens the database and assembles the services. A Redis outage at
// startup disables the cache instead of failing.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{Repo: repo, log: logger}

	var links ports.LinkRepository = repo
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis, link cache disabled")
		} else {
			a.rdb = rdb
			links = cache.NewLinkCache(repo, rdb, cfg.CacheTTL, logger)
			logger.WithField("ttl", cfg.CacheTTL).Info("Link cache enabled")
		}
	}

	a.Links = services.NewLinkService(links, services.LinkConfig{
		SlugLength:  cfg.SlugLength,
		SlugRetries: cfg.SlugRetries,
	}, logger)
	a.Clicks = services.NewClickService(repo, logger)
	// Link existence for analytics is always checked against the database.
	a.Analytics = services.NewAnalyticsService(repo, repo, logger)
	a.Handler = handler.NewRouter(logger, a.Links, a.Clicks, a.Analytics)
	return a, nil
}

func (a *App) Close() error {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.WithError(err).Warn("Error closing Redis client")
		}
	}
	return a.Repo.Close()
}
