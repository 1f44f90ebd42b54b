package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

// newFilterStore builds the filter key store for the configured backend.
// The returned close func releases the backend.
func newFilterStore(ctx context.Context, cfg *config.Config) (*filterkey.Store, func(), error) {
	fk := cfg.FilterKeys

	switch fk.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Address, err)
		}
		logger.L().Infow("Using redis filter key backend", "addr", cfg.Redis.Address, "db", cfg.Redis.DB)
		store := filterkey.NewStore(filterkey.NewRedisStore(client), filterkey.WithIdleTimeout(fk.IdleTimeout))
		return store, func() { client.Close() }, nil

	default:
		logger.L().Infow("Using in-memory filter key backend", "idle_timeout", fk.IdleTimeout, "cleanup_interval", fk.CleanupInterval)
		backend := filterkey.NewMemoryStore(fk.IdleTimeout, fk.CleanupInterval)
		store := filterkey.NewStore(backend, filterkey.WithIdleTimeout(fk.IdleTimeout))
		return store, func() {}, nil
	}
}

// loadClassifier returns the configured rules, or the built-in ones.
func loadClassifier(path string) (*classify.Classifier, error) {
	if path == "" {
		return classify.Default(), nil
	}
	return classify.Load(path)
}
