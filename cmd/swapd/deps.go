package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"swapPay/internal/config"
	"swapPay/internal/oracle"
	"swapPay/internal/storage"
	"swapPay/internal/storage/postgres"
)

// newOracle builds the price oracle from the configured sources. The slot
// lives in Redis when a URL is given so replicas share one price.
func newOracle(cfg config.Config, logger *zap.Logger) (*oracle.Oracle, func(), error) {
	client := &http.Client{Timeout: cfg.PriceTimeout}
	var sources []oracle.Source
	for _, name := range cfg.PriceSources {
		switch strings.ToLower(name) {
		case "coinbase":
			sources = append(sources, oracle.NewCoinbaseSource(cfg.CoinbaseURL, client))
		case "coingecko":
			sources = append(sources, oracle.NewCoinGeckoSource(cfg.CoinGeckoURL, client))
		default:
			return nil, nil, fmt.Errorf("unknown price source %q", name)
		}
	}

	var store oracle.Store
	closeFn := func() {}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		store = oracle.NewRedisStore(rdb, 10*cfg.PriceTTL)
		closeFn = func() { _ = rdb.Close() }
	}

	o := oracle.New(sources, store, oracle.Config{
		TTL:           cfg.PriceTTL,
		DegradedTTL:   cfg.DegradedTTL,
		FallbackPrice: cfg.FallbackPrice,
	}, logger)
	return o, closeFn, nil
}

// newJournal prefers Postgres when a DSN is configured, else the JSONL file.
func newJournal(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Journal, func(), error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("session journal", zap.String("backend", "postgres"))
		return store, store.Close, nil
	}
	if cfg.Journal == "" {
		return storage.Nop{}, func() {}, nil
	}
	logger.Info("session journal", zap.String("backend", "jsonl"), zap.String("path", cfg.Journal))
	return storage.NewJsonlJournal(cfg.Journal), func() {}, nil
}
