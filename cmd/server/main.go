package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cctvstore/backend/internal/cache"
	"cctvstore/backend/internal/config"
	"cctvstore/backend/internal/httpapi"
	"cctvstore/backend/internal/logging"
	"cctvstore/backend/internal/quotation"
	"cctvstore/backend/internal/service"
	"cctvstore/backend/internal/store"
	"cctvstore/backend/internal/store/memory"
	pgstore "cctvstore/backend/internal/store/postgres"
)

const priceTableFetchTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}

	// Prices go out as JSON numbers so storefront clients can do arithmetic.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("apply schema", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", zap.String("backend", "postgres"))
	} else {
		repo = memory.NewSeeded(logger)
		logger.Info("repository ready", zap.String("backend", "memory"))
	}

	snapshots := cache.PriceTableCache(cache.NoopPriceTableCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisPriceTableCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, price table snapshots disabled", zap.Error(err))
		} else {
			snapshots = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("price table snapshots", zap.String("backend", "redis"))
		}
	}

	tables := quotation.NewTableCache(priceSource(cfg, repo),
		quotation.WithTTL(cfg.PriceTableTTL()),
		quotation.WithSnapshots(snapshots),
		quotation.WithLogger(logger),
	)
	svc := service.New(repo, tables, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo, logger)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("cctv store backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// priceSource picks where the quotation price table comes from: a remote
// document when PRICE_TABLE_URL is set, the admin-managed options otherwise.
func priceSource(cfg config.Config, repo store.Repository) quotation.Source {
	if cfg.PriceTableURL != "" {
		return quotation.NewHTTPSource(cfg.PriceTableURL, priceTableFetchTimeout)
	}
	return service.NewRepositorySource(repo)
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a concrete origin")
	}
	return nil
}
