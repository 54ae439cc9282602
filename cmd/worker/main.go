// Package main runs the background worker (subscription expiry sweeping).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nexus-community/backend/config"
	"github.com/nexus-community/backend/internal/subscriptions"
	"github.com/nexus-community/backend/internal/worker"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/database"
	"github.com/nexus-community/backend/pkg/messaging"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	cacheStore := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.Options{
		DefaultTTL:   time.Duration(cfg.Cache.DefaultTTL) * time.Second,
		AnalyticsTTL: time.Duration(cfg.Cache.AnalyticsTTL) * time.Second,
	}, logger)
	defer cacheStore.Close()
	keys := cache.NewKeys(cfg.Cache.Prefix)

	publisher := messaging.New(cfg.Broker, logger)
	if err := publisher.Connect(ctx); err != nil {
		logger.Warn("broker connect", zap.Error(err))
	}
	defer publisher.Close()

	subscriptionRepo := subscriptions.NewRepository(pool)
	sweeper := worker.NewExpirySweeper(subscriptionRepo, cacheStore, keys, publisher,
		worker.DefaultSweepInterval, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
