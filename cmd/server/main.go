// Package main provides the reconciliation service entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/api"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/events"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/reconciler"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/service"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/storage"
)

func main() {
	fmt.Println("Property Tycoon Reconciliation Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Contracts.Validate(); err != nil {
		log.Fatalf("Invalid contract configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := clickhouse.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create ClickHouse schema")
	}

	logger.Info("Database connections established")

	// Initialize the RPC failover pool
	pool, err := rpc.NewEndpointPool(cfg.Chain.RPCURLs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create RPC endpoint pool")
	}
	defer pool.Close()
	executor := rpc.NewExecutor(pool, logger)

	facade, err := contracts.NewFacade(executor, &cfg.Contracts, &cfg.Chain, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create contract facade")
	}

	logger.WithFields(map[string]interface{}{
		"endpoints": pool.Size(),
		"registry":  cfg.Contracts.PropertyRegistry,
	}).Info("Chain access initialized")

	// Initialize repositories
	propertyRepo := storage.NewPropertyRepository(postgres)
	listingRepo := storage.NewListingRepository(postgres)
	questRepo := storage.NewQuestRepository(postgres)
	leaderboardRepo := storage.NewLeaderboardRepository(postgres)
	cursorRepo := storage.NewCursorRepository(postgres)
	historyRepo := storage.NewEventHistoryRepository(clickhouse)
	anomalyRepo := storage.NewAnomalyRepository(clickhouse)

	// Initialize services
	logger.Info("Initializing services...")

	guard := service.NewCorruptionGuard(&cfg.Guard, anomalyRepo, logger)
	yieldEngine := service.NewYieldEngine(facade, propertyRepo, guard, int64(cfg.Yield.UpdateInterval.Seconds()), logger)
	cachedYield := service.NewCachedYieldEngine(yieldEngine, redis, logger)
	leaderboard := service.NewLeaderboardService(facade, leaderboardRepo, storage.NewGuildRepository(postgres), guard, logger)
	publisher := events.NewPublisher(redis.Client(), logger)

	handlers := reconciler.NewHandlers(propertyRepo, listingRepo, questRepo, historyRepo, publisher, leaderboard, logger).
		WithYieldCache(redis)

	rec := reconciler.NewReconciler(
		facade,
		cursorRepo,
		handlers,
		cfg.Contracts.All(),
		cfg.Chain.SyncInterval,
		cfg.Chain.ConfirmationDepth,
		cfg.Chain.LogRangeLimit,
		logger,
	)
	go rec.Run(ctx)

	if _, ok := pool.WebsocketOrdinal(); ok {
		listener := reconciler.NewListener(facade, handlers, cfg.Contracts.All(), logger)
		go listener.Run(ctx)
		logger.Info("Reconciler and live listener started")
	} else {
		logger.Info("No websocket endpoint configured, relying on catch-up scans only")
	}

	aggregation := service.NewAggregationTicker(leaderboard, propertyRepo, cfg.Chain.AggregationInterval, logger)
	go aggregation.Run(ctx)

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	server := api.NewServer(serverConfig, pool, rec, cachedYield, leaderboard, propertyRepo, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
