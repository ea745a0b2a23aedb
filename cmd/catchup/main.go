// Package main provides a one-shot historical scan over an explicit block range.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/reconciler"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/service"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/storage"
)

func main() {
	var (
		fromBlock = flag.Uint64("from", 0, "First block of the range (required)")
		toBlock   = flag.Uint64("to", 0, "Last block of the range, 0 means confirmed head")
	)
	flag.Parse()

	fmt.Println("Property Tycoon Historical Catch-Up")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Contracts.Validate(); err != nil {
		log.Fatalf("Invalid contract configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

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

	pool, err := rpc.NewEndpointPool(cfg.Chain.RPCURLs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create RPC endpoint pool")
	}
	defer pool.Close()

	facade, err := contracts.NewFacade(rpc.NewExecutor(pool, logger), &cfg.Contracts, &cfg.Chain, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create contract facade")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Interrupt received, finishing current chunk")
		cancel()
	}()

	if err := clickhouse.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create ClickHouse schema")
	}

	propertyRepo := storage.NewPropertyRepository(postgres)
	anomalyRepo := storage.NewAnomalyRepository(clickhouse)
	guard := service.NewCorruptionGuard(&cfg.Guard, anomalyRepo, logger)
	leaderboard := service.NewLeaderboardService(facade, storage.NewLeaderboardRepository(postgres), storage.NewGuildRepository(postgres), guard, logger)

	handlers := reconciler.NewHandlers(
		propertyRepo,
		storage.NewListingRepository(postgres),
		storage.NewQuestRepository(postgres),
		storage.NewEventHistoryRepository(clickhouse),
		nil,
		leaderboard,
		logger,
	)

	rec := reconciler.NewReconciler(
		facade,
		storage.NewCursorRepository(postgres),
		handlers,
		cfg.Contracts.All(),
		cfg.Chain.SyncInterval,
		cfg.Chain.ConfirmationDepth,
		cfg.Chain.LogRangeLimit,
		logger,
	)

	to := *toBlock
	if to == 0 {
		head, err := facade.CurrentBlock(ctx)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read chain head")
		}
		if head <= cfg.Chain.ConfirmationDepth {
			logger.Fatal("Chain head below confirmation depth")
		}
		to = head - cfg.Chain.ConfirmationDepth
	}
	if *fromBlock > to {
		logger.WithFields(map[string]interface{}{
			"from": *fromBlock,
			"to":   to,
		}).Fatal("Invalid block range")
	}

	logger.WithFields(map[string]interface{}{
		"from": *fromBlock,
		"to":   to,
	}).Info("Starting historical scan")

	if err := rec.ScanRange(ctx, *fromBlock, to); err != nil {
		logger.WithError(err).Fatal("Historical scan failed")
	}

	logger.Info("Historical scan completed")
}
