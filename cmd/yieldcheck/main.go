// Package main provides a debug tool comparing on-chain yield against the
// local accrual formula for one property.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/service"
)

func main() {
	tokenFlag := flag.String("token", "", "Property token id (required)")
	flag.Parse()

	tokenID, ok := new(big.Int).SetString(*tokenFlag, 10)
	if !ok || tokenID.Sign() < 0 {
		fmt.Println("Usage: yieldcheck -token <tokenId>")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Contracts.Validate(); err != nil {
		fmt.Printf("Invalid contract configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.LevelError, logging.FormatText)

	pool, err := rpc.NewEndpointPool(cfg.Chain.RPCURLs)
	if err != nil {
		fmt.Printf("Error creating endpoint pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	facade, err := contracts.NewFacade(rpc.NewExecutor(pool, logger), &cfg.Contracts, &cfg.Chain, logger)
	if err != nil {
		fmt.Printf("Error creating contract facade: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("Token %s\n\n", tokenID.String())

	property, err := facade.GetProperty(ctx, tokenID)
	if err != nil {
		fmt.Printf("GetProperty failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Owner:            %s\n", property.Owner)
	fmt.Printf("Type:             %s\n", property.PropertyType)
	fmt.Printf("Value (wei):      %s\n", property.Value.String())
	fmt.Printf("Yield rate (bps): %d\n", property.YieldRateBasisPoints)
	fmt.Printf("Created at:       %s\n", time.Unix(property.CreatedAt, 0).UTC().Format(time.RFC3339))
	if property.LastYieldUpdate > 0 {
		fmt.Printf("Last claim:       %s\n", time.Unix(property.LastYieldUpdate, 0).UTC().Format(time.RFC3339))
	}
	if property.RWALink != nil {
		fmt.Printf("RWA link:         %s / %s\n", property.RWALink.Contract, property.RWALink.TokenID.String())
	}
	fmt.Println()

	onChain, chainErr := facade.CalculateYield(ctx, tokenID)
	if chainErr != nil {
		fmt.Printf("On-chain yield:   unavailable (%v)\n", chainErr)
	} else {
		fmt.Printf("On-chain yield:   %s\n", onChain.String())
	}

	nowUnix := time.Now().UTC().Unix()
	if ts, err := facade.BlockTimestamp(ctx); err == nil && ts > 0 {
		nowUnix = ts
	}
	local := service.AccruedYield(
		property.Value,
		property.YieldRateBasisPoints,
		property.CreatedAt,
		property.LastYieldUpdate,
		nowUnix,
		int64(cfg.Yield.UpdateInterval.Seconds()),
	)
	fmt.Printf("Local yield:      %s\n", local.String())

	if chainErr == nil {
		diff := new(big.Int).Sub(onChain, local)
		fmt.Printf("Difference:       %s\n", diff.String())
	}
}
