package service

import (
	"context"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

// OwnerLister enumerates the addresses present in the property cache
type OwnerLister interface {
	DistinctOwners(ctx context.Context) ([]string, error)
}

// AggregationTicker periodically rebuilds every known holder's leaderboard
// rollup from chain state. Event handlers keep rollups current between ticks;
// the ticker repairs rows that drifted through missed events or failed
// per-event recomputes.
type AggregationTicker struct {
	service  *LeaderboardService
	owners   OwnerLister
	interval time.Duration
	logger   *logging.Logger
}

func NewAggregationTicker(service *LeaderboardService, owners OwnerLister, interval time.Duration, logger *logging.Logger) *AggregationTicker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &AggregationTicker{
		service:  service,
		owners:   owners,
		interval: interval,
		logger:   logger,
	}
}

// Run refreshes all rollups on a fixed interval until the context is done
func (t *AggregationTicker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.RefreshAll(ctx); err != nil {
				t.logger.WithError(err).Warn("Leaderboard refresh pass failed")
			}
		}
	}
}

// RefreshAll recomputes every cached owner's rollup. Per-owner failures are
// logged and skipped so one unreachable portfolio does not starve the rest.
func (t *AggregationTicker) RefreshAll(ctx context.Context) error {
	owners, err := t.owners.DistinctOwners(ctx)
	if err != nil {
		return err
	}

	refreshed := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := t.service.RecomputeUser(ctx, owner); err != nil {
			t.logger.WithError(err).WithField("address", owner).Warn("Owner rollup refresh failed")
			continue
		}
		refreshed++
	}

	t.logger.WithFields(map[string]interface{}{
		"owners":    len(owners),
		"refreshed": refreshed,
	}).Debug("Leaderboard refresh pass completed")
	return nil
}
