// Package service holds the yield accounting engine, the corruption guard and
// the leaderboard aggregation logic.
package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// AnomalySink receives guard rejections and borderline acceptances for
// later diagnosis. Writes are fire-and-forget from the guard's point of view.
type AnomalySink interface {
	RecordAnomaly(ctx context.Context, record *models.AnomalyRecord) error
}

// CorruptionGuard is the last line of defense against absurd numeric values
// reaching players. Historical incidents (decimal-string concatenation during
// decoding, doubled-unit conversions) produced amounts in the 1e30+ range;
// the guard bounds what the system will ever display or persist.
type CorruptionGuard struct {
	maxPlausible *big.Int
	// borderlineFloor is maxPlausible/10; accepted values above it are logged
	borderlineFloor *big.Int
	maxDigits       int
	sink            AnomalySink
	logger          *logging.Logger
}

// NewCorruptionGuard creates a guard from configured thresholds. The sink may
// be nil when no anomaly store is wired.
func NewCorruptionGuard(cfg *config.GuardConfig, sink AnomalySink, logger *logging.Logger) *CorruptionGuard {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	maxPlausible := cfg.MaxPlausibleWei
	if maxPlausible == nil || maxPlausible.Sign() <= 0 {
		// 1,000,000 whole tokens in wei
		maxPlausible = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))
	}
	maxDigits := cfg.MaxDigits
	if maxDigits <= 0 {
		maxDigits = 27
	}
	return &CorruptionGuard{
		maxPlausible:    maxPlausible,
		borderlineFloor: new(big.Int).Div(maxPlausible, big.NewInt(10)),
		maxDigits:       maxDigits,
		sink:            sink,
		logger:          logger,
	}
}

// Validate checks one amount against the guard rules, in order: negative
// values, decimal representations longer than the digit limit, values above
// the plausibility ceiling. It reports whether the amount may be used.
// The raw input is always preserved in logs and anomaly records; the guard
// rejects values, it never silently repairs them.
func (g *CorruptionGuard) Validate(ctx context.Context, callContext string, amount *big.Int) bool {
	if amount == nil {
		g.reject(ctx, callContext, "<nil>", "missing amount")
		return false
	}
	raw := amount.String()

	if amount.Sign() < 0 {
		g.reject(ctx, callContext, raw, "negative amount")
		return false
	}
	if digits := len(raw); digits > g.maxDigits {
		g.reject(ctx, callContext, raw, fmt.Sprintf("decimal representation has %d digits, limit %d", digits, g.maxDigits))
		return false
	}
	if amount.Cmp(g.maxPlausible) > 0 {
		g.reject(ctx, callContext, raw, fmt.Sprintf("amount exceeds plausibility ceiling %s", g.maxPlausible.String()))
		return false
	}

	if amount.Cmp(g.borderlineFloor) > 0 {
		// Within a factor of 10 of the ceiling: accepted, but a cluster of
		// these usually precedes a new corruption incident
		g.logger.WithFields(map[string]interface{}{
			"context": callContext,
			"amount":  raw,
			"ceiling": g.maxPlausible.String(),
		}).Warn("Amount accepted close to plausibility ceiling")
		g.record(ctx, callContext, raw, "accepted within 10x of ceiling", false)
	}
	return true
}

func (g *CorruptionGuard) reject(ctx context.Context, callContext, raw, reason string) {
	g.logger.WithFields(map[string]interface{}{
		"context": callContext,
		"raw":     raw,
		"reason":  reason,
	}).Error("Corruption guard rejected amount")
	g.record(ctx, callContext, raw, reason, true)
}

func (g *CorruptionGuard) record(ctx context.Context, callContext, raw, reason string, rejected bool) {
	if g.sink == nil {
		return
	}
	record := &models.AnomalyRecord{
		ID:         uuid.New().String(),
		Context:    callContext,
		RawValue:   raw,
		Reason:     reason,
		Rejected:   rejected,
		ObservedAt: time.Now().UTC(),
	}
	if err := g.sink.RecordAnomaly(ctx, record); err != nil {
		g.logger.WithError(err).Warn("Failed to persist anomaly record")
	}
}
