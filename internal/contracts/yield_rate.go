package contracts

import (
	"math/big"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

const (
	// MinYieldRateBps and MaxYieldRateBps bound a canonical yield rate (1%-100%)
	MinYieldRateBps = 100
	MaxYieldRateBps = 10000
	// DefaultYieldRateBps is used when a stored rate cannot be repaired (5%)
	DefaultYieldRateBps = 500
)

var (
	// rates above this are assumed to be scaled by 1e18 (historical storage bug)
	scaledRateThreshold = big.NewInt(1e15)
	scaledRateDivisor   = big.NewInt(1e14)
	scaledRateHalf      = big.NewInt(5e13)
)

// NormalizeYieldRate repairs a yield rate read from the chain into canonical
// basis points. Three stored forms exist: canonical basis points (100-10000),
// a legacy 0-1 fractional form, and rates mistakenly scaled by 1e18.
//
// The same normalization must run on every path that reads a rate, otherwise
// two components can disagree on the same property's yield.
func NormalizeYieldRate(raw *big.Int, logger *logging.Logger) int64 {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if raw == nil {
		logger.Warn("Yield rate missing, defaulting to 500 bps")
		return DefaultYieldRateBps
	}

	if raw.Cmp(scaledRateThreshold) > 0 {
		// Scaled by 1e18: divide by 1e14, rounding half up, to land in bps
		scaled := new(big.Int).Add(raw, scaledRateHalf)
		scaled.Div(scaled, scaledRateDivisor)
		if scaled.Cmp(big.NewInt(MinYieldRateBps)) < 0 || scaled.Cmp(big.NewInt(MaxYieldRateBps)) > 0 {
			logger.WithFields(map[string]interface{}{
				"raw":      raw.String(),
				"rescaled": scaled.String(),
			}).Warn("Yield rate unrepairable after descaling, defaulting to 500 bps")
			return DefaultYieldRateBps
		}
		return scaled.Int64()
	}

	if raw.Sign() > 0 && raw.Cmp(big.NewInt(MinYieldRateBps)) < 0 {
		// Legacy fractional form stored as whole percent
		return raw.Int64() * 100
	}

	return raw.Int64()
}
