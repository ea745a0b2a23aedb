package contracts

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeYieldRate(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		expected int64
	}{
		{"canonical minimum", big.NewInt(100), 100},
		{"canonical typical", big.NewInt(500), 500},
		{"canonical maximum", big.NewInt(10000), 10000},
		{"fractional percent form", big.NewInt(5), 500},
		{"fractional percent low", big.NewInt(1), 100},
		{"zero passes through", big.NewInt(0), 0},
		{"nil defaults", nil, 500},
		// 500 bps scaled by 1e18 style storage: 5e16 / 1e14 = 500
		{"scaled rate", new(big.Int).Mul(big.NewInt(500), big.NewInt(1e14)), 500},
		// rounding half up on descale: 500.5 in scaled units becomes 501
		{"scaled rate rounds half up", new(big.Int).Add(new(big.Int).Mul(big.NewInt(500), big.NewInt(1e14)), big.NewInt(5e13)), 501},
		// descaled value still out of range falls back to the default
		{"scaled beyond repair", new(big.Int).Mul(big.NewInt(1e9), big.NewInt(1e15)), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeYieldRate(tt.raw, nil))
		})
	}
}

func TestNormalizeYieldRateIdempotent(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("normalization is a fixed point on its own output", prop.ForAll(
		func(raw int64) bool {
			first := NormalizeYieldRate(big.NewInt(raw), nil)
			second := NormalizeYieldRate(big.NewInt(first), nil)
			return first == second
		},
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("canonical rates are never changed", prop.ForAll(
		func(bps int64) bool {
			return NormalizeYieldRate(big.NewInt(bps), nil) == bps
		},
		gen.Int64Range(MinYieldRateBps, MaxYieldRateBps),
	))

	properties.TestingRun(t)
}
