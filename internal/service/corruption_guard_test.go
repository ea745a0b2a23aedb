package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

type fakeAnomalySink struct {
	records []*models.AnomalyRecord
}

func (s *fakeAnomalySink) RecordAnomaly(_ context.Context, record *models.AnomalyRecord) error {
	s.records = append(s.records, record)
	return nil
}

func newTestGuard(sink AnomalySink) *CorruptionGuard {
	return NewCorruptionGuard(&config.GuardConfig{}, sink, logging.NewLogger(logging.LevelFatal, logging.FormatText))
}

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return n
}

func TestCorruptionGuardValidate(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		accepted bool
	}{
		{"zero", "0", true},
		{"typical yield", "13698630136986301", true},
		{"whole token", "1000000000000000000", true},
		{"at ceiling", "1000000000000000000000000", true},
		{"just above ceiling", "1000000000000000000000001", false},
		{"negative", "-1", false},
		// 28 digits, the shape string-concatenation corruption produces
		{"too many digits", "1000000000000000000000000000", false},
		{"absurd concatenation", "50000000000000000000000000000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(nil)
			assert.Equal(t, tt.accepted, guard.Validate(context.Background(), "test", bigFromString(t, tt.amount)))
		})
	}
}

func TestCorruptionGuardNilAmount(t *testing.T) {
	guard := newTestGuard(nil)
	assert.False(t, guard.Validate(context.Background(), "test", nil))
}

func TestCorruptionGuardRecordsRejections(t *testing.T) {
	sink := &fakeAnomalySink{}
	guard := newTestGuard(sink)

	guard.Validate(context.Background(), "calculateYield:7", bigFromString(t, "-5"))

	require.Len(t, sink.records, 1)
	record := sink.records[0]
	assert.True(t, record.Rejected)
	assert.Equal(t, "calculateYield:7", record.Context)
	assert.Equal(t, "-5", record.RawValue)
	assert.NotEmpty(t, record.ID)
}

func TestCorruptionGuardBorderlineAcceptedButRecorded(t *testing.T) {
	sink := &fakeAnomalySink{}
	guard := newTestGuard(sink)

	// Above ceiling/10, below ceiling: accepted but flagged
	borderline := bigFromString(t, "200000000000000000000000")
	assert.True(t, guard.Validate(context.Background(), "test", borderline))

	require.Len(t, sink.records, 1)
	assert.False(t, sink.records[0].Rejected)
}

func TestCorruptionGuardRuleOrder(t *testing.T) {
	sink := &fakeAnomalySink{}
	guard := newTestGuard(sink)

	// Negative with an over-limit digit count must report the negativity rule
	huge := bigFromString(t, "-1000000000000000000000000000000")
	assert.False(t, guard.Validate(context.Background(), "test", huge))

	require.Len(t, sink.records, 1)
	assert.Contains(t, sink.records[0].Reason, "negative")
}

func TestCorruptionGuardCustomCeiling(t *testing.T) {
	guard := NewCorruptionGuard(&config.GuardConfig{
		MaxPlausibleWei: big.NewInt(1000),
		MaxDigits:       27,
	}, nil, logging.NewLogger(logging.LevelFatal, logging.FormatText))

	assert.True(t, guard.Validate(context.Background(), "test", big.NewInt(1000)))
	assert.False(t, guard.Validate(context.Background(), "test", big.NewInt(1001)))
}
