package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  uint64
		chunkSize uint64
		expected  []BlockRange
	}{
		{"single block", 5, 5, 100, []BlockRange{{5, 5}}},
		{"fits one chunk", 1, 100, 100, []BlockRange{{1, 100}}},
		{"exact multiple", 1, 200, 100, []BlockRange{{1, 100}, {101, 200}}},
		{"remainder chunk", 1, 250, 100, []BlockRange{{1, 100}, {101, 200}, {201, 250}}},
		{"inverted range", 10, 5, 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitRange(tt.from, tt.to, tt.chunkSize))
		})
	}
}

func TestSplitRangeCoversEveryBlockOnce(t *testing.T) {
	chunks := SplitRange(100, 5432, 317)
	require.NotEmpty(t, chunks)

	assert.Equal(t, uint64(100), chunks[0].From)
	assert.Equal(t, uint64(5432), chunks[len(chunks)-1].To)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].To+1, chunks[i].From)
	}
	for _, c := range chunks {
		assert.LessOrEqual(t, c.To-c.From+1, uint64(317))
	}
}
