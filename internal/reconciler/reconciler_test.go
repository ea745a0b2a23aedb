package reconciler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

type fakeChainSource struct {
	head    uint64
	headErr error
	// filter is invoked per chunk; returning an error fails that chunk
	filter  func(query ethereum.FilterQuery) ([]ethtypes.Log, error)
	queries []ethereum.FilterQuery
}

func (f *fakeChainSource) CurrentBlock(_ context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeChainSource) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error) {
	f.queries = append(f.queries, query)
	if f.filter == nil {
		return nil, nil
	}
	return f.filter(query)
}

type memoryCursorStore struct {
	mu     sync.Mutex
	blocks map[string]uint64
	saves  []uint64
	fail   bool
}

func newMemoryCursorStore() *memoryCursorStore {
	return &memoryCursorStore{blocks: map[string]uint64{}}
}

func (s *memoryCursorStore) Load(_ context.Context, name string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[name]
	return block, ok, nil
}

func (s *memoryCursorStore) Save(_ context.Context, name string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("cursor store unavailable")
	}
	s.blocks[name] = block
	s.saves = append(s.saves, block)
	return nil
}

func newTestReconciler(chain *fakeChainSource, cursors *memoryCursorStore, rangeLimit uint64) *Reconciler {
	logger := logging.NewLogger(logging.LevelFatal, logging.FormatText)
	handlers := NewHandlers(newFakePropertyStore(), &fakeListingStore{}, &fakeQuestStore{}, nil, nil, nil, logger)
	contracts := []string{"0xcccc000000000000000000000000000000000003"}
	return NewReconciler(chain, cursors, handlers, contracts, time.Minute, 1, rangeLimit, logger)
}

func TestScanOnceBootstrapsAtConfirmedHead(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	cursors := newMemoryCursorStore()

	r := newTestReconciler(chain, cursors, 100)
	require.NoError(t, r.ScanOnce(context.Background()))

	// Head 1000 minus one confirmation, no ranges scanned
	assert.Equal(t, uint64(999), cursors.blocks[cursorName])
	assert.Empty(t, chain.queries)
	assert.Equal(t, uint64(999), r.Status().Cursor)
}

func TestScanOnceAdvancesCursorThroughChunks(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	cursors := newMemoryCursorStore()
	cursors.blocks[cursorName] = 699

	r := newTestReconciler(chain, cursors, 100)
	require.NoError(t, r.ScanOnce(context.Background()))

	// Blocks 700..999 in three chunks of 100
	require.Len(t, chain.queries, 3)
	assert.Equal(t, uint64(700), chain.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(799), chain.queries[0].ToBlock.Uint64())
	assert.Equal(t, []uint64{799, 899, 999}, cursors.saves)
	assert.Equal(t, uint64(999), r.Status().Cursor)
}

func TestScanOnceCursorRestsAtLastGoodChunkOnFailure(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	chain.filter = func(query ethereum.FilterQuery) ([]ethtypes.Log, error) {
		if query.FromBlock.Uint64() == 900 {
			return nil, fmt.Errorf("getLogs rate limited")
		}
		return nil, nil
	}
	cursors := newMemoryCursorStore()
	cursors.blocks[cursorName] = 699

	r := newTestReconciler(chain, cursors, 100)
	err := r.ScanOnce(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryReconciliation, apperrors.Category(err))
	// The failed chunk 900..999 must not be skipped
	assert.Equal(t, uint64(899), cursors.blocks[cursorName])

	status := r.Status()
	assert.Equal(t, uint64(899), status.Cursor)
	assert.NotEmpty(t, status.LastError)
}

func TestScanOnceNothingToDoWhenCaughtUp(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	cursors := newMemoryCursorStore()
	cursors.blocks[cursorName] = 999

	r := newTestReconciler(chain, cursors, 100)
	require.NoError(t, r.ScanOnce(context.Background()))
	assert.Empty(t, chain.queries)
}

func TestScanOnceSkipsWhileScanInProgress(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	cursors := newMemoryCursorStore()
	cursors.blocks[cursorName] = 699

	r := newTestReconciler(chain, cursors, 100)
	r.scanning.Store(true)

	require.NoError(t, r.ScanOnce(context.Background()))
	assert.Empty(t, chain.queries)
}

func TestScanOnceHeadFailure(t *testing.T) {
	chain := &fakeChainSource{headErr: fmt.Errorf("connection refused")}
	cursors := newMemoryCursorStore()

	r := newTestReconciler(chain, cursors, 100)
	require.Error(t, r.ScanOnce(context.Background()))
	assert.Empty(t, cursors.blocks)
}

func TestScanRangeCursorIsMonotonic(t *testing.T) {
	chain := &fakeChainSource{head: 1000}
	cursors := newMemoryCursorStore()

	r := newTestReconciler(chain, cursors, 50)
	require.NoError(t, r.ScanRange(context.Background(), 100, 400))

	last := uint64(0)
	for _, saved := range cursors.saves {
		assert.Greater(t, saved, last)
		last = saved
	}
	assert.Equal(t, uint64(400), last)
}

func TestScanRangeAppliesEventsBeforeAdvancing(t *testing.T) {
	logger := logging.NewLogger(logging.LevelFatal, logging.FormatText)
	properties := newFakePropertyStore()
	handlers := NewHandlers(properties, &fakeListingStore{}, &fakeQuestStore{}, nil, nil, nil, logger)

	chain := &fakeChainSource{
		filter: func(ethereum.FilterQuery) ([]ethtypes.Log, error) {
			return []ethtypes.Log{*propertyCreatedLog()}, nil
		},
	}
	cursors := newMemoryCursorStore()
	r := NewReconciler(chain, cursors, handlers, []string{"0xcccc000000000000000000000000000000000003"}, time.Minute, 1, 1000, logger)

	require.NoError(t, r.ScanRange(context.Background(), 100, 100))
	assert.Len(t, properties.snapshots, 1)
	assert.Equal(t, uint64(100), cursors.blocks[cursorName])
}
