package reconciler

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

type fakePropertyStore struct {
	snapshots map[string]*models.PropertySnapshot
	owners    map[string]string
	upserts   int
}

func newFakePropertyStore() *fakePropertyStore {
	return &fakePropertyStore{
		snapshots: map[string]*models.PropertySnapshot{},
		owners:    map[string]string{},
	}
}

func (f *fakePropertyStore) Upsert(_ context.Context, snapshot *models.PropertySnapshot) error {
	f.snapshots[snapshot.TokenID.String()] = snapshot
	f.upserts++
	return nil
}

func (f *fakePropertyStore) UpdateOwner(_ context.Context, tokenID *big.Int, owner string) error {
	f.owners[tokenID.String()] = owner
	return nil
}

type fakeListingStore struct {
	listings map[string]*models.Listing
}

func (f *fakeListingStore) Upsert(_ context.Context, listing *models.Listing) error {
	if f.listings == nil {
		f.listings = map[string]*models.Listing{}
	}
	f.listings[listing.ListingID.String()] = listing
	return nil
}

type fakeQuestStore struct {
	completions []*models.QuestCompletion
}

func (f *fakeQuestStore) Upsert(_ context.Context, completion *models.QuestCompletion) error {
	f.completions = append(f.completions, completion)
	return nil
}

type fakePublisher struct {
	events []*models.DomainEvent
}

func (f *fakePublisher) Publish(_ context.Context, event *models.DomainEvent) {
	f.events = append(f.events, event)
}

// fakeRollup mirrors the repository's claim semantics: totals are additive
// and a claim's log position is only counted once.
type fakeRollup struct {
	claims     map[string]*big.Int
	seen       map[string]bool
	recomputes []string
}

func (f *fakeRollup) RecordYieldClaim(_ context.Context, claim *models.YieldClaim) error {
	if f.claims == nil {
		f.claims = map[string]*big.Int{}
		f.seen = map[string]bool{}
	}
	key := fmt.Sprintf("%s:%d", claim.TxHash, claim.LogIndex)
	if f.seen[key] {
		return nil
	}
	f.seen[key] = true
	total, ok := f.claims[claim.Claimant]
	if !ok {
		total = big.NewInt(0)
		f.claims[claim.Claimant] = total
	}
	total.Add(total, claim.AmountWei)
	return nil
}

func (f *fakeRollup) RecomputeUser(_ context.Context, user string) (*models.LeaderboardRow, error) {
	f.recomputes = append(f.recomputes, user)
	return nil, nil
}

func hashWord(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func addressTopic(hex string) common.Hash {
	return common.BytesToHash(common.HexToAddress(hex).Bytes())
}

func dataWords(values ...*big.Int) []byte {
	var out []byte
	for _, v := range values {
		out = append(out, common.BigToHash(v).Bytes()...)
	}
	return out
}

type handlerFixture struct {
	handlers   *Handlers
	properties *fakePropertyStore
	listings   *fakeListingStore
	quests     *fakeQuestStore
	publisher  *fakePublisher
	rollup     *fakeRollup
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		properties: newFakePropertyStore(),
		listings:   &fakeListingStore{},
		quests:     &fakeQuestStore{},
		publisher:  &fakePublisher{},
		rollup:     &fakeRollup{},
	}
	logger := logging.NewLogger(logging.LevelFatal, logging.FormatText)
	f.handlers = NewHandlers(f.properties, f.listings, f.quests, nil, f.publisher, f.rollup, logger)
	return f
}

const (
	playerA = "0xaaaa000000000000000000000000000000000001"
	playerB = "0xbbbb000000000000000000000000000000000002"
)

func propertyCreatedLog() *ethtypes.Log {
	value, _ := new(big.Int).SetString("100000000000000000000", 10)
	return &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicPropertyCreated,
			hashWord(7),
			addressTopic(playerA),
		},
		Data:        dataWords(big.NewInt(1), value, big.NewInt(500)),
		BlockNumber: 100,
	}
}

func TestHandlePropertyCreated(t *testing.T) {
	f := newHandlerFixture()

	err := f.handlers.HandleLog(context.Background(), propertyCreatedLog(), "live")
	require.NoError(t, err)

	snapshot := f.properties.snapshots["7"]
	require.NotNil(t, snapshot)
	assert.Equal(t, playerA, snapshot.Owner)
	assert.Equal(t, "commercial", snapshot.PropertyType)
	assert.Equal(t, "100000000000000000000", snapshot.Value.String())
	assert.Equal(t, int64(500), snapshot.YieldRateBasisPoints)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventPropertyCreated, f.publisher.events[0].Type)
	assert.Equal(t, []string{playerA}, f.rollup.recomputes)
}

func TestHandlePropertyCreatedIdempotent(t *testing.T) {
	f := newHandlerFixture()
	log := propertyCreatedLog()

	// Same event seen live and again by a catch-up scan
	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))
	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "scan"))

	assert.Len(t, f.properties.snapshots, 1)
	assert.Equal(t, 2, f.properties.upserts)
	assert.Equal(t, playerA, f.properties.snapshots["7"].Owner)
}

func TestHandleTransfer(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicTransfer,
			addressTopic(playerA),
			addressTopic(playerB),
			hashWord(7),
		},
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))

	assert.Equal(t, playerB, f.properties.owners["7"])
	assert.Equal(t, []string{playerA, playerB}, f.rollup.recomputes)
}

func TestHandleTransferIgnoresMints(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicTransfer,
			addressTopic(zeroAddress),
			addressTopic(playerA),
			hashWord(7),
		},
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))
	assert.Empty(t, f.properties.owners)
}

func TestHandleTransferIgnoresERC20Shape(t *testing.T) {
	f := newHandlerFixture()
	// ERC20 Transfer: same topic0, amount in data instead of a fourth topic
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicTransfer,
			addressTopic(playerA),
			addressTopic(playerB),
		},
		Data: dataWords(big.NewInt(1000)),
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))
	assert.Empty(t, f.properties.owners)
}

func TestHandlePropertyListedAndSold(t *testing.T) {
	f := newHandlerFixture()

	listed := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicPropertyListed,
			hashWord(3),
			hashWord(7),
		},
		Data: dataWords(new(big.Int).SetBytes(common.HexToAddress(playerA).Bytes()), big.NewInt(5e18)),
	}
	require.NoError(t, f.handlers.HandleLog(context.Background(), listed, "live"))

	listing := f.listings.listings["3"]
	require.NotNil(t, listing)
	assert.True(t, listing.Active)
	assert.Equal(t, playerA, listing.Seller)

	sold := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicPropertySold,
			hashWord(3),
			hashWord(7),
		},
		Data: dataWords(
			new(big.Int).SetBytes(common.HexToAddress(playerA).Bytes()),
			new(big.Int).SetBytes(common.HexToAddress(playerB).Bytes()),
			big.NewInt(5e18),
		),
	}
	require.NoError(t, f.handlers.HandleLog(context.Background(), sold, "scan"))

	listing = f.listings.listings["3"]
	assert.False(t, listing.Active)
	assert.Equal(t, playerB, listing.Buyer)
	assert.Equal(t, playerB, f.properties.owners["7"])
}

func TestHandleYieldClaimed(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicYieldClaimed,
			hashWord(7),
			addressTopic(playerA),
		},
		Data: dataWords(big.NewInt(13698630136986301)),
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))

	require.NotNil(t, f.rollup.claims[playerA])
	assert.Equal(t, "13698630136986301", f.rollup.claims[playerA].String())
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventYieldClaimed, f.publisher.events[0].Type)
}

func TestHandleYieldClaimedSeenTwiceCountsOnce(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicYieldClaimed,
			hashWord(7),
			addressTopic(playerA),
		},
		Data:   dataWords(big.NewInt(1000)),
		TxHash: common.HexToHash("0xabcd000000000000000000000000000000000000000000000000000000000001"),
		Index:  3,
	}

	// Live delivery followed by the catch-up scan replaying the same log
	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))
	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "scan"))

	require.NotNil(t, f.rollup.claims[playerA])
	assert.Equal(t, "1000", f.rollup.claims[playerA].String())

	// A different claim in the same tx still counts
	second := *log
	second.Index = 4
	require.NoError(t, f.handlers.HandleLog(context.Background(), &second, "scan"))
	assert.Equal(t, "2000", f.rollup.claims[playerA].String())
}

type fakeYieldInvalidator struct {
	invalidated []string
}

func (f *fakeYieldInvalidator) InvalidateClaimableYield(_ context.Context, tokenID *big.Int) error {
	f.invalidated = append(f.invalidated, tokenID.String())
	return nil
}

func TestHandleYieldClaimedInvalidatesCache(t *testing.T) {
	f := newHandlerFixture()
	invalidator := &fakeYieldInvalidator{}
	f.handlers.WithYieldCache(invalidator)

	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicYieldClaimed,
			hashWord(7),
			addressTopic(playerA),
		},
		Data: dataWords(big.NewInt(1000)),
	}
	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))

	assert.Equal(t, []string{"7"}, invalidator.invalidated)
}

func TestHandleQuestCompleted(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{
			contracts.TopicQuestCompleted,
			addressTopic(playerA),
			hashWord(12),
		},
		Data: dataWords(big.NewInt(1700000000)),
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "scan"))

	require.Len(t, f.quests.completions, 1)
	completion := f.quests.completions[0]
	assert.Equal(t, playerA, completion.Player)
	assert.Equal(t, "12", completion.QuestID.String())
	assert.Equal(t, int64(1700000000), completion.CompletedAt)
}

func TestHandleLogIgnoresUnknownTopic(t *testing.T) {
	f := newHandlerFixture()
	log := &ethtypes.Log{
		Topics: []common.Hash{common.HexToHash("0xdeadbeef")},
	}

	require.NoError(t, f.handlers.HandleLog(context.Background(), log, "live"))
	assert.Empty(t, f.properties.snapshots)
	assert.Empty(t, f.publisher.events)
}
