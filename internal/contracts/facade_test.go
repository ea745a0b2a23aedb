package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

func wordBool(b bool) []byte {
	w := make([]byte, 32)
	if b {
		w[31] = 1
	}
	return w
}

func concatWords(words ...[]byte) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

func testFacade() *Facade {
	return &Facade{logger: logging.NewLogger(logging.LevelError, logging.FormatText)}
}

func TestDecodeProperty(t *testing.T) {
	owner := common.HexToAddress("0xAbCd000000000000000000000000000000001234")
	value, _ := new(big.Int).SetString("100000000000000000000", 10)

	data := concatWords(
		wordAddress(owner),
		wordUint(big.NewInt(1)), // commercial
		wordUint(value),
		wordUint(big.NewInt(500)),
		wordUint(big.NewInt(1700000000)),
		wordUint(big.NewInt(1700086400)),
		wordAddress(common.Address{}),
		wordUint(big.NewInt(0)),
	)

	snapshot, err := testFacade().decodeProperty(big.NewInt(7), data)
	require.NoError(t, err)

	assert.Equal(t, "7", snapshot.TokenID.String())
	assert.Equal(t, "0xabcd000000000000000000000000000000001234", snapshot.Owner)
	assert.Equal(t, "commercial", snapshot.PropertyType)
	assert.Equal(t, "100000000000000000000", snapshot.Value.String())
	assert.Equal(t, int64(500), snapshot.YieldRateBasisPoints)
	assert.Equal(t, int64(1700000000), snapshot.CreatedAt)
	assert.Equal(t, int64(1700086400), snapshot.LastYieldUpdate)
	assert.Nil(t, snapshot.RWALink)
}

func TestDecodePropertyWithRWALink(t *testing.T) {
	rwa := common.HexToAddress("0x9999000000000000000000000000000000009999")

	data := concatWords(
		wordAddress(common.HexToAddress("0x1111000000000000000000000000000000001111")),
		wordUint(big.NewInt(0)),
		wordUint(big.NewInt(1e18)),
		wordUint(big.NewInt(750)),
		wordUint(big.NewInt(1700000000)),
		wordUint(big.NewInt(0)),
		wordAddress(rwa),
		wordUint(big.NewInt(42)),
	)

	snapshot, err := testFacade().decodeProperty(big.NewInt(1), data)
	require.NoError(t, err)

	require.NotNil(t, snapshot.RWALink)
	assert.Equal(t, "0x9999000000000000000000000000000000009999", snapshot.RWALink.Contract)
	assert.Equal(t, "42", snapshot.RWALink.TokenID.String())
}

func TestDecodePropertyNormalizesScaledRate(t *testing.T) {
	// Rates stored scaled by 1e18 come back repaired into basis points
	scaled := new(big.Int).Mul(big.NewInt(500), big.NewInt(1e14))

	data := concatWords(
		wordAddress(common.HexToAddress("0x1111000000000000000000000000000000001111")),
		wordUint(big.NewInt(0)),
		wordUint(big.NewInt(1e18)),
		wordUint(scaled),
		wordUint(big.NewInt(1700000000)),
		wordUint(big.NewInt(0)),
		wordAddress(common.Address{}),
		wordUint(big.NewInt(0)),
	)

	snapshot, err := testFacade().decodeProperty(big.NewInt(1), data)
	require.NoError(t, err)
	assert.Equal(t, int64(500), snapshot.YieldRateBasisPoints)
}

func TestDecodePropertyTruncated(t *testing.T) {
	data := concatWords(
		wordAddress(common.HexToAddress("0x1111000000000000000000000000000000001111")),
		wordUint(big.NewInt(0)),
	)

	_, err := testFacade().decodeProperty(big.NewInt(1), data)
	assert.Error(t, err)
}

func TestDecodeListing(t *testing.T) {
	seller := common.HexToAddress("0x5e11000000000000000000000000000000000001")
	buyer := common.HexToAddress("0x2222000000000000000000000000000000002222")

	data := concatWords(
		wordUint(big.NewInt(7)),
		wordAddress(seller),
		wordUint(big.NewInt(5e18)),
		wordBool(false),
		wordAddress(buyer),
	)

	listing, err := decodeListing(big.NewInt(3), data)
	require.NoError(t, err)

	assert.Equal(t, "3", listing.ListingID.String())
	assert.Equal(t, "7", listing.TokenID.String())
	assert.Equal(t, "0x5e11000000000000000000000000000000000001", listing.Seller)
	assert.Equal(t, "5000000000000000000", listing.Price.String())
	assert.False(t, listing.Active)
	assert.Equal(t, "0x2222000000000000000000000000000000002222", listing.Buyer)
}

func TestDecodeListingOpenHasNoBuyer(t *testing.T) {
	data := concatWords(
		wordUint(big.NewInt(7)),
		wordAddress(common.HexToAddress("0x1111000000000000000000000000000000001111")),
		wordUint(big.NewInt(1e18)),
		wordBool(true),
		wordAddress(common.Address{}),
	)

	listing, err := decodeListing(big.NewInt(1), data)
	require.NoError(t, err)

	assert.True(t, listing.Active)
	assert.Empty(t, listing.Buyer)
}

func TestUintSliceReturn(t *testing.T) {
	// Dynamic uint256[] return: offset word, length word, then items
	data := concatWords(
		wordUint(big.NewInt(32)),
		wordUint(big.NewInt(3)),
		wordUint(big.NewInt(10)),
		wordUint(big.NewInt(20)),
		wordUint(big.NewInt(30)),
	)

	items, err := uintSliceReturn(data)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "10", items[0].String())
	assert.Equal(t, "20", items[1].String())
	assert.Equal(t, "30", items[2].String())
}

func TestUintSliceReturnEmpty(t *testing.T) {
	data := concatWords(
		wordUint(big.NewInt(32)),
		wordUint(big.NewInt(0)),
	)

	items, err := uintSliceReturn(data)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPackCall(t *testing.T) {
	data := packCall(selOwnerOf, wordUint(big.NewInt(1)))
	require.Len(t, data, 4+32)
	assert.Equal(t, selOwnerOf, data[:4])
}

func TestPropertyTypeName(t *testing.T) {
	assert.Equal(t, "residential", PropertyTypeName(0))
	assert.Equal(t, "landmark", PropertyTypeName(3))
	assert.Equal(t, "unknown", PropertyTypeName(9))
}
