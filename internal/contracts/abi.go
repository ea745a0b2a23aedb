package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Method selectors for the fixed operation set. Calldata is packed by hand:
// 4-byte selector followed by 32-byte words.
var (
	selGetProperty        = methodID("getProperty(uint256)")
	selOwnerOf            = methodID("ownerOf(uint256)")
	selGetOwnerProperties = methodID("getOwnerProperties(address)")
	selCalculateYield     = methodID("calculateYield(uint256)")
	selGetListing         = methodID("getListing(uint256)")
	selHasCompletedQuest  = methodID("hasCompletedQuest(address,uint256)")
	selGetAsset           = methodID("getAsset(uint256)")
)

// Event topic0 hashes for the contracts of interest
var (
	TopicPropertyCreated = crypto.Keccak256Hash([]byte("PropertyCreated(uint256,address,uint8,uint256,uint256)"))
	TopicTransfer        = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	TopicPropertyListed  = crypto.Keccak256Hash([]byte("PropertyListed(uint256,uint256,address,uint256)"))
	TopicPropertySold    = crypto.Keccak256Hash([]byte("PropertySold(uint256,uint256,address,address,uint256)"))
	TopicYieldClaimed    = crypto.Keccak256Hash([]byte("YieldClaimed(uint256,address,uint256)"))
	TopicQuestCompleted  = crypto.Keccak256Hash([]byte("QuestCompleted(address,uint256,uint256)"))
)

func methodID(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

// packCall builds calldata from a selector and 32-byte argument words
func packCall(selector []byte, args ...[]byte) []byte {
	data := make([]byte, 0, 4+32*len(args))
	data = append(data, selector...)
	for _, arg := range args {
		data = append(data, arg...)
	}
	return data
}

// wordUint packs a big integer into a 32-byte word
func wordUint(n *big.Int) []byte {
	word := make([]byte, 32)
	if n != nil {
		n.FillBytes(word)
	}
	return word
}

// wordAddress packs an address into a 32-byte word
func wordAddress(addr common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return word
}

// wordAt extracts the i-th 32-byte word of a return payload
func wordAt(data []byte, i int) ([]byte, error) {
	start := i * 32
	end := start + 32
	if len(data) < end {
		return nil, fmt.Errorf("return data too short: want word %d, have %d bytes", i, len(data))
	}
	return data[start:end], nil
}

// uintAt decodes the i-th word as an unsigned big integer
func uintAt(data []byte, i int) (*big.Int, error) {
	word, err := wordAt(data, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word), nil
}

// addressAt decodes the i-th word as an address
func addressAt(data []byte, i int) (common.Address, error) {
	word, err := wordAt(data, i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[12:]), nil
}

// boolAt decodes the i-th word as a boolean
func boolAt(data []byte, i int) (bool, error) {
	n, err := uintAt(data, i)
	if err != nil {
		return false, err
	}
	return n.Sign() != 0, nil
}

// uintSliceReturn decodes a single dynamic uint256[] return value
func uintSliceReturn(data []byte) ([]*big.Int, error) {
	offset, err := uintAt(data, 0)
	if err != nil {
		return nil, err
	}
	if !offset.IsInt64() || offset.Int64()%32 != 0 {
		return nil, fmt.Errorf("invalid array offset %s", offset)
	}
	base := int(offset.Int64()) / 32

	length, err := uintAt(data, base)
	if err != nil {
		return nil, err
	}
	if !length.IsInt64() || length.Int64() < 0 {
		return nil, fmt.Errorf("invalid array length %s", length)
	}

	items := make([]*big.Int, 0, length.Int64())
	for i := 0; i < int(length.Int64()); i++ {
		item, err := uintAt(data, base+1+i)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
