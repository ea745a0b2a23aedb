// Package contracts is the single chokepoint for chain I/O: a typed facade
// over the game's on-chain contracts, routed through the failover executor,
// with all numeric and yield-rate normalization applied at this boundary.
package contracts

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
)

// Facade exposes the fixed read operation set against the game contracts
type Facade struct {
	exec        *rpc.Executor
	pool        *rpc.EndpointPool
	registry    common.Address
	distributor common.Address
	marketplace common.Address
	quests      common.Address
	limiter     *rate.Limiter
	callTimeout time.Duration
	logger      *logging.Logger
}

// NewFacade creates a contract facade. Missing contract addresses are
// startup-fatal.
func NewFacade(exec *rpc.Executor, contracts *config.ContractsConfig, chain *config.ChainConfig, logger *logging.Logger) (*Facade, error) {
	if err := contracts.Validate(); err != nil {
		return nil, errors.NewConfigError(err.Error())
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	ratePerSec := chain.ScanRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	callTimeout := chain.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}

	return &Facade{
		exec:        exec,
		pool:        exec.Pool(),
		registry:    common.HexToAddress(contracts.PropertyRegistry),
		distributor: common.HexToAddress(contracts.YieldDistributor),
		marketplace: common.HexToAddress(contracts.Marketplace),
		quests:      common.HexToAddress(contracts.QuestSystem),
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

// Registry returns the property registry address
func (f *Facade) Registry() common.Address { return f.registry }

// Distributor returns the yield distributor address
func (f *Facade) Distributor() common.Address { return f.distributor }

// Marketplace returns the marketplace address
func (f *Facade) Marketplace() common.Address { return f.marketplace }

// Quests returns the quest system address
func (f *Facade) Quests() common.Address { return f.quests }

// SystemAddresses returns the lowercase set of the system's own contract
// addresses. Tokens held by these are listed/escrowed, never player holdings.
func (f *Facade) SystemAddresses() map[string]bool {
	return map[string]bool{
		strings.ToLower(f.registry.Hex()):    true,
		strings.ToLower(f.distributor.Hex()): true,
		strings.ToLower(f.marketplace.Hex()): true,
		strings.ToLower(f.quests.Hex()):      true,
	}
}

// call runs one eth_call through the failover executor
func (f *Facade) call(ctx context.Context, label string, to common.Address, data []byte) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTransportError(label, err)
	}

	var out []byte
	err := f.exec.ExecuteWithFailover(ctx, label, func(ctx context.Context, ep rpc.Endpoint) error {
		client, err := f.pool.Client(ctx, ep.Ordinal)
		if err != nil {
			return err
		}
		res, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// GetProperty reads the full property record for a token
func (f *Facade) GetProperty(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error) {
	data, err := f.call(ctx, "getProperty", f.registry, packCall(selGetProperty, wordUint(tokenID)))
	if err != nil {
		return nil, err
	}
	return f.decodeProperty(tokenID, data)
}

// decodeProperty unpacks the getProperty tuple:
// (owner, propertyType, value, yieldRate, createdAt, lastYieldUpdate, rwaContract, rwaTokenId)
func (f *Facade) decodeProperty(tokenID *big.Int, data []byte) (*models.PropertySnapshot, error) {
	owner, err := addressAt(data, 0)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	propertyType, err := uintAt(data, 1)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	value, err := uintAt(data, 2)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	rawRate, err := uintAt(data, 3)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	createdAt, err := uintAt(data, 4)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	lastYieldUpdate, err := uintAt(data, 5)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	rwaContract, err := addressAt(data, 6)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}
	rwaTokenID, err := uintAt(data, 7)
	if err != nil {
		return nil, errors.NewDecodingError("getProperty", data, err)
	}

	snapshot := &models.PropertySnapshot{
		TokenID:              new(big.Int).Set(tokenID),
		Owner:                strings.ToLower(owner.Hex()),
		PropertyType:         PropertyTypeName(propertyType.Int64()),
		Value:                value,
		YieldRateBasisPoints: NormalizeYieldRate(rawRate, f.logger),
		CreatedAt:            createdAt.Int64(),
		LastYieldUpdate:      lastYieldUpdate.Int64(),
	}
	if rwaContract != (common.Address{}) {
		snapshot.RWALink = &models.RWALink{
			Contract: strings.ToLower(rwaContract.Hex()),
			TokenID:  rwaTokenID,
		}
	}
	return snapshot, nil
}

// PropertyTypeName maps the on-chain property type enum to its display name
func PropertyTypeName(t int64) string {
	switch t {
	case 0:
		return "residential"
	case 1:
		return "commercial"
	case 2:
		return "industrial"
	case 3:
		return "landmark"
	default:
		return "unknown"
	}
}

// OwnerOf returns the current owner of a token, lowercase-normalized.
// A revert here means the current contract has no record of the token.
func (f *Facade) OwnerOf(ctx context.Context, tokenID *big.Int) (string, error) {
	data, err := f.call(ctx, "ownerOf", f.registry, packCall(selOwnerOf, wordUint(tokenID)))
	if err != nil {
		return "", err
	}
	owner, err := addressAt(data, 0)
	if err != nil {
		return "", errors.NewDecodingError("ownerOf", data, err)
	}
	return strings.ToLower(owner.Hex()), nil
}

// GetOwnerProperties returns the token ids currently owned by an address
func (f *Facade) GetOwnerProperties(ctx context.Context, owner string) ([]*big.Int, error) {
	addr := common.HexToAddress(owner)
	data, err := f.call(ctx, "getOwnerProperties", f.registry, packCall(selGetOwnerProperties, wordAddress(addr)))
	if err != nil {
		return nil, err
	}
	tokens, err := uintSliceReturn(data)
	if err != nil {
		return nil, errors.NewDecodingError("getOwnerProperties", data, err)
	}
	return tokens, nil
}

// CalculateYield asks the yield distributor for the claimable amount. The call
// carries its own timeout independent of the transport; the caller treats a
// timeout the same as a revert.
func (f *Facade) CalculateYield(ctx context.Context, tokenID *big.Int) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	data, err := f.call(ctx, "calculateYield", f.distributor, packCall(selCalculateYield, wordUint(tokenID)))
	if err != nil {
		return nil, err
	}
	amount, err := uintAt(data, 0)
	if err != nil {
		return nil, errors.NewDecodingError("calculateYield", data, err)
	}
	return amount, nil
}

// GetListing reads a marketplace listing:
// (tokenId, seller, price, active, buyer)
func (f *Facade) GetListing(ctx context.Context, listingID *big.Int) (*models.Listing, error) {
	data, err := f.call(ctx, "getListing", f.marketplace, packCall(selGetListing, wordUint(listingID)))
	if err != nil {
		return nil, err
	}
	return decodeListing(listingID, data)
}

func decodeListing(listingID *big.Int, data []byte) (*models.Listing, error) {
	tokenID, err := uintAt(data, 0)
	if err != nil {
		return nil, errors.NewDecodingError("getListing", data, err)
	}
	seller, err := addressAt(data, 1)
	if err != nil {
		return nil, errors.NewDecodingError("getListing", data, err)
	}
	price, err := uintAt(data, 2)
	if err != nil {
		return nil, errors.NewDecodingError("getListing", data, err)
	}
	active, err := boolAt(data, 3)
	if err != nil {
		return nil, errors.NewDecodingError("getListing", data, err)
	}
	buyer, err := addressAt(data, 4)
	if err != nil {
		return nil, errors.NewDecodingError("getListing", data, err)
	}

	listing := &models.Listing{
		ListingID: new(big.Int).Set(listingID),
		TokenID:   tokenID,
		Seller:    strings.ToLower(seller.Hex()),
		Price:     price,
		Active:    active,
	}
	if buyer != (common.Address{}) {
		listing.Buyer = strings.ToLower(buyer.Hex())
	}
	return listing, nil
}

// HasCompletedQuest reports whether a player has completed a quest
func (f *Facade) HasCompletedQuest(ctx context.Context, player string, questID *big.Int) (bool, error) {
	addr := common.HexToAddress(player)
	data, err := f.call(ctx, "hasCompletedQuest", f.quests, packCall(selHasCompletedQuest, wordAddress(addr), wordUint(questID)))
	if err != nil {
		return false, err
	}
	done, err := boolAt(data, 0)
	if err != nil {
		return false, errors.NewDecodingError("hasCompletedQuest", data, err)
	}
	return done, nil
}

// GetRWAAsset reads a linked real-world-asset record:
// (value, yieldRate, active)
func (f *Facade) GetRWAAsset(ctx context.Context, contract string, tokenID *big.Int) (*models.RWAAsset, error) {
	addr := common.HexToAddress(contract)
	data, err := f.call(ctx, "getRWAAsset", addr, packCall(selGetAsset, wordUint(tokenID)))
	if err != nil {
		return nil, err
	}

	value, err := uintAt(data, 0)
	if err != nil {
		return nil, errors.NewDecodingError("getRWAAsset", data, err)
	}
	rawRate, err := uintAt(data, 1)
	if err != nil {
		return nil, errors.NewDecodingError("getRWAAsset", data, err)
	}
	active, err := boolAt(data, 2)
	if err != nil {
		return nil, errors.NewDecodingError("getRWAAsset", data, err)
	}

	return &models.RWAAsset{
		Contract:             strings.ToLower(addr.Hex()),
		TokenID:              new(big.Int).Set(tokenID),
		Value:                value,
		YieldRateBasisPoints: NormalizeYieldRate(rawRate, f.logger),
		Active:               active,
	}, nil
}

// CurrentBlock returns the chain head height
func (f *Facade) CurrentBlock(ctx context.Context) (uint64, error) {
	var height uint64
	err := f.exec.ExecuteWithFailover(ctx, "blockNumber", func(ctx context.Context, ep rpc.Endpoint) error {
		client, err := f.pool.Client(ctx, ep.Ordinal)
		if err != nil {
			return err
		}
		h, err := client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// BlockTimestamp returns the latest block timestamp in unix seconds
func (f *Facade) BlockTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	err := f.exec.ExecuteWithFailover(ctx, "blockTimestamp", func(ctx context.Context, ep rpc.Endpoint) error {
		client, err := f.pool.Client(ctx, ep.Ordinal)
		if err != nil {
			return err
		}
		header, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		ts = int64(header.Time)
		return nil
	})
	return ts, err
}

// FilterLogs queries historical logs through the failover executor, throttled
// by the scan rate limiter
func (f *Facade) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTransportError("filterLogs", err)
	}

	var logs []ethtypes.Log
	err := f.exec.ExecuteWithFailover(ctx, "filterLogs", func(ctx context.Context, ep rpc.Endpoint) error {
		client, err := f.pool.Client(ctx, ep.Ordinal)
		if err != nil {
			return err
		}
		out, err := client.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		logs = out
		return nil
	})
	return logs, err
}

// SubscribeLogs attaches a live log subscription on the pool's first
// websocket endpoint. Subscriptions silently drop events across reconnects,
// the periodic scan is the correctness guarantee; this path only reduces
// latency.
func (f *Facade) SubscribeLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error) {
	ordinal, ok := f.pool.WebsocketOrdinal()
	if !ok {
		return nil, errors.NewConfigError("no websocket endpoint configured for log subscriptions")
	}
	client, err := f.pool.Client(ctx, ordinal)
	if err != nil {
		return nil, err
	}
	return client.SubscribeFilterLogs(ctx, query, ch)
}
