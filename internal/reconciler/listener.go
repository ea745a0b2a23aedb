package reconciler

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

// LogSubscriber opens a live log subscription
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
}

// Listener feeds live contract events to the handlers as they arrive. It is
// a latency optimization only: events dropped across disconnects are
// recovered by the next catch-up scan, so a handler failure here is logged
// and never retried.
type Listener struct {
	chain     LogSubscriber
	handlers  *Handlers
	contracts []common.Address
	backoff   time.Duration
	logger    *logging.Logger
}

// NewListener creates a live event listener over the given contract addresses
func NewListener(chain LogSubscriber, handlers *Handlers, contractAddrs []string, logger *logging.Logger) *Listener {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	addrs := make([]common.Address, 0, len(contractAddrs))
	for _, a := range contractAddrs {
		addrs = append(addrs, common.HexToAddress(a))
	}
	return &Listener{
		chain:     chain,
		handlers:  handlers,
		contracts: addrs,
		backoff:   5 * time.Second,
		logger:    logger,
	}
}

// Run subscribes and dispatches until the context is cancelled, resubscribing
// with a fixed backoff whenever the subscription drops
func (l *Listener) Run(ctx context.Context) {
	l.logger.WithField("contracts", len(l.contracts)).Info("Live event listener started")

	for {
		if ctx.Err() != nil {
			l.logger.Info("Live event listener stopped")
			return
		}
		l.listenOnce(ctx)

		select {
		case <-ctx.Done():
			l.logger.Info("Live event listener stopped")
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) {
	ch := make(chan ethtypes.Log, 256)
	sub, err := l.chain.SubscribeLogs(ctx, ethereum.FilterQuery{
		Addresses: l.contracts,
		Topics:    [][]common.Hash{WatchedTopics()},
	}, ch)
	if err != nil {
		l.logger.WithError(err).Warn("Log subscription failed, will retry")
		return
	}
	defer sub.Unsubscribe()

	l.logger.Info("Log subscription established")

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				l.logger.WithError(err).Warn("Log subscription dropped, resubscribing")
			}
			return
		case log := <-ch:
			if err := l.handlers.HandleLog(ctx, &log, "live"); err != nil {
				// The scan will re-apply this event; one failure must not
				// take down the subscription
				l.logger.WithError(err).WithField("txHash", log.TxHash.Hex()).Warn("Live event handler failed")
			}
		}
	}
}
