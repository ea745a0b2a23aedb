package reconciler

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

// cursorName keys the reconciler's progress row in the cursor store
const cursorName = "event_reconciler"

// ChainSource is the slice of the contract facade the reconciler needs
type ChainSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error)
}

// CursorStore persists the last fully reconciled block. found is false when
// no cursor has ever been saved.
type CursorStore interface {
	Load(ctx context.Context, name string) (block uint64, found bool, err error)
	Save(ctx context.Context, name string, block uint64) error
}

// Status is a point-in-time view of reconciler progress for the ops endpoint
type Status struct {
	Cursor     uint64    `json:"cursor"`
	Scanning   bool      `json:"scanning"`
	LastScanAt time.Time `json:"lastScanAt"`
	LastError  string    `json:"lastError,omitempty"`
}

// Reconciler periodically scans the block range between the saved cursor and
// the confirmed chain head, replaying any events the live path missed.
// Handlers are idempotent, so rescanned ranges converge instead of
// double-applying.
type Reconciler struct {
	chain     ChainSource
	cursors   CursorStore
	handlers  *Handlers
	contracts []common.Address

	interval          time.Duration
	confirmationDepth uint64
	rangeLimit        uint64

	scanning atomic.Bool

	mu         sync.Mutex
	cursor     uint64
	lastScanAt time.Time
	lastError  string

	logger *logging.Logger
}

// NewReconciler creates a reconciler over the given contract addresses
func NewReconciler(chain ChainSource, cursors CursorStore, handlers *Handlers, contractAddrs []string, interval time.Duration, confirmationDepth, rangeLimit uint64, logger *logging.Logger) *Reconciler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if rangeLimit == 0 {
		rangeLimit = 2000
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	addrs := make([]common.Address, 0, len(contractAddrs))
	for _, a := range contractAddrs {
		addrs = append(addrs, common.HexToAddress(a))
	}

	return &Reconciler{
		chain:             chain,
		cursors:           cursors,
		handlers:          handlers,
		contracts:         addrs,
		interval:          interval,
		confirmationDepth: confirmationDepth,
		rangeLimit:        rangeLimit,
		logger:            logger,
	}
}

// Run scans immediately, then on every tick until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.WithFields(map[string]interface{}{
		"interval":   r.interval.String(),
		"rangeLimit": r.rangeLimit,
	}).Info("Event reconciler started")

	if err := r.ScanOnce(ctx); err != nil {
		r.logger.WithError(err).Warn("Initial catch-up scan failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Event reconciler stopped")
			return
		case <-ticker.C:
			if err := r.ScanOnce(ctx); err != nil {
				r.logger.WithError(err).Warn("Catch-up scan failed")
			}
		}
	}
}

// ScanOnce runs a single catch-up scan from the saved cursor to the confirmed
// head. Overlapping scans are skipped rather than queued: the next tick picks
// up whatever this one did not finish.
//
// The cursor only ever moves forward, and only past ranges whose every event
// was applied. A failed chunk aborts the scan with the cursor resting at the
// last fully applied chunk.
func (r *Reconciler) ScanOnce(ctx context.Context) error {
	if !r.scanning.CompareAndSwap(false, true) {
		r.logger.Debug("Scan already in progress, skipping tick")
		return nil
	}
	defer r.scanning.Store(false)

	err := r.scan(ctx)

	r.mu.Lock()
	r.lastScanAt = time.Now().UTC()
	if err != nil {
		r.lastError = err.Error()
	} else {
		r.lastError = ""
	}
	r.mu.Unlock()
	return err
}

func (r *Reconciler) scan(ctx context.Context) error {
	head, err := r.chain.CurrentBlock(ctx)
	if err != nil {
		return err
	}
	if head <= r.confirmationDepth {
		return nil
	}
	confirmed := head - r.confirmationDepth

	cursor, found, err := r.cursors.Load(ctx, cursorName)
	if err != nil {
		return err
	}
	if !found {
		// Fresh deployment: start reconciling from the current head. The
		// catchup command backfills history when needed.
		r.logger.WithField("block", confirmed).Info("No reconciler cursor found, starting at confirmed head")
		if err := r.cursors.Save(ctx, cursorName, confirmed); err != nil {
			return err
		}
		r.setCursor(confirmed)
		return nil
	}

	if cursor >= confirmed {
		r.setCursor(cursor)
		return nil
	}

	if err := r.ScanRange(ctx, cursor+1, confirmed); err != nil {
		return err
	}
	return nil
}

// ScanRange reconciles an explicit inclusive block range, advancing the
// cursor chunk by chunk. The catchup command calls this directly for
// backfills.
func (r *Reconciler) ScanRange(ctx context.Context, from, to uint64) error {
	for _, chunk := range SplitRange(from, to, r.rangeLimit) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.scanChunk(ctx, chunk); err != nil {
			return errors.NewReconciliationError("scanRange", chunk.From, chunk.To, err)
		}
		if err := r.cursors.Save(ctx, cursorName, chunk.To); err != nil {
			return errors.NewReconciliationError("saveCursor", chunk.From, chunk.To, err)
		}
		r.setCursor(chunk.To)
	}
	return nil
}

func (r *Reconciler) scanChunk(ctx context.Context, chunk BlockRange) error {
	logs, err := r.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(chunk.From),
		ToBlock:   new(big.Int).SetUint64(chunk.To),
		Addresses: r.contracts,
		Topics:    [][]common.Hash{WatchedTopics()},
	})
	if err != nil {
		return err
	}

	for i := range logs {
		if err := r.handlers.HandleLog(ctx, &logs[i], "scan"); err != nil {
			return err
		}
	}

	if len(logs) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"fromBlock": chunk.From,
			"toBlock":   chunk.To,
			"events":    len(logs),
		}).Info("Reconciled block range")
	}
	return nil
}

func (r *Reconciler) setCursor(block uint64) {
	r.mu.Lock()
	if block > r.cursor {
		r.cursor = block
	}
	r.mu.Unlock()
}

// Status returns the current reconciler progress
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Cursor:     r.cursor,
		Scanning:   r.scanning.Load(),
		LastScanAt: r.lastScanAt,
		LastError:  r.lastError,
	}
}
