package rpc

import (
	"context"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
)

// Op is a single attempt of an operation against one endpoint
type Op func(ctx context.Context, ep Endpoint) error

// Executor runs operations against the pool with per-call failover.
// It is a resilience loop, not a circuit breaker: a dead endpoint is skipped
// for the rest of the current call only, and the next call self-heals by
// starting again from "current".
type Executor struct {
	pool   *EndpointPool
	logger *logging.Logger
}

// NewExecutor creates a failover executor over a pool
func NewExecutor(pool *EndpointPool, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Executor{pool: pool, logger: logger}
}

// Pool returns the underlying endpoint pool
func (e *Executor) Pool() *EndpointPool {
	return e.pool
}

// ExecuteWithFailover tries op against each endpoint in round-robin order,
// starting from the pool's current index, for exactly Size() attempts.
//
// On success from a non-current endpoint the cursor is moved there, so future
// calls start from the last endpoint that worked. On failure of the current
// endpoint the cursor is advanced immediately, so a concurrent caller begins
// from the next candidate instead of repeating the same dead endpoint.
//
// A revert aborts the loop and is returned as-is: it is deterministic given
// chain state and would fail identically on every endpoint.
func (e *Executor) ExecuteWithFailover(ctx context.Context, label string, op Op) error {
	size := e.pool.Size()
	start := e.pool.CurrentIndex()

	var lastErr error
	for attempt := 0; attempt < size; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.NewTransportError(label, err)
		}

		ordinal := (start + attempt) % size
		ep := e.pool.endpoints[ordinal]

		err := op(ctx, ep)
		if err == nil {
			if ordinal != e.pool.CurrentIndex() {
				e.pool.SetCurrent(ordinal)
				e.logger.WithFields(map[string]interface{}{
					"op":       label,
					"endpoint": ordinal,
				}).Info("Failover succeeded, sticking to new endpoint")
			}
			return nil
		}

		if errors.IsRevert(err) {
			return err
		}

		lastErr = err
		e.logger.WithFields(map[string]interface{}{
			"op":       label,
			"endpoint": ordinal,
			"attempt":  attempt + 1,
			"of":       size,
			"error":    err.Error(),
		}).Warn("Endpoint call failed")

		if ordinal == e.pool.CurrentIndex() {
			e.pool.Advance()
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"op":       label,
		"attempts": size,
	}).Error("All RPC endpoints failed")

	return &errors.AllEndpointsFailedError{Op: label, Attempts: size, Last: lastErr}
}
