package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryTransport represents endpoint-level failures (unreachable, HTTP error, timeout)
	CategoryTransport ErrorCategory = "transport"
	// CategoryRevert represents deterministic contract execution failures
	CategoryRevert ErrorCategory = "revert"
	// CategoryDecoding represents unexpected numeric/payload representations
	CategoryDecoding ErrorCategory = "decoding"
	// CategoryCorruption represents values rejected by the corruption guard
	CategoryCorruption ErrorCategory = "corruption"
	// CategoryReconciliation represents partial failures during a catch-up scan
	CategoryReconciliation ErrorCategory = "reconciliation"
	// CategoryDatabase represents cache store errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryConfig represents startup-fatal configuration errors
	CategoryConfig ErrorCategory = "config"
)

// ChainError wraps an error with the category and chain-call context it arose in
type ChainError struct {
	Category ErrorCategory
	Op       string // Operation that failed (e.g., "getProperty", "scanRange")
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface
func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error [%s]: %s: %v", e.Category, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error [%s]: %s", e.Category, e.Op, e.Message)
}

// Unwrap returns the underlying cause
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates a transport-level error (retried across the endpoint pool)
func NewTransportError(op string, cause error) *ChainError {
	return &ChainError{
		Category: CategoryTransport,
		Op:       op,
		Message:  "endpoint call failed",
		Cause:    cause,
	}
}

// NewRevertError creates a revert error (deterministic, never retried across endpoints)
func NewRevertError(op string, cause error) *ChainError {
	return &ChainError{
		Category: CategoryRevert,
		Op:       op,
		Message:  "contract call reverted",
		Cause:    cause,
	}
}

// NewDecodingError creates a decoding error with the raw payload attached for diagnosis
func NewDecodingError(op string, raw interface{}, cause error) *ChainError {
	return &ChainError{
		Category: CategoryDecoding,
		Op:       op,
		Message:  "unexpected value representation",
		Cause:    cause,
		Details: map[string]interface{}{
			"raw": fmt.Sprintf("%v", raw),
		},
	}
}

// NewCorruptionError creates an error for a value rejected by the corruption guard
func NewCorruptionError(op string, raw string, reason string) *ChainError {
	return &ChainError{
		Category: CategoryCorruption,
		Op:       op,
		Message:  reason,
		Details: map[string]interface{}{
			"raw": raw,
		},
	}
}

// NewReconciliationError creates an error for a failed scan sub-range
func NewReconciliationError(op string, fromBlock, toBlock uint64, cause error) *ChainError {
	return &ChainError{
		Category: CategoryReconciliation,
		Op:       op,
		Message:  fmt.Sprintf("scan of blocks [%d, %d] failed", fromBlock, toBlock),
		Cause:    cause,
		Details: map[string]interface{}{
			"fromBlock": fromBlock,
			"toBlock":   toBlock,
		},
	}
}

// NewDatabaseError creates a cache store error
func NewDatabaseError(op string, cause error) *ChainError {
	return &ChainError{
		Category: CategoryDatabase,
		Op:       op,
		Message:  "store operation failed",
		Cause:    cause,
	}
}

// NewConfigError creates a startup-fatal configuration error
func NewConfigError(message string) *ChainError {
	return &ChainError{
		Category: CategoryConfig,
		Op:       "startup",
		Message:  message,
	}
}

// AllEndpointsFailedError is raised after every endpoint in the pool has been
// tried once within a single call
type AllEndpointsFailedError struct {
	Op       string
	Attempts int
	Last     error
}

// Error implements the error interface
func (e *AllEndpointsFailedError) Error() string {
	return fmt.Sprintf("all %d RPC endpoints failed for %s: %v", e.Attempts, e.Op, e.Last)
}

// Unwrap returns the last endpoint error
func (e *AllEndpointsFailedError) Unwrap() error {
	return e.Last
}

// revertMarkers are substrings a JSON-RPC node uses to report deterministic
// execution failures, as opposed to transient transport problems
var revertMarkers = []string{
	"execution reverted",
	"vm execution error",
	"invalid opcode",
	"revert",
	"erc721: invalid token id",
	"nonexistent token",
}

// IsRevert reports whether an error represents a deterministic contract revert.
// Reverts are not retried across endpoints: every endpoint would return the same
// result given the same chain state.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) && chainErr.Category == CategoryRevert {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range revertMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransport reports whether an error is a transport-level failure eligible for failover
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Category == CategoryTransport
	}
	// Anything that is not a recognizable revert is treated as transport:
	// unreachable hosts, 5xx responses and timeouts all look different per
	// provider, while reverts have a stable shape.
	return !IsRevert(err)
}

// IsAllEndpointsFailed reports whether an error is pool exhaustion
func IsAllEndpointsFailed(err error) bool {
	var exhausted *AllEndpointsFailedError
	return errors.As(err, &exhausted)
}

// Category returns the category of an error, defaulting to transport for
// unrecognized errors
func Category(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Category
	}
	if IsRevert(err) {
		return CategoryRevert
	}
	return CategoryTransport
}
