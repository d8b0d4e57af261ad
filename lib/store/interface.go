package store

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface of a single store instance.
// No method returns an error: failures are reported through Result.Ok together
// with a short diagnostic message in Result.Data.
type IStore interface {
	// Size returns the number of keys as an ASCII decimal. It always succeeds.
	Size() Result
	// Keys returns a MessagePack encoded list of keys in insertion order.
	// The rangeSpec has the form "start..end" (see ParseKeyRange).
	Keys(rangeSpec string) Result
	// Get returns the data stored for a key.
	Get(key string) Result
	// Set stores data for a key. A nil expiry means the entry never expires,
	// an expiry <= 0 is rejected.
	Set(key string, expiry *int32, data []byte) Result
	// Update modifies an existing entry. A nil data slice leaves the value
	// untouched, an expiry of 0 leaves the eviction timer untouched and a nil
	// expiry removes it.
	Update(key string, expiry *int32, data []byte) Result
	// Delete removes a key and cancels its eviction timer.
	Delete(key string) Result
	// Len returns the current number of keys.
	Len() int
	// Close stops all eviction timers. The store must not be used afterwards.
	Close()
}

// Factory creates a new store instance.
type Factory func() IStore

// Options configures a store instance.
type Options struct {
	// TimeUnit is the duration of one expiry unit (default: one second).
	TimeUnit time.Duration
}

// DefaultOptions returns the default store options
func DefaultOptions() *Options {
	return &Options{
		TimeUnit: time.Second,
	}
}

// ExpiryDuration converts an expiry (in units) to a duration.
func (o *Options) ExpiryDuration(expiry int32) time.Duration {
	unit := o.TimeUnit
	if unit <= 0 {
		unit = time.Second
	}
	return time.Duration(expiry) * unit
}

// --------------------------------------------------------------------------
// Strategy
// --------------------------------------------------------------------------

// Strategy names the semantics of a store.
type Strategy string

const (
	StrategyLock    Strategy = "lock"
	StrategyCache   Strategy = "cache"
	StrategyCounter Strategy = "counter"
)

// ParseStrategy converts a configuration string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLock, StrategyCache, StrategyCounter:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown store strategy: %q (expected one of: lock, cache, counter)", s)
	}
}

// --------------------------------------------------------------------------
// Result
// --------------------------------------------------------------------------

// Result is the outcome of a store operation.
type Result struct {
	Ok   bool
	Data []byte
}

// Diagnostic messages returned with failed results.
const (
	MsgNotFound         = "not found"
	MsgLocked           = "locked"
	MsgInvalidExpiry    = "invalid expiry"
	MsgInvalidRange     = "invalid range"
	MsgNotImplemented   = "not implemented"
	MsgCounterSaturated = "counter saturated"
)

// Success creates a successful result
func Success(data []byte) Result {
	return Result{Ok: true, Data: data}
}

// Failure creates a failed result with a diagnostic message
func Failure(msg string) Result {
	return Result{Ok: false, Data: []byte(msg)}
}

// --------------------------------------------------------------------------
// Expiry helpers
// --------------------------------------------------------------------------

// ValidSetExpiry reports whether an expiry is acceptable for Set.
// nil (persist) and positive values are valid.
func ValidSetExpiry(expiry *int32) bool {
	return expiry == nil || *expiry > 0
}

// ValidUpdateExpiry reports whether an expiry is acceptable for Update.
// In addition to the Set rules, 0 is allowed and means "keep the current timer".
func ValidUpdateExpiry(expiry *int32) bool {
	return expiry == nil || *expiry >= 0
}

// KeepsTimer reports whether an Update expiry leaves the eviction timer untouched.
func KeepsTimer(expiry *int32) bool {
	return expiry != nil && *expiry == 0
}
