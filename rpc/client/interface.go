package client

import "context"

// IStoreClient is the client side of a single store on a socket.
// A failed store operation is reported with ok=false and a short diagnostic
// in the returned data, err is only set for transport failures and context
// cancellation.
type IStoreClient interface {
	// Size returns the number of keys in the store
	Size(ctx context.Context) (size int, ok bool, err error)

	// Keys returns the keys in the range "start..end" in insertion order
	Keys(ctx context.Context, rangeSpec string) (keys []string, ok bool, err error)

	// Get returns the data of a key
	Get(ctx context.Context, key string) (ok bool, data []byte, err error)

	// Set stores data under a key. A nil expiry never expires.
	// On a lock store Set only succeeds if the key is not held.
	Set(ctx context.Context, key string, expiry *int32, data []byte) (ok bool, resp []byte, err error)

	// Update renews an existing key. nil data keeps the value, an expiry of 0
	// keeps the eviction timer and a nil expiry removes it.
	Update(ctx context.Context, key string, expiry *int32, data []byte) (ok bool, resp []byte, err error)

	// Delete removes a key
	Delete(ctx context.Context, key string) (ok bool, resp []byte, err error)

	// Incr increments a key of a counter store and returns the new value.
	// A saturated counter returns its current value with ok=false.
	Incr(ctx context.Context, key string, expiry *int32) (value uint32, ok bool, err error)
}
