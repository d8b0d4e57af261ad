package lockmgr

import (
	"context"
	"errors"
)

// ErrNotOwner is returned by RenewLock if the lock is held by someone else or expired
var ErrNotOwner = errors.New("lock is not held by this owner")

// ILockManager defines the interface for a lock provider.
type ILockManager interface {
	// AcquireLock acquires the lock for the given key, it is released
	// automatically after ttl units.
	// Return a boolean indicating whether the lock was acquired, an owner ID, and an error if any.
	AcquireLock(ctx context.Context, key string, ttl int32) (ok bool, ownerID []byte, err error)

	// RenewLock extends a held lock to ttl units from now.
	// It fails with ErrNotOwner if the lock is not held by ownerID anymore.
	RenewLock(ctx context.Context, key string, ownerID []byte, ttl int32) error

	// ReleaseLock releases the lock for the given key.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method will also return true if the lock did not exist.
	ReleaseLock(ctx context.Context, key string, ownerID []byte) (ok bool, err error)
}

// LockStore is the part of a store client a lock manager needs.
// The store must use the lock strategy: Set fails for held keys.
type LockStore interface {
	Get(ctx context.Context, key string) (ok bool, data []byte, err error)
	Set(ctx context.Context, key string, expiry *int32, data []byte) (ok bool, resp []byte, err error)
	Update(ctx context.Context, key string, expiry *int32, data []byte) (ok bool, resp []byte, err error)
	Delete(ctx context.Context, key string) (ok bool, resp []byte, err error)
}
