package lockmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lockmgr")

// ErrInvalidTTL is returned for a ttl <= 0
var ErrInvalidTTL = errors.New("lock ttl must be positive")

type lockMgrImpl struct {
	store LockStore
}

// NewLockManager creates a lock manager on top of a lock store
func NewLockManager(store LockStore) ILockManager {
	return &lockMgrImpl{
		store: store,
	}
}

func (lm *lockMgrImpl) AcquireLock(ctx context.Context, key string, ttl int32) (bool, []byte, error) {
	if ttl <= 0 {
		return false, nil, ErrInvalidTTL
	}

	// Generate a random owner ID
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// Try to acquire the lock (Set of a lock store only succeeds for absent keys)
	ok, resp, err := lm.store.Set(ctx, key, &ttl, ownerID)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		Logger.Debugf("Lock %q not acquired: %s", key, resp)
		return false, nil, nil
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) RenewLock(ctx context.Context, key string, ownerID []byte, ttl int32) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	owned, err := lm.owns(ctx, key, ownerID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotOwner
	}

	// nil data keeps the owner ID
	ok, resp, err := lm.store.Update(ctx, key, &ttl, nil)
	if err != nil {
		return err
	}
	if !ok {
		// expired between the check and the update
		return fmt.Errorf("%w: %s", ErrNotOwner, resp)
	}
	return nil
}

func (lm *lockMgrImpl) ReleaseLock(ctx context.Context, key string, ownerID []byte) (bool, error) {
	// Check if the lock exists
	ok, value, err := lm.store.Get(ctx, key)
	if err != nil || !ok {
		return err == nil, err
	}

	// Check if the lock is owned by us
	if !bytes.Equal(ownerID, value) {
		return false, nil
	}

	// Release the lock, a lock that expired in the meantime counts as released
	if _, _, err := lm.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// owns reports whether the lock of key is held by ownerID
func (lm *lockMgrImpl) owns(ctx context.Context, key string, ownerID []byte) (bool, error) {
	ok, value, err := lm.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && bytes.Equal(ownerID, value), nil
}
