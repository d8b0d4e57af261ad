package lockmgr

import (
	"context"
	"crypto/rand"

	"github.com/homenode/distrilock/lib/store"
)

const (
	ownerIDLength = 32
)

// generateOwnerID creates a new unique owner ID
// The owner ID is a random byte slice of length 32.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDLength)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}

// localStore adapts an in-process store to a LockStore
type localStore struct {
	store store.IStore
}

// FromStore returns a LockStore backed by an in-process lock store
func FromStore(s store.IStore) LockStore {
	return &localStore{store: s}
}

func (l *localStore) Get(_ context.Context, key string) (bool, []byte, error) {
	res := l.store.Get(key)
	return res.Ok, res.Data, nil
}

func (l *localStore) Set(_ context.Context, key string, expiry *int32, data []byte) (bool, []byte, error) {
	res := l.store.Set(key, expiry, data)
	return res.Ok, res.Data, nil
}

func (l *localStore) Update(_ context.Context, key string, expiry *int32, data []byte) (bool, []byte, error) {
	res := l.store.Update(key, expiry, data)
	return res.Ok, res.Data, nil
}

func (l *localStore) Delete(_ context.Context, key string) (bool, []byte, error) {
	res := l.store.Delete(key)
	return res.Ok, res.Data, nil
}
