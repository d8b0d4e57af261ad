package cachestore

import (
	"strconv"

	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/lib/store/internal"
)

// storeImpl is the cache strategy: an ordinary TTL key-value store.
// Mutations lock only the entry they touch, Get reads without locking.
type storeImpl struct {
	table *internal.Table
	opts  *store.Options
}

// NewCacheStore creates a new cache store.
func NewCacheStore(opts *store.Options) store.IStore {
	if opts == nil {
		opts = store.DefaultOptions()
	}
	return &storeImpl{
		table: internal.NewTable(),
		opts:  opts,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Size() store.Result {
	return store.Success([]byte(strconv.Itoa(s.table.Len())))
}

func (s *storeImpl) Keys(rangeSpec string) store.Result {
	start, end, ok := store.ParseKeyRange(rangeSpec)
	if !ok {
		return store.Failure(store.MsgInvalidRange)
	}
	return store.Success(store.EncodeKeys(s.table.Keys(start, end)))
}

// Get is lock-free: a read racing with a write may observe the previous value.
func (s *storeImpl) Get(key string) store.Result {
	e, ok := s.table.Load(key)
	if !ok {
		return store.Failure(store.MsgNotFound)
	}
	value, ok := e.Load()
	if !ok {
		return store.Failure(store.MsgNotFound)
	}
	return store.Success(value)
}

func (s *storeImpl) Set(key string, expiry *int32, data []byte) store.Result {
	if !store.ValidSetExpiry(expiry) {
		return store.Failure(store.MsgInvalidExpiry)
	}

	for {
		e, _ := s.table.LoadOrCreate(key)

		e.Mu.Lock()
		if e.Removed() {
			// lost a race against delete or eviction, retry with a fresh entry
			e.Mu.Unlock()
			continue
		}

		if expiry == nil {
			e.Disarm()
		} else {
			s.arm(key, e, *expiry)
		}
		e.Store(data)
		e.Mu.Unlock()

		return store.Success(nil)
	}
}

func (s *storeImpl) Update(key string, expiry *int32, data []byte) store.Result {
	if !store.ValidUpdateExpiry(expiry) {
		return store.Failure(store.MsgInvalidExpiry)
	}

	e, ok := s.table.Load(key)
	if !ok {
		return store.Failure(store.MsgNotFound)
	}

	e.Mu.Lock()
	defer e.Mu.Unlock()

	if _, hasValue := e.Load(); e.Removed() || !hasValue {
		return store.Failure(store.MsgNotFound)
	}

	switch {
	case store.KeepsTimer(expiry):
	case expiry == nil:
		e.Disarm()
	default:
		s.arm(key, e, *expiry)
	}

	if data != nil {
		e.Store(data)
	}
	return store.Success(nil)
}

func (s *storeImpl) Delete(key string) store.Result {
	e, ok := s.table.Load(key)
	if !ok {
		return store.Failure(store.MsgNotFound)
	}

	e.Mu.Lock()
	defer e.Mu.Unlock()

	if e.Removed() {
		return store.Failure(store.MsgNotFound)
	}
	s.table.Remove(key, e)
	return store.Success(nil)
}

func (s *storeImpl) Len() int {
	return s.table.Len()
}

func (s *storeImpl) Close() {
	s.table.Range(func(_ string, e *internal.Entry) {
		e.Mu.Lock()
		e.Disarm()
		e.Mu.Unlock()
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// arm (re)starts the eviction timer of an entry. The caller holds e.Mu.
func (s *storeImpl) arm(key string, e *internal.Entry, expiry int32) {
	e.Arm(s.opts.ExpiryDuration(expiry), func(gen uint64) {
		e.Mu.Lock()
		defer e.Mu.Unlock()
		if e.Current(gen) {
			s.table.Remove(key, e)
		}
	})
}
