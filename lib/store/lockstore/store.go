package lockstore

import (
	"strconv"
	"sync"

	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/lib/store/internal"
)

// storeImpl is the lock strategy. All operations are serialized by one
// store-wide mutex: an acquire must check and create the key atomically with
// respect to the whole table, which a per-key guard cannot provide.
type storeImpl struct {
	mu    sync.Mutex
	table *internal.Table
	opts  *store.Options
}

// NewLockStore creates a new lock store.
// Set acquires a key (only succeeds if the key is absent), Update renews a
// held key without releasing it and Delete releases it.
func NewLockStore(opts *store.Options) store.IStore {
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

func (s *storeImpl) Get(key string) store.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table.Load(key)
	if !ok {
		return store.Failure(store.MsgNotFound)
	}
	value, _ := e.Load()
	return store.Success(value)
}

func (s *storeImpl) Set(key string, expiry *int32, data []byte) store.Result {
	if !store.ValidSetExpiry(expiry) {
		return store.Failure(store.MsgInvalidExpiry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, created := s.table.LoadOrCreate(key)
	if !created {
		return store.Failure(store.MsgLocked)
	}

	e.Store(data)
	if expiry != nil {
		s.arm(key, e, *expiry)
	}
	return store.Success(nil)
}

func (s *storeImpl) Update(key string, expiry *int32, data []byte) store.Result {
	if !store.ValidUpdateExpiry(expiry) {
		return store.Failure(store.MsgInvalidExpiry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table.Load(key)
	if !ok {
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
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table.Load(key)
	if !ok {
		return store.Failure(store.MsgNotFound)
	}
	s.table.Remove(key, e)
	return store.Success(nil)
}

func (s *storeImpl) Len() int {
	return s.table.Len()
}

func (s *storeImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table.Range(func(_ string, e *internal.Entry) {
		e.Disarm()
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// arm (re)starts the eviction timer of an entry. The caller holds s.mu.
func (s *storeImpl) arm(key string, e *internal.Entry, expiry int32) {
	e.Arm(s.opts.ExpiryDuration(expiry), func(gen uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e.Current(gen) {
			s.table.Remove(key, e)
		}
	})
}
