package counterstore

import (
	"encoding/binary"
	"errors"
	"strconv"

	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/lib/store/internal"
)

// MaxCounter is the highest value a counter reaches. The max 4-byte value is
// reserved as a sentinel.
const MaxCounter uint32 = 4294967294

// ValueSize is the size of an encoded counter value
const ValueSize = 4

// EncodeValue encodes a counter value as 4-byte big-endian
func EncodeValue(v uint32) []byte {
	b := make([]byte, ValueSize)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeValue decodes a counter value as returned by a counter Set
func DecodeValue(b []byte) (uint32, error) {
	if len(b) != ValueSize {
		return 0, errors.New("counter value must be exactly 4 bytes")
	}
	return binary.BigEndian.Uint32(b), nil
}

// storeImpl is the counter strategy. Set increments, Get and Update are
// not supported. Like the cache, every key has its own guard.
type storeImpl struct {
	table *internal.Table
	opts  *store.Options
}

// NewCounterStore creates a new counter store.
func NewCounterStore(opts *store.Options) store.IStore {
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

func (s *storeImpl) Get(string) store.Result {
	return store.Failure(store.MsgNotImplemented)
}

// Set increments the counter of key and returns the new value. The data
// argument is ignored. Once the counter reached MaxCounter, Set fails and
// returns the current value without changing it (the timer is still re-armed).
func (s *storeImpl) Set(key string, expiry *int32, _ []byte) store.Result {
	if !store.ValidSetExpiry(expiry) {
		return store.Failure(store.MsgInvalidExpiry)
	}

	for {
		e, _ := s.table.LoadOrCreate(key)

		e.Mu.Lock()
		if e.Removed() {
			e.Mu.Unlock()
			continue
		}

		var current uint32
		if raw, ok := e.Load(); ok {
			current, _ = DecodeValue(raw)
		}

		if expiry == nil {
			e.Disarm()
		} else {
			s.arm(key, e, *expiry)
		}

		if current >= MaxCounter {
			e.Mu.Unlock()
			return store.Result{Ok: false, Data: EncodeValue(current)}
		}

		next := EncodeValue(current + 1)
		e.Store(next)
		e.Mu.Unlock()

		return store.Success(next)
	}
}

func (s *storeImpl) Update(string, *int32, []byte) store.Result {
	return store.Failure(store.MsgNotImplemented)
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

// arm (re)starts the eviction timer of a counter. The caller holds e.Mu.
func (s *storeImpl) arm(key string, e *internal.Entry, expiry int32) {
	e.Arm(s.opts.ExpiryDuration(expiry), func(gen uint64) {
		e.Mu.Lock()
		defer e.Mu.Unlock()
		if e.Current(gen) {
			s.table.Remove(key, e)
		}
	})
}
