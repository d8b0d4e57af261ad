package internal

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// Entry is a single key of a store.
//
// The value can be read without holding any lock. Everything else (the
// eviction timer, the generation and the removed flag) must only be accessed
// while holding the guard of the owning strategy: the entry's own Mu for the
// cache and counter strategies, the store-wide mutex for the lock strategy.
type Entry struct {
	Mu sync.Mutex

	value   atomic.Pointer[[]byte]
	removed bool
	timer   *time.Timer
	gen     uint64
}

// Load returns the stored value. ok is false if no value was stored yet.
func (e *Entry) Load() (value []byte, ok bool) {
	p := e.value.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Store replaces the stored value. The slice is copied.
func (e *Entry) Store(value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	e.value.Store(&v)
}

// Removed reports whether the entry was removed from its table.
// Callers that waited for the guard must re-check this before using the entry.
func (e *Entry) Removed() bool {
	return e.removed
}

// Arm cancels the current eviction timer and schedules fire after d.
// fire receives the generation it was scheduled for; it must acquire the guard
// and check Current(gen) before removing the entry.
func (e *Entry) Arm(d time.Duration, fire func(gen uint64)) {
	e.Disarm()
	gen := e.gen
	e.timer = time.AfterFunc(d, func() { fire(gen) })
}

// Disarm cancels the current eviction timer (if any) and invalidates a timer
// that already fired but has not acquired the guard yet.
func (e *Entry) Disarm() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// Current reports whether gen is the generation of the currently armed timer.
func (e *Entry) Current(gen uint64) bool {
	return !e.removed && e.gen == gen
}

// --------------------------------------------------------------------------
// Table
// --------------------------------------------------------------------------

// Table is a concurrent key table that remembers insertion order.
//
// Lookups go through an xsync.MapOf and never block. Insertion and removal
// run inside the map's compute function so that the order list always
// matches the set of keys in the map.
type Table struct {
	entries *xsync.MapOf[string, *Entry]

	orderMu sync.Mutex
	order   *list.List
	index   map[string]*list.Element
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		entries: xsync.NewMapOf[string, *Entry](),
		order:   list.New(),
		index:   make(map[string]*list.Element),
	}
}

// Len returns the number of keys in the table
func (t *Table) Len() int {
	return t.entries.Size()
}

// Load returns the entry for a key
func (t *Table) Load(key string) (*Entry, bool) {
	return t.entries.Load(key)
}

// LoadOrCreate returns the entry for a key, creating it if it does not exist.
// created is true if a new entry was inserted. The check and the insert are
// one atomic step, two concurrent callers never both create an entry.
func (t *Table) LoadOrCreate(key string) (e *Entry, created bool) {
	e, loaded := t.entries.LoadOrCompute(key, func() *Entry {
		t.orderMu.Lock()
		t.index[key] = t.order.PushBack(key)
		t.orderMu.Unlock()
		return &Entry{}
	})
	return e, !loaded
}

// Remove removes e from the table if it is still the entry stored for key.
// The caller must hold the entry's guard. Remove disarms the eviction timer.
func (t *Table) Remove(key string, e *Entry) bool {
	e.Disarm()
	e.removed = true

	removed := false
	t.entries.Compute(key, func(old *Entry, loaded bool) (*Entry, bool) {
		if !loaded || old != e {
			// nothing stored or a newer entry: keep it
			return old, !loaded
		}
		t.orderMu.Lock()
		if el, ok := t.index[key]; ok {
			t.order.Remove(el)
			delete(t.index, key)
		}
		t.orderMu.Unlock()
		removed = true
		return nil, true
	})
	return removed
}

// Keys returns the keys at the positions [start, end) of the insertion order.
func (t *Table) Keys(start, end int) []string {
	t.orderMu.Lock()
	defer t.orderMu.Unlock()

	if start >= t.order.Len() {
		return []string{}
	}

	keys := make([]string, 0, min(end, t.order.Len())-start)
	pos := 0
	for el := t.order.Front(); el != nil && pos < end; el = el.Next() {
		if pos >= start {
			keys = append(keys, el.Value.(string))
		}
		pos++
	}
	return keys
}

// Range calls fn for every entry of the table
func (t *Table) Range(fn func(key string, e *Entry)) {
	t.entries.Range(func(key string, e *Entry) bool {
		fn(key, e)
		return true
	})
}
