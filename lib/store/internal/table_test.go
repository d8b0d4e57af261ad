package internal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoadOrCreateIsAtomic(t *testing.T) {
	table := NewTable()

	const workers = 64
	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := table.LoadOrCreate("k"); ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly one creator, got %d", created.Load())
	}
	if table.Len() != 1 {
		t.Errorf("Expected one key, got %d", table.Len())
	}
}

func TestRemoveOnlyMatchingEntry(t *testing.T) {
	table := NewTable()

	old, _ := table.LoadOrCreate("k")
	old.Mu.Lock()
	if !table.Remove("k", old) {
		t.Fatalf("Expected first remove to succeed")
	}
	old.Mu.Unlock()

	fresh, created := table.LoadOrCreate("k")
	if !created || fresh == old {
		t.Fatalf("Expected a new entry after remove")
	}

	// removing the stale entry again must not touch the new one
	old.Mu.Lock()
	if table.Remove("k", old) {
		t.Errorf("Removing a stale entry must not succeed")
	}
	old.Mu.Unlock()

	if e, ok := table.Load("k"); !ok || e != fresh {
		t.Errorf("Expected the new entry to stay")
	}
	if keys := table.Keys(0, 10); len(keys) != 1 || keys[0] != "k" {
		t.Errorf("Expected order [k], got %v", keys)
	}
}

func TestKeysWindow(t *testing.T) {
	table := NewTable()
	for i := 0; i < 10; i++ {
		table.LoadOrCreate(fmt.Sprintf("k%d", i))
	}

	if keys := table.Keys(8, 20); len(keys) != 2 || keys[0] != "k8" || keys[1] != "k9" {
		t.Errorf("Keys(8, 20) = %v", keys)
	}
	if keys := table.Keys(10, 20); len(keys) != 0 {
		t.Errorf("Keys(10, 20) = %v, want []", keys)
	}
	if keys := table.Keys(0, 3); len(keys) != 3 || keys[2] != "k2" {
		t.Errorf("Keys(0, 3) = %v", keys)
	}
}

func TestStaleTimerDoesNotFire(t *testing.T) {
	table := NewTable()
	e, _ := table.LoadOrCreate("k")

	var fired atomic.Int32
	fire := func(gen uint64) {
		e.Mu.Lock()
		defer e.Mu.Unlock()
		if e.Current(gen) {
			fired.Add(1)
			table.Remove("k", e)
		}
	}

	e.Mu.Lock()
	e.Arm(10*time.Millisecond, fire)
	e.Arm(60*time.Millisecond, fire)
	e.Mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	if _, ok := table.Load("k"); !ok {
		t.Fatalf("Replaced timer removed the entry")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := table.Load("k"); ok {
		t.Errorf("Expected the current timer to remove the entry")
	}
	if fired.Load() != 1 {
		t.Errorf("Expected exactly one eviction, got %d", fired.Load())
	}
}

func TestEntryValue(t *testing.T) {
	var e Entry
	if _, ok := e.Load(); ok {
		t.Errorf("Fresh entry must not have a value")
	}
	e.Store(nil)
	if v, ok := e.Load(); !ok || len(v) != 0 {
		t.Errorf("Expected empty value after Store(nil), got %v %v", v, ok)
	}
}
