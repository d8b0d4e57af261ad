package counterstore

import (
	"sync"
	"testing"

	"github.com/homenode/distrilock/lib/store"
	storetesting "github.com/homenode/distrilock/lib/store/testing"
)

func newStore() store.IStore {
	return NewCounterStore(storetesting.Options())
}

func mustValue(t *testing.T, res store.Result) uint32 {
	t.Helper()
	v, err := DecodeValue(res.Data)
	if err != nil {
		t.Fatalf("invalid counter payload %v: %v", res.Data, err)
	}
	return v
}

func TestCounterStore(t *testing.T) {
	storetesting.RunStoreTests(t, "CounterStore", newStore)
}

func TestIncrement(t *testing.T) {
	s := newStore()
	defer s.Close()

	for want := uint32(1); want <= 5; want++ {
		res := s.Set("ip", nil, nil)
		storetesting.RequireOk(t, res, "Set")
		if got := mustValue(t, res); got != want {
			t.Errorf("Expected counter %d, got %d", want, got)
		}
	}

	// counters are independent
	res := s.Set("other", nil, nil)
	if got := mustValue(t, res); got != 1 {
		t.Errorf("Expected a new counter to start at 1, got %d", got)
	}
}

func TestMonotonicity(t *testing.T) {
	s := newStore()
	defer s.Close()

	const n = 500
	results := make([]uint32, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := s.Set("hits", storetesting.Expiry(1000), nil)
			if !res.Ok {
				t.Errorf("Set failed: %s", res.Data)
				return
			}
			v, err := DecodeValue(res.Data)
			if err != nil {
				t.Errorf("invalid payload: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	seen := make([]bool, n+1)
	for _, v := range results {
		if v < 1 || v > n {
			t.Fatalf("Counter value %d out of range 1..%d", v, n)
		}
		if seen[v] {
			t.Fatalf("Counter value %d returned twice", v)
		}
		seen[v] = true
	}
}

func TestSaturation(t *testing.T) {
	s := NewCounterStore(storetesting.Options()).(*storeImpl)
	defer s.Close()

	// start just below the cap instead of counting up
	e, _ := s.table.LoadOrCreate("k")
	e.Store(EncodeValue(MaxCounter - 1))

	res := s.Set("k", nil, nil)
	storetesting.RequireOk(t, res, "Set to cap")
	if got := mustValue(t, res); got != MaxCounter {
		t.Fatalf("Expected %d, got %d", MaxCounter, got)
	}

	for i := 0; i < 3; i++ {
		res = s.Set("k", nil, nil)
		storetesting.RequireFail(t, res, "Set beyond cap")
		if got := mustValue(t, res); got != MaxCounter {
			t.Errorf("Expected saturated counter to report %d, got %d", MaxCounter, got)
		}
	}
}

func TestExpiryResetsCounter(t *testing.T) {
	s := newStore()
	defer s.Close()

	s.Set("k", storetesting.Expiry(5), nil)
	s.Set("k", storetesting.Expiry(5), nil)

	storetesting.WaitUnits(12)

	res := s.Set("k", storetesting.Expiry(5), nil)
	if got := mustValue(t, res); got != 1 {
		t.Errorf("Expected counter to restart at 1 after expiry, got %d", got)
	}
}

func TestSetRearmsTimer(t *testing.T) {
	s := newStore()
	defer s.Close()

	s.Set("k", storetesting.Expiry(6), nil)
	storetesting.WaitUnits(4)
	s.Set("k", storetesting.Expiry(6), nil)
	storetesting.WaitUnits(4)

	res := s.Set("k", storetesting.Expiry(6), nil)
	if got := mustValue(t, res); got != 3 {
		t.Errorf("Expected counter to survive re-armed timers, got %d", got)
	}
}

func TestUnsupported(t *testing.T) {
	s := newStore()
	defer s.Close()

	s.Set("k", nil, nil)

	for name, res := range map[string]store.Result{
		"Get":    s.Get("k"),
		"Update": s.Update("k", nil, nil),
	} {
		storetesting.RequireFail(t, res, name)
		if string(res.Data) != store.MsgNotImplemented {
			t.Errorf("%s: expected %q, got %q", name, store.MsgNotImplemented, res.Data)
		}
	}
}

func TestDecodeValue(t *testing.T) {
	if _, err := DecodeValue([]byte{1, 2, 3}); err == nil {
		t.Errorf("Expected error for short payload")
	}
	v, err := DecodeValue([]byte{0, 0, 1, 0})
	if err != nil || v != 256 {
		t.Errorf("Expected 256, got %d (%v)", v, err)
	}
}
