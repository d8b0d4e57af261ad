package testing

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/homenode/distrilock/lib/store"
)

// TimeUnit is the expiry unit stores under test should be created with
// (see store.Options). Expiry values in this suite are multiples of it.
const TimeUnit = 10 * time.Millisecond

// Options returns store options using TimeUnit
func Options() *store.Options {
	return &store.Options{TimeUnit: TimeUnit}
}

// RunStoreTests runs the behaviour shared by every strategy against a store
// implementation. Strategy specific semantics are tested in the strategy packages.
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Size", func(t *testing.T) {
			testSize(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("KeysInvalidRange", func(t *testing.T) {
			testKeysInvalidRange(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("InvalidExpiry", func(t *testing.T) {
			testInvalidExpiry(t, factory())
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory())
		})

		t.Run("Persist", func(t *testing.T) {
			testPersist(t, factory())
		})

		t.Run("DeleteCancelsEviction", func(t *testing.T) {
			testDeleteCancelsEviction(t, factory())
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, factory())
		})

		t.Run("ConcurrentDistinctKeys", func(t *testing.T) {
			testConcurrentDistinctKeys(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Expiry returns a pointer to an expiry value
func Expiry(v int32) *int32 {
	return &v
}

// WaitUnits sleeps for n expiry units
func WaitUnits(n float64) {
	time.Sleep(time.Duration(n * float64(TimeUnit)))
}

// RequireOk fails the test if the result is not successful
func RequireOk(t testing.TB, res store.Result, op string) {
	t.Helper()
	if !res.Ok {
		t.Fatalf("%s failed: %s", op, res.Data)
	}
}

// RequireFail fails the test if the result is successful
func RequireFail(t testing.TB, res store.Result, op string) {
	t.Helper()
	if res.Ok {
		t.Fatalf("Expected %s to fail, got ok with %q", op, res.Data)
	}
}

func size(t testing.TB, s store.IStore) int {
	t.Helper()
	res := s.Size()
	RequireOk(t, res, "Size")
	n, err := strconv.Atoi(string(res.Data))
	if err != nil {
		t.Fatalf("Size returned a non-decimal payload %q: %v", res.Data, err)
	}
	return n
}

func keys(t testing.TB, s store.IStore, rangeSpec string) []string {
	t.Helper()
	res := s.Keys(rangeSpec)
	RequireOk(t, res, fmt.Sprintf("Keys(%q)", rangeSpec))
	k, err := store.DecodeKeys(res.Data)
	if err != nil {
		t.Fatalf("Keys(%q) returned an invalid payload: %v", rangeSpec, err)
	}
	return k
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSize(t *testing.T, s store.IStore) {
	defer s.Close()

	if n := size(t, s); n != 0 {
		t.Errorf("Expected empty store to have size 0, got %d", n)
	}

	for i := 0; i < 10; i++ {
		RequireOk(t, s.Set(fmt.Sprintf("key-%d", i), nil, []byte("v")), "Set")
	}

	if n := size(t, s); n != 10 {
		t.Errorf("Expected size 10, got %d", n)
	}
	if s.Len() != 10 {
		t.Errorf("Expected Len 10, got %d", s.Len())
	}
}

func testKeys(t *testing.T, s store.IStore) {
	defer s.Close()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		RequireOk(t, s.Set(k, nil, []byte(k)), "Set")
	}

	tests := []struct {
		rangeSpec string
		want      []string
	}{
		{"1..3", []string{"b", "c"}},
		{"..2", []string{"a", "b"}},
		{"0..", []string{"a", "b", "c", "d", "e"}},
		{"3..", []string{"d", "e"}},
		{"4..100", []string{"e"}},
		{"5..", []string{}},
		{"10..20", []string{}},
	}

	for _, tc := range tests {
		if got := keys(t, s, tc.rangeSpec); !equalKeys(got, tc.want) {
			t.Errorf("Keys(%q) = %v, want %v", tc.rangeSpec, got, tc.want)
		}
	}

	// deleting keeps the relative order of the rest
	RequireOk(t, s.Delete("b"), "Delete")
	if got, want := keys(t, s, "0.."), []string{"a", "c", "d", "e"}; !equalKeys(got, want) {
		t.Errorf("Keys after delete = %v, want %v", got, want)
	}

	// a re-inserted key moves to the end
	RequireOk(t, s.Set("b", nil, []byte("b")), "Set")
	if got, want := keys(t, s, "0.."), []string{"a", "c", "d", "e", "b"}; !equalKeys(got, want) {
		t.Errorf("Keys after re-insert = %v, want %v", got, want)
	}
}

func testKeysInvalidRange(t *testing.T, s store.IStore) {
	defer s.Close()

	for _, spec := range []string{"10..5", "3..3", "..", "", "abc", "1..x", "-1..", "..-2", "1..2..3"} {
		RequireFail(t, s.Keys(spec), fmt.Sprintf("Keys(%q)", spec))
	}
}

func testDelete(t *testing.T, s store.IStore) {
	defer s.Close()

	RequireOk(t, s.Set("keep", nil, []byte("v")), "Set")
	RequireOk(t, s.Set("drop", nil, []byte("v")), "Set")

	RequireOk(t, s.Delete("drop"), "Delete")
	RequireFail(t, s.Delete("drop"), "second Delete")
	RequireFail(t, s.Delete("never-existed"), "Delete of absent key")

	if got := keys(t, s, "0.."); !equalKeys(got, []string{"keep"}) {
		t.Errorf("Expected only 'keep' to remain, got %v", got)
	}
}

func testInvalidExpiry(t *testing.T, s store.IStore) {
	defer s.Close()

	RequireFail(t, s.Set("zero", Expiry(0), []byte("v")), "Set with expiry 0")
	RequireFail(t, s.Set("negative", Expiry(-5), []byte("v")), "Set with negative expiry")

	if n := size(t, s); n != 0 {
		t.Errorf("Rejected sets must not create keys, size is %d", n)
	}
}

func testExpire(t *testing.T, s store.IStore) {
	defer s.Close()

	RequireOk(t, s.Set("short", Expiry(5), []byte("v")), "Set")

	WaitUnits(2)
	if n := size(t, s); n != 1 {
		t.Errorf("Expected key to exist before expiry, size is %d", n)
	}

	WaitUnits(8)
	if n := size(t, s); n != 0 {
		t.Errorf("Expected key to be evicted, size is %d", n)
	}
}

func testPersist(t *testing.T, s store.IStore) {
	defer s.Close()

	RequireOk(t, s.Set("persistent", nil, []byte("v")), "Set")
	WaitUnits(10)
	if n := size(t, s); n != 1 {
		t.Errorf("Expected key without expiry to persist, size is %d", n)
	}
}

func testDeleteCancelsEviction(t *testing.T, s store.IStore) {
	defer s.Close()

	RequireOk(t, s.Set("k", Expiry(5), []byte("old")), "Set")
	RequireOk(t, s.Delete("k"), "Delete")
	RequireOk(t, s.Set("k", nil, []byte("new")), "Set")

	// the timer of the deleted entry must not evict the new one
	WaitUnits(10)
	if n := size(t, s); n != 1 {
		t.Errorf("Expected re-created key to survive the old timer, size is %d", n)
	}
}

func testManyExpiringKeys(t *testing.T, s store.IStore) {
	defer s.Close()

	const count = 500
	for i := 0; i < count; i++ {
		RequireOk(t, s.Set(fmt.Sprintf("exp-%d", i), Expiry(int32(1+i%5)), []byte("v")), "Set")
	}
	RequireOk(t, s.Set("stays", nil, []byte("v")), "Set")

	WaitUnits(20)
	if n := size(t, s); n != 1 {
		t.Errorf("Expected all expiring keys to be gone, size is %d", n)
	}
	if got := keys(t, s, "0.."); !equalKeys(got, []string{"stays"}) {
		t.Errorf("Expected only 'stays' to remain, got %v", got)
	}
}

func testConcurrentDistinctKeys(t *testing.T, s store.IStore) {
	defer s.Close()

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if res := s.Set(key, nil, []byte(key)); !res.Ok {
					t.Errorf("Set(%s) failed: %s", key, res.Data)
				}
				if i%2 == 0 {
					if res := s.Delete(key); !res.Ok {
						t.Errorf("Delete(%s) failed: %s", key, res.Data)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	if n := size(t, s); n != workers*perWorker/2 {
		t.Errorf("Expected %d keys, got %d", workers*perWorker/2, n)
	}
	if got := keys(t, s, fmt.Sprintf("0..%d", workers*perWorker)); len(got) != workers*perWorker/2 {
		t.Errorf("Expected Keys to list %d keys, got %d", workers*perWorker/2, len(got))
	}
}
