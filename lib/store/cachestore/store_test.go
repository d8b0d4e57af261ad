package cachestore

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/homenode/distrilock/lib/store"
	storetesting "github.com/homenode/distrilock/lib/store/testing"
)

func newStore() store.IStore {
	return NewCacheStore(storetesting.Options())
}

func TestCacheStore(t *testing.T) {
	storetesting.RunStoreTests(t, "CacheStore", newStore)
}

func TestRoundTrip(t *testing.T) {
	s := newStore()
	defer s.Close()

	payloads := [][]byte{
		[]byte("hello"),
		{},
		{0x00, 0xff, 0x10},
		bytes.Repeat([]byte("x"), 60000),
	}

	for i, p := range payloads {
		key := fmt.Sprintf("k%d", i)
		storetesting.RequireOk(t, s.Set(key, storetesting.Expiry(300), p), "Set")

		got := s.Get(key)
		storetesting.RequireOk(t, got, "Get")
		if !bytes.Equal(got.Data, p) {
			t.Errorf("Round trip of %s returned %d bytes, want %d", key, len(got.Data), len(p))
		}
	}

	res := s.Get("absent")
	storetesting.RequireFail(t, res, "Get of absent key")
	if string(res.Data) != store.MsgNotFound {
		t.Errorf("Expected diagnostic %q, got %q", store.MsgNotFound, res.Data)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := newStore()
	defer s.Close()

	storetesting.RequireOk(t, s.Set("k", nil, []byte("v1")), "Set")
	storetesting.RequireOk(t, s.Set("k", nil, []byte("v2")), "Set")

	got := s.Get("k")
	storetesting.RequireOk(t, got, "Get")
	if !bytes.Equal(got.Data, []byte("v2")) {
		t.Errorf("Expected v2, got %q", got.Data)
	}
	if s.Len() != 1 {
		t.Errorf("Overwrite must not add a key, len is %d", s.Len())
	}
}

func TestStoredDataIsCopied(t *testing.T) {
	s := newStore()
	defer s.Close()

	data := []byte("value")
	storetesting.RequireOk(t, s.Set("k", nil, data), "Set")
	data[0] = 'X'

	got := s.Get("k")
	if !bytes.Equal(got.Data, []byte("value")) {
		t.Errorf("Store must not alias caller data, got %q", got.Data)
	}
}

func TestExpiry(t *testing.T) {
	s := newStore()
	defer s.Close()

	storetesting.RequireOk(t, s.Set("k", storetesting.Expiry(10), []byte("v")), "Set")

	storetesting.WaitUnits(5)
	storetesting.RequireOk(t, s.Get("k"), "Get before expiry")

	storetesting.WaitUnits(15)
	storetesting.RequireFail(t, s.Get("k"), "Get after expiry")
}

func TestSetRearmsTimer(t *testing.T) {
	s := newStore()
	defer s.Close()

	storetesting.RequireOk(t, s.Set("k", storetesting.Expiry(5), []byte("v1")), "Set")
	storetesting.WaitUnits(3)
	storetesting.RequireOk(t, s.Set("k", storetesting.Expiry(10), []byte("v2")), "Set")

	// the first timer would have fired by now
	storetesting.WaitUnits(5)
	storetesting.RequireOk(t, s.Get("k"), "Get after first timer")

	storetesting.WaitUnits(10)
	storetesting.RequireFail(t, s.Get("k"), "Get after second timer")
}

func TestSetWithoutExpiryDisarms(t *testing.T) {
	s := newStore()
	defer s.Close()

	storetesting.RequireOk(t, s.Set("k", storetesting.Expiry(3), []byte("v1")), "Set")
	storetesting.RequireOk(t, s.Set("k", nil, []byte("v2")), "Set")

	storetesting.WaitUnits(8)
	storetesting.RequireOk(t, s.Get("k"), "Get after disarmed timer")
}

func TestUpdate(t *testing.T) {
	s := newStore()
	defer s.Close()

	storetesting.RequireFail(t, s.Update("k", nil, []byte("v")), "Update of absent key")
	if s.Len() != 0 {
		t.Fatalf("Update must not create keys")
	}

	storetesting.RequireOk(t, s.Set("k", storetesting.Expiry(5), []byte("v1")), "Set")

	// refresh only: data stays
	storetesting.RequireOk(t, s.Update("k", storetesting.Expiry(15), nil), "Update")
	storetesting.WaitUnits(8)
	got := s.Get("k")
	storetesting.RequireOk(t, got, "Get after refresh")
	if !bytes.Equal(got.Data, []byte("v1")) {
		t.Errorf("Expected v1, got %q", got.Data)
	}

	// data only: timer stays
	storetesting.RequireOk(t, s.Update("k", storetesting.Expiry(0), []byte("v2")), "Update")
	got = s.Get("k")
	if !bytes.Equal(got.Data, []byte("v2")) {
		t.Errorf("Expected v2, got %q", got.Data)
	}

	storetesting.WaitUnits(12)
	storetesting.RequireFail(t, s.Get("k"), "Get after refreshed expiry")
}

func TestConcurrentSameKey(t *testing.T) {
	s := newStore()
	defer s.Close()

	const workers = 32
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				switch i % 4 {
				case 0:
					s.Set("hot", storetesting.Expiry(1), []byte{byte(w)})
				case 1:
					s.Get("hot")
				case 2:
					s.Update("hot", nil, []byte{byte(w), byte(i)})
				case 3:
					s.Delete("hot")
				}
			}
		}(w)
	}
	wg.Wait()

	// the table and the order list must still agree
	storetesting.WaitUnits(5)
	keys := s.Keys("0..")
	storetesting.RequireOk(t, keys, "Keys")
	list, err := store.DecodeKeys(keys.Data)
	if err != nil {
		t.Fatalf("DecodeKeys: %v", err)
	}
	if len(list) != s.Len() {
		t.Errorf("Keys lists %d keys but Len is %d", len(list), s.Len())
	}
}
