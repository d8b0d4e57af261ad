package server

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/homenode/distrilock/lib/store"
	storetesting "github.com/homenode/distrilock/lib/store/testing"
	"github.com/homenode/distrilock/rpc/common"
)

func testConfig(t *testing.T) common.ServerConfig {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "dlsrv")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	return common.ServerConfig{
		PathPrefix: dir,
		Servers: []common.SocketConfig{
			{Name: "register", NumStores: 2, Strat: "lock"},
			{Name: "misc", NumStores: 1, Strat: "cache"},
			{Name: "count", NumStores: 1, Strat: "counter"},
		},
	}
}

func newTestServer(t *testing.T, socket string) *RPCServer {
	t.Helper()
	s, err := NewRPCServer(testConfig(t), socket, &Options{Store: storetesting.Options()})
	if err != nil {
		t.Fatalf("NewRPCServer failed: %v", err)
	}
	t.Cleanup(s.close)
	return s
}

func TestNewRPCServerErrors(t *testing.T) {
	config := testConfig(t)
	config.Servers = append(config.Servers,
		common.SocketConfig{Name: "empty", NumStores: 0, Strat: "lock"},
		common.SocketConfig{Name: "weird", NumStores: 1, Strat: "queue"},
	)

	for _, name := range []string{"unknown", "empty", "weird"} {
		if _, err := NewRPCServer(config, name, nil); !errors.Is(err, common.ErrInvalidConfig) {
			t.Errorf("Socket %q: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestStoreFactory(t *testing.T) {
	opts := storetesting.Options()
	for _, strategy := range []store.Strategy{store.StrategyLock, store.StrategyCache, store.StrategyCounter} {
		factory, err := NewStoreFactory(strategy, opts)
		if err != nil {
			t.Fatalf("NewStoreFactory(%s) failed: %v", strategy, err)
		}
		s := factory()
		if res := s.Size(); !res.Ok || string(res.Data) != "0" {
			t.Errorf("New %s store has size %q", strategy, res.Data)
		}
		s.Close()
	}

	if _, err := NewStoreFactory("queue", opts); err == nil {
		t.Errorf("Expected error for unknown strategy")
	}
}

func TestHandleDispatch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "register")

	set := common.NewSetRequest(1, "Door", common.ExpireIn(100), []byte("alice"))
	if ok, resp := s.handle(ctx, set, []byte("alice")); !ok {
		t.Fatalf("Set failed: %s", resp)
	}

	// keys are lowercased by the server as well
	get := &common.Request{Index: 1, Method: common.MethodGet, Key: "DOOR"}
	if ok, resp := s.handle(ctx, get, nil); !ok || string(resp) != "alice" {
		t.Errorf("Get returned ok=%t %q, want \"alice\"", ok, resp)
	}

	// the stores of a socket are independent
	if ok, _ := s.handle(ctx, common.NewGetRequest(0, "door"), nil); ok {
		t.Errorf("Key of store 1 is visible in store 0")
	}

	if ok, resp := s.handle(ctx, common.NewSetRequest(1, "door", common.ExpireIn(100), []byte("bob")), []byte("bob")); ok || string(resp) != store.MsgLocked {
		t.Errorf("Second Set returned ok=%t %q, want %q", ok, resp, store.MsgLocked)
	}

	if ok, resp := s.handle(ctx, common.NewSizeRequest(1), nil); !ok || string(resp) != "1" {
		t.Errorf("Size returned ok=%t %q, want \"1\"", ok, resp)
	}

	keys := common.NewKeysRequest(1, "0..10")
	ok, resp := s.handle(ctx, keys, nil)
	if !ok {
		t.Fatalf("Keys failed: %s", resp)
	}
	if decoded, err := store.DecodeKeys(resp); err != nil || len(decoded) != 1 || decoded[0] != "door" {
		t.Errorf("Keys returned %v (%v)", decoded, err)
	}

	if ok, _ := s.handle(ctx, common.NewDeleteRequest(1, "door"), nil); !ok {
		t.Errorf("Delete failed")
	}
	if ok, resp := s.handle(ctx, common.NewDeleteRequest(1, "door"), nil); ok || string(resp) != store.MsgNotFound {
		t.Errorf("Delete of absent key returned ok=%t %q", ok, resp)
	}
}

func TestHandleUnknownStoreAndMethod(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "misc")

	if ok, resp := s.handle(ctx, common.NewGetRequest(1, "k"), nil); ok || string(resp) != common.MsgUnknownStore {
		t.Errorf("Got ok=%t %q, want %q", ok, resp, common.MsgUnknownStore)
	}
	if ok, resp := s.handle(ctx, &common.Request{Index: 0, Method: 42, Key: "k"}, nil); ok || string(resp) != common.MsgUnknownMethod {
		t.Errorf("Got ok=%t %q, want %q", ok, resp, common.MsgUnknownMethod)
	}
}

func TestHandleMetrics(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "count")

	for i := 0; i < 3; i++ {
		s.handle(ctx, common.NewSetRequest(0, "hits", nil, nil), nil)
	}
	s.handle(ctx, common.NewGetRequest(0, "hits"), nil)

	var buf bytes.Buffer
	s.Metrics().WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		`distrilock_requests_total{socket="count",method="set",ok="true"} 3`,
		`distrilock_requests_total{socket="count",method="get",ok="false"} 1`,
		`distrilock_store_keys{socket="count",index="0"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Metrics do not contain %q:\n%s", want, out)
		}
	}
}

func TestAdapterUnknownMethod(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	if res := adapter.Handle(&common.Request{Method: 7}, nil, nil); res.Ok || string(res.Data) != common.MsgUnknownStore {
		t.Errorf("Nil store: got %+v", res)
	}

	factory, _ := NewStoreFactory(store.StrategyCache, storetesting.Options())
	st := factory()
	defer st.Close()
	if res := adapter.Handle(&common.Request{Method: 7}, nil, st); res.Ok || string(res.Data) != common.MsgUnknownMethod {
		t.Errorf("Unknown method: got %+v", res)
	}
}
