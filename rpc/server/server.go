package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/lib/store/cachestore"
	"github.com/homenode/distrilock/lib/store/counterstore"
	"github.com/homenode/distrilock/lib/store/lockstore"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/base"
	"github.com/homenode/distrilock/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

// Options customizes a server. All fields are optional.
type Options struct {
	// Transport replaces the unix transport
	Transport transport.IRPCServerTransport
	// Metrics replaces the metrics set of the server
	Metrics *metrics.Set
	// Store configures the stores (e.g. a shorter time unit in tests)
	Store *store.Options
}

// methodMetrics are the request metrics of one method
type methodMetrics struct {
	ok       *metrics.Counter
	failed   *metrics.Counter
	duration *metrics.Histogram
}

// RPCServer serves the stores of one socket
type RPCServer struct {
	config    common.ServerConfig
	socket    common.SocketConfig
	transport transport.IRPCServerTransport
	adapter   IRPCServerAdapter
	stores    []store.IStore
	metrics   *metrics.Set
	methods   map[common.Method]methodMetrics
}

// NewRPCServer creates the server for the socket with the given name.
// It creates NumStores stores of the configured strategy, addressed by index.
//
// Usage:
//
//	s, err := server.NewRPCServer(config, "register", nil)
//	if err != nil {
//		return err
//	}
//	return s.Serve(ctx)
func NewRPCServer(config common.ServerConfig, socketName string, opts *Options) (*RPCServer, error) {
	if opts == nil {
		opts = &Options{}
	}

	socket, ok := config.Socket(socketName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown socket %q", common.ErrInvalidConfig, socketName)
	}
	strategy, err := socket.Strategy()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if socket.NumStores <= 0 {
		return nil, fmt.Errorf("%w: socket %q needs at least one store", common.ErrInvalidConfig, socket.Name)
	}

	storeOpts := opts.Store
	if storeOpts == nil {
		storeOpts = store.DefaultOptions()
	}
	factory, err := NewStoreFactory(strategy, storeOpts)
	if err != nil {
		return nil, err
	}

	set := opts.Metrics
	if set == nil {
		set = metrics.NewSet()
	}

	t := opts.Transport
	if t == nil {
		t = unix.NewUnixServerTransport(base.ServerOptions{
			Name:              socket.Name,
			MaxWorkersPerConn: config.MaxWorkersPerConn,
			AllowedUIDs:       config.AllowedUIDs,
			Metrics:           set,
		})
	}

	s := &RPCServer{
		config:    config,
		socket:    socket,
		transport: t,
		adapter:   NewIStoreServerAdapter(),
		stores:    make([]store.IStore, socket.NumStores),
		metrics:   set,
		methods:   make(map[common.Method]methodMetrics, len(common.Methods)),
	}

	for i := range s.stores {
		st := factory()
		s.stores[i] = st
		set.GetOrCreateGauge(fmt.Sprintf(`distrilock_store_keys{socket=%q,index="%d"}`, socket.Name, i), func() float64 {
			return float64(st.Len())
		})
	}

	for _, m := range common.Methods {
		s.methods[m] = methodMetrics{
			ok:       set.GetOrCreateCounter(fmt.Sprintf(`distrilock_requests_total{socket=%q,method=%q,ok="true"}`, socket.Name, m)),
			failed:   set.GetOrCreateCounter(fmt.Sprintf(`distrilock_requests_total{socket=%q,method=%q,ok="false"}`, socket.Name, m)),
			duration: set.GetOrCreateHistogram(fmt.Sprintf(`distrilock_request_duration_seconds{socket=%q,method=%q}`, socket.Name, m)),
		}
	}

	Logger.Infof("Created %d %s stores for socket %q", socket.NumStores, strategy, socket.Name)
	return s, nil
}

// NewStoreFactory returns the factory for stores of a strategy
func NewStoreFactory(strategy store.Strategy, opts *store.Options) (store.Factory, error) {
	switch strategy {
	case store.StrategyLock:
		return func() store.IStore { return lockstore.NewLockStore(opts) }, nil
	case store.StrategyCache:
		return func() store.IStore { return cachestore.NewCacheStore(opts) }, nil
	case store.StrategyCounter:
		return func() store.IStore { return counterstore.NewCounterStore(opts) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown store strategy %q", common.ErrInvalidConfig, strategy)
	}
}

// Serve listens on the socket path until ctx is cancelled. The stores are
// closed when Serve returns.
func (s *RPCServer) Serve(ctx context.Context) error {
	defer s.close()

	metricsAddr, err := s.config.MetricsAddr(s.socket.Name)
	if err != nil {
		return err
	}

	s.transport.RegisterHandler(s.handle)

	g, ctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		g.Go(func() error { return s.serveMetrics(ctx, metricsAddr) })
	}
	g.Go(func() error {
		return s.transport.Listen(ctx, s.config.SocketPath(s.socket.Name))
	})
	return g.Wait()
}

// Metrics returns the metrics set of the server
func (s *RPCServer) Metrics() *metrics.Set {
	return s.metrics
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle dispatches a request to the store addressed by its index
func (s *RPCServer) handle(_ context.Context, req *common.Request, data []byte) (bool, []byte) {
	if req.Index >= uint64(len(s.stores)) {
		return false, []byte(common.MsgUnknownStore)
	}

	mm, known := s.methods[req.Method]
	if !known {
		return false, []byte(common.MsgUnknownMethod)
	}

	start := time.Now()
	req.Key = strings.ToLower(req.Key)
	res := s.adapter.Handle(req, data, s.stores[req.Index])

	mm.duration.UpdateDuration(start)
	if res.Ok {
		mm.ok.Inc()
	} else {
		mm.failed.Inc()
	}
	return res.Ok, res.Data
}

// serveMetrics serves the metrics in Prometheus text format on /metrics
func (s *RPCServer) serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.metrics.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	Logger.Infof("Serving metrics of socket %q on http://%s/metrics", s.socket.Name, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}

// close stops the eviction timers of all stores
func (s *RPCServer) close() {
	for _, st := range s.stores {
		st.Close()
	}
}
