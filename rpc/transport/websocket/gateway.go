package websocket

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/net/websocket"
)

var Logger = logger.GetLogger("gateway")

// MsgStoreUnavailable is the failure payload for requests that could not be forwarded
const MsgStoreUnavailable = "store unavailable"

// DefaultWorkersPerConn is the number of requests of one gateway connection
// that are forwarded concurrently
const DefaultWorkersPerConn = 16

// Route binds a public store name to a store on a socket
type Route struct {
	Index     uint64
	Transport transport.IRPCClientTransport
}

// GatewayOptions configures a Gateway
type GatewayOptions struct {
	// Token is required as bearer token on the handshake (empty = no auth)
	Token string
	// SessionTTL closes connections after this duration (0 = never)
	SessionTTL time.Duration
	// WorkersPerConn bounds the requests forwarded concurrently per connection
	WorkersPerConn int
	// Metrics receives the session counters (optional)
	Metrics *metrics.Set
}

// Gateway forwards WebSocket connections on /cache/{store} to the bound stores
type Gateway struct {
	routes     map[string]Route
	opts       GatewayOptions
	serializer serializer.IRPCSerializer
	sessions   atomic.Int64
}

// NewGateway creates a gateway for the given routes. The client transports
// of the routes must be connected and may be shared between routes.
func NewGateway(routes map[string]Route, opts GatewayOptions) *Gateway {
	if opts.WorkersPerConn <= 0 {
		opts.WorkersPerConn = DefaultWorkersPerConn
	}
	g := &Gateway{
		routes:     routes,
		opts:       opts,
		serializer: serializer.NewMsgpackSerializer(),
	}
	if opts.Metrics != nil {
		opts.Metrics.GetOrCreateGauge("distrilock_gateway_sessions_active", func() float64 {
			return float64(g.sessions.Load())
		})
	}
	return g
}

// Handler returns the http handler serving the gateway routes and, with a
// metrics set, the metrics on /metrics
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cache/{store}", g.handleCache)
	if g.opts.Metrics != nil {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			if !g.authorized(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			g.opts.Metrics.WritePrometheus(w)
			metrics.WriteProcessMetrics(w)
		})
	}
	return mux
}

// ListenAndServe serves the gateway on endpoint until ctx is cancelled.
// TLS is used if certFile and keyFile are set.
func (g *Gateway) ListenAndServe(ctx context.Context, endpoint, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              endpoint,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	Logger.Infof("Starting gateway on %s (tls=%t, %d stores)", endpoint, certFile != "", len(g.routes))

	var err error
	if certFile != "" {
		err = srv.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		Logger.Infof("Gateway on %s stopped", endpoint)
		return nil
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (g *Gateway) handleCache(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("store"))

	if !g.authorized(r) {
		Logger.Warningf("Rejecting %s for store %q: invalid token", r.RemoteAddr, name)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	route, ok := g.routes[name]
	if !ok {
		http.Error(w, "invalid store", http.StatusNotFound)
		return
	}

	srv := websocket.Server{
		// the token replaces the origin check
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			g.serve(ws, name, route)
		},
	}
	srv.ServeHTTP(w, r)
}

// authorized checks the bearer token of the handshake request
func (g *Gateway) authorized(r *http.Request) bool {
	if g.opts.Token == "" {
		return true
	}
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(g.opts.Token)) == 1
}

// serve runs the request loop of one gateway connection
func (g *Gateway) serve(ws *websocket.Conn, name string, route Route) {
	g.sessions.Add(1)
	defer g.sessions.Add(-1)
	if g.opts.Metrics != nil {
		g.opts.Metrics.GetOrCreateCounter(fmt.Sprintf(`distrilock_gateway_sessions_total{store=%q}`, name)).Inc()
	}

	ctx := ws.Request().Context()
	if g.opts.SessionTTL > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.SessionTTL)
		defer cancel()
	}

	Logger.Debugf("Session for store %q from %s", name, ws.Request().RemoteAddr)
	err := base.ServeConn(ctx, newMessageConn(ws), g.serializer, g.forward(route), g.opts.WorkersPerConn)
	if err != nil {
		Logger.Warningf("Closed session for store %q: %v", name, err)
	}
}

// forward returns a handler sending every request to the bound store
func (g *Gateway) forward(route Route) transport.ServerHandleFunc {
	return func(ctx context.Context, req *common.Request, data []byte) (bool, []byte) {
		req.Index = route.Index

		header, err := g.serializer.Serialize(*req)
		if err != nil {
			return false, []byte(err.Error())
		}

		ok, resp, err := route.Transport.Send(ctx, header, data)
		if err != nil {
			Logger.Errorf("Forwarding %s failed: %v", req, err)
			return false, []byte(MsgStoreUnavailable)
		}
		return ok, resp
	}
}
