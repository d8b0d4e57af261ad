package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener on the endpoint. Closing the listener must
	// release the endpoint (e.g. remove the socket file).
	Listen(endpoint string) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix")
	GetName() string
}

// ServerOptions configures a server transport
type ServerOptions struct {
	// Name labels log lines and metrics (the socket name)
	Name string
	// MaxWorkersPerConn bounds the requests processed concurrently per
	// connection. 1 (the default) processes requests strictly in order.
	MaxWorkersPerConn int
	// BufferSize is the read and write buffer size per connection
	BufferSize int
	// AllowedUIDs restricts unix socket peers to these user ids (empty = everyone)
	AllowedUIDs []uint32
	// Metrics receives the connection gauge (optional)
	Metrics *metrics.Set
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	serializer serializer.IRPCSerializer
	handler    transport.ServerHandleFunc
	opts       ServerOptions
	active     atomic.Int64
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, s serializer.IRPCSerializer, opts ServerOptions) transport.IRPCServerTransport {
	// minimum one worker per connection
	opts.MaxWorkersPerConn = max(1, opts.MaxWorkersPerConn)

	t := &serverTransport{
		connector:  connector,
		serializer: s,
		opts:       opts,
	}

	if opts.Metrics != nil {
		opts.Metrics.GetOrCreateGauge(fmt.Sprintf(`distrilock_connections_active{socket=%q}`, opts.Name), func() float64 {
			return float64(t.active.Load())
		})
	}
	return t
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, endpoint string) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	listener, err := t.connector.Listen(endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	Logger.Infof("Starting %s server %q on %s with %d workers per connection",
		t.connector.GetName(), t.opts.Name, endpoint, t.opts.MaxWorkersPerConn)

	var conns sync.WaitGroup
	defer conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				Logger.Infof("Server %q on %s stopped", t.opts.Name, endpoint)
				listener.Close()
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if !t.admit(conn) {
			conn.Close()
			continue
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			t.active.Add(1)
			defer t.active.Add(-1)

			err := ServeConn(ctx, NewStreamConn(conn, t.opts.BufferSize), t.serializer, t.handler, t.opts.MaxWorkersPerConn)
			if err != nil {
				Logger.Warningf("Closed connection on %q: %v", t.opts.Name, err)
			}
		}()
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// admit checks the peer credentials of a unix connection against the allow list
func (t *serverTransport) admit(conn net.Conn) bool {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return true
	}

	cred, err := PeerCredentials(uc)
	if err != nil {
		if len(t.opts.AllowedUIDs) > 0 {
			Logger.Warningf("Rejecting connection on %q: %v", t.opts.Name, err)
			return false
		}
		return true
	}

	Logger.Debugf("Accepted connection on %q from %s", t.opts.Name, cred)
	if len(t.opts.AllowedUIDs) > 0 && !slices.Contains(t.opts.AllowedUIDs, cred.UID) {
		Logger.Warningf("Rejecting connection on %q from %s: uid not allowed", t.opts.Name, cred)
		return false
	}
	return true
}

// ServeConn runs the request loop of one connection until the peer closes it,
// a malformed frame is read or ctx is cancelled. Requests are executed by up
// to maxWorkers goroutines, responses are written one at a time.
// A malformed frame closes the connection without a response.
func ServeConn(ctx context.Context, conn ServerConn, s serializer.IRPCSerializer, handler transport.ServerHandleFunc, maxWorkers int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, max(1, maxWorkers))

	var wg sync.WaitGroup
	defer wg.Wait()

	// Protects writes to the connection
	var connMutex sync.Mutex

	handleResponse := func(id common.CorrelationID, req *common.Request, data []byte) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		start := time.Now()
		ok, resp := handler(ctx, req, data)
		if len(resp) > common.MaxPayloadSize {
			Logger.Warningf("Response to %s has %d bytes, replacing it with a failure", req, len(resp))
			ok, resp = false, []byte(common.MsgResponseTooLarge)
		}
		Logger.Debugf("Processed %s (id %s, ok=%t) in %s", req, id, ok, time.Since(start))

		connMutex.Lock()
		defer connMutex.Unlock()

		err := conn.WriteResponse(id, ok, resp)
		if err == nil {
			err = conn.Flush()
		}
		if err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			cancel()
		}
	}

	for {
		id, req, data, err := conn.ReadRequest(s)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("Connection closed")
				return nil
			}
			return err
		}

		// blocks while maxWorkers requests are in progress
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleResponse(id, req, data)
	}
}
