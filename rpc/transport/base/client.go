package base

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/homenode/distrilock/lib/queue"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrNotConnected is returned by Send before Connect succeeded
var ErrNotConnected = errors.New("transport not connected")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(config common.ClientConfig) (ClientConn, error)

	// GetName returns the name of the transport type (e.g., "unix", "websocket")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outgoing is a request waiting for the writer goroutine
type outgoing struct {
	id     common.CorrelationID
	header []byte
	data   []byte
}

// clientTransport multiplexes concurrent calls over one connection
// independent of the specific transport medium (unix, websocket)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	conn    ClientConn
	pending *xsync.MapOf[common.CorrelationID, chan common.Response]
	sendQ   *queue.MPSC[outgoing]

	connected atomic.Bool
	done      chan struct{} // closed on shutdown
	closeOnce sync.Once
	closeErr  error // set before done is closed
	workers   sync.WaitGroup

	registry gometrics.Registry
	requests gometrics.Timer
	failures gometrics.Meter
	inflight gometrics.Gauge
	inflightN atomic.Int64
}

// -----------------------------------------------------------
// Transport Factory Method (used for unix, websocket)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	registry := gometrics.NewRegistry()
	return &clientTransport{
		connector: connector,
		pending:   xsync.NewMapOf[common.CorrelationID, chan common.Response](),
		done:      make(chan struct{}),
		registry:  registry,
		requests:  gometrics.GetOrRegisterTimer("requests", registry),
		failures:  gometrics.GetOrRegisterMeter("errors", registry),
		inflight:  gometrics.GetOrRegisterGauge("pending", registry),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if t.connected.Load() {
		return fmt.Errorf("%s transport is already connected", t.connector.GetName())
	}

	conn, err := t.connector.Connect(config)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	t.config = config
	t.conn = conn
	t.sendQ = queue.NewMPSC[outgoing]()
	t.connected.Store(true)

	t.workers.Add(2)
	go t.readLoop()
	go t.writeLoop()

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(ctx context.Context, header []byte, data []byte) (bool, []byte, error) {
	if !t.connected.Load() {
		return false, nil, ErrNotConnected
	}
	if err := checkRequest(header, data); err != nil {
		return false, nil, err
	}
	select {
	case <-t.done:
		return false, nil, t.closeErr
	default:
	}

	if timeout := t.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	respCh := make(chan common.Response, 1)
	id := t.register(respCh)

	if !t.sendQ.Push(outgoing{id: id, header: header, data: data}) {
		t.unregister(id)
		return false, nil, ErrConnectionClosed
	}

	select {
	case resp := <-respCh:
		t.requests.UpdateSince(start)
		return resp.Ok, resp.Payload, nil

	case <-ctx.Done():
		t.unregister(id)
		t.failures.Mark(1)
		return false, nil, ctx.Err()

	case <-t.done:
		t.unregister(id)
		t.failures.Mark(1)
		return false, nil, t.closeErr
	}
}

func (t *clientTransport) Metrics() gometrics.Registry {
	return t.registry
}

func (t *clientTransport) Close() error {
	if !t.connected.Load() {
		return nil
	}
	t.shutdown(ErrConnectionClosed)
	t.workers.Wait()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// register stores the response channel under a fresh correlation id.
// Ids are random, a collision with a pending id is retried.
func (t *clientTransport) register(ch chan common.Response) common.CorrelationID {
	var id common.CorrelationID
	for {
		binary.BigEndian.PutUint64(id[:], rand.Uint64())
		if _, loaded := t.pending.LoadOrStore(id, ch); !loaded {
			t.inflight.Update(t.inflightN.Add(1))
			return id
		}
	}
}

// unregister removes a pending call that will not wait for its response anymore
func (t *clientTransport) unregister(id common.CorrelationID) {
	if _, ok := t.pending.LoadAndDelete(id); ok {
		t.inflight.Update(t.inflightN.Add(-1))
	}
}

// shutdown stops both goroutines and fails all pending calls with err
func (t *clientTransport) shutdown(err error) {
	t.closeOnce.Do(func() {
		t.closeErr = err
		close(t.done)
		t.sendQ.Abort()
		if cerr := t.conn.Close(); cerr != nil {
			Logger.Debugf("Closing %s connection: %v", t.connector.GetName(), cerr)
		}
		// waiting callers observe done, drop their entries
		t.pending.Clear()
		t.inflightN.Store(0)
		t.inflight.Update(0)
	})
}

// readLoop reads responses and delivers each to the call waiting for its id.
// The pending entry is removed exactly once, when the response is delivered.
func (t *clientTransport) readLoop() {
	defer t.workers.Done()

	for {
		resp, err := t.conn.ReadResponse()
		if err != nil {
			select {
			case <-t.done:
				// closed by us
			default:
				Logger.Warningf("Connection to %s lost: %v", t.config.Endpoint, err)
				t.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			}
			return
		}

		respCh, found := t.pending.LoadAndDelete(resp.ID)
		if !found {
			// the caller gave up (context cancelled) before the response arrived
			Logger.Debugf("Dropping response for unknown correlation id %s", resp.ID)
			continue
		}
		t.inflight.Update(t.inflightN.Add(-1))
		respCh <- resp
	}
}

// writeLoop is the single writer of the connection. Requests are buffered and
// flushed whenever the send queue runs empty.
func (t *clientTransport) writeLoop() {
	defer t.workers.Done()

	for out := range t.sendQ.Recv() {
		if err := t.conn.WriteRequest(out.id, out.header, out.data); err != nil {
			t.fail(out.id, err)
			continue
		}
		if t.sendQ.Len() <= 0 {
			if err := t.conn.Flush(); err != nil {
				t.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
				return
			}
		}
	}
}

// fail handles a request that could not be written. Oversized requests are
// rejected before they are queued, so any error here is an I/O error and the
// connection is unusable.
func (t *clientTransport) fail(id common.CorrelationID, err error) {
	Logger.Errorf("Failed to write request %s: %v", id, err)
	t.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
}
