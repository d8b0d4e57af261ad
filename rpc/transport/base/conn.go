package base

import (
	"bufio"
	"net"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
)

// DefaultBufferSize is the read and write buffer size of a stream connection
const DefaultBufferSize = 64 * 1024

// -----------------------------------------------------------
// Connection abstractions
// -----------------------------------------------------------

// ClientConn is the client side of a connection. WriteRequest and Flush are
// only called by the writer goroutine, ReadResponse only by the reader goroutine.
type ClientConn interface {
	WriteRequest(id common.CorrelationID, header, data []byte) error
	// Flush sends buffered requests. Message based connections send on every
	// WriteRequest and can implement it as a no-op.
	Flush() error
	ReadResponse() (common.Response, error)
	Close() error
}

// ServerConn is the server side of a connection. ReadRequest is only called
// by the read loop, WriteResponse and Flush are serialized by the caller.
type ServerConn interface {
	ReadRequest(s serializer.IRPCSerializer) (common.CorrelationID, *common.Request, []byte, error)
	WriteResponse(id common.CorrelationID, ok bool, payload []byte) error
	Flush() error
	Close() error
}

// -----------------------------------------------------------
// Stream connection (unix sockets)
// -----------------------------------------------------------

// StreamConn frames requests and responses on a byte stream.
// It implements both ClientConn and ServerConn.
type StreamConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	hdr  [common.MaxHeaderSize]byte
}

// NewStreamConn wraps a stream connection with buffered frame I/O
func NewStreamConn(conn net.Conn, bufferSize int) *StreamConn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &StreamConn{
		conn: conn,
		r:    bufio.NewReaderSize(conn, bufferSize),
		w:    bufio.NewWriterSize(conn, bufferSize),
	}
}

// NetConn returns the underlying connection
func (c *StreamConn) NetConn() net.Conn {
	return c.conn
}

func (c *StreamConn) WriteRequest(id common.CorrelationID, header, data []byte) error {
	return WriteRequestFrame(c.w, id, header, data)
}

func (c *StreamConn) ReadResponse() (common.Response, error) {
	return ReadResponseFrame(c.r)
}

func (c *StreamConn) ReadRequest(s serializer.IRPCSerializer) (common.CorrelationID, *common.Request, []byte, error) {
	return ReadRequestFrame(c.r, s, c.hdr[:])
}

func (c *StreamConn) WriteResponse(id common.CorrelationID, ok bool, payload []byte) error {
	return WriteResponseFrame(c.w, id, ok, payload)
}

func (c *StreamConn) Flush() error {
	return c.w.Flush()
}

func (c *StreamConn) Close() error {
	return c.conn.Close()
}
