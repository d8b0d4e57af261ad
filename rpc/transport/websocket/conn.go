package websocket

import (
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport/base"
	"golang.org/x/net/websocket"
)

// maxMessageSize is the size of the largest valid request frame
const maxMessageSize = common.RequestPrefixSize + common.MaxHeaderSize + common.MaxPayloadSize

// messageConn sends every frame as one binary message.
// It implements base.ClientConn and base.ServerConn.
type messageConn struct {
	ws  *websocket.Conn
	buf []byte // only used by the single writer
}

func newMessageConn(ws *websocket.Conn) *messageConn {
	ws.PayloadType = websocket.BinaryFrame
	ws.MaxPayloadBytes = maxMessageSize
	return &messageConn{ws: ws}
}

func (c *messageConn) WriteRequest(id common.CorrelationID, header, data []byte) error {
	var err error
	c.buf, err = base.AppendRequestFrame(c.buf[:0], id, header, data)
	if err != nil {
		return err
	}
	return websocket.Message.Send(c.ws, c.buf)
}

func (c *messageConn) ReadResponse() (common.Response, error) {
	var msg []byte
	if err := websocket.Message.Receive(c.ws, &msg); err != nil {
		return common.Response{}, err
	}
	return base.ParseResponseFrame(msg)
}

func (c *messageConn) ReadRequest(s serializer.IRPCSerializer) (common.CorrelationID, *common.Request, []byte, error) {
	var msg []byte
	if err := websocket.Message.Receive(c.ws, &msg); err != nil {
		return common.CorrelationID{}, nil, nil, err
	}
	return base.ParseRequestFrame(msg, s)
}

func (c *messageConn) WriteResponse(id common.CorrelationID, ok bool, payload []byte) error {
	var err error
	c.buf, err = base.AppendResponseFrame(c.buf[:0], id, ok, payload)
	if err != nil {
		return err
	}
	return websocket.Message.Send(c.ws, c.buf)
}

// Flush is a no-op, every frame is sent as its own message
func (c *messageConn) Flush() error {
	return nil
}

func (c *messageConn) Close() error {
	return c.ws.Close()
}
