package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
)

var (
	// ErrConnectionClosed is returned for calls on a closed client transport
	// and for calls that were pending when the connection went away
	ErrConnectionClosed = errors.New("connection closed")
	// ErrHeaderTooLarge is returned if an encoded request header does not fit the one byte length prefix
	ErrHeaderTooLarge = fmt.Errorf("request header exceeds %d bytes", common.MaxHeaderSize)
	// ErrPayloadTooLarge is returned if a payload does not fit the two byte length prefix
	ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", common.MaxPayloadSize)
	// ErrMalformedFrame is returned for frames that can not be decoded. The
	// connection must be closed, it is no longer in sync.
	ErrMalformedFrame = errors.New("malformed frame")
)

// --------------------------------------------------------------------------
// Request frames
// --------------------------------------------------------------------------
//
// - 8 bytes: correlation id
// - 1 byte:  header length
// - N bytes: msgpack header
// - M bytes: payload (M = header.data_len, absent if data_len is nil)

// checkRequest validates the sizes of a request before it is framed
func checkRequest(header, data []byte) error {
	if len(header) > common.MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	if len(data) > common.MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	return nil
}

// WriteRequestFrame writes a request frame to w
func WriteRequestFrame(w io.Writer, id common.CorrelationID, header, data []byte) error {
	if err := checkRequest(header, data); err != nil {
		return err
	}

	var prefix [common.RequestPrefixSize]byte
	copy(prefix[:], id[:])
	prefix[common.CorrelationIDSize] = byte(len(header))

	b := net.Buffers{prefix[:], header}
	if len(data) > 0 {
		b = append(b, data)
	}
	_, err := b.WriteTo(w)
	return err
}

// AppendRequestFrame appends a request frame to b (used by message based transports)
func AppendRequestFrame(b []byte, id common.CorrelationID, header, data []byte) ([]byte, error) {
	if err := checkRequest(header, data); err != nil {
		return b, err
	}
	b = append(b, id[:]...)
	b = append(b, byte(len(header)))
	b = append(b, header...)
	b = append(b, data...)
	return b, nil
}

// ReadRequestFrame reads a request frame from r. buf is scratch space for the
// header and must hold at least common.MaxHeaderSize bytes (or be nil).
// A clean end of stream before the first byte is reported as io.EOF.
func ReadRequestFrame(r io.Reader, s serializer.IRPCSerializer, buf []byte) (common.CorrelationID, *common.Request, []byte, error) {
	var id common.CorrelationID
	if len(buf) < common.MaxHeaderSize {
		buf = make([]byte, common.MaxHeaderSize)
	}

	var prefix [common.RequestPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return id, nil, nil, err
	}
	copy(id[:], prefix[:common.CorrelationIDSize])
	headerLen := int(prefix[common.CorrelationIDSize])

	header := buf[:headerLen]
	if _, err := io.ReadFull(r, header); err != nil {
		return id, nil, nil, fmt.Errorf("%w: truncated header: %v", ErrMalformedFrame, err)
	}

	req := &common.Request{}
	if err := s.Deserialize(header, req); err != nil {
		return id, nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if req.DataLen == nil {
		return id, req, nil, nil
	}
	if *req.DataLen > common.MaxPayloadSize {
		return id, nil, nil, fmt.Errorf("%w: data_len %d exceeds %d", ErrMalformedFrame, *req.DataLen, common.MaxPayloadSize)
	}

	data := make([]byte, *req.DataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return id, nil, nil, fmt.Errorf("%w: truncated payload: %v", ErrMalformedFrame, err)
	}
	return id, req, data, nil
}

// ParseRequestFrame decodes a request frame carried in a single message.
// The payload is the remainder of the message and must match data_len.
func ParseRequestFrame(msg []byte, s serializer.IRPCSerializer) (common.CorrelationID, *common.Request, []byte, error) {
	var id common.CorrelationID
	if len(msg) < common.RequestPrefixSize {
		return id, nil, nil, fmt.Errorf("%w: message of %d bytes is too short", ErrMalformedFrame, len(msg))
	}
	copy(id[:], msg[:common.CorrelationIDSize])
	headerLen := int(msg[common.CorrelationIDSize])
	rest := msg[common.RequestPrefixSize:]

	if len(rest) < headerLen {
		return id, nil, nil, fmt.Errorf("%w: truncated header", ErrMalformedFrame)
	}

	req := &common.Request{}
	if err := s.Deserialize(rest[:headerLen], req); err != nil {
		return id, nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	rest = rest[headerLen:]

	if req.DataLen == nil {
		if len(rest) != 0 {
			return id, nil, nil, fmt.Errorf("%w: %d trailing bytes without data_len", ErrMalformedFrame, len(rest))
		}
		return id, req, nil, nil
	}
	if uint64(len(rest)) != uint64(*req.DataLen) {
		return id, nil, nil, fmt.Errorf("%w: data_len %d but %d bytes of payload", ErrMalformedFrame, *req.DataLen, len(rest))
	}

	data := make([]byte, len(rest))
	copy(data, rest)
	return id, req, data, nil
}

// --------------------------------------------------------------------------
// Response frames
// --------------------------------------------------------------------------
//
// - 8 bytes: correlation id
// - 1 byte:  ok (0 or 1)
// - 2 bytes: payload length (uint16, big endian)
// - N bytes: payload

// responsePrefix encodes the fixed part of a response frame
func responsePrefix(id common.CorrelationID, ok bool, payloadLen int) [common.ResponsePrefixSize]byte {
	var prefix [common.ResponsePrefixSize]byte
	copy(prefix[:], id[:])
	if ok {
		prefix[common.CorrelationIDSize] = 1
	}
	binary.BigEndian.PutUint16(prefix[common.CorrelationIDSize+1:], uint16(payloadLen))
	return prefix
}

// WriteResponseFrame writes a response frame to w
func WriteResponseFrame(w io.Writer, id common.CorrelationID, ok bool, payload []byte) error {
	if len(payload) > common.MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	prefix := responsePrefix(id, ok, len(payload))
	b := net.Buffers{prefix[:]}
	if len(payload) > 0 {
		b = append(b, payload)
	}
	_, err := b.WriteTo(w)
	return err
}

// AppendResponseFrame appends a response frame to b (used by message based transports)
func AppendResponseFrame(b []byte, id common.CorrelationID, ok bool, payload []byte) ([]byte, error) {
	if len(payload) > common.MaxPayloadSize {
		return b, ErrPayloadTooLarge
	}
	prefix := responsePrefix(id, ok, len(payload))
	b = append(b, prefix[:]...)
	b = append(b, payload...)
	return b, nil
}

// ReadResponseFrame reads a response frame from r
func ReadResponseFrame(r io.Reader) (common.Response, error) {
	var prefix [common.ResponsePrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return common.Response{}, err
	}

	resp := parseResponsePrefix(prefix[:])
	n := binary.BigEndian.Uint16(prefix[common.CorrelationIDSize+1:])
	resp.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, resp.Payload); err != nil {
		return common.Response{}, fmt.Errorf("%w: truncated payload: %v", ErrMalformedFrame, err)
	}
	return resp, nil
}

// ParseResponseFrame decodes a response frame carried in a single message
func ParseResponseFrame(msg []byte) (common.Response, error) {
	if len(msg) < common.ResponsePrefixSize {
		return common.Response{}, fmt.Errorf("%w: message of %d bytes is too short", ErrMalformedFrame, len(msg))
	}

	resp := parseResponsePrefix(msg)
	n := int(binary.BigEndian.Uint16(msg[common.CorrelationIDSize+1:]))
	rest := msg[common.ResponsePrefixSize:]
	if len(rest) != n {
		return common.Response{}, fmt.Errorf("%w: payload length %d but %d bytes", ErrMalformedFrame, n, len(rest))
	}

	resp.Payload = make([]byte, n)
	copy(resp.Payload, rest)
	return resp, nil
}

func parseResponsePrefix(b []byte) common.Response {
	var resp common.Response
	copy(resp.ID[:], b[:common.CorrelationIDSize])
	resp.Ok = b[common.CorrelationIDSize] != 0
	return resp
}
