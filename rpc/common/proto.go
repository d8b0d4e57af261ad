package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Wire constants
// --------------------------------------------------------------------------

const (
	// CorrelationIDSize is the size of the correlation id prefixing every frame
	CorrelationIDSize = 8
	// RequestPrefixSize is the fixed part of a request frame: id + header length
	RequestPrefixSize = CorrelationIDSize + 1
	// ResponsePrefixSize is the fixed part of a response frame: id + ok + payload length
	ResponsePrefixSize = CorrelationIDSize + 1 + 2

	// MaxHeaderSize is the largest encoded request header (its length is one byte)
	MaxHeaderSize = 255
	// MaxPayloadSize is the largest response payload (its length is two bytes)
	MaxPayloadSize = 65535

	// DefaultUnixSocketPath is used when neither a path prefix nor a socket name is configured
	DefaultUnixSocketPath = "/dev/shm/dlserver.sock"
)

// Diagnostic messages produced by the server itself (store failures are in lib/store).
const (
	MsgUnknownStore     = "unknown store"
	MsgUnknownMethod    = "unknown method"
	MsgResponseTooLarge = "response too large"
)

// ErrInvalidMethod is returned when a method name or value is not part of the protocol
var ErrInvalidMethod = errors.New("invalid method")

// --------------------------------------------------------------------------
// Method
// --------------------------------------------------------------------------

// Method is the operation a request invokes on a store.
type Method uint8

const (
	MethodSize   Method = 0 // number of keys
	MethodKeys   Method = 1 // key range scan
	MethodGet    Method = 2
	MethodSet    Method = 3
	MethodDelete Method = 4
	MethodUpdate Method = 5
)

// Methods lists all methods in wire order
var Methods = []Method{MethodSize, MethodKeys, MethodGet, MethodSet, MethodDelete, MethodUpdate}

// String returns the string representation of a Method.
func (m Method) String() string {
	switch m {
	case MethodSize:
		return "size"
	case MethodKeys:
		return "keys"
	case MethodGet:
		return "get"
	case MethodSet:
		return "set"
	case MethodDelete:
		return "delete"
	case MethodUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	return m <= MethodUpdate
}

// ParseMethod converts a method name back to a Method
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if m.String() == strings.ToLower(s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

// --------------------------------------------------------------------------
// Correlation ID
// --------------------------------------------------------------------------

// CorrelationID matches a response to the request it answers. It is chosen by
// the client and only unique among the in-flight requests of one connection.
type CorrelationID [CorrelationIDSize]byte

// String returns the hex representation of the id
func (id CorrelationID) String() string {
	return hex.EncodeToString(id[:])
}

// --------------------------------------------------------------------------
// Request / Response
// --------------------------------------------------------------------------

// Request is the header of a request frame.
// Expiry and DataLen are optional; nil is encoded as MessagePack nil.
type Request struct {
	Index   uint64
	Method  Method
	Key     string
	Expiry  *int32
	DataLen *uint32
}

// String returns a short representation for logging
func (r *Request) String() string {
	expiry := "none"
	if r.Expiry != nil {
		expiry = fmt.Sprintf("%d", *r.Expiry)
	}
	dataLen := "none"
	if r.DataLen != nil {
		dataLen = fmt.Sprintf("%d", *r.DataLen)
	}
	return fmt.Sprintf("%s[%d] key=%q expiry=%s data_len=%s", r.Method, r.Index, r.Key, expiry, dataLen)
}

// Response is a decoded response frame
type Response struct {
	ID      CorrelationID
	Ok      bool
	Payload []byte
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request header. The key is lowercased and DataLen is
// derived from data: nil data means no payload, an empty slice an empty one.
func NewRequest(index uint64, method Method, key string, expiry *int32, data []byte) *Request {
	req := &Request{
		Index:  index,
		Method: method,
		Key:    strings.ToLower(key),
		Expiry: expiry,
	}
	if data != nil {
		n := uint32(len(data))
		req.DataLen = &n
	}
	return req
}

// NewSizeRequest creates a new Size request
func NewSizeRequest(index uint64) *Request {
	return NewRequest(index, MethodSize, "", nil, nil)
}

// NewKeysRequest creates a new Keys request for a range "start..end"
func NewKeysRequest(index uint64, rangeSpec string) *Request {
	return NewRequest(index, MethodKeys, rangeSpec, nil, nil)
}

// NewGetRequest creates a new Get request
func NewGetRequest(index uint64, key string) *Request {
	return NewRequest(index, MethodGet, key, nil, nil)
}

// NewSetRequest creates a new Set request
func NewSetRequest(index uint64, key string, expiry *int32, data []byte) *Request {
	return NewRequest(index, MethodSet, key, expiry, data)
}

// NewUpdateRequest creates a new Update request
func NewUpdateRequest(index uint64, key string, expiry *int32, data []byte) *Request {
	return NewRequest(index, MethodUpdate, key, expiry, data)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(index uint64, key string) *Request {
	return NewRequest(index, MethodDelete, key, nil, nil)
}

// ExpireIn returns a pointer to an expiry value. Pass nil directly for "never".
func ExpireIn(units int32) *int32 {
	return &units
}
