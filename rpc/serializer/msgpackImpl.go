package serializer

import (
	"fmt"
	"math"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/tinylib/msgp/msgp"
)

// NewMsgpackSerializer creates a new serializer encoding the request header
// as a MessagePack map
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements IRPCSerializer using the msgp runtime
type msgpackSerializerImpl struct {
}

// Map keys of the header
const (
	fieldIndex   = "index"
	fieldMethod  = "method"
	fieldKey     = "key"
	fieldExpiry  = "expiry"
	fieldDataLen = "data_len"

	numFields = 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(req common.Request) ([]byte, error) {
	b := make([]byte, 0, m.sizeBytes(req))

	b = msgp.AppendMapHeader(b, numFields)

	b = msgp.AppendString(b, fieldIndex)
	b = msgp.AppendUint64(b, req.Index)

	b = msgp.AppendString(b, fieldMethod)
	b = msgp.AppendUint8(b, uint8(req.Method))

	b = msgp.AppendString(b, fieldKey)
	b = msgp.AppendString(b, req.Key)

	b = msgp.AppendString(b, fieldExpiry)
	if req.Expiry == nil {
		b = msgp.AppendNil(b)
	} else {
		b = msgp.AppendInt32(b, *req.Expiry)
	}

	b = msgp.AppendString(b, fieldDataLen)
	if req.DataLen == nil {
		b = msgp.AppendNil(b)
	} else {
		b = msgp.AppendUint32(b, *req.DataLen)
	}

	return b, nil
}

func (m msgpackSerializerImpl) Deserialize(b []byte, req *common.Request) error {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return fmt.Errorf("failed to read header map: %w", err)
	}

	*req = common.Request{}
	var hasIndex, hasMethod bool

	for i := uint32(0); i < n; i++ {
		var field []byte
		field, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return fmt.Errorf("failed to read header field name: %w", err)
		}

		switch string(field) {
		case fieldIndex:
			req.Index, b, err = msgp.ReadUint64Bytes(b)
			hasIndex = true

		case fieldMethod:
			var method uint64
			method, b, err = msgp.ReadUint64Bytes(b)
			if err == nil && method > math.MaxUint8 {
				err = fmt.Errorf("%w: %d", common.ErrInvalidMethod, method)
			}
			req.Method = common.Method(method)
			hasMethod = true

		case fieldKey:
			req.Key, b, err = msgp.ReadStringBytes(b)

		case fieldExpiry:
			if msgp.IsNil(b) {
				b, err = msgp.ReadNilBytes(b)
				req.Expiry = nil
				break
			}
			var expiry int32
			expiry, b, err = msgp.ReadInt32Bytes(b)
			req.Expiry = &expiry

		case fieldDataLen:
			if msgp.IsNil(b) {
				b, err = msgp.ReadNilBytes(b)
				req.DataLen = nil
				break
			}
			var dataLen uint32
			dataLen, b, err = msgp.ReadUint32Bytes(b)
			req.DataLen = &dataLen

		default:
			b, err = msgp.Skip(b)
		}

		if err != nil {
			return fmt.Errorf("failed to read header field %q: %w", field, err)
		}
	}

	if !hasIndex || !hasMethod {
		return fmt.Errorf("incomplete header: index and method are required")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes returns an upper bound of the encoded header size
func (m msgpackSerializerImpl) sizeBytes(req common.Request) int {
	size := msgp.MapHeaderSize
	size += numFields*msgp.StringPrefixSize +
		len(fieldIndex) + len(fieldMethod) + len(fieldKey) + len(fieldExpiry) + len(fieldDataLen)
	size += msgp.Uint64Size + msgp.Uint8Size
	size += msgp.StringPrefixSize + len(req.Key)
	size += msgp.Int32Size + msgp.Uint32Size
	return size
}
