package serializer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/tinylib/msgp/msgp"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"Msgpack": NewMsgpackSerializer,
}

// testRequests creates a set of request headers with different fields filled
func testRequests() []common.Request {
	return []common.Request{
		*common.NewSizeRequest(0),
		*common.NewKeysRequest(3, "1..3"),
		*common.NewGetRequest(1, "user:alice"),
		*common.NewSetRequest(2, "lock", common.ExpireIn(30), []byte("owner")),
		*common.NewSetRequest(2, "persistent", nil, []byte{}),
		*common.NewUpdateRequest(0, "k", common.ExpireIn(0), nil),
		*common.NewUpdateRequest(0, "k", common.ExpireIn(-1), make([]byte, 65000)),
		*common.NewDeleteRequest(1<<40, "k"),
	}
}

// TestSerializerRoundTrip tests that headers can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, req := range testRequests() {
				data, err := serializer.Serialize(req)
				if err != nil {
					t.Errorf("Failed to serialize request %d: %v", i, err)
					continue
				}

				var result common.Request
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize request %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(req, result) {
					t.Errorf("Request %d doesn't match after round trip:\nOriginal: %s\nResult: %s",
						i, req.String(), result.String())
				}
			}
		})
	}
}

// TestHeaderFitsFrame checks the header size of typical requests against the one byte length prefix
func TestHeaderFitsFrame(t *testing.T) {
	serializer := NewMsgpackSerializer()

	data, err := serializer.Serialize(*common.NewSetRequest(^uint64(0), string(make([]byte, 150)), common.ExpireIn(1<<30), make([]byte, 1<<20)))
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if len(data) > common.MaxHeaderSize {
		t.Errorf("Header with a 150 byte key is %d bytes, more than %d", len(data), common.MaxHeaderSize)
	}
}

// TestWireLayout checks the encoding against a header produced by another msgpack encoder
func TestWireLayout(t *testing.T) {
	// {"index": 1, "method": 2, "key": "a", "expiry": nil, "data_len": nil}
	want := []byte{
		0x85,
		0xa5, 'i', 'n', 'd', 'e', 'x', 0x01,
		0xa6, 'm', 'e', 't', 'h', 'o', 'd', 0x02,
		0xa3, 'k', 'e', 'y', 0xa1, 'a',
		0xa6, 'e', 'x', 'p', 'i', 'r', 'y', 0xc0,
		0xa8, 'd', 'a', 't', 'a', '_', 'l', 'e', 'n', 0xc0,
	}

	got, err := NewMsgpackSerializer().Serialize(*common.NewGetRequest(1, "A"))
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected encoding:\nwant % x\ngot  % x", want, got)
	}
}

// TestDeserializeFieldOrder checks that field order does not matter and unknown fields are skipped
func TestDeserializeFieldOrder(t *testing.T) {
	b := msgp.AppendMapHeader(nil, 6)
	b = msgp.AppendString(b, "data_len")
	b = msgp.AppendUint8(b, 4)
	b = msgp.AppendString(b, "extra")
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendString(b, "x")
	b = msgp.AppendBool(b, true)
	b = msgp.AppendString(b, "key")
	b = msgp.AppendString(b, "k")
	b = msgp.AppendString(b, "expiry")
	b = msgp.AppendInt64(b, 10)
	b = msgp.AppendString(b, "method")
	b = msgp.AppendInt(b, 3)
	b = msgp.AppendString(b, "index")
	b = msgp.AppendInt(b, 7)

	var req common.Request
	if err := NewMsgpackSerializer().Deserialize(b, &req); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}

	if req.Index != 7 || req.Method != common.MethodSet || req.Key != "k" {
		t.Errorf("Unexpected request: %s", req.String())
	}
	if req.Expiry == nil || *req.Expiry != 10 {
		t.Errorf("Expected expiry 10, got %v", req.Expiry)
	}
	if req.DataLen == nil || *req.DataLen != 4 {
		t.Errorf("Expected data_len 4, got %v", req.DataLen)
	}
}

// TestDeserializeInvalid tests that malformed headers are rejected
func TestDeserializeInvalid(t *testing.T) {
	serializer := NewMsgpackSerializer()
	valid, _ := serializer.Serialize(*common.NewGetRequest(0, "key"))

	missingMethod := msgp.AppendMapHeader(nil, 1)
	missingMethod = msgp.AppendString(missingMethod, "index")
	missingMethod = msgp.AppendUint64(missingMethod, 0)

	hugeMethod := msgp.AppendMapHeader(nil, 2)
	hugeMethod = msgp.AppendString(hugeMethod, "index")
	hugeMethod = msgp.AppendUint64(hugeMethod, 0)
	hugeMethod = msgp.AppendString(hugeMethod, "method")
	hugeMethod = msgp.AppendUint64(hugeMethod, 300)

	testCases := map[string][]byte{
		"Empty":         {},
		"NotAMap":       msgp.AppendString(nil, "hello"),
		"Truncated":     valid[:len(valid)-3],
		"MissingMethod": missingMethod,
		"HugeMethod":    hugeMethod,
	}

	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			var req common.Request
			if err := serializer.Deserialize(data, &req); err == nil {
				t.Errorf("Expected error, got request %s", req.String())
			}
		})
	}

	var req common.Request
	if err := serializer.Deserialize(hugeMethod, &req); !errors.Is(err, common.ErrInvalidMethod) {
		t.Errorf("Expected ErrInvalidMethod, got %v", err)
	}
}

// BenchmarkSerialize measures header encoding
func BenchmarkSerialize(b *testing.B) {
	serializer := NewMsgpackSerializer()
	req := *common.NewSetRequest(1, "session:0123456789abcdef", common.ExpireIn(3600), make([]byte, 512))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := serializer.Serialize(req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDeserialize measures header decoding
func BenchmarkDeserialize(b *testing.B) {
	serializer := NewMsgpackSerializer()
	data, _ := serializer.Serialize(*common.NewSetRequest(1, "session:0123456789abcdef", common.ExpireIn(3600), make([]byte, 512)))

	b.ReportAllocs()
	var req common.Request
	for i := 0; i < b.N; i++ {
		if err := serializer.Deserialize(data, &req); err != nil {
			b.Fatal(err)
		}
	}
}
