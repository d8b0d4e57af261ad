// Package serializer encodes and decodes the header of a request frame.
//
// The header is a MessagePack map with the string keys "index", "method",
// "key", "expiry" and "data_len". Absent optional values (expiry, data_len)
// are encoded as MessagePack nil. Unknown keys are skipped on decoding so that
// newer clients can add fields without breaking older servers.
//
// Key Components:
//
//   - IRPCSerializer: interface implemented by all header serializers.
//
//   - msgpackSerializerImpl: implementation on top of the msgp runtime
//     (github.com/tinylib/msgp/msgp). It appends directly into a byte slice
//     sized for the header and decodes with the zero-copy Read*Bytes helpers.
//
// Thread Safety:
//
//	Serializers are stateless and safe for concurrent use.
//
// Usage:
//
//	s := serializer.NewMsgpackSerializer()
//	header, err := s.Serialize(*common.NewGetRequest(0, "user:alice"))
//	// ... frame and send header ...
//	var req common.Request
//	err = s.Deserialize(header, &req)
package serializer
