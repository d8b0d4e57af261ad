package serializer

import "github.com/homenode/distrilock/rpc/common"

// IRPCSerializer is the interface for request header serializers
type IRPCSerializer interface {
	// Serialize serializes a request header into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(req common.Request) ([]byte, error)
	// Deserialize deserializes a byte array into a request header
	// It takes a byte array and a pointer to a Request as parameters
	// It returns an error if any
	Deserialize(b []byte, req *common.Request) error
}
