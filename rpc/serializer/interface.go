package serializer

import "github.com/ValentinKolb/goporto/rpc/common"

// IRPCSerializer is the interface for all message serializers
type IRPCSerializer interface {
	// Serialize serializes a Request or Response into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Request or Response
	// It takes a byte array and a pointer to a message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg common.Message) error
}
