// Package grpc provides the gRPC transport for EventSphere events and
// tickets.
//
// The Tickets service is declared by hand and carried with a JSON codec
// registered under the "json" content-subtype, so clients must call it
// with grpc.CallContentSubtype(CodecName). The standard health service is
// served alongside with the default protobuf codec.
package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype the Tickets service is carried with.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
