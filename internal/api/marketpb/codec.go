package marketpb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype of the tradingpost services.
const CodecName = "tradingpost"

// codec encodes Message values itself and falls back to the protobuf runtime
// for generated messages, such as health checks sharing the connection.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return Marshal(m), nil
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("marketpb: cannot marshal %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("marketpb: cannot unmarshal into %T", v)
}

func (codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(codec{})
}
