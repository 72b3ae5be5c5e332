package marketpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var errWireType = errors.New("unexpected wire type")

// Message is implemented by every RPC message of the tradingpost services.
type Message interface {
	// AppendWire appends the protobuf encoding of the message to b.
	AppendWire(b []byte) []byte
	// UnmarshalWire replaces the message with the decoded contents of b.
	UnmarshalWire(b []byte) error
}

// Marshal encodes m in protobuf wire format.
func Marshal(m Message) []byte {
	return m.AppendWire(nil)
}

// Unmarshal decodes b into m.
func Unmarshal(b []byte, m Message) error {
	return m.UnmarshalWire(b)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt64Field(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, uint64(v))
}

// appendInt32Field sign-extends negative values to 64 bits like protoc does.
func appendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	return appendVarintField(b, num, uint64(int64(v)))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// appendPackedInt32s writes a packed repeated int32 field.
func appendPackedInt32s(b []byte, num protowire.Number, vs []int32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// fieldFunc decodes one field from b and returns the bytes it consumed.
// Returning -1 skips the field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = int64(v)
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = int32(v)
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

// consumeInt32s accepts both packed and unpacked repeated int32 encodings.
func consumeInt32s(typ protowire.Type, b []byte, dst *[]int32) (int, error) {
	switch typ {
	case protowire.VarintType:
		var v int32
		n, err := consumeInt32(typ, b, &v)
		if err != nil {
			return 0, err
		}
		*dst = append(*dst, v)
		return n, nil

	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, int32(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, errWireType
}
