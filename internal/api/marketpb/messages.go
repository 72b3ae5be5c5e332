// Package marketpb holds the messages and gRPC service definitions of the
// tradingpost Peer and Warehouse services. Messages are encoded in protobuf
// wire format by a codec registered with gRPC under CodecName.
package marketpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Status is the outcome of a trade.
type Status int32

const (
	Status_SUCCESSFUL          Status = 0
	Status_NOT_IN_STOCK        Status = 1
	Status_LOW_SEQUENCE_NUMBER Status = 2
	Status_NOT_A_TRADER        Status = 3
	Status_ERROR_DURING_WRITE  Status = 4
)

var Status_name = map[int32]string{
	0: "SUCCESSFUL",
	1: "NOT_IN_STOCK",
	2: "LOW_SEQUENCE_NUMBER",
	3: "NOT_A_TRADER",
	4: "ERROR_DURING_WRITE",
}

func (s Status) String() string {
	if name, ok := Status_name[int32(s)]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Empty carries no fields.
type Empty struct{}

func (m *Empty) AppendWire(b []byte) []byte { return b }

func (m *Empty) UnmarshalWire(b []byte) error {
	*m = Empty{}
	return decodeFields(b, func(protowire.Number, protowire.Type, []byte) (int, error) { return -1, nil })
}

// ElectRequest carries an election traversal.
type ElectRequest struct {
	Tags []int32 // field 1, packed
	N    int32   // field 2
}

func (m *ElectRequest) AppendWire(b []byte) []byte {
	b = appendPackedInt32s(b, 1, m.Tags)
	return appendInt32Field(b, 2, m.N)
}

func (m *ElectRequest) UnmarshalWire(b []byte) error {
	*m = ElectRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32s(typ, b, &m.Tags)
		case 2:
			return consumeInt32(typ, b, &m.N)
		}
		return -1, nil
	})
}

// CoordinatorRequest announces an elected trader set along an election path.
type CoordinatorRequest struct {
	TraderIds []int32 // field 1, packed
	Tags      []int32 // field 2, packed
}

func (m *CoordinatorRequest) AppendWire(b []byte) []byte {
	b = appendPackedInt32s(b, 1, m.TraderIds)
	return appendPackedInt32s(b, 2, m.Tags)
}

func (m *CoordinatorRequest) UnmarshalWire(b []byte) error {
	*m = CoordinatorRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32s(typ, b, &m.TraderIds)
		case 2:
			return consumeInt32s(typ, b, &m.Tags)
		}
		return -1, nil
	})
}

// TradeRequest is a sequence-numbered buy or sell.
type TradeRequest struct {
	SequenceNumber int64  // field 1
	SourcePeerId   int32  // field 2
	Product        string // field 3
	Amount         int64  // field 4
}

func (m *TradeRequest) AppendWire(b []byte) []byte {
	b = appendInt64Field(b, 1, m.SequenceNumber)
	b = appendInt32Field(b, 2, m.SourcePeerId)
	b = appendStringField(b, 3, m.Product)
	return appendInt64Field(b, 4, m.Amount)
}

func (m *TradeRequest) UnmarshalWire(b []byte) error {
	*m = TradeRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &m.SequenceNumber)
		case 2:
			return consumeInt32(typ, b, &m.SourcePeerId)
		case 3:
			return consumeString(typ, b, &m.Product)
		case 4:
			return consumeInt64(typ, b, &m.Amount)
		}
		return -1, nil
	})
}

// TradeResponse carries the outcome of a trade.
type TradeResponse struct {
	Status Status // field 1
}

func (m *TradeResponse) AppendWire(b []byte) []byte {
	return appendInt32Field(b, 1, int32(m.Status))
}

func (m *TradeResponse) UnmarshalWire(b []byte) error {
	*m = TradeResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			var v int32
			n, err := consumeInt32(typ, b, &v)
			m.Status = Status(v)
			return n, err
		}
		return -1, nil
	})
}

// CacheUpdate is a stamped inventory delta.
type CacheUpdate struct {
	SequenceNumber int64  // field 1
	SourcePeerId   int32  // field 2
	Product        string // field 3
	Delta          int64  // field 4
}

func (m *CacheUpdate) AppendWire(b []byte) []byte {
	b = appendInt64Field(b, 1, m.SequenceNumber)
	b = appendInt32Field(b, 2, m.SourcePeerId)
	b = appendStringField(b, 3, m.Product)
	return appendInt64Field(b, 4, m.Delta)
}

func (m *CacheUpdate) UnmarshalWire(b []byte) error {
	*m = CacheUpdate{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &m.SequenceNumber)
		case 2:
			return consumeInt32(typ, b, &m.SourcePeerId)
		case 3:
			return consumeString(typ, b, &m.Product)
		case 4:
			return consumeInt64(typ, b, &m.Delta)
		}
		return -1, nil
	})
}

// HeartbeatRequest identifies the sender of a heartbeat or its response.
type HeartbeatRequest struct {
	FromId int32 // field 1
}

func (m *HeartbeatRequest) AppendWire(b []byte) []byte {
	return appendInt32Field(b, 1, m.FromId)
}

func (m *HeartbeatRequest) UnmarshalWire(b []byte) error {
	*m = HeartbeatRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt32(typ, b, &m.FromId)
		}
		return -1, nil
	})
}

// UpdateTraderRequest names the sole surviving trader.
type UpdateTraderRequest struct {
	NewTraderId int32 // field 1
}

func (m *UpdateTraderRequest) AppendWire(b []byte) []byte {
	return appendInt32Field(b, 1, m.NewTraderId)
}

func (m *UpdateTraderRequest) UnmarshalWire(b []byte) error {
	*m = UpdateTraderRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt32(typ, b, &m.NewTraderId)
		}
		return -1, nil
	})
}

// PeerIdResponse answers the identity query.
type PeerIdResponse struct {
	PeerId int32 // field 1
}

func (m *PeerIdResponse) AppendWire(b []byte) []byte {
	return appendInt32Field(b, 1, m.PeerId)
}

func (m *PeerIdResponse) UnmarshalWire(b []byte) error {
	*m = PeerIdResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt32(typ, b, &m.PeerId)
		}
		return -1, nil
	})
}

// LookupRequest asks the warehouse for the stock of a product.
type LookupRequest struct {
	Product string // field 1
}

func (m *LookupRequest) AppendWire(b []byte) []byte {
	return appendStringField(b, 1, m.Product)
}

func (m *LookupRequest) UnmarshalWire(b []byte) error {
	*m = LookupRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, b, &m.Product)
		}
		return -1, nil
	})
}

// LookupResponse carries the stock of a product.
type LookupResponse struct {
	Quantity int64 // field 1
}

func (m *LookupResponse) AppendWire(b []byte) []byte {
	return appendInt64Field(b, 1, m.Quantity)
}

func (m *LookupResponse) UnmarshalWire(b []byte) error {
	*m = LookupResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt64(typ, b, &m.Quantity)
		}
		return -1, nil
	})
}
