package market

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidElectionSize is returned when more traders are requested than
	// peers take part in the election.
	ErrInvalidElectionSize = errors.New("invalid election size")
	// ErrUnknownProduct is returned for names outside the catalogue.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInvalidAmount is returned for non-positive trade amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrPeerUnreachable is returned when a peer cannot be resolved or has crashed.
	ErrPeerUnreachable = errors.New("peer unreachable")
	// ErrNoTrader is returned when no trader set has been elected yet.
	ErrNoTrader = errors.New("no trader elected")
	// ErrUnknownPeer is returned for election messages naming ids outside the ring.
	ErrUnknownPeer = errors.New("unknown peer")
)

// Status is the outcome of a trading operation.
type Status int32

const (
	Successful Status = iota
	NotInStock
	LowSequenceNumber
	NotATrader
	ErrorDuringWrite
)

func (s Status) String() string {
	switch s {
	case Successful:
		return "SUCCESSFUL"
	case NotInStock:
		return "NOT_IN_STOCK"
	case LowSequenceNumber:
		return "LOW_SEQUENCE_NUMBER"
	case NotATrader:
		return "NOT_A_TRADER"
	case ErrorDuringWrite:
		return "ERROR_DURING_WRITE"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// Applied reports whether the store holds the effect of the request, either
// from this attempt or from an earlier one with the same sequence number.
func (s Status) Applied() bool {
	return s == Successful || s == LowSequenceNumber
}

// Role is the fixed part of a peer's identity. Trading capability is not a
// role: it follows from membership in the current trader set.
type Role int

const (
	Buyer Role = iota
	Seller
)

func (r Role) String() string {
	switch r {
	case Buyer:
		return "buyer"
	case Seller:
		return "seller"
	default:
		return "unknown"
	}
}

// ParseRole parses "buyer" or "seller".
func ParseRole(s string) (Role, error) {
	switch s {
	case "buyer":
		return Buyer, nil
	case "seller":
		return Seller, nil
	}
	return 0, fmt.Errorf("unknown role %q (expected buyer or seller)", s)
}

// TradeRequest is a sequence-numbered buy or sell issued by a source peer.
// Retries of the same transaction reuse the sequence number.
type TradeRequest struct {
	SequenceNumber int64
	SourcePeerID   int32
	Product        Product
	Amount         int64
}

// Validate checks the product and amount.
func (r TradeRequest) Validate() error {
	if !r.Product.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProduct, string(r.Product))
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, r.Amount)
	}
	return nil
}

// CacheUpdate is the delta a trader multicasts after a successful trade.
// Delta is negative for a buy and positive for a sell.
type CacheUpdate struct {
	SequenceNumber int64
	SourcePeerID   int32
	Product        Product
	Delta          int64
}
