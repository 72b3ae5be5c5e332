package cache

import (
	"context"
	"fmt"

	"tradingpost/internal/market"
	"tradingpost/internal/sequence"
)

const (
	// DefaultMaxPending bounds the pending queue of a FIFO cache.
	DefaultMaxPending = 1024
)

// Backend is the authoritative inventory the cache forwards trades to.
type Backend interface {
	Lookup(ctx context.Context, product market.Product) (int64, error)
	Buy(ctx context.Context, req market.TradeRequest) (market.Status, error)
	Sell(ctx context.Context, req market.TradeRequest) (market.Status, error)
}

// Cache is a trader's view of the inventory.
type Cache interface {
	// Lookup returns the locally known stock of product.
	Lookup(ctx context.Context, product market.Product) (int64, error)
	// Buy checks the local view and delegates to the backend.
	Buy(ctx context.Context, req market.TradeRequest) (market.Status, error)
	// Sell delegates to the backend.
	Sell(ctx context.Context, req market.TradeRequest) (market.Status, error)
	// UpdateCache applies a delta multicast by a trader.
	UpdateCache(update market.CacheUpdate) Outcome
	// NextSequenceNumber returns the number to stamp the next delta from source with.
	NextSequenceNumber(source int32) int64
	// Applied returns a copy of the last sequence number applied per source.
	Applied() sequence.Tracker
}

// Outcome describes what UpdateCache did with a delta.
type Outcome int

const (
	// Applied means the delta and any buffered successors were applied.
	Applied Outcome = iota
	// Buffered means the delta arrived ahead of a gap and was queued.
	Buffered
	// Discarded means the delta was a duplicate or stale replay.
	Discarded
	// Dropped means the delta was early but the pending queue was full.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Buffered:
		return "buffered"
	case Discarded:
		return "discarded"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// New returns the cache named by kind: "fifo" or "none".
func New(kind string, owner int32, backend Backend, maxPending int) (Cache, error) {
	switch kind {
	case "", "fifo":
		return NewFIFO(owner, backend, maxPending), nil
	case "none":
		return NewPassthrough(owner, backend), nil
	}
	return nil, fmt.Errorf("unknown cache kind %q (expected fifo or none)", kind)
}
