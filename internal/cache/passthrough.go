package cache

import (
	"context"
	"sync"

	"tradingpost/internal/market"
	"tradingpost/internal/sequence"
)

// Passthrough keeps no local view: every call goes to the backend. It still
// tracks sequence numbers so traders can stamp their deltas.
type Passthrough struct {
	owner   int32
	backend Backend

	mu      sync.Mutex
	tracker sequence.Tracker
}

// NewPassthrough creates a pass-through cache for the trader owner.
func NewPassthrough(owner int32, backend Backend) *Passthrough {
	return &Passthrough{owner: owner, backend: backend, tracker: sequence.New()}
}

func (c *Passthrough) Lookup(ctx context.Context, product market.Product) (int64, error) {
	return c.backend.Lookup(ctx, product)
}

func (c *Passthrough) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return c.backend.Buy(ctx, req)
}

func (c *Passthrough) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return c.backend.Sell(ctx, req)
}

// UpdateCache only advances the tracker of the source.
func (c *Passthrough) UpdateCache(update market.CacheUpdate) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.Advance(update.SourcePeerID, update.SequenceNumber) {
		return Discarded
	}
	return Applied
}

func (c *Passthrough) NextSequenceNumber(source int32) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Next(source)
}

func (c *Passthrough) Applied() sequence.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Copy()
}
