package cache

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/tiendc/go-deepcopy"

	"tradingpost/internal/market"
	"tradingpost/internal/sequence"
)

// FIFOCache applies deltas from each source in sequence order. Deltas that
// arrive ahead of a gap are buffered until the gap closes; deltas at or below
// the tracked sequence number are discarded. Different sources interleave
// freely.
type FIFOCache struct {
	owner      int32
	backend    Backend
	maxPending int

	mu        sync.Mutex
	inventory map[market.Product]int64
	tracker   sequence.Tracker
	pending   map[int32]map[int64]market.CacheUpdate
	buffered  int
}

// NewFIFO creates an empty FIFO cache for the trader owner. maxPending <= 0
// uses DefaultMaxPending.
func NewFIFO(owner int32, backend Backend, maxPending int) *FIFOCache {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &FIFOCache{
		owner:      owner,
		backend:    backend,
		maxPending: maxPending,
		inventory:  make(map[market.Product]int64),
		tracker:    sequence.New(),
		pending:    make(map[int32]map[int64]market.CacheUpdate),
	}
}

// Lookup returns the cached quantity, 0 if the product was never observed.
func (c *FIFOCache) Lookup(ctx context.Context, product market.Product) (int64, error) {
	if !product.Valid() {
		return 0, fmt.Errorf("%w: %q", market.ErrUnknownProduct, string(product))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventory[product], nil
}

// Buy seeds the entry from the backend on first use, rejects locally when the
// cached quantity is too low and otherwise delegates to the backend.
func (c *FIFOCache) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	qty, ok := c.cached(req.Product)
	if !ok {
		stock, err := c.backend.Lookup(ctx, req.Product)
		if err != nil {
			return 0, fmt.Errorf("failed to seed cache for %s: %w", req.Product, err)
		}
		qty = c.seed(req.Product, stock)
	}

	if qty < req.Amount {
		log.Printf("[peer-%d] Cache rejected buy: product=%s cached=%d amount=%d source=%d seq=%d",
			c.owner, req.Product, qty, req.Amount, req.SourcePeerID, req.SequenceNumber)
		return market.NotInStock, nil
	}
	return c.backend.Buy(ctx, req)
}

// Sell delegates to the backend.
func (c *FIFOCache) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	return c.backend.Sell(ctx, req)
}

// UpdateCache gates update on the sequence number tracked for its source.
func (c *FIFOCache) UpdateCache(update market.CacheUpdate) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := update.SourcePeerID
	switch {
	case c.tracker.Seen(source, update.SequenceNumber):
		log.Printf("[peer-%d] Discarded stale cache update: source=%d seq=%d last=%d",
			c.owner, source, update.SequenceNumber, c.tracker.Get(source))
		return Discarded

	case c.tracker.IsNext(source, update.SequenceNumber):
		c.apply(update)
		c.drain(source)
		return Applied

	default:
		queue := c.pending[source]
		if _, dup := queue[update.SequenceNumber]; dup {
			return Discarded
		}
		if c.buffered >= c.maxPending {
			log.Printf("[peer-%d] Dropped cache update, pending queue full: source=%d seq=%d pending=%d",
				c.owner, source, update.SequenceNumber, c.buffered)
			return Dropped
		}
		if queue == nil {
			queue = make(map[int64]market.CacheUpdate)
			c.pending[source] = queue
		}
		queue[update.SequenceNumber] = update
		c.buffered++
		log.Printf("[peer-%d] Buffered cache update: source=%d seq=%d expected=%d",
			c.owner, source, update.SequenceNumber, c.tracker.Next(source))
		return Buffered
	}
}

// NextSequenceNumber returns the last applied sequence number of source plus one.
func (c *FIFOCache) NextSequenceNumber(source int32) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Next(source)
}

// Pending returns how many deltas are buffered.
func (c *FIFOCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

// Snapshot returns a copy of the cached inventory.
func (c *FIFOCache) Snapshot() map[market.Product]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[market.Product]int64, len(c.inventory))
	if err := deepcopy.Copy(&out, c.inventory); err != nil {
		log.Printf("[peer-%d] Snapshot copy failed: %v", c.owner, err)
	}
	return out
}

// Applied returns a copy of the per-source sequence tracker.
func (c *FIFOCache) Applied() sequence.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Copy()
}

func (c *FIFOCache) cached(product market.Product) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	qty, ok := c.inventory[product]
	return qty, ok
}

// seed stores stock unless a delta created the entry while the lookup was in
// flight, and returns the entry.
func (c *FIFOCache) seed(product market.Product, stock int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if qty, ok := c.inventory[product]; ok {
		return qty
	}
	c.inventory[product] = stock
	return stock
}

// apply must be called with c.mu held.
func (c *FIFOCache) apply(update market.CacheUpdate) {
	current := c.inventory[update.Product]
	switch {
	case update.Delta > 0 && current > math.MaxInt64-update.Delta:
		log.Printf("[peer-%d] Cache update overflows, clamping: source=%d seq=%d product=%s delta=%d",
			c.owner, update.SourcePeerID, update.SequenceNumber, update.Product, update.Delta)
		c.inventory[update.Product] = math.MaxInt64
	case update.Delta < 0 && current < math.MinInt64-update.Delta:
		log.Printf("[peer-%d] Cache update underflows, clamping: source=%d seq=%d product=%s delta=%d",
			c.owner, update.SourcePeerID, update.SequenceNumber, update.Product, update.Delta)
		c.inventory[update.Product] = math.MinInt64
	default:
		c.inventory[update.Product] = current + update.Delta
	}
	c.tracker.Advance(update.SourcePeerID, update.SequenceNumber)
}

// drain applies buffered deltas from source while the next one is present.
// Must be called with c.mu held.
func (c *FIFOCache) drain(source int32) {
	queue := c.pending[source]
	for len(queue) > 0 {
		next, ok := queue[c.tracker.Next(source)]
		if !ok {
			break
		}
		delete(queue, next.SequenceNumber)
		c.buffered--
		c.apply(next)
		log.Printf("[peer-%d] Applied buffered cache update: source=%d seq=%d",
			c.owner, source, next.SequenceNumber)
	}
	if len(queue) == 0 {
		delete(c.pending, source)
	}
}
