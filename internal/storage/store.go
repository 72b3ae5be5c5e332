package storage

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

// Store is the authoritative inventory as seen by a trader's cache.
type Store interface {
	// Lookup returns the stock of a product, 0 if never stocked.
	Lookup(ctx context.Context, product market.Product) (int64, error)
	// Buy removes req.Amount of req.Product if available.
	Buy(ctx context.Context, req market.TradeRequest) (market.Status, error)
	// Sell adds req.Amount of req.Product.
	Sell(ctx context.Context, req market.TradeRequest) (market.Status, error)
}

// InventoryStore is the authoritative inventory. Requests are gated by a
// per-source sequence tracker so retries are idempotent, and every
// successful mutation is written through the Persister before it becomes
// visible. All operations are serialized by a single mutex.
type InventoryStore struct {
	mu        sync.Mutex
	inventory map[market.Product]int64
	applied   sequence.Tracker
	persister Persister
}

// NewInventoryStore creates an empty store backed by persister.
func NewInventoryStore(persister Persister) *InventoryStore {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &InventoryStore{
		inventory: make(map[market.Product]int64),
		applied:   sequence.New(),
		persister: persister,
	}
}

// Open creates a store from the persister's current contents. With reset,
// the persisted inventory is overwritten with an empty one instead.
func Open(ctx context.Context, persister Persister, reset bool) (*InventoryStore, error) {
	s := NewInventoryStore(persister)
	if reset {
		if err := s.persister.Save(ctx, s.inventory); err != nil {
			return nil, fmt.Errorf("failed to reset inventory: %w", err)
		}
		return s, nil
	}

	inv, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	for product, qty := range inv {
		if qty < 0 {
			return nil, fmt.Errorf("negative stock %d for %s in persisted inventory", qty, product)
		}
		s.inventory[product] = qty
	}
	return s, nil
}

// Lookup returns the current stock of product.
func (s *InventoryStore) Lookup(ctx context.Context, product market.Product) (int64, error) {
	if !product.Valid() {
		return 0, fmt.Errorf("%w: %q", market.ErrUnknownProduct, string(product))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[product], nil
}

// Buy removes stock. There is no partial fulfillment: if the stock is lower
// than the requested amount, NOT_IN_STOCK is returned and nothing changes.
func (s *InventoryStore) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return s.apply(ctx, req, -req.Amount)
}

// Sell adds stock.
func (s *InventoryStore) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return s.apply(ctx, req, req.Amount)
}

func (s *InventoryStore) apply(ctx context.Context, req market.TradeRequest, delta int64) (market.Status, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied.Seen(req.SourcePeerID, req.SequenceNumber) {
		log.Printf("[warehouse] Rejected stale request: source=%d seq=%d last=%d",
			req.SourcePeerID, req.SequenceNumber, s.applied.Get(req.SourcePeerID))
		return market.LowSequenceNumber, nil
	}

	current := s.inventory[req.Product]
	if delta > 0 && current > math.MaxInt64-delta {
		log.Printf("[warehouse] Rejected sell, stock would overflow: product=%s stock=%d amount=%d source=%d",
			req.Product, current, req.Amount, req.SourcePeerID)
		return 0, fmt.Errorf("%w: %d on top of %d %s overflows", market.ErrInvalidAmount, req.Amount, current, req.Product)
	}
	if current+delta < 0 {
		log.Printf("[warehouse] Rejected buy, would oversell: product=%s stock=%d amount=%d source=%d",
			req.Product, current, req.Amount, req.SourcePeerID)
		return market.NotInStock, nil
	}

	// Persist a copy first so a failed write leaves memory untouched.
	next, err := cloneInventory(s.inventory)
	if err != nil {
		return 0, err
	}
	next[req.Product] = current + delta

	if err := s.persister.Save(ctx, next); err != nil {
		log.Printf("[warehouse] Write failed: product=%s source=%d seq=%d err=%v",
			req.Product, req.SourcePeerID, req.SequenceNumber, err)
		return market.ErrorDuringWrite, nil
	}

	s.inventory = next
	s.applied.Advance(req.SourcePeerID, req.SequenceNumber)

	log.Printf("[warehouse] Applied: product=%s delta=%d stock=%d source=%d seq=%d",
		req.Product, delta, next[req.Product], req.SourcePeerID, req.SequenceNumber)
	return market.Successful, nil
}

// Snapshot returns a copy of the inventory.
func (s *InventoryStore) Snapshot() map[market.Product]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := cloneInventory(s.inventory)
	if err != nil {
		log.Printf("[warehouse] Snapshot copy failed: %v", err)
	}
	return out
}

// LastApplied returns the last sequence number accepted from source.
func (s *InventoryStore) LastApplied(source int32) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Get(source)
}

// cloneInventory returns a deep copy of in, never nil.
func cloneInventory(in map[market.Product]int64) (map[market.Product]int64, error) {
	out := make(map[market.Product]int64, len(in))
	if err := deepcopy.Copy(&out, in); err != nil {
		return make(map[market.Product]int64), fmt.Errorf("failed to copy inventory: %w", err)
	}
	if out == nil {
		out = make(map[market.Product]int64)
	}
	return out, nil
}
