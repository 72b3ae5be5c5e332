package storage

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"tradingpost/internal/market"
)

func req(seq int64, source int32, product market.Product, amount int64) market.TradeRequest {
	return market.TradeRequest{SequenceNumber: seq, SourcePeerID: source, Product: product, Amount: amount}
}

func TestInventoryStore_SellBuyDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(NewMemoryPersister())

	status, err := store.Sell(ctx, req(1, 0, market.Boars, 3))
	if err != nil || status != market.Successful {
		t.Fatalf("Sell: status=%v err=%v", status, err)
	}
	if qty, _ := store.Lookup(ctx, market.Boars); qty != 3 {
		t.Errorf("Expected 3 BOARS, got %d", qty)
	}

	status, err = store.Buy(ctx, req(1, 1, market.Boars, 3))
	if err != nil || status != market.Successful {
		t.Fatalf("Buy: status=%v err=%v", status, err)
	}
	if qty, _ := store.Lookup(ctx, market.Boars); qty != 0 {
		t.Errorf("Expected 0 BOARS, got %d", qty)
	}

	// Replaying the sell is rejected and changes nothing
	status, _ = store.Sell(ctx, req(1, 0, market.Boars, 3))
	if status != market.LowSequenceNumber {
		t.Errorf("Expected LOW_SEQUENCE_NUMBER, got %v", status)
	}
	if qty, _ := store.Lookup(ctx, market.Boars); qty != 0 {
		t.Errorf("Replay must not change inventory, got %d", qty)
	}
}

func TestInventoryStore_SequenceGate(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)

	tests := []struct {
		name string
		op   func(context.Context, market.TradeRequest) (market.Status, error)
		r    market.TradeRequest
		want market.Status
	}{
		{"sell seq 1", store.Sell, req(1, 0, market.Boars, 1), market.Successful},
		{"sell seq 1 again", store.Sell, req(1, 0, market.Boars, 1), market.LowSequenceNumber},
		{"sell seq 2", store.Sell, req(2, 0, market.Boars, 1), market.Successful},
		{"buy seq 1 other source", store.Buy, req(1, 1, market.Boars, 1), market.Successful},
		{"buy seq 1 again", store.Buy, req(1, 1, market.Boars, 1), market.LowSequenceNumber},
		{"buy seq 2", store.Buy, req(2, 1, market.Boars, 1), market.Successful},
		{"sell older seq", store.Sell, req(1, 0, market.Fish, 1), market.LowSequenceNumber},
		{"sell with gap", store.Sell, req(9, 0, market.Fish, 1), market.Successful},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(ctx, tt.r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if store.LastApplied(0) != 9 {
		t.Errorf("Expected last applied 9 for source 0, got %d", store.LastApplied(0))
	}
}

func TestInventoryStore_NotInStockDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)

	status, _ := store.Buy(ctx, req(1, 1, market.Fish, 2))
	if status != market.NotInStock {
		t.Fatalf("Expected NOT_IN_STOCK, got %v", status)
	}
	if store.LastApplied(1) != 0 {
		t.Errorf("Rejected buy must not advance the tracker")
	}

	store.Sell(ctx, req(1, 0, market.Fish, 2))

	// Same sequence number is accepted on retry once stock is there
	status, _ = store.Buy(ctx, req(1, 1, market.Fish, 2))
	if status != market.Successful {
		t.Errorf("Expected retry to succeed, got %v", status)
	}
}

func TestInventoryStore_InvalidRequest(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)

	if _, err := store.Sell(ctx, req(1, 0, market.Boars, 0)); !errors.Is(err, market.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	if _, err := store.Buy(ctx, req(1, 0, "GOLD", 1)); !errors.Is(err, market.ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct, got %v", err)
	}
	if _, err := store.Lookup(ctx, "GOLD"); !errors.Is(err, market.ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct, got %v", err)
	}
}

func TestInventoryStore_SellOverflow(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)

	if status, err := store.Sell(ctx, req(1, 0, market.Boars, 3)); err != nil || status != market.Successful {
		t.Fatalf("Sell: status=%v err=%v", status, err)
	}

	status, err := store.Sell(ctx, req(2, 0, market.Boars, math.MaxInt64))
	if !errors.Is(err, market.ErrInvalidAmount) {
		t.Fatalf("Expected ErrInvalidAmount, got status=%v err=%v", status, err)
	}
	if status == market.NotInStock {
		t.Errorf("A sell must never report NOT_IN_STOCK")
	}
	if qty, _ := store.Lookup(ctx, market.Boars); qty != 3 {
		t.Errorf("Rejected sell must not change inventory, got %d", qty)
	}
	if store.LastApplied(0) != 1 {
		t.Errorf("Rejected sell must not advance the tracker, got %d", store.LastApplied(0))
	}

	// Exactly reaching the limit is still a valid sell
	status, err = store.Sell(ctx, req(2, 0, market.Boars, math.MaxInt64-3))
	if err != nil || status != market.Successful {
		t.Fatalf("Sell up to the limit: status=%v err=%v", status, err)
	}
	if qty, _ := store.Lookup(ctx, market.Boars); qty != math.MaxInt64 {
		t.Errorf("Expected MaxInt64 BOARS, got %d", qty)
	}
	if _, err := store.Sell(ctx, req(3, 0, market.Boars, 1)); !errors.Is(err, market.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount at the limit, got %v", err)
	}
}

func TestMemoryPersister_KeepsCopy(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()

	inv := map[market.Product]int64{market.Fish: 2}
	if err := p.Save(ctx, inv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	inv[market.Fish] = 99

	loaded, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[market.Fish] != 2 {
		t.Errorf("Saved inventory should be independent, got %d", loaded[market.Fish])
	}
	loaded[market.Salt] = 1
	if again, _ := p.Load(ctx); len(again) != 1 {
		t.Errorf("Loaded inventory should be independent, got %v", again)
	}

	empty, err := NewMemoryPersister().Load(ctx)
	if err != nil || empty == nil {
		t.Errorf("Load of empty persister = %v, %v, want empty map", empty, err)
	}
}

// failingPersister fails the first n saves.
type failingPersister struct {
	*MemoryPersister
	failures atomic.Int32
}

func (p *failingPersister) Save(ctx context.Context, inv map[market.Product]int64) error {
	if p.failures.Add(-1) >= 0 {
		return errors.New("disk full")
	}
	return p.MemoryPersister.Save(ctx, inv)
}

func TestInventoryStore_WriteFailure(t *testing.T) {
	ctx := context.Background()
	p := &failingPersister{MemoryPersister: NewMemoryPersister()}
	p.failures.Store(1)
	store := NewInventoryStore(p)

	status, err := store.Sell(ctx, req(1, 0, market.Salt, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != market.ErrorDuringWrite {
		t.Fatalf("Expected ERROR_DURING_WRITE, got %v", status)
	}
	if qty, _ := store.Lookup(ctx, market.Salt); qty != 0 {
		t.Errorf("Failed write must not change inventory, got %d", qty)
	}
	if store.LastApplied(0) != 0 {
		t.Errorf("Failed write must not advance the tracker, got %d", store.LastApplied(0))
	}

	// Retry with the same sequence number is accepted
	status, _ = store.Sell(ctx, req(1, 0, market.Salt, 4))
	if status != market.Successful {
		t.Errorf("Expected retry to succeed, got %v", status)
	}
	if qty, _ := store.Lookup(ctx, market.Salt); qty != 4 {
		t.Errorf("Expected 4 SALT, got %d", qty)
	}
}

func TestInventoryStore_ConcurrentBuysNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)
	store.Sell(ctx, req(1, 100, market.Boars, 10))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(source int32) {
			defer wg.Done()
			status, err := store.Buy(ctx, req(1, source, market.Boars, 1))
			if err == nil && status == market.Successful {
				succeeded.Add(1)
			}
		}(int32(i))
	}
	wg.Wait()

	if succeeded.Load() != 10 {
		t.Errorf("Expected exactly 10 successful buys, got %d", succeeded.Load())
	}
	qty, _ := store.Lookup(ctx, market.Boars)
	if qty != 0 {
		t.Errorf("Expected 0 BOARS left, got %d", qty)
	}
}

func TestInventoryStore_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInventoryStore(nil)
	store.Sell(ctx, req(1, 0, market.Fish, 2))

	snap := store.Snapshot()
	snap[market.Fish] = 100

	if qty, _ := store.Lookup(ctx, market.Fish); qty != 2 {
		t.Errorf("Snapshot should be independent, store has %d", qty)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	p.Save(ctx, map[market.Product]int64{market.Fish: 7})

	store, err := Open(ctx, p, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if qty, _ := store.Lookup(ctx, market.Fish); qty != 7 {
		t.Errorf("Expected loaded 7 FISH, got %d", qty)
	}

	store, err = Open(ctx, p, true)
	if err != nil {
		t.Fatalf("Open reset: %v", err)
	}
	if qty, _ := store.Lookup(ctx, market.Fish); qty != 0 {
		t.Errorf("Expected reset inventory, got %d", qty)
	}
	saved, _ := p.Load(ctx)
	if saved[market.Fish] != 0 {
		t.Errorf("Reset should be persisted, got %d", saved[market.Fish])
	}
}
