package peer

import (
	"context"
	"fmt"
	"log"
	"slices"

	"tradingpost/internal/broadcast"
	"tradingpost/internal/market"
)

type tradeKind int

const (
	buyTrade tradeKind = iota
	sellTrade
)

func (k tradeKind) String() string {
	if k == sellTrade {
		return "Sell"
	}
	return "Buy"
}

// Buy serves a buy request when this peer is a trader.
func (p *Peer) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return p.trade(ctx, req, buyTrade)
}

// Sell serves a sell request when this peer is a trader.
func (p *Peer) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	return p.trade(ctx, req, sellTrade)
}

// trade runs req against the cache. A successful trade is stamped with this
// peer's next sequence number, applied to its own cache and multicast to the
// other traders. A crash after the store applied the trade and before the
// multicast leaves the other caches behind.
func (p *Peer) trade(ctx context.Context, req market.TradeRequest, kind tradeKind) (market.Status, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	traders := slices.Clone(p.traderIDs)
	p.mu.Unlock()
	if !slices.Contains(traders, p.id) {
		log.Printf("[peer-%d] %s request refused, not a trader: source=%d", p.id, kind, req.SourcePeerID)
		return market.NotATrader, nil
	}

	p.tradeMu.Lock()
	var (
		status market.Status
		err    error
	)
	if kind == buyTrade {
		status, err = p.cache.Buy(ctx, req)
	} else {
		status, err = p.cache.Sell(ctx, req)
	}
	if err != nil {
		p.tradeMu.Unlock()
		log.Printf("[peer-%d] %s request failed: product=%s amount=%d source=%d seq=%d err=%v",
			p.id, kind, req.Product, req.Amount, req.SourcePeerID, req.SequenceNumber, err)
		return 0, err
	}
	if status != market.Successful {
		p.tradeMu.Unlock()
		log.Printf("[peer-%d] %s request: product=%s amount=%d source=%d seq=%d status=%s",
			p.id, kind, req.Product, req.Amount, req.SourcePeerID, req.SequenceNumber, status)
		return status, nil
	}

	delta := req.Amount
	if kind == buyTrade {
		delta = -delta
	}
	update := market.CacheUpdate{
		SequenceNumber: p.cache.NextSequenceNumber(p.id),
		SourcePeerID:   p.id,
		Product:        req.Product,
		Delta:          delta,
	}
	p.cache.UpdateCache(update)
	p.tradeMu.Unlock()

	log.Printf("[peer-%d] %s request: product=%s amount=%d source=%d seq=%d status=%s update=%d",
		p.id, kind, req.Product, req.Amount, req.SourcePeerID, req.SequenceNumber, status, update.SequenceNumber)

	p.multicast(broadcast.Except(traders, p.id), update)
	return status, nil
}

// multicast delivers update to targets, handing failed deliveries to the
// retry manager.
func (p *Peer) multicast(targets []int32, update market.CacheUpdate) {
	if len(targets) == 0 {
		return
	}
	result := broadcast.Do(p.ctx, targets, p.opts.RPCTimeout, func(ctx context.Context, target int32) error {
		return p.call(ctx, target, func(ctx context.Context, r Remote) error {
			return r.UpdateCache(ctx, update)
		})
	})
	if result.OK() {
		return
	}
	log.Printf("[peer-%d] Cache update not delivered: seq=%d %s", p.id, update.SequenceNumber, result)
	for _, target := range result.FailedTargets() {
		p.redeliver(target, update)
	}
}

func (p *Peer) redeliver(target int32, update market.CacheUpdate) {
	id := fmt.Sprintf("%d-UPDATE-%d-%d", p.id, update.SequenceNumber, target)

	var task func()
	task = func() {
		if !p.alive() {
			return
		}
		err := p.call(p.ctx, target, func(ctx context.Context, r Remote) error {
			return r.UpdateCache(ctx, update)
		})
		if err == nil {
			p.retries.Forget(id)
			log.Printf("[peer-%d] Cache update redelivered: target=%d seq=%d", p.id, target, update.SequenceNumber)
			return
		}
		p.retries.RetryTransaction(id, task, p.opts.RetryDelay, p.opts.MaxAttempts)
	}
	p.retries.RetryTransaction(id, task, p.opts.RetryDelay, p.opts.MaxAttempts)
}

// UpdateCache applies a delta multicast by another trader.
func (p *Peer) UpdateCache(ctx context.Context, update market.CacheUpdate) error {
	if !update.Product.Valid() {
		return fmt.Errorf("%w: %q", market.ErrUnknownProduct, string(update.Product))
	}
	outcome := p.cache.UpdateCache(update)
	log.Printf("[peer-%d] Cache update %s: source=%d seq=%d product=%s delta=%d",
		p.id, outcome, update.SourcePeerID, update.SequenceNumber, update.Product, update.Delta)
	return nil
}
