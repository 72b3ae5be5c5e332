package peer

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradingpost/internal/market"
)

// startActivity launches the periodic buying or selling of this peer.
func (p *Peer) startActivity() {
	period, tick := p.opts.BuyPeriod, p.buyTick
	if p.role == market.Seller {
		period, tick = p.opts.AccrualPeriod, p.sellTick
	}
	if period <= 0 {
		return
	}

	p.goTracked(func(ctx context.Context) {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	})
}

// buyTick starts a new purchase unless one is still being retried or this
// peer is currently a trader.
func (p *Peer) buyTick() {
	if !p.alive() || p.IsTrader() {
		return
	}

	p.txMu.Lock()
	if p.pending != nil {
		p.txMu.Unlock()
		return
	}
	p.nextSeq++
	tx := &transaction{
		id: fmt.Sprintf("%d-BUY-%d", p.id, p.nextSeq),
		req: market.TradeRequest{
			SequenceNumber: p.nextSeq,
			SourcePeerID:   p.id,
			Product:        p.opts.Picker.Product(),
			Amount:         p.opts.Picker.Quantity(),
		},
	}
	p.pending = tx
	p.txMu.Unlock()

	p.attempt(tx, buyTrade, p.opts.BuyPeriod, nil)
}

// sellTick accrues goods and offers the whole stock to the trader unless a
// sale is still being retried.
func (p *Peer) sellTick() {
	if !p.alive() || p.IsTrader() {
		return
	}

	p.txMu.Lock()
	p.stock += p.opts.AccrualQuantity
	if p.pending != nil || p.stock <= 0 {
		p.txMu.Unlock()
		return
	}
	p.nextSeq++
	tx := &transaction{
		id: fmt.Sprintf("%d-SELL-%d", p.id, p.nextSeq),
		req: market.TradeRequest{
			SequenceNumber: p.nextSeq,
			SourcePeerID:   p.id,
			Product:        p.product,
			Amount:         p.stock,
		},
	}
	p.pending = tx
	p.txMu.Unlock()

	p.attempt(tx, sellTrade, p.opts.AccrualPeriod, p.sold)
}

// sold removes the goods of a completed sale and picks the next product.
// Must be called with p.txMu held.
func (p *Peer) sold(tx *transaction) {
	p.stock -= tx.req.Amount
	p.product = p.opts.Picker.Product()
}

// attempt sends tx to the current trader. Applied outcomes complete it,
// NOT_A_TRADER moves on to the next trader, and anything else is retried
// with the same sequence number until the retry manager gives up.
func (p *Peer) attempt(tx *transaction, kind tradeKind, delay time.Duration, onDone func(*transaction)) {
	if !p.alive() {
		return
	}

	status, trader, err := p.send(tx.req, kind)
	switch {
	case err == nil && status.Applied():
		log.Printf("[peer-%d] %s completed: trader=%d product=%s amount=%d seq=%d status=%s",
			p.id, kind, trader, tx.req.Product, tx.req.Amount, tx.req.SequenceNumber, status)
		p.retries.Forget(tx.id)
		p.finish(tx, func(tx *transaction) {
			p.settle(tx, kind)
			if onDone != nil {
				onDone(tx)
			}
		})
		return
	case err == nil && status == market.NotATrader:
		log.Printf("[peer-%d] Peer %d is not a trader, rotating", p.id, trader)
		p.rotateTrader()
	case err != nil:
		log.Printf("[peer-%d] %s attempt failed: trader=%d product=%s amount=%d seq=%d err=%v",
			p.id, kind, trader, tx.req.Product, tx.req.Amount, tx.req.SequenceNumber, err)
	default:
		log.Printf("[peer-%d] %s unsuccessful: trader=%d product=%s amount=%d seq=%d status=%s",
			p.id, kind, trader, tx.req.Product, tx.req.Amount, tx.req.SequenceNumber, status)
	}

	if !p.alive() {
		return
	}
	retried := p.retries.RetryTransaction(tx.id, func() {
		p.attempt(tx, kind, delay, onDone)
	}, delay, p.opts.MaxAttempts)
	if !retried {
		log.Printf("[peer-%d] %s abandoned: product=%s amount=%d seq=%d", p.id, kind, tx.req.Product, tx.req.Amount, tx.req.SequenceNumber)
		p.finish(tx, nil)
	}
}

// send delivers req to the current trader.
func (p *Peer) send(req market.TradeRequest, kind tradeKind) (market.Status, int32, error) {
	trader, err := p.currentTrader()
	if err != nil {
		return 0, -1, err
	}

	var status market.Status
	err = p.call(p.ctx, trader, func(ctx context.Context, r Remote) error {
		var err error
		if kind == buyTrade {
			status, err = r.Buy(ctx, req)
		} else {
			status, err = r.Sell(ctx, req)
		}
		return err
	})
	return status, trader, err
}

func (p *Peer) finish(tx *transaction, onDone func(*transaction)) {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	if p.pending != tx {
		return
	}
	if onDone != nil {
		onDone(tx)
	}
	p.pending = nil
}

// settle charges a completed purchase to the balance or credits a sale.
// Must be called with p.txMu held.
func (p *Peer) settle(tx *transaction, kind tradeKind) {
	value := int64(tx.req.Product.Price()) * tx.req.Amount
	if kind == buyTrade {
		value = -value
	}
	p.balance += value
	log.Printf("[peer-%d] Settled %s: product=%s amount=%d value=%d balance=%d",
		p.id, kind, tx.req.Product, tx.req.Amount, value, p.balance)
}

// Pending returns the id of the transaction being retried, or "".
func (p *Peer) Pending() string {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	if p.pending == nil {
		return ""
	}
	return p.pending.id
}

// Stock returns the goods a seller holds that are not sold yet.
func (p *Peer) Stock() int64 {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	return p.stock
}

// Balance returns what this peer earned from sales minus what it spent on
// purchases.
func (p *Peer) Balance() int64 {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	return p.balance
}
