package peer

import (
	"context"
	"log"
	"slices"

	"tradingpost/internal/broadcast"
	"tradingpost/internal/heartbeat"
)

// SendHeartbeat answers a partner's probe by calling back RespondToHeartbeat.
// A failed call-back is only logged: the prober notices through its timeout.
func (p *Peer) SendHeartbeat(ctx context.Context, fromID int32) error {
	err := p.call(ctx, fromID, func(ctx context.Context, r Remote) error {
		return r.RespondToHeartbeat(ctx, p.id)
	})
	if err != nil {
		log.Printf("[peer-%d] Heartbeat response failed: partner=%d err=%v", p.id, fromID, err)
	}
	return nil
}

// RespondToHeartbeat marks the partner alive.
func (p *Peer) RespondToHeartbeat(ctx context.Context, fromID int32) error {
	if m := p.monitor.Load(); m != nil {
		m.Ack(fromID)
	}
	return nil
}

// UpdateTrader makes newTraderID the sole trader.
func (p *Peer) UpdateTrader(ctx context.Context, newTraderID int32) error {
	p.setTraders([]int32{newTraderID}, 0)
	log.Printf("[peer-%d] Trader updated after failover: trader=%d", p.id, newTraderID)
	return nil
}

// heartbeatPartner returns the other trader when this peer is one of exactly
// two traders. Must be called with p.mu held.
func (p *Peer) heartbeatPartner() (int32, bool) {
	if len(p.traderIDs) != 2 {
		return 0, false
	}
	pos := slices.Index(p.traderIDs, p.id)
	if pos < 0 {
		return 0, false
	}
	return p.traderIDs[1-pos], true
}

// reconcileHeartbeat runs a monitor exactly while this peer is one of two
// traders, restarting it when the partner changes.
func (p *Peer) reconcileHeartbeat() {
	p.mu.Lock()
	partner, want := p.heartbeatPartner()
	cur := p.monitor.Load()

	var old, started *heartbeat.Monitor
	if cur != nil && (!want || cur.Partner() != partner || cur.State() == heartbeat.Failed) {
		old = cur
		cur = nil
		p.monitor.Store(nil)
	}
	if want && cur == nil && p.alive() {
		started = heartbeat.NewMonitor(p.id, partner, p.opts.HeartbeatInterval, p.opts.HeartbeatTimeout,
			p.probe(partner), p.onPartnerFailed)
		p.monitor.Store(started)
	}
	p.mu.Unlock()

	if old != nil {
		old.Stop()
		log.Printf("[peer-%d] Heartbeat stopped: partner=%d", p.id, old.Partner())
	}
	if started != nil {
		started.Start()
	}
}

func (p *Peer) probe(partner int32) heartbeat.ProbeFunc {
	return func(ctx context.Context) error {
		return p.call(ctx, partner, func(ctx context.Context, r Remote) error {
			return r.SendHeartbeat(ctx, p.id)
		})
	}
}

func (p *Peer) onPartnerFailed(partner int32) {
	p.goTracked(func(ctx context.Context) {
		p.failover(ctx, partner)
	})
}

// failover makes this peer the sole trader after its partner failed and
// tells every other peer about it.
func (p *Peer) failover(ctx context.Context, failed int32) {
	if !p.alive() {
		return
	}

	p.mu.Lock()
	if !slices.Contains(p.traderIDs, p.id) || !slices.Contains(p.traderIDs, failed) {
		p.mu.Unlock()
		return
	}
	p.traderIDs = []int32{p.id}
	p.traderPosition = 0
	m := p.monitor.Swap(nil)
	p.mu.Unlock()

	if m != nil {
		m.Stop()
	}
	log.Printf("[peer-%d] Failover: partner=%d failed, now sole trader", p.id, failed)

	result := broadcast.Do(ctx, p.others(), p.opts.RPCTimeout, func(ctx context.Context, target int32) error {
		return p.call(ctx, target, func(ctx context.Context, r Remote) error {
			return r.UpdateTrader(ctx, p.id)
		})
	})
	log.Printf("[peer-%d] Failover announced: %s", p.id, result)
}
