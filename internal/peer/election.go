package peer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"tradingpost/internal/market"
	"tradingpost/internal/ring"
)

// StartElection starts a ring election for n traders at this peer.
func (p *Peer) StartElection(ctx context.Context, n int) error {
	if n < 1 || n > p.ring.Size() {
		return fmt.Errorf("%w: n=%d peers=%d", market.ErrInvalidElectionSize, n, p.ring.Size())
	}
	log.Printf("[peer-%d] Starting election: n=%d", p.id, n)
	return p.Elect(ctx, nil, n)
}

// Elect handles an election message. When this peer already appears in tags
// the traversal has gone round the ring: the n largest participants become
// the trader set and the coordinator broadcast starts here. Otherwise the
// peer adds itself to the path and hands it to the next reachable successor
// in the background.
func (p *Peer) Elect(ctx context.Context, tags []int32, n int) error {
	if err := p.checkIDs(tags); err != nil {
		log.Printf("[peer-%d] Rejected election: tags=%v err=%v", p.id, tags, err)
		return err
	}
	if ring.Visited(tags, p.id) {
		traders, err := ring.TopN(tags, n)
		if err != nil {
			log.Printf("[peer-%d] Election aborted: tags=%v err=%v", p.id, tags, err)
			return err
		}
		log.Printf("[peer-%d] Election done: tags=%v traders=%v", p.id, tags, traders)
		return p.Coordinator(ctx, traders, tags)
	}

	path := ring.Append(tags, p.id)
	successors := p.ring.Successors(p.id)
	if len(successors) == 0 {
		// Alone on the ring, the path is already complete
		return p.Elect(ctx, path, n)
	}

	p.goTracked(func(ctx context.Context) {
		p.forwardElection(ctx, path, n, successors)
	})
	return nil
}

func (p *Peer) forwardElection(ctx context.Context, tags []int32, n int, successors []int32) {
	for _, next := range successors {
		if !p.alive() {
			return
		}
		err := p.call(ctx, next, func(ctx context.Context, r Remote) error {
			return r.Elect(ctx, tags, n)
		})
		if err == nil {
			log.Printf("[peer-%d] Forwarded election: next=%d tags=%v", p.id, next, tags)
			return
		}
		if errors.Is(err, market.ErrInvalidElectionSize) || errors.Is(err, market.ErrUnknownPeer) {
			log.Printf("[peer-%d] Election rejected by %d: %v", p.id, next, err)
			return
		}
		log.Printf("[peer-%d] Peer does not respond, skipping: next=%d err=%v", p.id, next, err)
	}
	log.Printf("[peer-%d] Election stalled, no successor reachable: tags=%v", p.id, tags)
}

// Coordinator adopts traderIDs and passes the message on along the election
// path.
func (p *Peer) Coordinator(ctx context.Context, traderIDs, tags []int32) error {
	if len(traderIDs) == 0 {
		return fmt.Errorf("%w: empty trader set", market.ErrInvalidElectionSize)
	}
	if err := p.checkIDs(traderIDs, tags); err != nil {
		log.Printf("[peer-%d] Rejected coordinator: traders=%v tags=%v err=%v", p.id, traderIDs, tags, err)
		return err
	}
	p.setTraders(traderIDs, ring.Position(p.id, traderIDs))
	log.Printf("[peer-%d] Updated traders: traders=%v position=%d", p.id, traderIDs, ring.Position(p.id, traderIDs))

	route := ring.Route(tags, p.id)
	if len(route) == 0 {
		return nil
	}
	traders := slices.Clone(traderIDs)
	path := slices.Clone(tags)
	p.goTracked(func(ctx context.Context) {
		p.forwardCoordinator(ctx, traders, path, route)
	})
	return nil
}

func (p *Peer) forwardCoordinator(ctx context.Context, traderIDs, tags, route []int32) {
	for _, next := range route {
		if !p.alive() {
			return
		}
		err := p.call(ctx, next, func(ctx context.Context, r Remote) error {
			return r.Coordinator(ctx, traderIDs, tags)
		})
		if err == nil {
			return
		}
		log.Printf("[peer-%d] Peer does not respond, skipping coordinator: next=%d err=%v", p.id, next, err)
	}
}

// checkIDs rejects messages that name peers outside the ring.
func (p *Peer) checkIDs(lists ...[]int32) error {
	for _, ids := range lists {
		for _, id := range ids {
			if !p.ring.Contains(id) {
				return fmt.Errorf("%w: %d not in ring of %d", market.ErrUnknownPeer, id, p.ring.Size())
			}
		}
	}
	return nil
}

// setTraders replaces the trader set and reconciles the heartbeat monitor.
func (p *Peer) setTraders(traderIDs []int32, position int) {
	p.mu.Lock()
	p.traderIDs = slices.Clone(traderIDs)
	p.traderPosition = position
	p.mu.Unlock()

	p.reconcileHeartbeat()
}

// currentTrader returns the trader this peer sends its trades to.
func (p *Peer) currentTrader() (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.traderIDs) == 0 {
		return 0, market.ErrNoTrader
	}
	return p.traderIDs[p.traderPosition%len(p.traderIDs)], nil
}

// rotateTrader moves on to the next trader of the set.
func (p *Peer) rotateTrader() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.traderIDs) > 0 {
		p.traderPosition = (p.traderPosition + 1) % len(p.traderIDs)
	}
}
