package peer

import (
	"context"
	"fmt"
	"sync"

	"tradingpost/internal/market"
)

// Remote is the RPC surface of a peer as seen by other peers.
type Remote interface {
	Elect(ctx context.Context, tags []int32, n int) error
	Coordinator(ctx context.Context, traderIDs, tags []int32) error
	Buy(ctx context.Context, req market.TradeRequest) (market.Status, error)
	Sell(ctx context.Context, req market.TradeRequest) (market.Status, error)
	UpdateCache(ctx context.Context, update market.CacheUpdate) error
	SendHeartbeat(ctx context.Context, fromID int32) error
	RespondToHeartbeat(ctx context.Context, fromID int32) error
	UpdateTrader(ctx context.Context, newTraderID int32) error
	PeerID(ctx context.Context) (int32, error)
}

// Directory resolves peer ids to handles. Size is the fixed number of peers;
// ids run from 0 to Size()-1.
type Directory interface {
	Resolve(ctx context.Context, id int32) (Remote, error)
	Size() int
}

// LocalDirectory connects peers living in the same process. A crashed or
// disconnected peer cannot be resolved and its handles fail every call.
type LocalDirectory struct {
	size int

	mu           sync.RWMutex
	peers        map[int32]*Peer
	disconnected map[int32]bool
}

// NewLocalDirectory creates a directory for size peers.
func NewLocalDirectory(size int) *LocalDirectory {
	return &LocalDirectory{
		size:         size,
		peers:        make(map[int32]*Peer),
		disconnected: make(map[int32]bool),
	}
}

// Register makes p resolvable under its id.
func (d *LocalDirectory) Register(p *Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[p.ID()] = p
}

// Disconnect makes id unreachable without crashing it.
func (d *LocalDirectory) Disconnect(id int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnected[id] = true
}

// Reconnect undoes Disconnect.
func (d *LocalDirectory) Reconnect(id int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.disconnected, id)
}

func (d *LocalDirectory) Size() int {
	return d.size
}

func (d *LocalDirectory) Resolve(ctx context.Context, id int32) (Remote, error) {
	if err := d.check(id); err != nil {
		return nil, err
	}
	return localRemote{dir: d, id: id}, nil
}

// check is the liveness boundary of in-process calls.
func (d *LocalDirectory) check(id int32) error {
	d.mu.RLock()
	p, ok := d.peers[id]
	down := d.disconnected[id]
	d.mu.RUnlock()

	switch {
	case !ok:
		return fmt.Errorf("%w: peer %d not registered", market.ErrPeerUnreachable, id)
	case down:
		return fmt.Errorf("%w: peer %d disconnected", market.ErrPeerUnreachable, id)
	case p.Crashed():
		return fmt.Errorf("%w: peer %d crashed", market.ErrPeerUnreachable, id)
	}
	return nil
}

func (d *LocalDirectory) peer(id int32) (*Peer, error) {
	if err := d.check(id); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.peers[id], nil
}

// localRemote re-checks liveness on every call, so a handle resolved before
// a crash stops working afterwards.
type localRemote struct {
	dir *LocalDirectory
	id  int32
}

func (r localRemote) Elect(ctx context.Context, tags []int32, n int) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.Elect(ctx, tags, n)
}

func (r localRemote) Coordinator(ctx context.Context, traderIDs, tags []int32) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.Coordinator(ctx, traderIDs, tags)
}

func (r localRemote) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return 0, err
	}
	return p.Buy(ctx, req)
}

func (r localRemote) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return 0, err
	}
	return p.Sell(ctx, req)
}

func (r localRemote) UpdateCache(ctx context.Context, update market.CacheUpdate) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.UpdateCache(ctx, update)
}

func (r localRemote) SendHeartbeat(ctx context.Context, fromID int32) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.SendHeartbeat(ctx, fromID)
}

func (r localRemote) RespondToHeartbeat(ctx context.Context, fromID int32) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.RespondToHeartbeat(ctx, fromID)
}

func (r localRemote) UpdateTrader(ctx context.Context, newTraderID int32) error {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return err
	}
	return p.UpdateTrader(ctx, newTraderID)
}

func (r localRemote) PeerID(ctx context.Context) (int32, error) {
	p, err := r.dir.peer(r.id)
	if err != nil {
		return 0, err
	}
	return p.PeerID(ctx)
}
