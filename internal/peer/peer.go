package peer

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tradingpost/internal/cache"
	"tradingpost/internal/heartbeat"
	"tradingpost/internal/market"
	"tradingpost/internal/retry"
	"tradingpost/internal/ring"
)

// Liveness is the two-state lifecycle of a peer. A crash is permanent.
type Liveness int32

const (
	Alive Liveness = iota
	Crashed
)

// String returns the string representation of Liveness.
func (l Liveness) String() string {
	if l == Crashed {
		return "CRASHED"
	}
	return "ALIVE"
}

// Options configures the timers and bounds of a peer.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	// BuyPeriod is the buyer attempt period, 0 disables buying.
	BuyPeriod time.Duration
	// AccrualPeriod is the seller accrual period, 0 disables selling.
	AccrualPeriod   time.Duration
	AccrualQuantity int64
	MaxAttempts     int
	// RPCTimeout bounds every outgoing call.
	RPCTimeout time.Duration
	// RetryDelay paces the redelivery of cache updates.
	RetryDelay time.Duration
	Picker     market.Picker
}

// DefaultOptions returns the standard marketplace timings.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 1 * time.Second,
		HeartbeatTimeout:  3 * time.Second,
		BuyPeriod:         5 * time.Second,
		AccrualPeriod:     10 * time.Second,
		AccrualQuantity:   5,
		MaxAttempts:       3,
		RPCTimeout:        500 * time.Millisecond,
		RetryDelay:        1 * time.Second,
		Picker:            market.RandomPicker{},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.HeartbeatTimeout <= o.HeartbeatInterval {
		o.HeartbeatTimeout = 3 * o.HeartbeatInterval
	}
	if o.AccrualQuantity <= 0 {
		o.AccrualQuantity = d.AccrualQuantity
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.RPCTimeout <= 0 {
		o.RPCTimeout = d.RPCTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.Picker == nil {
		o.Picker = d.Picker
	}
	return o
}

// transaction is a buy or sell in flight. Retries reuse its request, and so
// its sequence number.
type transaction struct {
	id  string
	req market.TradeRequest
}

// Peer is a buyer or seller that may currently also be a trader.
type Peer struct {
	id      int32
	role    market.Role
	opts    Options
	dir     Directory
	ring    ring.Ring
	cache   cache.Cache
	retries *retry.Manager

	liveness atomic.Int32

	// mu guards the trader set. Reconciling the heartbeat monitor happens
	// under it; the monitor itself is read lock-free by heartbeat handlers.
	mu             sync.Mutex
	traderIDs      []int32
	traderPosition int
	monitor        atomic.Pointer[heartbeat.Monitor]

	// tradeMu serializes trades served by this peer so the sequence numbers
	// it stamps are unique.
	tradeMu sync.Mutex

	// txMu guards this peer's own buying and selling.
	txMu    sync.Mutex
	nextSeq int64
	pending *transaction
	stock   int64
	product market.Product
	balance int64

	// Control
	lifeMu    sync.Mutex
	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a peer. c is the inventory view it serves trades from once
// elected.
func New(id int32, role market.Role, dir Directory, c cache.Cache, opts Options) *Peer {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		id:      id,
		role:    role,
		opts:    opts,
		dir:     dir,
		ring:    ring.New(dir.Size()),
		cache:   c,
		retries: retry.NewManager(fmt.Sprintf("peer-%d", id)),
		product: opts.Picker.Product(),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.liveness.Store(int32(Alive))
	return p
}

// Start checks that every other peer of the directory answers with the id it
// was registered under, then starts the buyer or seller activity.
func (p *Peer) Start(ctx context.Context) error {
	for _, id := range p.ring.Successors(p.id) {
		var got int32
		err := p.call(ctx, id, func(ctx context.Context, r Remote) error {
			var err error
			got, err = r.PeerID(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("peer %d not available: %w", id, err)
		}
		if got != id {
			return fmt.Errorf("peer %d answered with id %d", id, got)
		}
	}

	p.startOnce.Do(func() {
		log.Printf("[peer-%d] Started: role=%s peers=%d", p.id, p.role, p.ring.Size())
		p.startActivity()
	})
	return nil
}

// Stop cancels all timers and background work and waits for it to finish.
func (p *Peer) Stop() {
	p.shutdown()
	p.wg.Wait()
}

// Crash puts the peer permanently into the crashed state. It stops serving
// and cancels its timers; callbacks already running observe the flag.
func (p *Peer) Crash() {
	if !p.liveness.CompareAndSwap(int32(Alive), int32(Crashed)) {
		return
	}
	log.Printf("[peer-%d] Crashed: trader=%t applied=%s", p.id, p.IsTrader(), p.cache.Applied())
	p.shutdown()
}

func (p *Peer) shutdown() {
	p.lifeMu.Lock()
	p.cancel()
	p.lifeMu.Unlock()

	if m := p.monitor.Swap(nil); m != nil {
		m.Stop()
	}
	p.retries.Stop()
}

// ID returns the peer id.
func (p *Peer) ID() int32 {
	return p.id
}

// Role returns whether the peer is a buyer or a seller.
func (p *Peer) Role() market.Role {
	return p.role
}

// Cache returns the inventory view the peer trades from.
func (p *Peer) Cache() cache.Cache {
	return p.cache
}

// Liveness returns the current lifecycle state.
func (p *Peer) Liveness() Liveness {
	return Liveness(p.liveness.Load())
}

// Crashed reports whether Crash was called.
func (p *Peer) Crashed() bool {
	return p.Liveness() == Crashed
}

// Traders returns a copy of the current trader set.
func (p *Peer) Traders() []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.traderIDs)
}

// TraderPosition returns the index of the trader this peer contacts.
func (p *Peer) TraderPosition() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.traderPosition
}

// IsTrader reports whether the peer is in the current trader set.
func (p *Peer) IsTrader() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.traderIDs, p.id)
}

// HeartbeatState returns the state of the partner monitor, false if no
// monitor is running.
func (p *Peer) HeartbeatState() (heartbeat.State, bool) {
	m := p.monitor.Load()
	if m == nil {
		return 0, false
	}
	return m.State(), true
}

// PeerID answers the identity query.
func (p *Peer) PeerID(ctx context.Context) (int32, error) {
	return p.id, nil
}

// alive reports whether timers and background work may still act.
func (p *Peer) alive() bool {
	return p.Liveness() == Alive && p.ctx.Err() == nil
}

// goTracked runs fn in a goroutine that Stop waits for. Nothing is started
// once the peer is shut down.
func (p *Peer) goTracked(fn func(ctx context.Context)) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.ctx.Err() != nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// call resolves target and runs fn with the RPC timeout applied.
func (p *Peer) call(ctx context.Context, target int32, fn func(ctx context.Context, r Remote) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.RPCTimeout)
	defer cancel()

	r, err := p.dir.Resolve(ctx, target)
	if err != nil {
		return err
	}
	return fn(ctx, r)
}

// others returns every peer id except this one, ascending.
func (p *Peer) others() []int32 {
	out := make([]int32, 0, p.ring.Size())
	for id := int32(0); int(id) < p.ring.Size(); id++ {
		if id != p.id {
			out = append(out, id)
		}
	}
	return out
}
