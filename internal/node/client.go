package node

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/market"
	"tradingpost/internal/peer"
)

// ClientManager manages gRPC connections to peers and the warehouse.
// Connections are created lazily and shared by every client of an address.
type ClientManager struct {
	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn
}

// NewClientManager creates a new client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		conns: make(map[string]*grpc.ClientConn),
	}
}

// conn returns the connection for addr, creating it if one doesn't exist.
// grpc.NewClient does not dial, so an absent server only shows on first use.
func (cm *ClientManager) conn(addr string) (*grpc.ClientConn, error) {
	cm.mu.RLock()
	cc, exists := cm.conns[addr]
	cm.mu.RUnlock()
	if exists {
		return cc, nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Double-check after acquiring write lock
	if cc, exists := cm.conns[addr]; exists {
		return cc, nil
	}

	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}
	cm.conns[addr] = cc
	return cc, nil
}

// GetPeerClient returns a Peer service client for the given address.
func (cm *ClientManager) GetPeerClient(addr string) (marketpb.PeerClient, error) {
	cc, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return marketpb.NewPeerClient(cc), nil
}

// GetWarehouseClient returns a Warehouse service client for the given address.
func (cm *ClientManager) GetWarehouseClient(addr string) (marketpb.WarehouseClient, error) {
	cc, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return marketpb.NewWarehouseClient(cc), nil
}

// Close closes all client connections.
func (cm *ClientManager) Close() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for addr, cc := range cm.conns {
		_ = cc.Close()
		delete(cm.conns, addr)
	}
}

// Directory resolves peer ids to gRPC handles from a static address book.
type Directory struct {
	addrs   map[int32]string
	size    int
	clients *ClientManager
}

// NewDirectory creates a directory over addrs. size is the number of peers
// on the ring; when zero it is len(addrs).
func NewDirectory(addrs map[int32]string, size int, clients *ClientManager) *Directory {
	if size <= 0 {
		size = len(addrs)
	}
	book := make(map[int32]string, len(addrs))
	for id, addr := range addrs {
		book[id] = addr
	}
	return &Directory{addrs: book, size: size, clients: clients}
}

func (d *Directory) Size() int {
	return d.size
}

// Addr returns the address registered for id.
func (d *Directory) Addr(id int32) (string, bool) {
	addr, ok := d.addrs[id]
	return addr, ok
}

func (d *Directory) Resolve(ctx context.Context, id int32) (peer.Remote, error) {
	addr, ok := d.addrs[id]
	if !ok {
		return nil, fmt.Errorf("%w: peer %d not registered", market.ErrPeerUnreachable, id)
	}
	client, err := d.clients.GetPeerClient(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrPeerUnreachable, err)
	}
	return remotePeer{client: client}, nil
}

// remotePeer is a peer.Remote backed by a Peer service client.
type remotePeer struct {
	client marketpb.PeerClient
}

func (r remotePeer) Elect(ctx context.Context, tags []int32, n int) error {
	_, err := r.client.Elect(ctx, &marketpb.ElectRequest{Tags: tags, N: int32(n)})
	return fromStatusError(err)
}

func (r remotePeer) Coordinator(ctx context.Context, traderIDs, tags []int32) error {
	_, err := r.client.Coordinator(ctx, &marketpb.CoordinatorRequest{TraderIds: traderIDs, Tags: tags})
	return fromStatusError(err)
}

func (r remotePeer) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	resp, err := r.client.Buy(ctx, tradeToProto(req))
	if err != nil {
		return 0, fromStatusError(err)
	}
	return protoToStatus(resp.Status), nil
}

func (r remotePeer) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	resp, err := r.client.Sell(ctx, tradeToProto(req))
	if err != nil {
		return 0, fromStatusError(err)
	}
	return protoToStatus(resp.Status), nil
}

func (r remotePeer) UpdateCache(ctx context.Context, update market.CacheUpdate) error {
	_, err := r.client.UpdateCache(ctx, updateToProto(update))
	return fromStatusError(err)
}

func (r remotePeer) SendHeartbeat(ctx context.Context, fromID int32) error {
	_, err := r.client.SendHeartbeat(ctx, &marketpb.HeartbeatRequest{FromId: fromID})
	return fromStatusError(err)
}

func (r remotePeer) RespondToHeartbeat(ctx context.Context, fromID int32) error {
	_, err := r.client.RespondToHeartbeat(ctx, &marketpb.HeartbeatRequest{FromId: fromID})
	return fromStatusError(err)
}

func (r remotePeer) UpdateTrader(ctx context.Context, newTraderID int32) error {
	_, err := r.client.UpdateTrader(ctx, &marketpb.UpdateTraderRequest{NewTraderId: newTraderID})
	return fromStatusError(err)
}

func (r remotePeer) PeerID(ctx context.Context) (int32, error) {
	resp, err := r.client.GetPeerId(ctx, &marketpb.Empty{})
	if err != nil {
		return 0, fromStatusError(err)
	}
	return resp.PeerId, nil
}
