package node

import (
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/cache"
	"tradingpost/internal/config"
	"tradingpost/internal/peer"
)

// Node hosts a single peer of the marketplace.
type Node struct {
	id         int32
	listenAddr string
	peer       *peer.Peer
	dir        *Directory
	clientMgr  *ClientManager
	grpcServer *grpc.Server
	health     *health.Server
}

// NewNode creates a node for the peer described by cfg. cfg must have been
// validated.
func NewNode(cfg config.Config) (*Node, error) {
	role, err := cfg.PeerRole()
	if err != nil {
		return nil, err
	}
	id := int32(cfg.ID)

	clientMgr := NewClientManager()
	dir := NewDirectory(cfg.BuildAddressBook(), cfg.PeerCount, clientMgr)
	backend := NewWarehouseClient(clientMgr, cfg.Warehouse, cfg.RPCTimeout)
	c, err := cache.New(cfg.Cache, id, backend, cfg.MaxPending)
	if err != nil {
		return nil, err
	}

	n := &Node{
		id:         id,
		listenAddr: cfg.ListenAddr,
		peer:       peer.New(id, role, dir, c, cfg.PeerOptions()),
		dir:        dir,
		clientMgr:  clientMgr,
		health:     health.NewServer(),
	}

	n.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(crashGuard(id, n.peer.Crashed)))
	marketpb.RegisterPeerServer(n.grpcServer, NewServer(n.peer, n.Crash))
	healthpb.RegisterHealthServer(n.grpcServer, n.health)
	n.health.SetServingStatus(marketpb.Peer_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return n, nil
}

// Peer returns the hosted peer.
func (n *Node) Peer() *peer.Peer {
	return n.peer
}

// Directory returns the address book the peer resolves other peers with.
func (n *Node) Directory() *Directory {
	return n.dir
}

// Start listens on the configured address and serves until Stop.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.listenAddr, err)
	}
	return n.Serve(lis)
}

// Serve serves on lis until Stop.
func (n *Node) Serve(lis net.Listener) error {
	log.Printf("[peer-%d] Starting node on %s: role=%s", n.id, lis.Addr(), n.peer.Role())
	if err := n.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Crash puts the peer into the crashed state. The server keeps running so
// that callers get codes.Unavailable and health checks report NOT_SERVING.
func (n *Node) Crash() {
	n.peer.Crash()
	n.health.SetServingStatus(marketpb.Peer_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	n.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

// Stop stops the peer and gracefully stops the node.
func (n *Node) Stop() {
	log.Printf("[peer-%d] Stopping node", n.id)
	n.peer.Stop()
	n.health.Shutdown()
	n.grpcServer.GracefulStop()
	n.clientMgr.Close()
}
