package it

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/config"
	"tradingpost/internal/market"
	"tradingpost/internal/node"
	"tradingpost/internal/peer"
	"tradingpost/internal/storage"
)

// Cluster is an in-process marketplace: one warehouse and a set of peer
// nodes, each serving gRPC on its own loopback port.
type Cluster struct {
	warehouse *node.WarehouseNode
	store     *storage.InventoryStore
	nodes     []*Node
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// Node represents a single peer node in the test cluster
type Node struct {
	ID           int32
	Addr         string
	node         *node.Node
	conn         *grpc.ClientConn
	client       marketpb.PeerClient
	healthClient healthpb.HealthClient
}

// TestConfig returns a configuration with timings short enough for tests.
// Buying and selling are disabled.
func TestConfig() config.Config {
	cfg := config.Default()
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.HeartbeatTimeout = 250 * time.Millisecond
	cfg.BuyPeriod = 0
	cfg.AccrualPeriod = 0
	cfg.RPCTimeout = 300 * time.Millisecond
	cfg.RetryDelay = 50 * time.Millisecond
	return cfg
}

// NewCluster starts a warehouse backed by an in-memory store and one node per
// role. configure, if not nil, adjusts every node's configuration.
func NewCluster(roles []market.Role, configure func(*config.Config)) (*Cluster, error) {
	c := &Cluster{
		store: storage.NewInventoryStore(storage.NewMemoryPersister()),
	}

	whLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for warehouse: %w", err)
	}
	c.warehouse = node.NewWarehouseNode(whLis.Addr().String(), c.store)
	c.serve(func() error { return c.warehouse.Serve(whLis) })

	// Reserve every port first, the address book must be complete
	listeners := make([]net.Listener, len(roles))
	book := make([]string, len(roles))
	for i := range roles {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			c.closeListeners(listeners)
			c.Stop()
			return nil, fmt.Errorf("failed to listen for peer %d: %w", i, err)
		}
		listeners[i] = lis
		book[i] = fmt.Sprintf("%d=%s", i, lis.Addr())
	}

	for i, role := range roles {
		cfg := TestConfig()
		cfg.ID = i
		cfg.Role = role.String()
		cfg.ListenAddr = listeners[i].Addr().String()
		cfg.PeerList = strings.Join(book, ",")
		cfg.Warehouse = whLis.Addr().String()
		if configure != nil {
			configure(&cfg)
		}
		if err := cfg.Validate(); err != nil {
			c.closeListeners(listeners[i:])
			c.Stop()
			return nil, fmt.Errorf("invalid config for peer %d: %w", i, err)
		}

		n, err := c.startNode(cfg, listeners[i])
		if err != nil {
			c.closeListeners(listeners[i+1:])
			c.Stop()
			return nil, err
		}
		c.nodes = append(c.nodes, n)
	}

	return c, nil
}

func (c *Cluster) startNode(cfg config.Config, lis net.Listener) (*Node, error) {
	nd, err := node.NewNode(cfg)
	if err != nil {
		lis.Close()
		return nil, fmt.Errorf("failed to create peer %d: %w", cfg.ID, err)
	}
	c.serve(func() error { return nd.Serve(lis) })

	// Connect gRPC client
	conn, err := grpc.NewClient(cfg.ListenAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		nd.Stop()
		return nil, fmt.Errorf("failed to create client for peer %d: %w", cfg.ID, err)
	}

	return &Node{
		ID:           int32(cfg.ID),
		Addr:         cfg.ListenAddr,
		node:         nd,
		conn:         conn,
		client:       marketpb.NewPeerClient(conn),
		healthClient: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *Cluster) serve(fn func() error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = fn()
	}()
}

func (c *Cluster) closeListeners(listeners []net.Listener) {
	for _, lis := range listeners {
		if lis != nil {
			lis.Close()
		}
	}
}

// WaitForReady waits until every node reports SERVING.
func (c *Cluster) WaitForReady(ctx context.Context, timeout time.Duration) error {
	for _, n := range c.Nodes() {
		if err := n.waitForStatus(ctx, healthpb.HealthCheckResponse_SERVING, timeout); err != nil {
			return fmt.Errorf("peer %d failed to become ready: %w", n.ID, err)
		}
	}
	return nil
}

// StartAll calls Start on every node over gRPC.
func (c *Cluster) StartAll(ctx context.Context) error {
	for _, n := range c.Nodes() {
		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := n.client.Start(callCtx, &marketpb.Empty{})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to start peer %d: %w", n.ID, err)
		}
	}
	return nil
}

// Elect starts an election for n traders at peer from.
func (c *Cluster) Elect(ctx context.Context, from int32, n int) error {
	nd := c.GetNode(from)
	if nd == nil {
		return fmt.Errorf("no peer %d", from)
	}
	return nd.Peer().StartElection(ctx, n)
}

// Crash crashes a peer through its Crash RPC.
func (c *Cluster) Crash(ctx context.Context, id int32) error {
	nd := c.GetNode(id)
	if nd == nil {
		return fmt.Errorf("no peer %d", id)
	}
	_, err := nd.client.Crash(ctx, &marketpb.Empty{})
	return err
}

// GetNode returns a node by ID
func (c *Cluster) GetNode(id int32) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Nodes returns all nodes in id order.
func (c *Cluster) Nodes() []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Store returns the warehouse inventory.
func (c *Cluster) Store() *storage.InventoryStore {
	return c.store
}

// Stop stops all nodes and the warehouse.
func (c *Cluster) Stop() {
	for _, n := range c.Nodes() {
		n.Stop()
	}
	if c.warehouse != nil {
		c.warehouse.Stop()
	}
	c.wg.Wait()
}

// Peer returns the hosted peer.
func (n *Node) Peer() *peer.Peer {
	return n.node.Peer()
}

// GetClient returns the Peer service client of the node.
func (n *Node) GetClient() marketpb.PeerClient {
	return n.client
}

// Health returns the serving status of the Peer service.
func (n *Node) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := n.healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: marketpb.Peer_ServiceDesc.ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (n *Node) waitForStatus(ctx context.Context, want healthpb.HealthCheckResponse_ServingStatus, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, time.Second)
		got, err := n.Health(checkCtx)
		cancel()
		if err == nil && got == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("status %s not reached: last=%s err=%v", want, got, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop stops the node and closes the test client.
func (n *Node) Stop() {
	n.node.Stop()
	n.conn.Close()
}
