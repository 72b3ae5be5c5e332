package node

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/config"
	"tradingpost/internal/market"
	"tradingpost/internal/storage"
)

// WarehouseServer implements the Warehouse gRPC service over the inventory
// store.
type WarehouseServer struct {
	marketpb.UnimplementedWarehouseServer
	store storage.Store
}

// NewWarehouseServer creates a new warehouse service instance.
func NewWarehouseServer(store storage.Store) *WarehouseServer {
	return &WarehouseServer{store: store}
}

// Lookup handles stock queries.
func (s *WarehouseServer) Lookup(ctx context.Context, req *marketpb.LookupRequest) (*marketpb.LookupResponse, error) {
	qty, err := s.store.Lookup(ctx, market.Product(req.Product))
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.LookupResponse{Quantity: qty}, nil
}

// Buy handles buy requests forwarded by a trader's cache.
func (s *WarehouseServer) Buy(ctx context.Context, req *marketpb.TradeRequest) (*marketpb.TradeResponse, error) {
	st, err := s.store.Buy(ctx, protoToTrade(req))
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.TradeResponse{Status: statusToProto(st)}, nil
}

// Sell handles sell requests forwarded by a trader's cache.
func (s *WarehouseServer) Sell(ctx context.Context, req *marketpb.TradeRequest) (*marketpb.TradeResponse, error) {
	st, err := s.store.Sell(ctx, protoToTrade(req))
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.TradeResponse{Status: statusToProto(st)}, nil
}

// WarehouseClient reaches the warehouse service. It is the backend of a
// trader's inventory cache.
type WarehouseClient struct {
	addr    string
	clients *ClientManager
	timeout time.Duration
}

// NewWarehouseClient creates a client for the warehouse at addr. Every call
// is bounded by timeout.
func NewWarehouseClient(clients *ClientManager, addr string, timeout time.Duration) *WarehouseClient {
	return &WarehouseClient{addr: addr, clients: clients, timeout: timeout}
}

func (w *WarehouseClient) client() (marketpb.WarehouseClient, error) {
	c, err := w.clients.GetWarehouseClient(w.addr)
	if err != nil {
		return nil, fmt.Errorf("warehouse %s: %w", w.addr, err)
	}
	return c, nil
}

func (w *WarehouseClient) Lookup(ctx context.Context, product market.Product) (int64, error) {
	c, err := w.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := c.Lookup(ctx, &marketpb.LookupRequest{Product: string(product)})
	if err != nil {
		return 0, fromStatusError(err)
	}
	return resp.Quantity, nil
}

func (w *WarehouseClient) Buy(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	c, err := w.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := c.Buy(ctx, tradeToProto(req))
	if err != nil {
		return 0, fromStatusError(err)
	}
	return protoToStatus(resp.Status), nil
}

func (w *WarehouseClient) Sell(ctx context.Context, req market.TradeRequest) (market.Status, error) {
	c, err := w.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := c.Sell(ctx, tradeToProto(req))
	if err != nil {
		return 0, fromStatusError(err)
	}
	return protoToStatus(resp.Status), nil
}

// WarehouseNode hosts the warehouse service.
type WarehouseNode struct {
	listenAddr string
	store      storage.Store
	grpcServer *grpc.Server
	health     *health.Server
}

// NewWarehouseNode creates a warehouse node serving store.
func NewWarehouseNode(listenAddr string, store storage.Store) *WarehouseNode {
	w := &WarehouseNode{
		listenAddr: listenAddr,
		store:      store,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}
	marketpb.RegisterWarehouseServer(w.grpcServer, NewWarehouseServer(store))
	healthpb.RegisterHealthServer(w.grpcServer, w.health)
	w.health.SetServingStatus(marketpb.Warehouse_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return w
}

// Start listens on the configured address and serves until Stop.
func (w *WarehouseNode) Start() error {
	lis, err := net.Listen("tcp", w.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.listenAddr, err)
	}
	return w.Serve(lis)
}

// Serve serves on lis until Stop.
func (w *WarehouseNode) Serve(lis net.Listener) error {
	log.Printf("[warehouse] Starting warehouse on %s", lis.Addr())
	if err := w.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the warehouse.
func (w *WarehouseNode) Stop() {
	log.Printf("[warehouse] Stopping warehouse")
	w.health.Shutdown()
	w.grpcServer.GracefulStop()
}

// OpenStore opens the inventory store described by cfg: MongoDB when a URI
// is configured, the inventory file otherwise. The returned function
// releases the persister.
func OpenStore(ctx context.Context, cfg config.Config) (*storage.InventoryStore, func(context.Context) error, error) {
	if cfg.MongoURI != "" {
		p, err := storage.NewMongoPersister(ctx, cfg.MongoURI, "", "")
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.Open(ctx, p, cfg.ResetInventory)
		if err != nil {
			_ = p.Close(ctx)
			return nil, nil, err
		}
		log.Printf("[warehouse] Inventory stored in MongoDB: reset=%t", cfg.ResetInventory)
		return store, p.Close, nil
	}

	store, err := storage.Open(ctx, storage.NewFilePersister(cfg.InventoryFile), cfg.ResetInventory)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[warehouse] Inventory stored in %s: reset=%t", cfg.InventoryFile, cfg.ResetInventory)
	return store, func(context.Context) error { return nil }, nil
}
