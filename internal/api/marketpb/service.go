package marketpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Peer_Start_FullMethodName              = "/tradingpost.Peer/Start"
	Peer_Elect_FullMethodName              = "/tradingpost.Peer/Elect"
	Peer_Coordinator_FullMethodName        = "/tradingpost.Peer/Coordinator"
	Peer_Buy_FullMethodName                = "/tradingpost.Peer/Buy"
	Peer_Sell_FullMethodName               = "/tradingpost.Peer/Sell"
	Peer_UpdateCache_FullMethodName        = "/tradingpost.Peer/UpdateCache"
	Peer_SendHeartbeat_FullMethodName      = "/tradingpost.Peer/SendHeartbeat"
	Peer_RespondToHeartbeat_FullMethodName = "/tradingpost.Peer/RespondToHeartbeat"
	Peer_UpdateTrader_FullMethodName       = "/tradingpost.Peer/UpdateTrader"
	Peer_Crash_FullMethodName              = "/tradingpost.Peer/Crash"
	Peer_GetPeerId_FullMethodName          = "/tradingpost.Peer/GetPeerId"

	Warehouse_Lookup_FullMethodName = "/tradingpost.Warehouse/Lookup"
	Warehouse_Buy_FullMethodName    = "/tradingpost.Warehouse/Buy"
	Warehouse_Sell_FullMethodName   = "/tradingpost.Warehouse/Sell"
)

// invoke runs a unary call with the tradingpost codec.
func invoke[Resp any, PResp interface {
	*Resp
	Message
}](ctx context.Context, cc grpc.ClientConnInterface, method string, in Message, opts []grpc.CallOption) (PResp, error) {
	out := PResp(new(Resp))
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req any, PReq interface {
	*Req
	Message
}](fullMethod string, call func(srv any, ctx context.Context, in PReq) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PeerClient is the client API for the Peer service.
type PeerClient interface {
	Start(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	Elect(ctx context.Context, in *ElectRequest, opts ...grpc.CallOption) (*Empty, error)
	Coordinator(ctx context.Context, in *CoordinatorRequest, opts ...grpc.CallOption) (*Empty, error)
	Buy(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error)
	Sell(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error)
	UpdateCache(ctx context.Context, in *CacheUpdate, opts ...grpc.CallOption) (*Empty, error)
	SendHeartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Empty, error)
	RespondToHeartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Empty, error)
	UpdateTrader(ctx context.Context, in *UpdateTraderRequest, opts ...grpc.CallOption) (*Empty, error)
	Crash(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GetPeerId(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PeerIdResponse, error)
}

type peerClient struct {
	cc grpc.ClientConnInterface
}

func NewPeerClient(cc grpc.ClientConnInterface) PeerClient {
	return &peerClient{cc}
}

func (c *peerClient) Start(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_Start_FullMethodName, in, opts)
}

func (c *peerClient) Elect(ctx context.Context, in *ElectRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_Elect_FullMethodName, in, opts)
}

func (c *peerClient) Coordinator(ctx context.Context, in *CoordinatorRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_Coordinator_FullMethodName, in, opts)
}

func (c *peerClient) Buy(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error) {
	return invoke[TradeResponse](ctx, c.cc, Peer_Buy_FullMethodName, in, opts)
}

func (c *peerClient) Sell(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error) {
	return invoke[TradeResponse](ctx, c.cc, Peer_Sell_FullMethodName, in, opts)
}

func (c *peerClient) UpdateCache(ctx context.Context, in *CacheUpdate, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_UpdateCache_FullMethodName, in, opts)
}

func (c *peerClient) SendHeartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_SendHeartbeat_FullMethodName, in, opts)
}

func (c *peerClient) RespondToHeartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_RespondToHeartbeat_FullMethodName, in, opts)
}

func (c *peerClient) UpdateTrader(ctx context.Context, in *UpdateTraderRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_UpdateTrader_FullMethodName, in, opts)
}

func (c *peerClient) Crash(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, Peer_Crash_FullMethodName, in, opts)
}

func (c *peerClient) GetPeerId(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PeerIdResponse, error) {
	return invoke[PeerIdResponse](ctx, c.cc, Peer_GetPeerId_FullMethodName, in, opts)
}

// PeerServer is the server API for the Peer service.
// Implementations must embed UnimplementedPeerServer.
type PeerServer interface {
	Start(context.Context, *Empty) (*Empty, error)
	Elect(context.Context, *ElectRequest) (*Empty, error)
	Coordinator(context.Context, *CoordinatorRequest) (*Empty, error)
	Buy(context.Context, *TradeRequest) (*TradeResponse, error)
	Sell(context.Context, *TradeRequest) (*TradeResponse, error)
	UpdateCache(context.Context, *CacheUpdate) (*Empty, error)
	SendHeartbeat(context.Context, *HeartbeatRequest) (*Empty, error)
	RespondToHeartbeat(context.Context, *HeartbeatRequest) (*Empty, error)
	UpdateTrader(context.Context, *UpdateTraderRequest) (*Empty, error)
	Crash(context.Context, *Empty) (*Empty, error)
	GetPeerId(context.Context, *Empty) (*PeerIdResponse, error)
	mustEmbedUnimplementedPeerServer()
}

// UnimplementedPeerServer answers every method with codes.Unimplemented.
type UnimplementedPeerServer struct{}

func (UnimplementedPeerServer) Start(context.Context, *Empty) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Start not implemented")
}
func (UnimplementedPeerServer) Elect(context.Context, *ElectRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Elect not implemented")
}
func (UnimplementedPeerServer) Coordinator(context.Context, *CoordinatorRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Coordinator not implemented")
}
func (UnimplementedPeerServer) Buy(context.Context, *TradeRequest) (*TradeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Buy not implemented")
}
func (UnimplementedPeerServer) Sell(context.Context, *TradeRequest) (*TradeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Sell not implemented")
}
func (UnimplementedPeerServer) UpdateCache(context.Context, *CacheUpdate) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateCache not implemented")
}
func (UnimplementedPeerServer) SendHeartbeat(context.Context, *HeartbeatRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SendHeartbeat not implemented")
}
func (UnimplementedPeerServer) RespondToHeartbeat(context.Context, *HeartbeatRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RespondToHeartbeat not implemented")
}
func (UnimplementedPeerServer) UpdateTrader(context.Context, *UpdateTraderRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateTrader not implemented")
}
func (UnimplementedPeerServer) Crash(context.Context, *Empty) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Crash not implemented")
}
func (UnimplementedPeerServer) GetPeerId(context.Context, *Empty) (*PeerIdResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPeerId not implemented")
}
func (UnimplementedPeerServer) mustEmbedUnimplementedPeerServer() {}

func RegisterPeerServer(s grpc.ServiceRegistrar, srv PeerServer) {
	s.RegisterService(&Peer_ServiceDesc, srv)
}

// Peer_ServiceDesc is the grpc.ServiceDesc for the Peer service.
var Peer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tradingpost.Peer",
	HandlerType: (*PeerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler: unaryHandler[Empty](Peer_Start_FullMethodName, func(srv any, ctx context.Context, in *Empty) (any, error) {
				return srv.(PeerServer).Start(ctx, in)
			}),
		},
		{
			MethodName: "Elect",
			Handler: unaryHandler[ElectRequest](Peer_Elect_FullMethodName, func(srv any, ctx context.Context, in *ElectRequest) (any, error) {
				return srv.(PeerServer).Elect(ctx, in)
			}),
		},
		{
			MethodName: "Coordinator",
			Handler: unaryHandler[CoordinatorRequest](Peer_Coordinator_FullMethodName, func(srv any, ctx context.Context, in *CoordinatorRequest) (any, error) {
				return srv.(PeerServer).Coordinator(ctx, in)
			}),
		},
		{
			MethodName: "Buy",
			Handler: unaryHandler[TradeRequest](Peer_Buy_FullMethodName, func(srv any, ctx context.Context, in *TradeRequest) (any, error) {
				return srv.(PeerServer).Buy(ctx, in)
			}),
		},
		{
			MethodName: "Sell",
			Handler: unaryHandler[TradeRequest](Peer_Sell_FullMethodName, func(srv any, ctx context.Context, in *TradeRequest) (any, error) {
				return srv.(PeerServer).Sell(ctx, in)
			}),
		},
		{
			MethodName: "UpdateCache",
			Handler: unaryHandler[CacheUpdate](Peer_UpdateCache_FullMethodName, func(srv any, ctx context.Context, in *CacheUpdate) (any, error) {
				return srv.(PeerServer).UpdateCache(ctx, in)
			}),
		},
		{
			MethodName: "SendHeartbeat",
			Handler: unaryHandler[HeartbeatRequest](Peer_SendHeartbeat_FullMethodName, func(srv any, ctx context.Context, in *HeartbeatRequest) (any, error) {
				return srv.(PeerServer).SendHeartbeat(ctx, in)
			}),
		},
		{
			MethodName: "RespondToHeartbeat",
			Handler: unaryHandler[HeartbeatRequest](Peer_RespondToHeartbeat_FullMethodName, func(srv any, ctx context.Context, in *HeartbeatRequest) (any, error) {
				return srv.(PeerServer).RespondToHeartbeat(ctx, in)
			}),
		},
		{
			MethodName: "UpdateTrader",
			Handler: unaryHandler[UpdateTraderRequest](Peer_UpdateTrader_FullMethodName, func(srv any, ctx context.Context, in *UpdateTraderRequest) (any, error) {
				return srv.(PeerServer).UpdateTrader(ctx, in)
			}),
		},
		{
			MethodName: "Crash",
			Handler: unaryHandler[Empty](Peer_Crash_FullMethodName, func(srv any, ctx context.Context, in *Empty) (any, error) {
				return srv.(PeerServer).Crash(ctx, in)
			}),
		},
		{
			MethodName: "GetPeerId",
			Handler: unaryHandler[Empty](Peer_GetPeerId_FullMethodName, func(srv any, ctx context.Context, in *Empty) (any, error) {
				return srv.(PeerServer).GetPeerId(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradingpost.proto",
}

// WarehouseClient is the client API for the Warehouse service.
type WarehouseClient interface {
	Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error)
	Buy(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error)
	Sell(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error)
}

type warehouseClient struct {
	cc grpc.ClientConnInterface
}

func NewWarehouseClient(cc grpc.ClientConnInterface) WarehouseClient {
	return &warehouseClient{cc}
}

func (c *warehouseClient) Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	return invoke[LookupResponse](ctx, c.cc, Warehouse_Lookup_FullMethodName, in, opts)
}

func (c *warehouseClient) Buy(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error) {
	return invoke[TradeResponse](ctx, c.cc, Warehouse_Buy_FullMethodName, in, opts)
}

func (c *warehouseClient) Sell(ctx context.Context, in *TradeRequest, opts ...grpc.CallOption) (*TradeResponse, error) {
	return invoke[TradeResponse](ctx, c.cc, Warehouse_Sell_FullMethodName, in, opts)
}

// WarehouseServer is the server API for the Warehouse service.
// Implementations must embed UnimplementedWarehouseServer.
type WarehouseServer interface {
	Lookup(context.Context, *LookupRequest) (*LookupResponse, error)
	Buy(context.Context, *TradeRequest) (*TradeResponse, error)
	Sell(context.Context, *TradeRequest) (*TradeResponse, error)
	mustEmbedUnimplementedWarehouseServer()
}

// UnimplementedWarehouseServer answers every method with codes.Unimplemented.
type UnimplementedWarehouseServer struct{}

func (UnimplementedWarehouseServer) Lookup(context.Context, *LookupRequest) (*LookupResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Lookup not implemented")
}
func (UnimplementedWarehouseServer) Buy(context.Context, *TradeRequest) (*TradeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Buy not implemented")
}
func (UnimplementedWarehouseServer) Sell(context.Context, *TradeRequest) (*TradeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Sell not implemented")
}
func (UnimplementedWarehouseServer) mustEmbedUnimplementedWarehouseServer() {}

func RegisterWarehouseServer(s grpc.ServiceRegistrar, srv WarehouseServer) {
	s.RegisterService(&Warehouse_ServiceDesc, srv)
}

// Warehouse_ServiceDesc is the grpc.ServiceDesc for the Warehouse service.
var Warehouse_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tradingpost.Warehouse",
	HandlerType: (*WarehouseServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler: unaryHandler[LookupRequest](Warehouse_Lookup_FullMethodName, func(srv any, ctx context.Context, in *LookupRequest) (any, error) {
				return srv.(WarehouseServer).Lookup(ctx, in)
			}),
		},
		{
			MethodName: "Buy",
			Handler: unaryHandler[TradeRequest](Warehouse_Buy_FullMethodName, func(srv any, ctx context.Context, in *TradeRequest) (any, error) {
				return srv.(WarehouseServer).Buy(ctx, in)
			}),
		},
		{
			MethodName: "Sell",
			Handler: unaryHandler[TradeRequest](Warehouse_Sell_FullMethodName, func(srv any, ctx context.Context, in *TradeRequest) (any, error) {
				return srv.(WarehouseServer).Sell(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradingpost.proto",
}
