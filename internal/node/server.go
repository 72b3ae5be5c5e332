package node

import (
	"context"
	"log"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/peer"
)

// Server implements the Peer gRPC service on top of a peer.Peer.
type Server struct {
	marketpb.UnimplementedPeerServer
	peer  *peer.Peer
	crash func()
}

// NewServer creates a new gRPC server instance. crash is invoked by the
// Crash RPC.
func NewServer(p *peer.Peer, crash func()) *Server {
	return &Server{
		peer:  p,
		crash: crash,
	}
}

// Start resolves every peer of the directory and starts trading activity.
func (s *Server) Start(ctx context.Context, req *marketpb.Empty) (*marketpb.Empty, error) {
	log.Printf("[peer-%d] Start request", s.peer.ID())
	if err := s.peer.Start(ctx); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// Elect handles election messages.
func (s *Server) Elect(ctx context.Context, req *marketpb.ElectRequest) (*marketpb.Empty, error) {
	if err := s.peer.Elect(ctx, req.Tags, int(req.N)); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// Coordinator handles coordinator messages.
func (s *Server) Coordinator(ctx context.Context, req *marketpb.CoordinatorRequest) (*marketpb.Empty, error) {
	if err := s.peer.Coordinator(ctx, req.TraderIds, req.Tags); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// Buy handles buy requests.
func (s *Server) Buy(ctx context.Context, req *marketpb.TradeRequest) (*marketpb.TradeResponse, error) {
	st, err := s.peer.Buy(ctx, protoToTrade(req))
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.TradeResponse{Status: statusToProto(st)}, nil
}

// Sell handles sell requests.
func (s *Server) Sell(ctx context.Context, req *marketpb.TradeRequest) (*marketpb.TradeResponse, error) {
	st, err := s.peer.Sell(ctx, protoToTrade(req))
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.TradeResponse{Status: statusToProto(st)}, nil
}

// UpdateCache handles cache updates multicast by other traders.
func (s *Server) UpdateCache(ctx context.Context, req *marketpb.CacheUpdate) (*marketpb.Empty, error) {
	if err := s.peer.UpdateCache(ctx, protoToUpdate(req)); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// SendHeartbeat handles a partner's probe.
func (s *Server) SendHeartbeat(ctx context.Context, req *marketpb.HeartbeatRequest) (*marketpb.Empty, error) {
	if err := s.peer.SendHeartbeat(ctx, req.FromId); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// RespondToHeartbeat handles a partner's answer to our probe.
func (s *Server) RespondToHeartbeat(ctx context.Context, req *marketpb.HeartbeatRequest) (*marketpb.Empty, error) {
	if err := s.peer.RespondToHeartbeat(ctx, req.FromId); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// UpdateTrader handles failover notices.
func (s *Server) UpdateTrader(ctx context.Context, req *marketpb.UpdateTraderRequest) (*marketpb.Empty, error) {
	if err := s.peer.UpdateTrader(ctx, req.NewTraderId); err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.Empty{}, nil
}

// Crash puts the peer permanently into the crashed state.
func (s *Server) Crash(ctx context.Context, req *marketpb.Empty) (*marketpb.Empty, error) {
	log.Printf("[peer-%d] Crash request", s.peer.ID())
	s.crash()
	return &marketpb.Empty{}, nil
}

// GetPeerId returns the id of the hosted peer.
func (s *Server) GetPeerId(ctx context.Context, req *marketpb.Empty) (*marketpb.PeerIdResponse, error) {
	id, err := s.peer.PeerID(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &marketpb.PeerIdResponse{PeerId: id}, nil
}
