package node

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradingpost/internal/api/marketpb"
	"tradingpost/internal/market"
)

// errorDomain tags the ErrorInfo details this service attaches to errors.
const errorDomain = "tradingpost"

// Sentinels carried across the wire by ErrorInfo reason.
var sentinelReasons = []struct {
	err    error
	code   codes.Code
	reason string
}{
	{market.ErrInvalidElectionSize, codes.InvalidArgument, "INVALID_ELECTION_SIZE"},
	{market.ErrUnknownProduct, codes.InvalidArgument, "UNKNOWN_PRODUCT"},
	{market.ErrInvalidAmount, codes.InvalidArgument, "INVALID_AMOUNT"},
	{market.ErrUnknownPeer, codes.InvalidArgument, "UNKNOWN_PEER"},
	{market.ErrNoTrader, codes.FailedPrecondition, "NO_TRADER"},
	{market.ErrPeerUnreachable, codes.Unavailable, "PEER_UNREACHABLE"},
}

// protoToTrade converts a wire trade request to the internal form. Products
// are validated by the receiving side.
func protoToTrade(pb *marketpb.TradeRequest) market.TradeRequest {
	return market.TradeRequest{
		SequenceNumber: pb.SequenceNumber,
		SourcePeerID:   pb.SourcePeerId,
		Product:        market.Product(pb.Product),
		Amount:         pb.Amount,
	}
}

func tradeToProto(req market.TradeRequest) *marketpb.TradeRequest {
	return &marketpb.TradeRequest{
		SequenceNumber: req.SequenceNumber,
		SourcePeerId:   req.SourcePeerID,
		Product:        string(req.Product),
		Amount:         req.Amount,
	}
}

func protoToUpdate(pb *marketpb.CacheUpdate) market.CacheUpdate {
	return market.CacheUpdate{
		SequenceNumber: pb.SequenceNumber,
		SourcePeerID:   pb.SourcePeerId,
		Product:        market.Product(pb.Product),
		Delta:          pb.Delta,
	}
}

func updateToProto(u market.CacheUpdate) *marketpb.CacheUpdate {
	return &marketpb.CacheUpdate{
		SequenceNumber: u.SequenceNumber,
		SourcePeerId:   u.SourcePeerID,
		Product:        string(u.Product),
		Delta:          u.Delta,
	}
}

func statusToProto(s market.Status) marketpb.Status {
	switch s {
	case market.Successful:
		return marketpb.Status_SUCCESSFUL
	case market.NotInStock:
		return marketpb.Status_NOT_IN_STOCK
	case market.LowSequenceNumber:
		return marketpb.Status_LOW_SEQUENCE_NUMBER
	case market.NotATrader:
		return marketpb.Status_NOT_A_TRADER
	default:
		return marketpb.Status_ERROR_DURING_WRITE
	}
}

func protoToStatus(s marketpb.Status) market.Status {
	switch s {
	case marketpb.Status_SUCCESSFUL:
		return market.Successful
	case marketpb.Status_NOT_IN_STOCK:
		return market.NotInStock
	case marketpb.Status_LOW_SEQUENCE_NUMBER:
		return market.LowSequenceNumber
	case marketpb.Status_NOT_A_TRADER:
		return market.NotATrader
	default:
		return market.ErrorDuringWrite
	}
}

// toStatusError converts a handler error into a gRPC status error. Known
// sentinels keep their identity through an ErrorInfo detail.
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, s := range sentinelReasons {
		if !errors.Is(err, s.err) {
			continue
		}
		st, derr := status.New(s.code, err.Error()).WithDetails(&errdetails.ErrorInfo{
			Reason: s.reason,
			Domain: errorDomain,
		})
		if derr != nil {
			return status.Error(s.code, err.Error())
		}
		return st.Err()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatusError converts an RPC error back into the market sentinels. Any
// transport failure means the remote peer is unreachable.
func fromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", market.ErrPeerUnreachable, err)
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, s := range sentinelReasons {
			if s.reason == info.GetReason() {
				return fmt.Errorf("%w: %s", s.err, st.Message())
			}
		}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", market.ErrPeerUnreachable, st.Message())
	}
	return err
}
