package node

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// peerServicePrefix matches the methods of the Peer service. Health checks
// keep answering after a crash so callers can see NOT_SERVING.
const peerServicePrefix = "/tradingpost.Peer/"

// crashGuard rejects every Peer RPC with codes.Unavailable once crashed
// reports true.
func crashGuard(id int32, crashed func() bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if crashed() && strings.HasPrefix(info.FullMethod, peerServicePrefix) {
			return nil, status.Errorf(codes.Unavailable, "peer %d crashed", id)
		}
		return handler(ctx, req)
	}
}
