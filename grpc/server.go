package grpc

import (
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"go.viam.com/utils/rpc"

	"go.viam.com/fakemotor/logging"
)

// NewServer returns an unauthenticated rpc server whose handlers see default deadlines, the
// calling peer and debug directives.
func NewServer(logger logging.Logger, opts ...rpc.ServerOption) (rpc.Server, error) {
	unary := grpc_middleware.ChainUnaryServer(
		EnsureTimeoutUnaryServerInterceptor,
		PeerUnaryServerInterceptor,
		logging.UnaryServerInterceptor,
	)
	stream := grpc_middleware.ChainStreamServer(
		PeerStreamServerInterceptor,
		logging.StreamServerInterceptor,
	)

	optsCopy := make([]rpc.ServerOption, 0, len(opts)+3)
	optsCopy = append(optsCopy,
		rpc.WithUnauthenticated(),
		rpc.WithUnaryServerInterceptor(unary),
		rpc.WithStreamServerInterceptor(stream),
	)
	optsCopy = append(optsCopy, opts...)
	return rpc.NewServer(logger.AsZap(), optsCopy...)
}
