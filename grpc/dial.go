// Package grpc contains the dial and serve helpers and interceptors shared by the control board
// server and client.
package grpc

import (
	"context"
	"time"

	"go.viam.com/utils/rpc"

	"go.viam.com/fakemotor/logging"
)

// DefaultDialTimeout bounds Dial when the context has no deadline.
var DefaultDialTimeout = 5 * time.Second

// Dial connects to a plaintext gRPC server at `address`. The connection blocks until it is ready or
// the context is done. Debug directives of the calling context are forwarded on every call.
func Dial(ctx context.Context, address string, logger logging.Logger, opts ...rpc.DialOption) (rpc.ClientConn, error) {
	optsCopy := make([]rpc.DialOption, 0, len(opts)+4)
	optsCopy = append(optsCopy,
		rpc.WithInsecure(),
		rpc.WithUnaryClientInterceptor(EnsureTimeoutUnaryClientInterceptor),
		rpc.WithUnaryClientInterceptor(logging.UnaryClientInterceptor),
		rpc.WithStreamClientInterceptor(logging.StreamClientInterceptor),
	)
	optsCopy = append(optsCopy, opts...)

	if _, ok := ctx.Deadline(); !ok {
		timeoutCtx, timeoutCancel := context.WithTimeout(ctx, DefaultDialTimeout)
		ctx = timeoutCtx
		defer timeoutCancel()
	}
	return rpc.DialDirectGRPC(ctx, address, logger.AsZap(), optsCopy...)
}
