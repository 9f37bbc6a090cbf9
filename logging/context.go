package logging

import (
	"context"

	"go.viam.com/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type debugLogKeyType int

const debugLogKeyID = debugLogKeyType(iota)

// debugMetadataKey carries the debug log key across the wire.
const debugMetadataKey = "fm-debug"

// EnableDebugMode returns a new context with debug logging state attached. An empty `debugLogKey`
// generates a random value.
func EnableDebugMode(ctx context.Context, debugLogKey string) context.Context {
	if debugLogKey == "" {
		debugLogKey = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugLogKeyID, debugLogKey)
}

// IsDebugMode returns whether the input context has debug logging enabled.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the debug log key included when enabling the context for debug logging.
func GetName(ctx context.Context) string {
	if val, ok := ctx.Value(debugLogKeyID).(string); ok {
		return val
	}
	return ""
}

func outgoingDebugContext(ctx context.Context) context.Context {
	if !IsDebugMode(ctx) {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, debugMetadataKey, GetName(ctx))
}

func incomingDebugContext(ctx context.Context) context.Context {
	meta, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if values := meta.Get(debugMetadataKey); len(values) == 1 {
		return EnableDebugMode(ctx, values[0])
	}
	return ctx
}

// UnaryClientInterceptor forwards the debug directive of the calling context, if any, in the
// outgoing request's metadata.
func UnaryClientInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(outgoingDebugContext(ctx), method, req, reply, cc, opts...)
}

// StreamClientInterceptor is the streaming counterpart of UnaryClientInterceptor.
func StreamClientInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(outgoingDebugContext(ctx), desc, cc, method, opts...)
}

// UnaryServerInterceptor enables debug logging on the handler's context when the caller asked for
// it.
func UnaryServerInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	return handler(incomingDebugContext(ctx), req)
}

type debugServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *debugServerStream) Context() context.Context {
	return s.ctx
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(
	srv interface{},
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx := incomingDebugContext(ss.Context())
	if ctx == ss.Context() {
		return handler(srv, ss)
	}
	return handler(srv, &debugServerStream{ss, ctx})
}
