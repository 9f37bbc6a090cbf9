package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// DefaultMethodTimeout is the context timeout applied to inbound and outbound unary calls that
// arrive without a deadline.
var DefaultMethodTimeout = 10 * time.Second

// EnsureTimeoutUnaryServerInterceptor sets a default timeout on the context if one is not already
// set. To be called as the first unary server interceptor.
func EnsureTimeoutUnaryServerInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (interface{}, error) {
	if _, deadlineSet := ctx.Deadline(); !deadlineSet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultMethodTimeout)
		defer cancel()
	}

	return handler(ctx, req)
}

// EnsureTimeoutUnaryClientInterceptor sets a default timeout on the context if one is not already
// set.
func EnsureTimeoutUnaryClientInterceptor(
	ctx context.Context,
	method string, req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if _, deadlineSet := ctx.Deadline(); !deadlineSet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultMethodTimeout)
		defer cancel()
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

const (
	peerNameMetadataKey    = "fm-peer"
	peerSessionMetadataKey = "fm-session"
)

// Peer identifies the client on the other end of a call.
type Peer struct {
	// Name is the client's local endpoint name, e.g. "/fakeyClient/rpc".
	Name string
	// Session is unique per client instance.
	Session string
}

type peerKeyType int

const peerKeyID = peerKeyType(iota)

// GetPeer returns the caller attached by the peer server interceptors, if any.
func GetPeer(ctx context.Context) (Peer, bool) {
	p, ok := ctx.Value(peerKeyID).(Peer)
	return p, ok
}

// PeerInterceptors attach a Peer to every outgoing call.
type PeerInterceptors struct {
	Peer Peer
}

func (pi *PeerInterceptors) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		peerNameMetadataKey, pi.Peer.Name,
		peerSessionMetadataKey, pi.Peer.Session)
}

// UnaryClientInterceptor adds the peer to outgoing unary calls.
func (pi *PeerInterceptors) UnaryClientInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(pi.outgoing(ctx), method, req, reply, cc, opts...)
}

// StreamClientInterceptor adds the peer to outgoing streams.
func (pi *PeerInterceptors) StreamClientInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(pi.outgoing(ctx), desc, cc, method, opts...)
}

func incomingPeer(ctx context.Context) context.Context {
	meta, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	names := meta.Get(peerNameMetadataKey)
	if len(names) != 1 {
		return ctx
	}
	p := Peer{Name: names[0]}
	if sessions := meta.Get(peerSessionMetadataKey); len(sessions) == 1 {
		p.Session = sessions[0]
	}
	return context.WithValue(ctx, peerKeyID, p)
}

// PeerUnaryServerInterceptor makes the caller available through GetPeer.
func PeerUnaryServerInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	return handler(incomingPeer(ctx), req)
}

type peerServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *peerServerStream) Context() context.Context {
	return s.ctx
}

// PeerStreamServerInterceptor makes the caller available through GetPeer on streams.
func PeerStreamServerInterceptor(
	srv interface{},
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	return handler(srv, &peerServerStream{ss, incomingPeer(ss.Context())})
}
