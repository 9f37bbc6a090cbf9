package grpc

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestEnsureTimeoutUnaryServerInterceptor(t *testing.T) {
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		deadline, ok := ctx.Deadline()
		test.That(t, ok, test.ShouldBeTrue)
		return time.Until(deadline), nil
	}

	left, err := EnsureTimeoutUnaryServerInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldBeGreaterThan, DefaultMethodTimeout-time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	left, err = EnsureTimeoutUnaryServerInterceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldBeLessThanOrEqualTo, time.Second)
}

func TestPeerRoundTrip(t *testing.T) {
	pi := &PeerInterceptors{Peer: Peer{Name: "/fakeyClient/rpc", Session: "abc"}}

	var outgoing metadata.MD
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn,
		opts ...grpc.CallOption,
	) error {
		outgoing, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	test.That(t, pi.UnaryClientInterceptor(context.Background(), "/m", nil, nil, nil, invoker), test.ShouldBeNil)

	serverCtx := metadata.NewIncomingContext(context.Background(), outgoing)
	_, err := PeerUnaryServerInterceptor(serverCtx, nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			p, ok := GetPeer(ctx)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, p, test.ShouldResemble, pi.Peer)
			return nil, nil
		})
	test.That(t, err, test.ShouldBeNil)

	_, ok := GetPeer(context.Background())
	test.That(t, ok, test.ShouldBeFalse)
}
