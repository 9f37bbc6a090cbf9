package controlboard

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	fmgrpc "go.viam.com/fakemotor/grpc"
	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/utils"
)

// serviceServer serves the three channels of one open Server.
type serviceServer struct {
	store    *store
	hub      *hub
	stats    *serverStats
	logger   logging.Logger
	rejected *utils.ThrottledLogger
}

func peerName(ctx context.Context) string {
	if p, ok := fmgrpc.GetPeer(ctx); ok {
		return p.Name
	}
	return "unknown"
}

// StreamState sends every frame the subscriber's mailbox yields until the client goes away or the
// server closes.
func (svc *serviceServer) StreamState(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	sub, err := svc.hub.subscribe()
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer svc.hub.unsubscribe(sub)
	svc.logger.CDebugw(ctx, "state subscriber connected", "peer", peerName(ctx))

	for {
		select {
		case <-ctx.Done():
			svc.logger.CDebugw(ctx, "state subscriber gone", "peer", peerName(ctx))
			return ctx.Err()
		case frame, ok := <-sub.frames:
			if !ok {
				return status.Error(codes.Unavailable, errHubClosed.Error())
			}
			msg, err := frameToProto(frame)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// StreamCommands applies [axis, value] velocity commands in arrival order. Bad commands are
// counted and dropped; the stream stays open.
func (svc *serviceServer) StreamCommands(stream grpc.ServerStream) error {
	ctx := stream.Context()
	peer := peerName(ctx)
	svc.logger.CDebugw(ctx, "command sender connected", "peer", peer)
	for {
		cmd := new(structpb.ListValue)
		if err := stream.RecvMsg(cmd); err != nil {
			if errors.Is(err, io.EOF) {
				svc.logger.CDebugw(ctx, "command sender done", "peer", peer)
				return stream.SendMsg(&emptypb.Empty{})
			}
			return err
		}

		axis, speed, err := commandFromProto(cmd)
		if err == nil {
			_, err = svc.store.setVelocity(axis, speed)
		}
		if err != nil {
			svc.stats.commandsDiscarded.Inc()
			svc.rejected.Warnw("discarding command", "peer", peer, "error", err)
			continue
		}
		svc.stats.commandsApplied.Inc()
	}
}

// Request answers one request. Invalid requests get a negative reply, not an rpc error.
func (svc *serviceServer) Request(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	svc.stats.requests.Inc()
	reply := svc.respond(in)
	if !reply.Ack {
		svc.stats.requestsRejected.Inc()
		svc.logger.CDebugw(ctx, "rejected request", "peer", peerName(ctx), "code", reply.Code, "error", reply.Error)
	}
	return reply.toProto()
}

func (svc *serviceServer) respond(in *structpb.Struct) Reply {
	req, err := requestFromProto(in)
	if err != nil {
		return nack(codeMalformed, err)
	}

	var seq uint64
	reply := Reply{Ack: true}
	switch req.Vocab {
	case VocabGetAxes:
		reply.Axes = svc.store.axes()
		seq = svc.store.lastSeq()
	case VocabGetLimits:
		var lim AxisLimits
		if lim, err = svc.store.limit(req.Axis); err == nil {
			reply.Min, reply.Max = lim.Min, lim.Max
			seq = svc.store.lastSeq()
		}
	case VocabSetRefAccel:
		seq, err = svc.store.setRefAcceleration(req.Axis, req.Value)
	case VocabStop:
		seq, err = svc.store.stop(req.Axis)
	default:
		return nack(codeUnknown, errors.Errorf("unknown request %q", req.Vocab))
	}
	if err != nil {
		return nack(codeInvalidAxis, err)
	}
	reply.Seq = seq
	return reply
}
