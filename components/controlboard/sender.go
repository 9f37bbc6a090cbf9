package controlboard

import (
	"context"
	"time"

	goutils "go.viam.com/utils"
	"go.viam.com/utils/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"go.viam.com/fakemotor/logging"
)

type command struct {
	axis  int
	speed float64
}

// commandStream is one command stream and the cancel func of its own context.
type commandStream struct {
	grpc.ClientStream
	cancel context.CancelFunc
}

// commandSender forwards queued velocity commands to the server in order.
type commandSender struct {
	conn         rpc.ClientConn
	commands     chan command
	flushTimeout time.Duration
	logger       logging.Logger

	// Streams derive from streamCtx rather than the worker context so that they outlive the worker
	// long enough to flush.
	streamCtx    context.Context
	streamCancel context.CancelFunc
}

func newCommandSender(conn rpc.ClientConn, queue int, flushTimeout time.Duration, logger logging.Logger) *commandSender {
	streamCtx, streamCancel := context.WithCancel(context.Background())
	return &commandSender{
		conn:         conn,
		commands:     make(chan command, queue),
		flushTimeout: flushTimeout,
		logger:       logger,
		streamCtx:    streamCtx,
		streamCancel: streamCancel,
	}
}

func (cs *commandSender) open() (*commandStream, error) {
	ctx, cancel := context.WithCancel(cs.streamCtx)
	stream, err := cs.conn.NewStream(ctx, &commandStreamDesc, streamCommandsMethod)
	if err != nil {
		cancel()
		return nil, err
	}
	return &commandStream{ClientStream: stream, cancel: cancel}, nil
}

// run sends commands until ctx is done and then flushes the queue.
func (cs *commandSender) run(ctx context.Context, stream *commandStream) {
	defer cs.streamCancel()
	for {
		select {
		case <-ctx.Done():
			cs.flush(stream)
			return
		case cmd := <-cs.commands:
			stream = cs.send(ctx, stream, cmd)
		}
	}
}

// send forwards cmd, re-opening the stream first if it is broken. A command whose send fails is
// dropped along with its stream. It returns the stream to use next, nil if that one broke.
func (cs *commandSender) send(ctx context.Context, stream *commandStream, cmd command) *commandStream {
	for stream == nil {
		var err error
		if stream, err = cs.open(); err != nil {
			cs.logger.Debugw("failed to reopen command stream", "error", err)
			if !goutils.SelectContextOrWait(ctx, reconnectBackoff) {
				return nil
			}
		}
	}
	if err := stream.SendMsg(commandToProto(cmd.axis, cmd.speed)); err != nil {
		cs.logger.Warnw("dropping velocity command", "axis", cmd.axis, "speed", cmd.speed, "error", err)
		stream.cancel()
		return nil
	}
	return stream
}

// flush sends what is still queued, half-closes the stream and waits for the server to confirm it
// read everything. It gives up after flushTimeout.
func (cs *commandSender) flush(stream *commandStream) {
	timer := time.AfterFunc(cs.flushTimeout, cs.streamCancel)
	defer timer.Stop()
	defer func() {
		if stream != nil {
			stream.cancel()
		}
	}()

	if stream == nil {
		if len(cs.commands) == 0 {
			return
		}
		var err error
		if stream, err = cs.open(); err != nil {
			cs.logger.Warnw("dropping queued velocity commands", "count", len(cs.commands), "error", err)
			return
		}
	}
	for {
		select {
		case cmd := <-cs.commands:
			if err := stream.SendMsg(commandToProto(cmd.axis, cmd.speed)); err != nil {
				cs.logger.Warnw("dropping queued velocity commands", "count", len(cs.commands)+1, "error", err)
				return
			}
		default:
			if err := stream.CloseSend(); err != nil {
				cs.logger.Debugw("failed to close command stream", "error", err)
				return
			}
			if err := stream.RecvMsg(&emptypb.Empty{}); err != nil {
				cs.logger.Debugw("server did not confirm the command stream", "error", err)
			}
			return
		}
	}
}
