package controlboard

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"go.viam.com/utils/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"go.viam.com/fakemotor/logging"
)

// reconnectBackoff is how long the client workers wait before re-opening a failed stream.
var reconnectBackoff = 100 * time.Millisecond

// cache is the client's copy of the joint state. mu guards every field.
type cache struct {
	mu        sync.Mutex
	frame     JointState
	populated bool
	// fence is the highest sequence number acknowledged by a request. Reads wait for a newer frame.
	fence   uint64
	changed chan struct{}
}

func newCache() *cache {
	return &cache{changed: make(chan struct{})}
}

// update stores frame and wakes every waiting reader.
func (c *cache) update(frame JointState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.populated && frame.Seq < c.frame.Seq {
		// The server restarted; its old acknowledgements mean nothing anymore.
		c.fence = 0
	}
	c.frame = frame
	c.populated = true
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *cache) acknowledge(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.fence {
		c.fence = seq
	}
}

// read returns a copy of the cached positions once the cache holds a frame newer than the fence.
func (c *cache) read(ctx context.Context) ([]float64, error) {
	for {
		c.mu.Lock()
		populated, changed := c.populated, c.changed
		if populated && c.frame.Seq > c.fence {
			positions := append([]float64(nil), c.frame.Positions...)
			c.mu.Unlock()
			return positions, nil
		}
		c.mu.Unlock()
		if !populated {
			return nil, ErrNoTelemetry
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for telemetry newer than the last acknowledged request")
		case <-changed:
		}
	}
}

func openStateStream(ctx context.Context, conn rpc.ClientConn) (grpc.ClientStream, error) {
	stream, err := conn.NewStream(ctx, &stateStreamDesc, streamStateMethod)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

// subscribe copies frames from stream into cache, re-opening the stream until ctx is done.
func subscribe(ctx context.Context, conn rpc.ClientConn, stream grpc.ClientStream, c *cache, logger logging.Logger) {
	for {
		err := receiveFrames(stream, c)
		if ctx.Err() != nil {
			return
		}
		logger.Warnw("state stream failed, reconnecting", "error", err)
		for {
			if !goutils.SelectContextOrWait(ctx, reconnectBackoff) {
				return
			}
			if stream, err = openStateStream(ctx, conn); err == nil {
				logger.Infow("state stream reconnected")
				break
			}
			logger.Debugw("failed to reopen state stream", "error", err)
		}
	}
}

func receiveFrames(stream grpc.ClientStream, c *cache) error {
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("server ended the state stream")
			}
			return err
		}
		frame, err := frameFromProto(msg)
		if err != nil {
			return errors.Wrap(err, "decoding state frame")
		}
		c.update(frame)
	}
}
