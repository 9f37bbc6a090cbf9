package controlboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils/rpc"
	"google.golang.org/protobuf/types/known/structpb"

	fmgrpc "go.viam.com/fakemotor/grpc"
	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/nameservice"
	"go.viam.com/fakemotor/utils"
)

// Client is a ControlBoard backed by a remote Server. Encoder reads are served from a local copy of
// the server's telemetry; velocity commands are streamed without acknowledgement.
type Client struct {
	Unsupported

	logger  logging.Logger
	names   *nameservice.Directory
	session string

	// lifecycle serializes Open and Close.
	lifecycle sync.Mutex
	running   atomic.Pointer[clientRunning]
}

type clientRunning struct {
	cfg   ClientConfig
	axes  int
	cache *cache

	stateConn   rpc.ClientConn
	commandConn rpc.ClientConn
	rpcConn     rpc.ClientConn

	sender  *commandSender
	workers utils.StoppableWorkers

	// callMu is held for reading by every in-flight request and for writing by Close.
	callMu sync.RWMutex
}

// NewClient returns an unconfigured client that resolves servers through `names`.
func NewClient(logger logging.Logger, names *nameservice.Directory) *Client {
	return &Client{
		logger:  logger,
		names:   names,
		session: uuid.NewString(),
	}
}

// Open connects the client's endpoints to the server named cfg.Remote. It fails if any of the
// three connections cannot be made or the server does not answer.
func (c *Client) Open(ctx context.Context, cfg ClientConfig) (err error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.running.Load() != nil {
		return errors.New("control board client is already open")
	}
	if err := cfg.Validate("client"); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	r := &clientRunning{
		cfg:     cfg,
		cache:   newCache(),
		workers: utils.NewStoppableWorkers(),
	}
	guard := utils.NewGuard(func() {
		err = multierr.Combine(err, r.shutdown())
	})
	defer guard.OnFail()

	if err := c.connect(ctx, r); err != nil {
		return err
	}

	stateStream, err := openStateStream(r.workers.Context(), r.stateConn)
	if err != nil {
		return errors.Wrap(err, "opening state stream")
	}
	r.sender = newCommandSender(r.commandConn, cfg.CommandQueue, cfg.requestTimeout(), c.logger.Sublogger("command"))
	cmdStream, err := r.sender.open()
	if err != nil {
		return errors.Wrap(err, "opening command stream")
	}

	reply, err := r.request(ctx, Request{Vocab: VocabGetAxes})
	if err != nil {
		return errors.Wrap(err, "querying axes")
	}
	r.axes = reply.Axes

	r.workers.AddWorkers(
		func(ctx context.Context) {
			subscribe(ctx, r.stateConn, stateStream, r.cache, c.logger.Sublogger("state"))
		},
		func(ctx context.Context) {
			r.sender.run(ctx, cmdStream)
		},
	)

	c.running.Store(r)
	guard.Success()
	c.logger.Infow("control board client open",
		"local", cfg.Local, "remote", cfg.Remote, "axes", r.axes, "session", c.session)
	return nil
}

// connect dials one connection per remote endpoint.
func (c *Client) connect(ctx context.Context, r *clientRunning) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.connectTimeout())
	defer cancel()

	remoteState, remoteCommand, remoteRPC := ServerEndpoints(r.cfg.Remote)
	localState, localCommand, localRPC := ClientEndpoints(r.cfg.Local)
	for _, link := range []struct {
		local, remote string
		conn          *rpc.ClientConn
	}{
		{localState, remoteState, &r.stateConn},
		{localCommand, remoteCommand, &r.commandConn},
		{localRPC, remoteRPC, &r.rpcConn},
	} {
		addr, err := c.names.Resolve(link.remote)
		if err != nil {
			return err
		}
		peer := &fmgrpc.PeerInterceptors{Peer: fmgrpc.Peer{Name: link.local, Session: c.session}}
		conn, err := fmgrpc.Dial(ctx, addr, c.logger.Sublogger("networking"),
			rpc.WithUnaryClientInterceptor(peer.UnaryClientInterceptor),
			rpc.WithStreamClientInterceptor(peer.StreamClientInterceptor),
		)
		if err != nil {
			return errors.Wrapf(err, "connecting %s to %s at %s", link.local, link.remote, addr)
		}
		*link.conn = conn
	}
	return nil
}

// request performs one synchronous call. It fails early once Close has started.
func (r *clientRunning) request(ctx context.Context, req Request) (Reply, error) {
	r.callMu.RLock()
	defer r.callMu.RUnlock()

	closeCtx := r.workers.Context()
	if closeCtx.Err() != nil {
		return Reply{}, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.requestTimeout())
	defer cancel()
	stop := context.AfterFunc(closeCtx, cancel)
	defer stop()

	in, err := req.toProto()
	if err != nil {
		return Reply{}, err
	}
	out := new(structpb.Struct)
	if err := r.rpcConn.Invoke(ctx, requestMethod, in, out); err != nil {
		if closeCtx.Err() != nil {
			return Reply{}, errors.Wrapf(closeCtx.Err(), "%s interrupted by close", req.Vocab)
		}
		return Reply{}, errors.Wrapf(err, "%s", req.Vocab)
	}
	reply, err := replyFromProto(out)
	if err != nil {
		return Reply{}, errors.Wrapf(err, "decoding %s reply", req.Vocab)
	}
	if !reply.Ack {
		if reply.Code == codeInvalidAxis {
			return reply, errors.Wrap(ErrInvalidAxis, reply.Error)
		}
		return reply, errors.Wrapf(ErrRejected, "%s: %s", reply.Code, reply.Error)
	}
	return reply, nil
}

// shutdown cancels the close context, waits for the workers, which flush queued commands, and for
// in-flight requests, and closes every connection that was made.
func (r *clientRunning) shutdown() error {
	r.workers.Stop()
	if r.sender != nil {
		r.sender.streamCancel()
	}
	r.callMu.Lock()
	defer r.callMu.Unlock()

	var err error
	for _, conn := range []rpc.ClientConn{r.stateConn, r.commandConn, r.rpcConn} {
		if conn != nil {
			err = multierr.Append(err, conn.Close())
		}
	}
	return err
}

// Close disconnects from the server. Queued velocity commands are flushed first, bounded by the
// request timeout; in-flight requests fail with a context error. Closing a closed client is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	r := c.running.Swap(nil)
	if r == nil {
		return nil
	}
	err := r.shutdown()
	c.logger.Infow("control board client closed", "local", r.cfg.Local)
	return err
}

func (c *Client) get() (*clientRunning, error) {
	r := c.running.Load()
	if r == nil {
		return nil, ErrNotConfigured
	}
	return r, nil
}

func (r *clientRunning) checkAxis(axis int) error {
	if axis < 0 || axis >= r.axes {
		return newInvalidAxisError(axis, r.axes)
	}
	return nil
}

// Axes asks the server for its number of axes.
func (c *Client) Axes(ctx context.Context) (int, error) {
	r, err := c.get()
	if err != nil {
		return 0, err
	}
	reply, err := r.request(ctx, Request{Vocab: VocabGetAxes})
	if err != nil {
		return 0, err
	}
	return reply.Axes, nil
}

// Limits asks the server for the limits of one axis.
func (c *Client) Limits(ctx context.Context, axis int) (AxisLimits, error) {
	r, err := c.get()
	if err != nil {
		return AxisLimits{}, err
	}
	reply, err := r.request(ctx, Request{Vocab: VocabGetLimits, Axis: axis})
	if err != nil {
		return AxisLimits{}, err
	}
	return AxisLimits{Min: reply.Min, Max: reply.Max}, nil
}

// Encoders returns the latest received positions. After SetRefAcceleration or Stop succeeded it
// waits for a frame produced after the server handled them.
func (c *Client) Encoders(ctx context.Context) ([]float64, error) {
	r, err := c.get()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.requestTimeout())
	defer cancel()
	stop := context.AfterFunc(r.workers.Context(), cancel)
	defer stop()
	return r.cache.read(ctx)
}

// VelocityMove queues a velocity command. It returns once the command is queued, not when the
// server applied it.
func (c *Client) VelocityMove(ctx context.Context, axis int, speed float64) error {
	r, err := c.get()
	if err != nil {
		return err
	}
	if err := r.checkAxis(axis); err != nil {
		return err
	}
	select {
	case r.sender.commands <- command{axis: axis, speed: speed}:
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "%d commands pending", cap(r.sender.commands))
	}
}

// SetRefAcceleration sets the reference acceleration of one axis on the server.
func (c *Client) SetRefAcceleration(ctx context.Context, axis int, acc float64) error {
	r, err := c.get()
	if err != nil {
		return err
	}
	reply, err := r.request(ctx, Request{Vocab: VocabSetRefAccel, Axis: axis, Value: acc})
	if err != nil {
		return err
	}
	r.cache.acknowledge(reply.Seq)
	return nil
}

// Stop zeroes the velocity of one axis on the server.
func (c *Client) Stop(ctx context.Context, axis int) error {
	r, err := c.get()
	if err != nil {
		return err
	}
	reply, err := r.request(ctx, Request{Vocab: VocabStop, Axis: axis})
	if err != nil {
		return err
	}
	r.cache.acknowledge(reply.Seq)
	return nil
}
