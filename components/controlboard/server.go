package controlboard

import (
	"context"
	"net"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"go.viam.com/utils/rpc"

	fmgrpc "go.viam.com/fakemotor/grpc"
	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/nameservice"
	"go.viam.com/fakemotor/utils"
)

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithClock makes the integrator tick on clk instead of the wall clock. Tests pass a
// clock.NewMock() and advance it explicitly.
func WithClock(clk clock.Clock) ServerOption {
	return func(s *Server) {
		s.clock = clk
	}
}

// Server is the emulated device. It integrates velocity setpoints every period, publishes the
// resulting joint positions and serves commands and requests from clients.
type Server struct {
	Unsupported

	logger logging.Logger
	names  *nameservice.Directory
	clock  clock.Clock

	// lifecycle serializes Open and Close.
	lifecycle sync.Mutex
	running   atomic.Pointer[serverRunning]
}

// serverRunning holds everything created by Open. It is immutable once published in
// Server.running.
type serverRunning struct {
	cfg    ServerConfig
	logger logging.Logger
	clock  clock.Clock
	store  *store
	hub    *hub
	stats  *serverStats

	rpcServer  rpc.Server
	listener   net.Listener
	serveDone  chan struct{}
	tick       utils.StoppableWorkers
	scheduler  gocron.Scheduler
	names      *nameservice.Directory
	registered []string
}

// NewServer returns an unconfigured server. Endpoint names are registered in `names` on Open.
func NewServer(logger logging.Logger, names *nameservice.Directory, opts ...ServerOption) *Server {
	s := &Server{
		logger: logger,
		names:  names,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open configures the server, starts serving on cfg.Address and starts the integrator.
func (s *Server) Open(ctx context.Context, cfg ServerConfig) (err error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running.Load() != nil {
		return errors.New("control board server is already open")
	}
	if err := cfg.Validate("server"); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	r := &serverRunning{
		cfg:       cfg,
		logger:    s.logger,
		clock:     s.clock,
		store:     newStore(cfg.Limits),
		hub:       newHub(),
		stats:     &serverStats{},
		names:     s.names,
		serveDone: make(chan struct{}),
	}
	guard := utils.NewGuard(func() {
		err = multierr.Combine(err, r.shutdown())
	})
	defer guard.OnFail()

	if err := r.serve(ctx); err != nil {
		return err
	}
	if err := r.register(); err != nil {
		return err
	}
	if err := r.startDiagnostics(); err != nil {
		return err
	}
	r.tick = utils.NewStoppableWorkerWithTicker(r.clock, cfg.period(), r.step)

	s.running.Store(r)
	guard.Success()
	s.logger.Infow("control board server open",
		"local", cfg.Local, "address", r.listener.Addr().String(), "axes", cfg.Axes, "period", cfg.period())
	return nil
}

func (r *serverRunning) serve(ctx context.Context) error {
	rpcServer, err := fmgrpc.NewServer(r.logger.Sublogger("rpc"))
	if err != nil {
		close(r.serveDone)
		return err
	}
	r.rpcServer = rpcServer

	svc := &serviceServer{
		store:    r.store,
		hub:      r.hub,
		stats:    r.stats,
		logger:   r.logger,
		rejected: utils.NewThrottledLogger(r.logger.Sublogger("ingest"), DefaultDiagnosticsInterval, 5),
	}
	if err := rpcServer.RegisterServiceServer(ctx, &controlBoardServiceDesc, svc); err != nil {
		close(r.serveDone)
		return err
	}

	listener, err := net.Listen("tcp", r.cfg.Address)
	if err != nil {
		close(r.serveDone)
		return errors.Wrapf(err, "listening on %s", r.cfg.Address)
	}
	r.listener = listener

	goutils.PanicCapturingGo(func() {
		defer close(r.serveDone)
		if err := rpcServer.Serve(listener); err != nil {
			r.logger.Debugw("rpc server stopped serving", "error", err)
		}
	})
	return nil
}

func (r *serverRunning) register() error {
	addr := r.listener.Addr().String()
	state, command, rpcName := ServerEndpoints(r.cfg.Local)
	for _, name := range []string{state, command, rpcName} {
		if err := r.names.Register(name, addr); err != nil {
			return err
		}
		r.registered = append(r.registered, name)
	}
	return nil
}

// step is one integrator tick followed by publishing its result.
func (r *serverRunning) step(ctx context.Context) {
	frame := r.store.step(r.cfg.period(), r.clock.Now())
	r.hub.publish(frame)
	r.stats.ticks.Inc()
}

// shutdown releases what Open acquired, in order: integrator, diagnostics, subscriptions, rpc
// server, names. It tolerates a partially opened server.
func (r *serverRunning) shutdown() error {
	var err error
	if r.tick != nil {
		r.tick.Stop()
	}
	if r.scheduler != nil {
		err = multierr.Append(err, r.scheduler.Shutdown())
	}
	r.hub.close()
	if r.rpcServer != nil {
		err = multierr.Append(err, r.rpcServer.Stop())
	}
	<-r.serveDone
	for _, name := range r.registered {
		r.names.Unregister(name)
	}
	return err
}

// Close stops the integrator and then releases the network resources. Closing a closed server is a
// no-op.
func (s *Server) Close(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	r := s.running.Swap(nil)
	if r == nil {
		return nil
	}
	err := r.shutdown()
	s.logger.Infow("control board server closed", "local", r.cfg.Local)
	return err
}

func (s *Server) get() (*serverRunning, error) {
	r := s.running.Load()
	if r == nil {
		return nil, ErrNotConfigured
	}
	return r, nil
}

// Address is the address the server listens on.
func (s *Server) Address() (string, error) {
	r, err := s.get()
	if err != nil {
		return "", err
	}
	return r.listener.Addr().String(), nil
}

// Axes returns the number of axes.
func (s *Server) Axes(ctx context.Context) (int, error) {
	r, err := s.get()
	if err != nil {
		return 0, err
	}
	return r.store.axes(), nil
}

// Limits returns the configured limits of one axis.
func (s *Server) Limits(ctx context.Context, axis int) (AxisLimits, error) {
	r, err := s.get()
	if err != nil {
		return AxisLimits{}, err
	}
	return r.store.limit(axis)
}

// VelocityMove sets the velocity setpoint of one axis. The position starts changing with the next
// tick.
func (s *Server) VelocityMove(ctx context.Context, axis int, speed float64) error {
	r, err := s.get()
	if err != nil {
		return err
	}
	_, err = r.store.setVelocity(axis, speed)
	return err
}

// SetRefAcceleration stores the reference acceleration of one axis. It has no effect on the
// integration.
func (s *Server) SetRefAcceleration(ctx context.Context, axis int, acc float64) error {
	r, err := s.get()
	if err != nil {
		return err
	}
	_, err = r.store.setRefAcceleration(axis, acc)
	return err
}

// Stop zeroes the velocity setpoint of one axis.
func (s *Server) Stop(ctx context.Context, axis int) error {
	r, err := s.get()
	if err != nil {
		return err
	}
	_, err = r.store.stop(axis)
	return err
}
