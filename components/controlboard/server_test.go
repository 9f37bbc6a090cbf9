package controlboard

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/nameservice"
)

func newTestDirectory(t *testing.T) *nameservice.Directory {
	t.Helper()
	names, err := nameservice.NewDirectory()
	test.That(t, err, test.ShouldBeNil)
	return names
}

// openMockServer opens a server whose integrator only ticks when the returned clock is advanced.
func openMockServer(t *testing.T, cfg ServerConfig) (*Server, *clock.Mock, *nameservice.Directory) {
	t.Helper()
	names := newTestDirectory(t)
	clk := clock.NewMock()
	s := NewServer(logging.NewTestLogger(t), names, WithClock(clk))
	if cfg.DiagnosticsIntervalSec == 0 {
		cfg.DiagnosticsIntervalSec = -1
	}
	test.That(t, s.Open(context.Background(), cfg), test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, s.Close(context.Background()), test.ShouldBeNil)
	})
	return s, clk, names
}

// tick advances clk by one period and waits until the integrator has handled it.
func tick(t *testing.T, s *Server, clk *clock.Mock, period time.Duration) {
	t.Helper()
	st, err := s.Status()
	test.That(t, err, test.ShouldBeNil)
	clk.Add(period)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		now, err := s.Status()
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, now.Ticks, test.ShouldEqual, st.Ticks+1)
	})
}

func serverPositions(t *testing.T, s *Server) []float64 {
	t.Helper()
	r, err := s.get()
	test.That(t, err, test.ShouldBeNil)
	return r.store.snapshot(time.Time{}).Positions
}

func TestServerDefaults(t *testing.T) {
	s, _, names := openMockServer(t, ServerConfig{})
	ctx := context.Background()

	axes, err := s.Axes(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, axes, test.ShouldEqual, DefaultAxes)

	for axis := 0; axis < axes; axis++ {
		lim, err := s.Limits(ctx, axis)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, lim, test.ShouldResemble, AxisLimits{Min: -DefaultLimit, Max: DefaultLimit})
	}

	addr, err := s.Address()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names.Names(), test.ShouldResemble, []string{
		"/fakeyServer/cmd:i",
		"/fakeyServer/rpc",
		"/fakeyServer/state:o",
	})
	for _, name := range names.Names() {
		resolved, err := names.Resolve(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, resolved, test.ShouldEqual, addr)
	}
}

func TestServerLimitsConstant(t *testing.T) {
	limits := []AxisLimits{{Min: -10, Max: 10}, {Min: 0, Max: 90}}
	s, clk, _ := openMockServer(t, ServerConfig{Axes: 2, Limits: limits, PeriodMs: 5})
	ctx := context.Background()

	test.That(t, s.VelocityMove(ctx, 0, 1000), test.ShouldBeNil)
	for i := 0; i < 3; i++ {
		tick(t, s, clk, 5*time.Millisecond)
	}
	test.That(t, s.SetLimits(ctx, 0, AxisLimits{Min: -1, Max: 1}), test.ShouldBeError)

	for axis, want := range limits {
		lim, err := s.Limits(ctx, axis)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, lim, test.ShouldResemble, want)
	}
	_, err := s.Limits(ctx, 2)
	test.That(t, errors.Is(err, ErrInvalidAxis), test.ShouldBeTrue)
}

func TestServerConvergence(t *testing.T) {
	const period = 10 * time.Millisecond
	s, clk, _ := openMockServer(t, ServerConfig{PeriodMs: 10})
	ctx := context.Background()

	// move axis 0 away from zero first so the initial position is not trivial
	test.That(t, s.VelocityMove(ctx, 0, 50), test.ShouldBeNil)
	tick(t, s, clk, period)
	initial := serverPositions(t, s)
	test.That(t, initial[0], test.ShouldAlmostEqual, 0.5)

	test.That(t, s.VelocityMove(ctx, 0, -20), test.ShouldBeNil)
	test.That(t, s.VelocityMove(ctx, 2, 7), test.ShouldBeNil)
	for k := 1; k <= 10; k++ {
		tick(t, s, clk, period)
		pos := serverPositions(t, s)
		test.That(t, pos[0], test.ShouldAlmostEqual, initial[0]-20*float64(k)*period.Seconds(), 1e-9)
		test.That(t, pos[1], test.ShouldEqual, 0)
		test.That(t, pos[2], test.ShouldAlmostEqual, 7*float64(k)*period.Seconds(), 1e-9)
	}

	st, err := s.Status()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st.Seq, test.ShouldEqual, 11)
	test.That(t, st.Ticks, test.ShouldEqual, 11)
}

func TestServerStopIdempotent(t *testing.T) {
	const period = 10 * time.Millisecond
	s, clk, _ := openMockServer(t, ServerConfig{})
	ctx := context.Background()

	test.That(t, s.VelocityMove(ctx, 1, 100), test.ShouldBeNil)
	tick(t, s, clk, period)
	test.That(t, s.Stop(ctx, 1), test.ShouldBeNil)
	stopped := serverPositions(t, s)

	test.That(t, s.Stop(ctx, 1), test.ShouldBeNil)
	tick(t, s, clk, period)
	test.That(t, s.Stop(ctx, 1), test.ShouldBeNil)
	tick(t, s, clk, period)
	test.That(t, serverPositions(t, s), test.ShouldResemble, stopped)

	err := s.Stop(ctx, 3)
	test.That(t, errors.Is(err, ErrInvalidAxis), test.ShouldBeTrue)
}

func TestServerVelocityMoveNotFinite(t *testing.T) {
	const period = 10 * time.Millisecond
	s, clk, _ := openMockServer(t, ServerConfig{})
	ctx := context.Background()

	test.That(t, s.VelocityMove(ctx, 0, 10), test.ShouldBeNil)
	test.That(t, s.VelocityMove(ctx, 0, math.NaN()), test.ShouldNotBeNil)
	test.That(t, s.VelocityMove(ctx, 0, math.Inf(-1)), test.ShouldNotBeNil)
	tick(t, s, clk, period)
	test.That(t, serverPositions(t, s)[0], test.ShouldAlmostEqual, 0.1)
}

func TestServerUnsupported(t *testing.T) {
	s, _, _ := openMockServer(t, ServerConfig{})
	ctx := context.Background()

	_, err := s.Encoder(ctx, 0)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
	_, err = s.Encoders(ctx)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
	test.That(t, errors.Is(s.VelocityMoveAll(ctx, []float64{1, 2, 3}), ErrUnsupported), test.ShouldBeTrue)
	test.That(t, errors.Is(s.StopAll(ctx), ErrUnsupported), test.ShouldBeTrue)
	test.That(t, errors.Is(s.SetVelocityMode(ctx), ErrUnsupported), test.ShouldBeTrue)
	_, err = s.RefAcceleration(ctx, 0)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
}

func TestServerNotConfigured(t *testing.T) {
	ctx := context.Background()
	s := NewServer(logging.NewTestLogger(t), newTestDirectory(t))

	check := func(t *testing.T) {
		t.Helper()
		_, err := s.Axes(ctx)
		test.That(t, err, test.ShouldBeError, ErrNotConfigured)
		_, err = s.Limits(ctx, 0)
		test.That(t, err, test.ShouldBeError, ErrNotConfigured)
		test.That(t, s.VelocityMove(ctx, 0, 1), test.ShouldBeError, ErrNotConfigured)
		test.That(t, s.SetRefAcceleration(ctx, 0, 1), test.ShouldBeError, ErrNotConfigured)
		test.That(t, s.Stop(ctx, 0), test.ShouldBeError, ErrNotConfigured)
		_, err = s.Status()
		test.That(t, err, test.ShouldBeError, ErrNotConfigured)

		_, err = s.Encoder(ctx, 0)
		test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
		test.That(t, errors.Is(s.StopAll(ctx), ErrUnsupported), test.ShouldBeTrue)
	}
	check(t)

	t.Run("bad config leaves it unconfigured", func(t *testing.T) {
		err := s.Open(ctx, ServerConfig{Axes: 2, Limits: []AxisLimits{{Min: 1, Max: 0}, {}}})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "min 1 is greater than max 0")

		err = s.Open(ctx, ServerConfig{Local: "noslash"})
		test.That(t, err, test.ShouldNotBeNil)
		check(t)
	})

	t.Run("name conflict leaves it unconfigured", func(t *testing.T) {
		names, err := nameservice.NewDirectory("/taken/rpc=localhost:1")
		test.That(t, err, test.ShouldBeNil)
		s := NewServer(logging.NewTestLogger(t), names)
		err = s.Open(ctx, ServerConfig{Local: "/taken", DiagnosticsIntervalSec: -1})
		test.That(t, err, test.ShouldNotBeNil)
		_, err = s.Axes(ctx)
		test.That(t, err, test.ShouldBeError, ErrNotConfigured)
		// names registered before the failure are released
		test.That(t, names.Names(), test.ShouldResemble, []string{"/taken/rpc"})
	})

	t.Run("closed server is unconfigured", func(t *testing.T) {
		test.That(t, s.Open(ctx, ServerConfig{DiagnosticsIntervalSec: -1}), test.ShouldBeNil)
		axes, err := s.Axes(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, axes, test.ShouldEqual, DefaultAxes)

		test.That(t, s.Close(ctx), test.ShouldBeNil)
		test.That(t, s.Close(ctx), test.ShouldBeNil)
		check(t)
	})
}

func TestServerOpenTwice(t *testing.T) {
	s, _, _ := openMockServer(t, ServerConfig{})
	err := s.Open(context.Background(), ServerConfig{})
	test.That(t, err, test.ShouldBeError, "control board server is already open")
}

func TestServerDiagnostics(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	s := NewServer(logger, newTestDirectory(t), WithClock(clock.NewMock()))
	test.That(t, s.Open(context.Background(), ServerConfig{DiagnosticsIntervalSec: 1}), test.ShouldBeNil)
	defer func() {
		test.That(t, s.Close(context.Background()), test.ShouldBeNil)
	}()

	// the first run is one interval after open
	testutils.WaitForAssertionWithSleep(t, 100*time.Millisecond, 50, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("status").Len(), test.ShouldBeGreaterThan, 0)
	})
	entry := logs.FilterMessage("status").All()[0]
	test.That(t, entry.ContextMap()["subscribers"], test.ShouldEqual, int64(0))
}
