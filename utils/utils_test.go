package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/fakemotor/logging"
)

func TestGuard(t *testing.T) {
	cleaned := false
	func() {
		guard := NewGuard(func() { cleaned = true })
		defer guard.OnFail()
	}()
	test.That(t, cleaned, test.ShouldBeTrue)

	cleaned = false
	func() {
		guard := NewGuard(func() { cleaned = true })
		defer guard.OnFail()
		guard.Success()
	}()
	test.That(t, cleaned, test.ShouldBeFalse)
}

func TestAssertType(t *testing.T) {
	f, err := AssertType[float64](interface{}(2.5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, 2.5)

	_, err = AssertType[float64]("2.5")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected float64 but got string")
}

func TestStoppableWorkers(t *testing.T) {
	var count atomic.Int32
	workers := NewStoppableWorkers(func(ctx context.Context) {
		count.Inc()
		<-ctx.Done()
	})
	workers.AddWorkers(func(ctx context.Context) {
		count.Inc()
		<-ctx.Done()
	})
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		test.That(tb, count.Load(), test.ShouldEqual, 2)
	})

	workers.Stop()
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)
	workers.Stop()

	// Added after Stop, never started.
	workers.AddWorkers(func(ctx context.Context) { count.Inc() })
	test.That(t, count.Load(), test.ShouldEqual, 2)
}

func TestStoppableWorkerWithTicker(t *testing.T) {
	clk := clock.NewMock()
	var ticks atomic.Int32
	workers := NewStoppableWorkerWithTicker(clk, 10*time.Millisecond, func(context.Context) {
		ticks.Inc()
	})
	defer workers.Stop()

	for i := 1; i <= 3; i++ {
		clk.Add(10 * time.Millisecond)
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			test.That(tb, ticks.Load(), test.ShouldEqual, i)
		})
	}
}

func TestThrottledLogger(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	throttled := NewThrottledLogger(logger, time.Hour, 2)

	for i := 0; i < 5; i++ {
		throttled.Warnw("bad command", "i", i)
	}
	test.That(t, observed.FilterMessage("bad command").Len(), test.ShouldEqual, 2)
}
