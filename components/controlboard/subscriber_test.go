package controlboard

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCacheEmpty(t *testing.T) {
	c := newCache()
	_, err := c.read(context.Background())
	test.That(t, err, test.ShouldBeError, ErrNoTelemetry)

	c.acknowledge(4)
	_, err = c.read(context.Background())
	test.That(t, err, test.ShouldBeError, ErrNoTelemetry)
}

func TestCacheReadCopies(t *testing.T) {
	c := newCache()
	c.update(JointState{Seq: 1, Positions: []float64{1, 2, 3}})

	positions, err := c.read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldResemble, []float64{1, 2, 3})

	positions[0] = 100
	positions, err = c.read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions[0], test.ShouldEqual, 1)
}

func TestCacheFence(t *testing.T) {
	c := newCache()
	c.update(JointState{Seq: 5, Positions: []float64{1}})
	c.acknowledge(5)
	// older acknowledgements never move the fence back
	c.acknowledge(3)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.read(ctx)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)

	done := make(chan []float64)
	go func() {
		positions, err := c.read(context.Background())
		if err != nil {
			close(done)
			return
		}
		done <- positions
	}()
	c.update(JointState{Seq: 5, Positions: []float64{1}})
	c.update(JointState{Seq: 6, Positions: []float64{2}})
	test.That(t, <-done, test.ShouldResemble, []float64{2})
}

func TestCacheServerRestart(t *testing.T) {
	c := newCache()
	c.update(JointState{Seq: 50, Positions: []float64{9}})
	c.acknowledge(60)

	// a restarted server counts from one again
	c.update(JointState{Seq: 1, Positions: []float64{0}})
	positions, err := c.read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldResemble, []float64{0})
}
