package controlboard

import (
	"testing"

	"go.viam.com/test"
)

func TestHubNewestFrameWins(t *testing.T) {
	h := newHub()
	sub, err := h.subscribe()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.subscribers(), test.ShouldEqual, 1)

	for seq := uint64(1); seq <= 3; seq++ {
		h.publish(JointState{Seq: seq})
	}
	frame := <-sub.frames
	test.That(t, frame.Seq, test.ShouldEqual, 3)
	test.That(t, h.skipped.Load(), test.ShouldEqual, 2)

	select {
	case frame := <-sub.frames:
		t.Fatalf("unexpected frame %d", frame.Seq)
	default:
	}

	h.unsubscribe(sub)
	test.That(t, h.subscribers(), test.ShouldEqual, 0)
	_, ok := <-sub.frames
	test.That(t, ok, test.ShouldBeFalse)
}

func TestHubLateSubscriberGetsLastFrame(t *testing.T) {
	h := newHub()
	h.publish(JointState{Seq: 7, Positions: []float64{1, 2}})

	sub, err := h.subscribe()
	test.That(t, err, test.ShouldBeNil)
	frame := <-sub.frames
	test.That(t, frame.Seq, test.ShouldEqual, 7)
	test.That(t, frame.Positions, test.ShouldResemble, []float64{1, 2})
}

func TestHubClose(t *testing.T) {
	h := newHub()
	sub, err := h.subscribe()
	test.That(t, err, test.ShouldBeNil)

	h.close()
	h.close()
	_, ok := <-sub.frames
	test.That(t, ok, test.ShouldBeFalse)

	// no panic on a closed hub
	h.publish(JointState{Seq: 1})
	h.unsubscribe(sub)

	_, err = h.subscribe()
	test.That(t, err, test.ShouldBeError, errHubClosed)
}
