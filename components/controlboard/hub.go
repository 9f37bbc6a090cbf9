package controlboard

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var errHubClosed = errors.New("telemetry hub closed")

// subscription is a one slot mailbox. A reader always finds the newest frame published since its
// last receive; older ones it did not get to are overwritten.
type subscription struct {
	frames chan JointState
}

// hub fans published frames out to subscribers without ever blocking the publisher.
type hub struct {
	mu      sync.Mutex
	subs    map[*subscription]struct{}
	last    *JointState
	closed  bool
	skipped atomic.Uint64
}

func newHub() *hub {
	return &hub{subs: map[*subscription]struct{}{}}
}

// subscribe registers a mailbox that already holds the most recent frame, if any.
func (h *hub) subscribe() (*subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHubClosed
	}
	sub := &subscription{frames: make(chan JointState, 1)}
	if h.last != nil {
		sub.frames <- *h.last
	}
	h.subs[sub] = struct{}{}
	return sub, nil
}

func (h *hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.frames)
	}
}

// publish hands frame to every subscriber. Frames are shared between subscribers and must not be
// mutated afterwards.
func (h *hub) publish(frame JointState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = &frame
	for sub := range h.subs {
		select {
		case <-sub.frames:
			h.skipped.Inc()
		default:
		}
		// Only publish sends and it holds mu, so the slot is free now.
		sub.frames <- frame
	}
}

func (h *hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close ends every subscription. Readers see their channel closed after draining it.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.frames)
	}
	h.subs = nil
}
