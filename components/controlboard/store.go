package controlboard

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// store is the server's authoritative joint state. mu guards every field except limits, which
// never change after newStore.
type store struct {
	limits []AxisLimits

	mu       sync.Mutex
	pos      []float64
	vel      []float64
	refAccel []float64
	seq      uint64
}

func newStore(limits []AxisLimits) *store {
	n := len(limits)
	return &store{
		limits:   append([]AxisLimits(nil), limits...),
		pos:      make([]float64, n),
		vel:      make([]float64, n),
		refAccel: make([]float64, n),
	}
}

func (s *store) axes() int {
	return len(s.limits)
}

func (s *store) checkAxis(axis int) error {
	if axis < 0 || axis >= len(s.limits) {
		return newInvalidAxisError(axis, len(s.limits))
	}
	return nil
}

func (s *store) limit(axis int) (AxisLimits, error) {
	if err := s.checkAxis(axis); err != nil {
		return AxisLimits{}, err
	}
	return s.limits[axis], nil
}

// setVelocity sets the setpoint of one axis and returns the sequence number of the last frame
// that does not reflect it. Non-finite speeds are rejected.
func (s *store) setVelocity(axis int, speed float64) (uint64, error) {
	if err := s.checkAxis(axis); err != nil {
		return 0, err
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, errors.Errorf("speed %v is not finite", speed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vel[axis] = speed
	return s.seq, nil
}

func (s *store) stop(axis int) (uint64, error) {
	return s.setVelocity(axis, 0)
}

func (s *store) setRefAcceleration(axis int, acc float64) (uint64, error) {
	if err := s.checkAxis(axis); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refAccel[axis] = acc
	return s.seq, nil
}

func (s *store) velocity(axis int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vel[axis]
}

func (s *store) lastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// step integrates every axis over dt and returns the resulting frame. The frame owns its slice.
func (s *store) step(dt time.Duration, now time.Time) JointState {
	s.mu.Lock()
	defer s.mu.Unlock()
	secs := dt.Seconds()
	for j := range s.pos {
		s.pos[j] += s.vel[j] * secs
	}
	s.seq++
	return s.snapshotLocked(now)
}

func (s *store) snapshot(now time.Time) JointState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now)
}

func (s *store) snapshotLocked(now time.Time) JointState {
	return JointState{
		Positions: append([]float64(nil), s.pos...),
		Seq:       s.seq,
		Time:      now,
	}
}
