// Package controlboard emulates a networked motor control board. A Server integrates per axis
// velocity setpoints at a fixed period and publishes joint positions; a Client implements the same
// ControlBoard interface against a remote Server.
//
// Server and client talk over three channels served by one gRPC service: a server stream of joint
// state telemetry, a client stream of velocity commands and a unary request/reply call.
package controlboard

import (
	"context"
	"time"
)

// AxisLimits is the allowed position range of one axis.
type AxisLimits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JointState is one published telemetry frame.
type JointState struct {
	// Positions holds one position per axis.
	Positions []float64
	// Seq increases by one with every integration tick.
	Seq uint64
	// Time is the server's clock reading when the frame was produced.
	Time time.Time
}

// ControlLimits reads and writes per axis position limits.
type ControlLimits interface {
	Limits(ctx context.Context, axis int) (AxisLimits, error)
	SetLimits(ctx context.Context, axis int, limits AxisLimits) error
}

// Encoders reads and writes axis positions and their derivatives.
type Encoders interface {
	Axes(ctx context.Context) (int, error)
	Encoder(ctx context.Context, axis int) (float64, error)
	Encoders(ctx context.Context) ([]float64, error)
	ResetEncoder(ctx context.Context, axis int) error
	ResetEncoders(ctx context.Context) error
	SetEncoder(ctx context.Context, axis int, value float64) error
	SetEncoders(ctx context.Context, values []float64) error
	EncoderSpeed(ctx context.Context, axis int) (float64, error)
	EncoderSpeeds(ctx context.Context) ([]float64, error)
	EncoderAcceleration(ctx context.Context, axis int) (float64, error)
	EncoderAccelerations(ctx context.Context) ([]float64, error)
}

// VelocityControl drives axes by velocity setpoints.
type VelocityControl interface {
	SetVelocityMode(ctx context.Context) error
	VelocityMove(ctx context.Context, axis int, speed float64) error
	VelocityMoveAll(ctx context.Context, speeds []float64) error
	SetRefAcceleration(ctx context.Context, axis int, acc float64) error
	SetRefAccelerations(ctx context.Context, accs []float64) error
	RefAcceleration(ctx context.Context, axis int) (float64, error)
	RefAccelerations(ctx context.Context) ([]float64, error)
	Stop(ctx context.Context, axis int) error
	StopAll(ctx context.Context) error
}

// A ControlBoard is a multi axis motor controller. Emulated methods fail with ErrNotConfigured
// until the implementation has been opened. Methods outside the emulated subset fail with
// ErrUnsupported whether it is open or not.
type ControlBoard interface {
	ControlLimits
	Encoders
	VelocityControl

	Close(ctx context.Context) error
}

var (
	_ ControlBoard = (*Server)(nil)
	_ ControlBoard = (*Client)(nil)
)
