package controlboard

import "github.com/pkg/errors"

var (
	// ErrNotConfigured is returned by emulated methods called before Open succeeded or after Close.
	ErrNotConfigured = errors.New("control board is not configured")
	// ErrUnsupported is returned by the methods this emulator does not implement.
	ErrUnsupported = errors.New("not supported by the fake motor control board")
	// ErrInvalidAxis is returned for axis indexes outside [0, axes).
	ErrInvalidAxis = errors.New("invalid axis")
	// ErrNoTelemetry is returned by client encoder reads before the first state frame arrived.
	ErrNoTelemetry = errors.New("no telemetry received yet")
	// ErrRejected is returned when the server answers a request negatively.
	ErrRejected = errors.New("request rejected by server")
	// ErrQueueFull is returned when the client's outgoing command queue has no room left.
	ErrQueueFull = errors.New("command queue is full")
)

func newInvalidAxisError(axis, axes int) error {
	return errors.Wrapf(ErrInvalidAxis, "axis %d not in [0, %d)", axis, axes)
}

func newUnsupportedError(method string) error {
	return errors.Wrap(ErrUnsupported, method)
}
