package controlboard

import "context"

// Unsupported implements the parts of ControlBoard that the emulator leaves out. Embed it and
// override what is implemented.
type Unsupported struct{}

// SetLimits always fails: limits are fixed when the board is opened.
func (Unsupported) SetLimits(ctx context.Context, axis int, limits AxisLimits) error {
	return newUnsupportedError("SetLimits")
}

// Encoder always fails: read all axes with Encoders.
func (Unsupported) Encoder(ctx context.Context, axis int) (float64, error) {
	return 0, newUnsupportedError("Encoder")
}

// Encoders always fails.
func (Unsupported) Encoders(ctx context.Context) ([]float64, error) {
	return nil, newUnsupportedError("Encoders")
}

// ResetEncoder always fails.
func (Unsupported) ResetEncoder(ctx context.Context, axis int) error {
	return newUnsupportedError("ResetEncoder")
}

// ResetEncoders always fails.
func (Unsupported) ResetEncoders(ctx context.Context) error {
	return newUnsupportedError("ResetEncoders")
}

// SetEncoder always fails.
func (Unsupported) SetEncoder(ctx context.Context, axis int, value float64) error {
	return newUnsupportedError("SetEncoder")
}

// SetEncoders always fails.
func (Unsupported) SetEncoders(ctx context.Context, values []float64) error {
	return newUnsupportedError("SetEncoders")
}

// EncoderSpeed always fails.
func (Unsupported) EncoderSpeed(ctx context.Context, axis int) (float64, error) {
	return 0, newUnsupportedError("EncoderSpeed")
}

// EncoderSpeeds always fails.
func (Unsupported) EncoderSpeeds(ctx context.Context) ([]float64, error) {
	return nil, newUnsupportedError("EncoderSpeeds")
}

// EncoderAcceleration always fails.
func (Unsupported) EncoderAcceleration(ctx context.Context, axis int) (float64, error) {
	return 0, newUnsupportedError("EncoderAcceleration")
}

// EncoderAccelerations always fails.
func (Unsupported) EncoderAccelerations(ctx context.Context) ([]float64, error) {
	return nil, newUnsupportedError("EncoderAccelerations")
}

// SetVelocityMode always fails.
func (Unsupported) SetVelocityMode(ctx context.Context) error {
	return newUnsupportedError("SetVelocityMode")
}

// VelocityMoveAll always fails: move axes one at a time with VelocityMove.
func (Unsupported) VelocityMoveAll(ctx context.Context, speeds []float64) error {
	return newUnsupportedError("VelocityMoveAll")
}

// SetRefAccelerations always fails.
func (Unsupported) SetRefAccelerations(ctx context.Context, accs []float64) error {
	return newUnsupportedError("SetRefAccelerations")
}

// RefAcceleration always fails.
func (Unsupported) RefAcceleration(ctx context.Context, axis int) (float64, error) {
	return 0, newUnsupportedError("RefAcceleration")
}

// RefAccelerations always fails.
func (Unsupported) RefAccelerations(ctx context.Context) ([]float64, error) {
	return nil, newUnsupportedError("RefAccelerations")
}

// StopAll always fails: stop axes one at a time with Stop.
func (Unsupported) StopAll(ctx context.Context) error {
	return newUnsupportedError("StopAll")
}
