package inventory

import "errors"

// Domain errors for the inventory package. Validation failures wrap
// equipment.ErrInvalid instead.
var (
	// ErrReferential is returned when an operation names a projector, bulb
	// or slot that does not exist.
	ErrReferential = errors.New("inventory: unknown reference")

	// ErrProjectorExists is returned when adding a known projector serial.
	ErrProjectorExists = errors.New("inventory: projector already exists")

	// ErrBulbExists is returned when adding a known bulb serial and life.
	ErrBulbExists = errors.New("inventory: bulb already exists")

	// ErrInvalidTransition is returned when a projector or bulb is not in
	// the state an operation requires.
	ErrInvalidTransition = errors.New("inventory: invalid transition")

	// ErrNoTransport is returned by RecordTelemetry when no hardware
	// transport has been configured.
	ErrNoTransport = errors.New("inventory: no hardware transport")

	// ErrPoweredOff is returned by RecordTelemetry when the projector is
	// not powered on, so hours and colour cannot be read.
	ErrPoweredOff = errors.New("inventory: projector not powered on")

	// ErrBadResponse is returned when a hardware reply has no usable value.
	ErrBadResponse = errors.New("inventory: unreadable hardware response")
)
