package ob6

import "errors"

var (
	// ErrUnsupportedWrite means the requested value is legal on the front
	// panel but the firmware silently drops it on the remote-write path.
	ErrUnsupportedWrite = errors.New("ob6: value cannot be set over the remote-write path")

	// ErrIncompleteRecord means a dump payload came up short after
	// unescaping and the record was discarded.
	ErrIncompleteRecord = errors.New("ob6: truncated payload, record discarded")

	// ErrInvalidDeviceResponse means a settings dump matched our headers
	// but carried an out-of-range channel byte.
	ErrInvalidDeviceResponse = errors.New("ob6: invalid device response")

	// ErrUnknownParameter means a parameter id outside the registry was
	// used. This is a wiring bug, not a runtime condition.
	ErrUnknownParameter = errors.New("ob6: unknown parameter id")

	// ErrForeignMessage means the vendor or model byte belongs to some
	// other instrument.
	ErrForeignMessage = errors.New("ob6: not a message for this instrument")

	// ErrChannelUnresolved means an operation needed the device channel
	// before the handshake completed.
	ErrChannelUnresolved = errors.New("ob6: device channel not resolved yet")
)
