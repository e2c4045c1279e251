package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed pipe.
	ErrClosed = errors.New("transport: closed")

	// ErrNotConnected is returned when the peripheral is not connected.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrServiceNotFound is returned when the lock service is missing.
	ErrServiceNotFound = errors.New("transport: service not found")

	// ErrCharacteristicNotFound is returned when a characteristic is missing.
	ErrCharacteristicNotFound = errors.New("transport: characteristic not found")

	// ErrNoHandler is returned when subscribing without a notification handler.
	ErrNoHandler = errors.New("transport: no notification handler configured")

	// ErrInvalidHeader is returned when a header nibble is out of range.
	ErrInvalidHeader = errors.New("transport: invalid packet header")

	// ErrEmptyPacket is returned for a notification without a header byte.
	ErrEmptyPacket = errors.New("transport: empty packet")

	// ErrNotSupported is returned for operations a characteristic lacks.
	ErrNotSupported = errors.New("transport: operation not supported")

	// ErrUnknownPacketType is returned for header types the reassembler ignores.
	ErrUnknownPacketType = errors.New("transport: unknown packet type")

	// ErrShortManufacturerData is returned when advertisement data is too
	// short to carry an address.
	ErrShortManufacturerData = errors.New("transport: manufacturer data too short")
)
