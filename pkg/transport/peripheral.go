package transport

import (
	"context"
)

// GATT identifiers of the lock.
const (
	// ServiceUUID is the lock's primary service.
	ServiceUUID = "883f45ec-14cb-46aa-9864-9a4e782b33d0"

	// RXCharacteristicUUID notifies packets from the lock.
	RXCharacteristicUUID = "26002998-e001-4812-8c08-5cd2afda0830"

	// TXCharacteristicUUID accepts packets written to the lock.
	TXCharacteristicUUID = "ff530c78-cd50-4bb9-bbd4-0712f32b3796"
)

// Peripheral is a connectable BLE device exposing GATT services.
// The lock client only depends on this interface; a platform BLE stack or
// the in-memory Pipe provides it.
type Peripheral interface {
	// Address returns the device address as lowercase hex.
	Address() string

	// Connect establishes the GATT connection.
	Connect(ctx context.Context) error

	// Disconnect tears down the GATT connection. Registered disconnect
	// callbacks run before it returns.
	Disconnect() error

	// IsConnected reports whether the GATT connection is up.
	IsConnected() bool

	// OnDisconnect registers fn to run whenever the connection drops.
	OnDisconnect(fn func())

	// Service looks up a primary service by UUID.
	Service(ctx context.Context, uuid string) (Service, error)
}

// Service is a GATT service.
type Service interface {
	UUID() string
	Characteristic(ctx context.Context, uuid string) (Characteristic, error)
}

// Characteristic is a GATT characteristic.
type Characteristic interface {
	UUID() string

	// WriteWithResponse writes one packet and waits for the acknowledgement.
	WriteWithResponse(ctx context.Context, data []byte) error

	// Subscribe starts notifications, delivering each packet to handler.
	Subscribe(handler NotificationHandler) error

	// Unsubscribe stops notifications.
	Unsubscribe() error
}
