package transport

import "fmt"

// PacketType is the low nibble of a packet header.
type PacketType uint8

const (
	// PacketMultipartMiddle continues a multipart block.
	PacketMultipartMiddle PacketType = 0
	// PacketInternal carries a connection-control reply.
	PacketInternal PacketType = 1
	// PacketMultipartLast ends a multipart block.
	PacketMultipartLast PacketType = 4
	// PacketMultipartFirst starts a multipart block.
	PacketMultipartFirst PacketType = 8
	// PacketSinglepart carries a whole message.
	PacketSinglepart PacketType = 12
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case PacketMultipartMiddle:
		return "MultipartMiddle"
	case PacketInternal:
		return "Internal"
	case PacketMultipartLast:
		return "MultipartLast"
	case PacketMultipartFirst:
		return "MultipartFirst"
	case PacketSinglepart:
		return "Singlepart"
	default:
		return fmt.Sprintf("PacketType(%d)", uint8(t))
	}
}

// IsValid returns true if the packet type is a known type.
func (t PacketType) IsValid() bool {
	switch t {
	case PacketMultipartMiddle, PacketInternal, PacketMultipartLast,
		PacketMultipartFirst, PacketSinglepart:
		return true
	}
	return false
}

// EventKind distinguishes reassembled events.
type EventKind int

const (
	// EventInternal is a connection-control reply.
	EventInternal EventKind = iota
	// EventData is a complete application message.
	EventData
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventInternal:
		return "internal"
	case EventData:
		return "data"
	default:
		return "unknown"
	}
}
