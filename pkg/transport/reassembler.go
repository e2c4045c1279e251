package transport

import "fmt"

// Reassembler turns inbound packets into events. It holds the partial
// multipart buffer between a FIRST and a LAST packet. Not safe for
// concurrent use; one notification stream drives one Reassembler.
type Reassembler struct {
	buf []byte
}

// Push consumes one packet. It returns a complete event when one is
// available, or nil when the packet only extended the buffer.
func (r *Reassembler) Push(packet []byte) (*Event, error) {
	if len(packet) == 0 {
		return nil, ErrEmptyPacket
	}

	typ := PacketTypeOf(packet[0])
	body := packet[1:]

	switch typ {
	case PacketInternal:
		return &Event{Kind: EventInternal, Data: clone(body)}, nil
	case PacketSinglepart:
		return &Event{Kind: EventData, Data: clone(body)}, nil
	case PacketMultipartFirst:
		r.buf = clone(body)
		return nil, nil
	case PacketMultipartMiddle, PacketMultipartLast:
		r.buf = append(r.buf, body...)
		if typ != PacketMultipartLast {
			return nil, nil
		}
		ev := &Event{Kind: EventData, Data: r.buf}
		r.buf = nil
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPacketType, typ)
	}
}

// Pending returns the number of buffered bytes awaiting a LAST packet.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Reset discards any partial multipart message.
func (r *Reassembler) Reset() {
	r.buf = nil
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
