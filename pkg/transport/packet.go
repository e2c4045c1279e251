package transport

import "sync"

// Framing constants.
const (
	// MaxPayloadSize is the payload carried by one packet after its header.
	MaxPayloadSize = 19

	// BlockSize is the multipart block length. FIRST/LAST tagging restarts
	// at every block boundary, so a message longer than one block arrives
	// at the peer as one data event per block.
	BlockSize = 1024

	// controlOffset is added to the counter nibble of connection requests.
	controlOffset = 8

	// counterWrap is the largest counter value before it returns to zero.
	counterWrap = 7

	typeMask = 0x0f
)

// Counter is the rolling 3-bit packet counter placed in the high nibble of
// each outbound header. It is shared by every write on a connection.
type Counter struct {
	mu  sync.Mutex
	ctr uint8
}

// Header returns the header byte for typ and advances the counter.
// offset is added to the counter nibble; the result must fit in 4 bits.
func (c *Counter) Header(typ PacketType, offset uint8) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	upper := c.ctr + offset
	if upper > typeMask || uint8(typ) > typeMask {
		return 0, ErrInvalidHeader
	}

	c.ctr++
	if c.ctr > counterWrap {
		c.ctr = 0
	}

	return upper<<4 | uint8(typ), nil
}

// Value returns the counter value the next header will use.
func (c *Counter) Value() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctr
}

// Reset returns the counter to zero.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.ctr = 0
	c.mu.Unlock()
}

// Fragment is one packet payload with its type, before the header is
// attached.
type Fragment struct {
	Type    PacketType
	Payload []byte
}

// Split cuts a message into fragments. Messages that fit a single packet
// are sent SINGLEPART unless multipart is forced. Multipart messages are
// cut into blocks of BlockSize and each block into packets of
// MaxPayloadSize: the first packet of a block is FIRST, the packet that
// reaches the end of the block is LAST, the rest are MIDDLE. A block that
// fits one packet is therefore tagged FIRST only.
func Split(msg []byte, forceMultipart bool) []Fragment {
	if !forceMultipart && len(msg) <= MaxPayloadSize {
		return []Fragment{{Type: PacketSinglepart, Payload: msg}}
	}

	var frags []Fragment
	for i := 0; i < len(msg); i += BlockSize {
		block := msg[i:min(i+BlockSize, len(msg))]
		for z := 0; z < len(block); z += MaxPayloadSize {
			typ := PacketMultipartMiddle
			switch {
			case z == 0:
				typ = PacketMultipartFirst
			case z+MaxPayloadSize >= len(block):
				typ = PacketMultipartLast
			}
			frags = append(frags, Fragment{
				Type:    typ,
				Payload: block[z:min(z+MaxPayloadSize, len(block))],
			})
		}
	}
	return frags
}

// PacketTypeOf returns the type nibble of a packet header.
func PacketTypeOf(header byte) PacketType {
	return PacketType(header & typeMask)
}
