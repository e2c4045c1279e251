package transport

import (
	"bytes"
	"errors"
	"testing"
)

// frame attaches headers to fragments the way a Link does.
func frame(t *testing.T, c *Counter, frags []Fragment) [][]byte {
	t.Helper()
	var packets [][]byte
	for _, f := range frags {
		h, err := c.Header(f.Type, 0)
		if err != nil {
			t.Fatal(err)
		}
		packets = append(packets, append([]byte{h}, f.Payload...))
	}
	return packets
}

func feed(t *testing.T, r *Reassembler, packets [][]byte) []*Event {
	t.Helper()
	var events []*Event
	for i, p := range packets {
		ev, err := r.Push(p)
		if err != nil {
			t.Fatalf("Push(packet %d): %v", i, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func TestReassembler_Singlepart(t *testing.T) {
	var r Reassembler
	ev, err := r.Push([]byte{0x3c, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != EventData || !bytes.Equal(ev.Data, []byte{1, 2, 3}) {
		t.Fatalf("Push() = %+v", ev)
	}
}

func TestReassembler_Internal(t *testing.T) {
	var r Reassembler
	ev, err := r.Push([]byte{0x81, 0xde, 0xad})
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != EventInternal || !bytes.Equal(ev.Data, []byte{0xde, 0xad}) {
		t.Fatalf("Push() = %+v", ev)
	}
}

func TestReassembler_Multipart(t *testing.T) {
	msg := make([]byte, 200)
	for i := range msg {
		msg[i] = byte(i * 7)
	}

	var c Counter
	var r Reassembler
	events := feed(t, &r, frame(t, &c, Split(msg, false)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !bytes.Equal(events[0].Data, msg) {
		t.Error("reassembled data mismatch")
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d after LAST", r.Pending())
	}
}

func TestReassembler_SpansBlocks(t *testing.T) {
	msg := make([]byte, 3000)
	for i := range msg {
		msg[i] = byte(i)
	}

	var c Counter
	var r Reassembler
	events := feed(t, &r, frame(t, &c, Split(msg, false)))

	// One event per 1024-byte block, not one per message.
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	sizes := []int{1024, 1024, 952}
	var joined []byte
	for i, ev := range events {
		if len(ev.Data) != sizes[i] {
			t.Errorf("event %d has %d bytes, want %d", i, len(ev.Data), sizes[i])
		}
		joined = append(joined, ev.Data...)
	}
	if !bytes.Equal(joined, msg) {
		t.Error("concatenated events do not match the message")
	}
}

func TestReassembler_ShortTrailingBlock(t *testing.T) {
	// The second block holds 6 bytes, a single FIRST packet with no LAST.
	msg := make([]byte, BlockSize+6)

	var c Counter
	var r Reassembler
	events := feed(t, &r, frame(t, &c, Split(msg, false)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if r.Pending() != 6 {
		t.Errorf("Pending() = %d, want 6", r.Pending())
	}
}

func TestReassembler_FirstRestartsBuffer(t *testing.T) {
	var r Reassembler
	feed(t, &r, [][]byte{{0x08, 1, 2}, {0x10, 3}})
	ev, _ := r.Push([]byte{0x28, 9})
	if ev != nil {
		t.Fatal("FIRST should not emit")
	}
	ev, _ = r.Push([]byte{0x34, 10})
	if ev == nil || !bytes.Equal(ev.Data, []byte{9, 10}) {
		t.Fatalf("Push(LAST) = %+v", ev)
	}
}

func TestReassembler_Errors(t *testing.T) {
	var r Reassembler
	if _, err := r.Push(nil); !errors.Is(err, ErrEmptyPacket) {
		t.Errorf("Push(nil) error = %v", err)
	}
	if _, err := r.Push([]byte{0x02, 1}); !errors.Is(err, ErrUnknownPacketType) {
		t.Errorf("Push(type 2) error = %v", err)
	}
}

func TestReassembler_Reset(t *testing.T) {
	var r Reassembler
	r.Push([]byte{0x08, 1, 2, 3})
	r.Reset()
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d after Reset", r.Pending())
	}
}
