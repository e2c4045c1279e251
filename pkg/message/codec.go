package message

import (
	"encoding/binary"
	"math"
	"math/big"
	"sort"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CBOR major types handled outside the library.
const (
	majorArray = 4
	majorMap   = 5

	breakByte = 0xff
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		IntDec: cbor.IntDecConvertSignedOrFail,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// Encode serializes a single value.
func Encode(v Value) ([]byte, error) {
	return v.MarshalCBOR()
}

// EncodeAll serializes values back to back as a CBOR sequence.
func EncodeAll(values ...Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		b, err := v.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Decode parses exactly one data item.
func Decode(data []byte) (Value, error) {
	v, rest, err := decodeFirst(data)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// DecodeAll parses a CBOR sequence until the input is exhausted.
func DecodeAll(data []byte) ([]Value, error) {
	var values []Value
	for len(data) > 0 {
		v, rest, err := decodeFirst(data)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		data = rest
	}
	return values, nil
}

// DecodeMap parses one item and requires it to be a map.
func DecodeMap(data []byte) (*Map, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, unexpectedKind(KindMap, v.Kind())
	}
	return m, nil
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return encMode.Marshal(nil)
	case KindBool:
		return encMode.Marshal(v.b)
	case KindInt:
		return encMode.Marshal(v.i)
	case KindFloat:
		return encMode.Marshal(v.f)
	case KindBytes:
		if v.bytes == nil {
			return encMode.Marshal([]byte{})
		}
		return encMode.Marshal(v.bytes)
	case KindText:
		return encMode.Marshal(v.text)
	case KindArray:
		if v.items == nil {
			return encMode.Marshal([]Value{})
		}
		return encMode.Marshal(v.items)
	case KindMap:
		return v.m.MarshalCBOR()
	}
	return nil, ErrUnsupportedType
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalCBOR encodes the map with its keys in ascending order, the order
// the lock expects. Decoding keeps the order found on the wire.
func (m *Map) MarshalCBOR() ([]byte, error) {
	entries := make(map[int64]Value, m.Len())
	for i := 0; i < m.Len(); i++ {
		entries[m.entries[i].key] = m.entries[i].value
	}
	return encMode.Marshal(entries)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (m *Map) UnmarshalCBOR(data []byte) error {
	decoded, err := DecodeMap(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

func decodeFirst(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, ErrTruncated
	}

	switch data[0] >> 5 {
	case majorArray:
		var raw []cbor.RawMessage
		rest, err := decMode.UnmarshalFirst(data, &raw)
		if err != nil {
			return Value{}, nil, malformed(err)
		}
		items := make([]Value, len(raw))
		for i, r := range raw {
			if items[i], err = Decode(r); err != nil {
				return Value{}, nil, err
			}
		}
		return Array(items...), rest, nil

	case majorMap:
		return decodeMap(data)

	default:
		var x any
		rest, err := decMode.UnmarshalFirst(data, &x)
		if err != nil {
			return Value{}, nil, malformed(err)
		}
		v, err := fromInterface(x)
		if err != nil {
			return Value{}, nil, err
		}
		return v, rest, nil
	}
}

// decodeMap walks map entries itself so that entry order survives decoding.
func decodeMap(data []byte) (Value, []byte, error) {
	n, indefinite, body, err := readHead(data)
	if err != nil {
		return Value{}, nil, err
	}
	if !indefinite && n > uint64(len(body)/2) {
		return Value{}, nil, ErrTruncated
	}

	m := NewMap()
	for i := uint64(0); indefinite || i < n; i++ {
		if indefinite {
			if len(body) == 0 {
				return Value{}, nil, ErrTruncated
			}
			if body[0] == breakByte {
				body = body[1:]
				break
			}
		}

		var k, val Value
		if k, body, err = decodeFirst(body); err != nil {
			return Value{}, nil, err
		}
		key, err := mapKey(k)
		if err != nil {
			return Value{}, nil, err
		}
		if val, body, err = decodeFirst(body); err != nil {
			return Value{}, nil, err
		}
		m.Set(key, val)
	}
	return MapValue(m), body, nil
}

// mapKey normalizes a map key to an integer. Text keys holding a decimal
// integer are accepted.
func mapKey(k Value) (int64, error) {
	switch k.kind {
	case KindInt:
		return k.i, nil
	case KindText:
		i, err := strconv.ParseInt(k.text, 10, 64)
		if err != nil {
			return 0, ErrUnsupportedKey
		}
		return i, nil
	}
	return 0, ErrUnsupportedKey
}

func fromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int64:
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, ErrIntegerOverflow
		}
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case []byte:
		return Bytes(t), nil
	case string:
		return Text(t), nil
	case big.Int:
		if !t.IsInt64() {
			return Value{}, ErrIntegerOverflow
		}
		return Int(t.Int64()), nil
	case *big.Int:
		if !t.IsInt64() {
			return Value{}, ErrIntegerOverflow
		}
		return Int(t.Int64()), nil
	case time.Time:
		return Int(t.Unix()), nil
	case cbor.Tag:
		return fromInterface(t.Content)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[any]any:
		// Only reachable through tagged content; Go maps carry no order, so
		// entries are sorted by key.
		m := NewMap()
		for k, item := range t {
			kv, err := fromInterface(k)
			if err != nil {
				return Value{}, err
			}
			key, err := mapKey(kv)
			if err != nil {
				return Value{}, err
			}
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			m.Set(key, v)
		}
		sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].key < m.entries[j].key })
		return MapValue(m), nil
	}
	return Value{}, ErrUnsupportedType
}

// readHead parses the initial byte and argument of a data item.
func readHead(data []byte) (n uint64, indefinite bool, rest []byte, err error) {
	if len(data) == 0 {
		return 0, false, nil, ErrTruncated
	}
	ai := data[0] & 0x1f
	switch {
	case ai < 24:
		return uint64(ai), false, data[1:], nil
	case ai == 24:
		if len(data) < 2 {
			return 0, false, nil, ErrTruncated
		}
		return uint64(data[1]), false, data[2:], nil
	case ai == 25:
		if len(data) < 3 {
			return 0, false, nil, ErrTruncated
		}
		return uint64(binary.BigEndian.Uint16(data[1:])), false, data[3:], nil
	case ai == 26:
		if len(data) < 5 {
			return 0, false, nil, ErrTruncated
		}
		return uint64(binary.BigEndian.Uint32(data[1:])), false, data[5:], nil
	case ai == 27:
		if len(data) < 9 {
			return 0, false, nil, ErrTruncated
		}
		return binary.BigEndian.Uint64(data[1:]), false, data[9:], nil
	case ai == 31:
		return 0, true, data[1:], nil
	}
	return 0, false, nil, ErrMalformed
}
