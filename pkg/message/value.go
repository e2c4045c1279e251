package message

import (
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindBytes
	KindText
	KindArray
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a decoded CBOR data item. The zero Value is null.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	bytes []byte
	text  string
	items []Value
	m     *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bytes wraps a byte string. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// Text wraps a text string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Array wraps a list of values.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// MapValue wraps an ordered map.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v. Integers are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Bytes returns the byte string held by v.
func (v Value) Bytes() ([]byte, bool) { return v.bytes, v.kind == KindBytes }

// Text returns the text string held by v.
func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

// Items returns the elements of an array value.
func (v Value) Items() ([]Value, bool) { return v.items, v.kind == KindArray }

// Map returns the map held by v.
func (v Value) Map() (*Map, bool) { return v.m, v.kind == KindMap }

// Equal reports deep equality. Map entries compare in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBytes:
		return string(v.bytes) == string(o.bytes)
	case KindText:
		return v.text == o.text
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// String renders v in CBOR diagnostic notation.
func (v Value) String() string {
	var sb strings.Builder
	v.writeDiag(&sb)
	return sb.String()
}

func (v Value) writeDiag(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		fmt.Fprintf(sb, "%t", v.b)
	case KindInt:
		fmt.Fprintf(sb, "%d", v.i)
	case KindFloat:
		fmt.Fprintf(sb, "%g", v.f)
	case KindBytes:
		fmt.Fprintf(sb, "h'%x'", v.bytes)
	case KindText:
		fmt.Fprintf(sb, "%q", v.text)
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.writeDiag(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		v.m.writeDiag(sb)
	}
}

type entry struct {
	key   int64
	value Value
}

// Map is an integer-keyed map that remembers insertion order.
type Map struct {
	entries []entry
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{}
}

// Set stores value under key. An existing key keeps its position.
func (m *Map) Set(key int64, value Value) *Map {
	for i := range m.entries {
		if m.entries[i].key == key {
			m.entries[i].value = value
			return m
		}
	}
	m.entries = append(m.entries, entry{key: key, value: value})
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key int64) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present.
func (m *Map) Has(key int64) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key.
func (m *Map) Delete(key int64) {
	for i, e := range m.entries {
		if e.key == key {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []int64 {
	if m == nil {
		return nil
	}
	keys := make([]int64, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Int returns the integer under key.
func (m *Map) Int(key int64) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// Bytes returns the byte string under key.
func (m *Map) Bytes(key int64) ([]byte, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.Bytes()
}

// Text returns the text string under key.
func (m *Map) Text(key int64) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.Text()
}

// Map returns the nested map under key.
func (m *Map) Map(key int64) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.Map()
}

// Flag reports whether the integer under key equals 1.
func (m *Map) Flag(key int64) bool {
	i, ok := m.Int(key)
	return ok && i == 1
}

// Equal compares two maps entry by entry, in order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := 0; i < m.Len(); i++ {
		a, b := m.entries[i], o.entries[i]
		if a.key != b.key || !a.value.Equal(b.value) {
			return false
		}
	}
	return true
}

func (m *Map) writeDiag(sb *strings.Builder) {
	sb.WriteByte('{')
	for i := 0; i < m.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%d: ", m.entries[i].key)
		m.entries[i].value.writeDiag(sb)
	}
	sb.WriteByte('}')
}
