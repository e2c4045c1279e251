package message

import (
	"strings"
)

// Shape selects which part of a response envelope a command interprets.
type Shape int

const (
	// ShapeSimple reads the envelope payload (key 17).
	ShapeSimple Shape = iota
	// ShapeNested reads key 17 of the payload and trims text results.
	ShapeNested
)

// Command pairs a request with the function that turns its response into T.
type Command[T any] struct {
	Name    string
	Request Request
	Shape   Shape
	Parse   func(Value) (T, error)
}

// Page is one response of a paginated listing.
type Page[T any] struct {
	More   bool
	Result T
}

// Decode parses a raw response for this command. An error object in the
// response yields a *ProtocolError.
func (c Command[T]) Decode(raw []byte) (T, error) {
	var zero T

	env, err := DecodeEnvelope(raw)
	if err != nil {
		return zero, err
	}
	if err := env.Err(); err != nil {
		return zero, err
	}

	payload, err := c.payload(env)
	if err != nil {
		return zero, err
	}
	if c.Parse == nil {
		return zero, nil
	}
	return c.Parse(payload)
}

func (c Command[T]) payload(env *Envelope) (Value, error) {
	data := env.Payload()
	if c.Shape == ShapeSimple {
		return data, nil
	}

	m, ok := data.Map()
	if !ok {
		return Value{}, ErrMissingPayload
	}
	response, _ := m.Get(KeyResponse)
	if s, ok := response.Text(); ok {
		return Text(strings.TrimSpace(s)), nil
	}
	return response, nil
}

// AsValue returns the payload unchanged.
func AsValue(v Value) (Value, error) {
	return v, nil
}

// AsMap requires the payload to be a map.
func AsMap(v Value) (*Map, error) {
	m, ok := v.Map()
	if !ok {
		return nil, unexpectedKind(KindMap, v.Kind())
	}
	return m, nil
}

// AsFlag reports whether the payload is the integer 1.
func AsFlag(v Value) (bool, error) {
	i, ok := v.Int()
	return ok && i == 1, nil
}
