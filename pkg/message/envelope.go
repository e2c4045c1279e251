// Package message implements the lock's CBOR request/response framework.
//
// Every exchange is one request envelope and one response envelope:
//
//	request:  {1: class, 2: type, 16: {0: arg0, 1: arg1, ...}}
//	response: {1: class, 2: type, 17: payload}
//	error:    {1: class, 2: type, 3: {4: code}}
//
// Decoded maps are normalized into integer-keyed Maps that keep the order in
// which entries appeared on the wire.
package message

// Envelope keys.
const (
	KeyClass     = 1
	KeyType      = 2
	KeyError     = 3
	KeyErrorCode = 4
	KeyTxData    = 16
	KeyRxData    = 17
	KeyResponse  = 17
)

// Envelope is the outer map of every message.
type Envelope struct {
	Class  uint8      `cbor:"1,keyasint"`
	Type   uint8      `cbor:"2,keyasint"`
	Error  *ErrorInfo `cbor:"3,keyasint,omitempty"`
	TxData *Map       `cbor:"16,keyasint,omitempty"`
	RxData *Value     `cbor:"17,keyasint,omitempty"`
}

// ErrorInfo is the error object of a failed request.
type ErrorInfo struct {
	Code int64 `cbor:"4,keyasint"`
}

// DecodeEnvelope parses a raw message.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, malformed(err)
	}
	return &env, nil
}

// Encode serializes the envelope. Keys are written in ascending order.
func (e *Envelope) Encode() ([]byte, error) {
	return encMode.Marshal(e)
}

// Err returns a *ProtocolError when the envelope carries an error object.
func (e *Envelope) Err() error {
	if e.Error == nil {
		return nil
	}
	return &ProtocolError{Class: e.Class, Type: e.Type, Code: e.Error.Code}
}

// Payload returns the response payload (key 17), or null when absent.
func (e *Envelope) Payload() Value {
	if e.RxData == nil {
		return Null()
	}
	return *e.RxData
}

// Request is an outgoing command. Args are sent as a map keyed by position;
// the map is omitted when there are no arguments.
type Request struct {
	Class uint8
	Type  uint8
	Args  []Value
}

// NewRequest builds a request for the given message class and type.
func NewRequest(class, typ uint8, args ...Value) Request {
	return Request{Class: class, Type: typ, Args: args}
}

// Envelope returns the request's outer map.
func (r Request) Envelope() *Envelope {
	env := &Envelope{Class: r.Class, Type: r.Type}
	if len(r.Args) > 0 {
		env.TxData = NewMap()
		for i, arg := range r.Args {
			env.TxData.Set(int64(i), arg)
		}
	}
	return env
}

// Encode serializes the request.
func (r Request) Encode() ([]byte, error) {
	return r.Envelope().Encode()
}

// Arg returns the positional argument i of a decoded request envelope.
func (e *Envelope) Arg(i int64) (Value, bool) {
	return e.TxData.Get(i)
}

// NewResponse builds a response envelope carrying payload.
func NewResponse(class, typ uint8, payload Value) *Envelope {
	return &Envelope{Class: class, Type: typ, RxData: &payload}
}

// NewErrorResponse builds a response envelope carrying an error code.
func NewErrorResponse(class, typ uint8, code int64) *Envelope {
	return &Envelope{Class: class, Type: typ, Error: &ErrorInfo{Code: code}}
}
