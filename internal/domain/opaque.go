package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmptyOpaque is returned when decoding an Opaque that carries no value.
var ErrEmptyOpaque = errors.New("opaque value is empty")

// Opaque is a JSON value whose shape is decided by the consumer, not by the schema.
// It is carried verbatim; nil and the JSON literal null are the same value.
type Opaque []byte

// NewOpaque encodes v as an Opaque value.
func NewOpaque(v any) (Opaque, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode opaque value: %w", err)
	}
	if bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	return Opaque(b), nil
}

// IsNull reports whether the value is absent or null.
func (o Opaque) IsNull() bool {
	return len(o) == 0 || bytes.Equal(o, []byte("null"))
}

// Decode unmarshals the carried value into v.
func (o Opaque) Decode(v any) error {
	if o.IsNull() {
		return ErrEmptyOpaque
	}
	return json.Unmarshal(o, v)
}

// MarshalJSON writes the carried value unchanged.
func (o Opaque) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return o, nil
}

// UnmarshalJSON keeps a copy of the raw value.
func (o *Opaque) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = nil
		return nil
	}
	if !json.Valid(b) {
		return fmt.Errorf("invalid opaque JSON value")
	}
	*o = append((*o)[:0], b...)
	return nil
}

// EncodeMsgpack writes the carried value as native MessagePack instead of a byte string.
func (o Opaque) EncodeMsgpack(enc *msgpack.Encoder) error {
	if o.IsNull() {
		return enc.EncodeNil()
	}
	var v any
	if err := json.Unmarshal(o, &v); err != nil {
		return fmt.Errorf("failed to decode opaque value: %w", err)
	}
	return enc.Encode(v)
}

// DecodeMsgpack reads a native MessagePack value back into JSON form.
func (o *Opaque) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	if v == nil {
		*o = nil
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode opaque value: %w", err)
	}
	*o = b
	return nil
}
