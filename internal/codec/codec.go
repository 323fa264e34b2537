// Package codec encodes schema records for the wire and reads them back through
// the schema validator.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"quantshared/internal/validation"
)

// Content types
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// Codec is a wire format for schema records
type Codec interface {
	// Name is a short identifier used in logs and errors
	Name() string

	// ContentType is the MIME type of encoded documents
	ContentType() string

	// Encode writes a record
	Encode(v any) ([]byte, error)

	// ToJSON converts an encoded document into the JSON form the validator reads
	ToJSON(data []byte) ([]byte, error)
}

var (
	// JSON is the default wire format
	JSON Codec = jsonCodec{}

	// MessagePack is the compact binary wire format. Field names match JSON.
	MessagePack Codec = msgpackCodec{}
)

// ForContentType picks the codec for a Content-Type header value.
// An empty value selects JSON.
func ForContentType(contentType string) (Codec, bool) {
	if contentType == "" {
		return JSON, true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}

	switch mediaType {
	case ContentTypeJSON:
		return JSON, true
	case ContentTypeMsgpack, "application/x-msgpack", "application/vnd.msgpack":
		return MessagePack, true
	}
	return nil, false
}

// Decode reads a T from a document in the codec's format, applying every schema rule.
func Decode[T any](c Codec, data []byte) (T, error) {
	doc, err := c.ToJSON(data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read %s document: %w", c.Name(), err)
	}
	return validation.Decode[T](doc)
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) ToJSON(data []byte) ([]byte, error) {
	return data, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return ContentTypeMsgpack }

func (msgpackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON decodes the document generically so presence and type checks run on
// the same key/value view the JSON path sees.
func (msgpackCodec) ToJSON(data []byte) ([]byte, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := dec.DecodeInterface()
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalize(v))
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}
