package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

// timestampFormats lists the accepted timestamp layouts, most specific first.
// Layouts without a zone are read as UTC.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // Python isoformat() without tzinfo
	time.DateTime,
	time.DateOnly,
}

// Decoder builds records from JSON documents.
//
// Struct tags drive the rules:
//   - json:"name"            wire name; pointer or omitempty fields are optional
//   - default:"value"        applied when the key is absent ("now", "true", "1.0.0", "0", "[]")
//   - nullable:"true"        a required key that may carry null
//   - validate:"gt=0,..."    numeric and enumeration constraints, checked after decoding
type Decoder struct {
	now func() time.Time
}

// Option configures a Decoder
type Option func(*Decoder)

// WithClock sets the clock used for "now" defaults.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		d.now = now
	}
}

// NewDecoder creates a Decoder. Without options "now" defaults read time.Now.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode builds a T from a JSON object using the default decoder.
// On failure the zero T and the validation Errors are returned.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := defaultDecoder.Decode(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// DecodeWith is Decode with an explicit decoder.
func DecodeWith[T any](d *Decoder, data []byte) (T, error) {
	var v T
	if err := d.Decode(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Decode fills out, a non-nil pointer to a struct, from a JSON object.
// out is only written when the whole document is valid.
func (d *Decoder) Decode(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validation: decode target must be a non-nil pointer to a struct, got %T", out)
	}

	tmp := reflect.New(rv.Elem().Type())

	var errs Errors
	d.decodeStruct("", data, tmp.Elem(), &errs)

	if err := Struct(tmp.Interface()); err != nil {
		if len(errs) == 0 {
			return err
		}
		// Constraints are still reported for the fields that decoded cleanly
		failed := errs
		if cerrs, ok := AsErrors(err); ok {
			for _, fe := range cerrs {
				if !underFailedPath(fe.Field, failed) {
					errs = append(errs, fe)
				}
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	rv.Elem().Set(tmp.Elem())
	return nil
}

func (d *Decoder) decodeStruct(path string, raw []byte, v reflect.Value, errs *Errors) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		*errs = append(*errs, &FieldError{
			Field:      path,
			Constraint: ConstraintObject,
			Value:      preview(raw),
		})
		return
	}
	d.decodeFields(path, obj, v, errs)
}

func (d *Decoder) decodeFields(path string, obj map[string]json.RawMessage, v reflect.Value, errs *Errors) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, opts := parseJSONTag(sf.Tag.Get("json"))
		if name == "-" {
			continue
		}

		fv := v.Field(i)

		// Embedded structs share the parent object
		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			d.decodeFields(path, obj, fv, errs)
			continue
		}

		if name == "" {
			name = sf.Name
		}
		fieldPath := joinPath(path, name)
		optional := sf.Type.Kind() == reflect.Pointer || hasOption(opts, "omitempty")

		raw, present := obj[name]
		if !present {
			if def, ok := sf.Tag.Lookup("default"); ok {
				d.applyDefault(fv, def)
				continue
			}
			if !optional {
				*errs = append(*errs, &FieldError{Field: fieldPath, Constraint: ConstraintRequired})
			}
			continue
		}

		if isNull(raw) {
			if !optional && sf.Tag.Get("nullable") != "true" {
				*errs = append(*errs, &FieldError{Field: fieldPath, Constraint: ConstraintRequired})
			}
			continue
		}

		d.decodeValue(fieldPath, raw, fv, errs)
	}
}

func (d *Decoder) decodeValue(path string, raw []byte, fv reflect.Value, errs *Errors) {
	ft := fv.Type()

	switch {
	case ft == timeType:
		ts, err := parseTimestamp(raw)
		if err != nil {
			*errs = append(*errs, typeError(path, "timestamp", raw))
			return
		}
		fv.Set(reflect.ValueOf(ts))

	case ft.Kind() == reflect.Pointer:
		if isNull(raw) {
			return
		}
		elem := reflect.New(ft.Elem())
		before := len(*errs)
		d.decodeValue(path, raw, elem.Elem(), errs)
		if len(*errs) == before {
			fv.Set(elem)
		}

	case reflect.PointerTo(ft).Implements(unmarshalerType):
		if err := fv.Addr().Interface().(json.Unmarshaler).UnmarshalJSON(raw); err != nil {
			*errs = append(*errs, typeError(path, kindName(ft), raw))
		}

	case ft.Kind() == reflect.Struct:
		d.decodeStruct(path, raw, fv, errs)

	case ft.Kind() == reflect.Slice:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || items == nil {
			*errs = append(*errs, typeError(path, "array", raw))
			return
		}
		s := reflect.MakeSlice(ft, len(items), len(items))
		for i, item := range items {
			d.decodeValue(fmt.Sprintf("%s[%d]", path, i), item, s.Index(i), errs)
		}
		fv.Set(s)

	default:
		if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
			*errs = append(*errs, typeError(path, kindName(ft), raw))
		}
	}
}

func (d *Decoder) applyDefault(fv reflect.Value, def string) {
	var err error

	switch {
	case fv.Type() == timeType && def == "now":
		fv.Set(reflect.ValueOf(d.now().UTC()))
	case fv.Kind() == reflect.Slice && def == "[]":
		fv.Set(reflect.MakeSlice(fv.Type(), 0, 0))
	case fv.Kind() == reflect.String:
		fv.SetString(def)
	case fv.Kind() == reflect.Bool:
		var b bool
		b, err = strconv.ParseBool(def)
		fv.SetBool(b)
	case fv.CanFloat():
		var f float64
		f, err = strconv.ParseFloat(def, 64)
		fv.SetFloat(f)
	case fv.CanInt():
		var n int64
		n, err = strconv.ParseInt(def, 10, 64)
		fv.SetInt(n)
	default:
		err = fmt.Errorf("unsupported kind %s", fv.Kind())
	}

	if err != nil {
		panic(fmt.Sprintf("validation: bad default %q for %s: %v", def, fv.Type(), err))
	}
}

func parseTimestamp(raw []byte) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}

	for _, layout := range timestampFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

func typeError(path, expected string, raw []byte) *FieldError {
	return &FieldError{
		Field:      path,
		Constraint: ConstraintType,
		Param:      expected,
		Value:      preview(raw),
	}
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return t.String()
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// underFailedPath reports whether path is, or lies inside, a field that failed
// the presence or type pass. Its value there is a zero placeholder.
func underFailedPath(path string, failed Errors) bool {
	for _, fe := range failed {
		if fe.Field == "" || fe.Field == path ||
			strings.HasPrefix(path, fe.Field+".") || strings.HasPrefix(path, fe.Field+"[") {
			return true
		}
	}
	return false
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func preview(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
