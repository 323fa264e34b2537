// Package validation constructs schema records from wire input and enforces their
// field constraints. Every failure is reported as field-attributed Errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// embeddedMarker names anonymous struct fields so they can be dropped from error paths.
const embeddedMarker = "~"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report wire names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if fld.Anonymous && fld.Tag.Get("json") == "" {
			return embeddedMarker
		}
		name, _ := parseJSONTag(fld.Tag.Get("json"))
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return v
}

// Struct checks the numeric and enumeration constraints of an already constructed record.
// v must be a struct or a pointer to one.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &FieldError{
			Field:      fieldPath(fe.Namespace()),
			Constraint: fe.Tag(),
			Param:      fe.Param(),
			Value:      fe.Value(),
		})
	}
	return out
}

// fieldPath turns "Order.price" or "Event.~.id" into the wire path "price" / "id".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}

	kept := parts[:0]
	for _, p := range parts {
		if p == embeddedMarker {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func parseJSONTag(tag string) (name string, opts string) {
	name, opts, _ = strings.Cut(tag, ",")
	return name, opts
}

func hasOption(opts, option string) bool {
	for opts != "" {
		var cur string
		cur, opts, _ = strings.Cut(opts, ",")
		if cur == option {
			return true
		}
	}
	return false
}
