package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Constraint kinds reported in FieldError.Constraint
const (
	ConstraintRequired = "required"
	ConstraintType     = "type"
	ConstraintObject   = "object"
	ConstraintGT       = "gt"
	ConstraintGTE      = "gte"
	ConstraintLTE      = "lte"
	ConstraintOneOf    = "oneof"
)

// FieldError describes a single rejected field.
// Field is the wire path of the value (e.g. "data[2].open"), empty for the document root.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Param      string `json:"param,omitempty"`
	Value      any    `json:"value,omitempty"`
}

func (e *FieldError) Error() string {
	field := e.Field
	if field == "" {
		field = "(root)"
	}

	switch e.Constraint {
	case ConstraintRequired:
		return fmt.Sprintf("%s: is required", field)
	case ConstraintType:
		return fmt.Sprintf("%s: must be of type %s, got %v", field, e.Param, e.Value)
	case ConstraintObject:
		return fmt.Sprintf("%s: must be an object", field)
	case ConstraintGT:
		return fmt.Sprintf("%s: must be greater than %s, got %v", field, e.Param, e.Value)
	case ConstraintGTE:
		return fmt.Sprintf("%s: must be greater than or equal to %s, got %v", field, e.Param, e.Value)
	case ConstraintLTE:
		return fmt.Sprintf("%s: must be less than or equal to %s, got %v", field, e.Param, e.Value)
	case ConstraintOneOf:
		return fmt.Sprintf("%s: must be one of [%s], got %v", field, e.Param, e.Value)
	}
	return fmt.Sprintf("%s: failed %s %s", field, e.Constraint, e.Param)
}

// Errors is the aggregate of every field rejected while constructing a record.
type Errors []*FieldError

func (e Errors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Field returns the first error reported for the given path, or nil.
func (e Errors) Field(path string) *FieldError {
	for _, err := range e {
		if err.Field == path {
			return err
		}
	}
	return nil
}

// Fields returns the paths of all rejected fields in report order.
func (e Errors) Fields() []string {
	paths := make([]string, 0, len(e))
	for _, err := range e {
		paths = append(paths, err.Field)
	}
	return paths
}

// AsErrors unwraps err into validation Errors.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return Errors{fe}, true
	}
	return nil, false
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	_, ok := AsErrors(err)
	return ok
}
