package apperr

import (
	"github.com/ogen-go/ogen/validate"
)

// FieldCheck accumulates field failures in the shape ogen's validators
// produce, then converts them into a KindValidation error.
type FieldCheck struct {
	failures []validate.FieldError
}

// Add records err against name when err is non-nil.
func (c *FieldCheck) Add(name string, err error) {
	if err != nil {
		c.failures = append(c.failures, validate.FieldError{Name: name, Error: err})
	}
}

// Err returns nil when no failure was recorded.
func (c *FieldCheck) Err(op string) error {
	if len(c.failures) == 0 {
		return nil
	}
	return FromValidate(op, &validate.Error{Fields: c.failures})
}

// FromValidate converts an ogen *validate.Error into a KindValidation error.
func FromValidate(op string, verr *validate.Error) error {
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Name] = f.Error.Error()
	}
	return Validation(op, "invalid input", fields)
}
