// Package estate holds types shared across the succession calculators.
package estate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvariant marks operations that would corrupt aggregate state, such as
// paying a statute-barred debt. Callers must not swallow these.
var ErrInvariant = errors.New("estate: invariant violation")

// Invariant wraps ErrInvariant with operation detail.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// FieldError is a single validation failure tied to an input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects statutory input validation failures so one call
// can report every problem at once.
type ValidationErrors struct {
	errs []FieldError
}

// Add appends a validation failure.
func (v *ValidationErrors) Add(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// Addf appends a validation failure with a formatted message.
func (v *ValidationErrors) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// Empty reports whether any failures were recorded.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.errs) == 0
}

// Fields returns the recorded failures in order.
func (v *ValidationErrors) Fields() []FieldError {
	if v == nil {
		return nil
	}
	return v.errs
}

// Err returns the collection as an error, or nil when no failures exist.
func (v *ValidationErrors) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Error joins all failures into a single human-readable message.
func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.errs))
	for _, e := range v.errs {
		if e.Field == "" {
			parts = append(parts, e.Message)
			continue
		}
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var v *ValidationErrors
	return errors.As(err, &v)
}
