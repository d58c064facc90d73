package records

// validation.go checks candidate records submitted from the add and edit
// forms. Every header is checked before the result is returned so the form can
// show one message per invalid field.

import (
	"fmt"
	"strings"
)

// RequiredMessage is the message recorded for an empty field.
const RequiredMessage = "required field is empty"

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column name
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects the field errors of one record, in header order.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// ByField returns the first message per field.
func (e ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(e))
	for _, ve := range e {
		if _, ok := out[ve.Field]; !ok {
			out[ve.Field] = ve.Message
		}
	}
	return out
}

// Validate checks that rec has a non-empty value for every header.
// It returns nil when the record is valid.
func Validate(headers []string, rec Record) error {
	var errs ValidationErrors
	for _, h := range headers {
		if rec[h] == "" {
			errs = append(errs, ValidationError{Field: h, Message: RequiredMessage})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
