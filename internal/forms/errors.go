// Package forms binds and validates user-submitted forms.
//
// Validation returns either a payload or FieldErrors; it never renders.
package forms

import (
	"sort"
	"strings"
)

// NonFieldErrors is the key for errors that do not belong to one field.
const NonFieldErrors = "__all__"

const msgRequired = "This field is required."

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has any errors.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Get returns the messages for field.
func (e FieldErrors) Get(field string) []string {
	return e[field]
}

// Error makes FieldErrors usable as an error value.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e FieldErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
