package core

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a rejected input and the rule it broke.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Rule
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Rule)
}

// NotFoundError is returned when a resource does not exist or belongs to
// another owner. The two cases are never distinguished.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ConflictError is returned when a write collides with a uniqueness constraint.
type ConflictError struct {
	Resource string
	Fields   []string
}

func (e *ConflictError) Error() string {
	if len(e.Fields) == 0 {
		return e.Resource + " already exists"
	}
	return fmt.Sprintf("%s already exists with the same %s", e.Resource, strings.Join(e.Fields, ", "))
}

func NewValidationError(field, rule string) error {
	return &ValidationError{Field: field, Rule: rule}
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewConflictError(resource string, fields ...string) error {
	return &ConflictError{Resource: resource, Fields: fields}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
