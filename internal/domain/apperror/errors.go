// Package apperror defines the error taxonomy shared by the workflow core
// and its HTTP adapter.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

// NotFoundError reports an entity that is absent in the caller's tenant
type NotFoundError struct {
	Entity  string
	ID      int64
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// InvalidStateError reports an entity that exists but is not in the
// status an operation requires
type InvalidStateError struct {
	Entity   string
	ID       int64
	Current  string
	Required string
	Message  string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// PersistenceError wraps a database or transaction failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Validation builds a ValidationError
func Validation(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// NotFound builds a NotFoundError with the conventional "<Entity> not found" message
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id, Message: entity + " not found"}
}

// InvalidState builds an InvalidStateError
func InvalidState(entity string, id int64, current, required, message string) error {
	return &InvalidStateError{Entity: entity, ID: id, Current: current, Required: required, Message: message}
}

// AsPersistence returns typed errors unchanged and wraps anything else
// as a PersistenceError
func AsPersistence(op string, err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsTyped reports whether err already belongs to the taxonomy
func IsTyped(err error) bool {
	var (
		v *ValidationError
		n *NotFoundError
		s *InvalidStateError
		p *PersistenceError
	)
	return errors.As(err, &v) || errors.As(err, &n) || errors.As(err, &s) || errors.As(err, &p)
}
