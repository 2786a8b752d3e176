// Package domain contains the Q&A entities, their invariants and the error taxonomy.
// Domain errors describe business failures, not transport failures; adapters map
// them to HTTP status codes.
package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is; every typed error below unwraps to one.
var (
	// ErrNotFound indicates the entity does not exist or has been soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a state conflict such as a duplicate record.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates missing, oversized or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates an authenticated caller that may not perform the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates that no verified identity accompanies the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates a dependency (store, cache, broker, index) failed.
	ErrUnavailable = errors.New("dependency unavailable")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error for the given entity.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError describes a conflicting write.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewConflictError creates a conflict error.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ForbiddenError describes a rejected mutation.
type ForbiddenError struct {
	Operation string
	Reason    string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation %q forbidden: %s", e.Operation, e.Reason)
	}

	return fmt.Sprintf("operation %q forbidden", e.Operation)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(operation, reason string) error {
	return &ForbiddenError{Operation: operation, Reason: reason}
}

// UnauthorizedError is returned when an operation requires an identity and none was given.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}

	return "authentication required: " + e.Reason
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(reason string) error {
	return &UnauthorizedError{Reason: reason}
}

// DependencyError wraps a failure of an external dependency.
// It matches both ErrUnavailable and the underlying cause.
type DependencyError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	msg := fmt.Sprintf("dependency %q unavailable", e.Dependency)
	if e.Op != "" {
		msg += " during " + e.Op
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes the sentinel and the cause.
func (e *DependencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}

	return []error{ErrUnavailable, e.Err}
}

// NewDependencyError wraps err as a dependency failure. A nil err yields nil.
func NewDependencyError(dependency, op string, err error) error {
	if err == nil {
		return nil
	}

	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return err
	}

	return &DependencyError{Dependency: dependency, Op: op, Err: err}
}

// IsNotFound reports whether err wraps ErrNotFound. The other predicates
// follow the same pattern for their sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
