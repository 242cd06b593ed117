// Package errs is the error taxonomy shared by the payroll pipeline.
//
// Domain packages declare their own sentinels (payroll.ErrImmutableRecord,
// disbursement.ErrRetryExhausted, ...) and wrap them in the structured errors
// below, so callers can branch on either layer with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrStateConflict          = errors.New("state conflict")
	ErrRetryExhausted         = errors.New("retry exhausted")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports bad input. Nothing was mutated.
type ValidationError struct {
	Issues []Issue
	Cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Field == "" {
			parts = append(parts, issue.Reason)
			continue
		}
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrValidation, e.Cause}
	}
	return []error{ErrValidation}
}

// Invalid builds a single-issue validation error.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Issues: []Issue{{Field: field, Reason: reason}}}
}

// StateConflictError reports an operation that is not allowed from the
// record's current state. Current is echoed back to the caller.
type StateConflictError struct {
	Entity  string
	ID      string
	Current string
	Action  string
	Cause   error
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot %s from status %q", e.Entity, e.ID, e.Action, e.Current)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StateConflictError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrStateConflict, e.Cause}
	}
	return []error{ErrStateConflict}
}

// Conflict builds a StateConflictError.
func Conflict(entity, id, current, action string, cause error) *StateConflictError {
	return &StateConflictError{Entity: entity, ID: id, Current: current, Action: action, Cause: cause}
}

// UpstreamError wraps a failed lookup against an external collaborator.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

func Upstream(source string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Source: source, Err: err}
}

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// CurrentState extracts the state echoed by a StateConflictError, if any.
func CurrentState(err error) (string, bool) {
	var conflict *StateConflictError
	if errors.As(err, &conflict) {
		return conflict.Current, true
	}
	return "", false
}

// IsClientError reports whether the error is caused by caller input or
// record state rather than infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrRetryExhausted) ||
		errors.Is(err, ErrNotFound)
}
