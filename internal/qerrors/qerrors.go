package qerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Validation errors are returned before any write is attempted.
	ValidationError = errors.New("validation failed")

	// Uniqueness errors
	DuplicateKey  = errors.New("a subject with that key already exists")
	AlreadyExists = errors.New("an admin with that email address already exists")

	NotFound    = errors.New("not found")
	Forbidden   = errors.New("you do not have permission to perform this action")
	RateLimited = errors.New("too many requests, slow down")

	// User errors
	UserNotFoundError = fmt.Errorf("user %w", NotFound)
	InvalidEmailError = fmt.Errorf("%w: invalid email address", ValidationError)

	// Content errors
	InvalidSemesterError    = fmt.Errorf("%w: the provided semester is not valid", ValidationError)
	InvalidContentTypeError = fmt.Errorf("%w: the provided content type is not valid", ValidationError)
	SubjectNotFoundError    = fmt.Errorf("subject %w", NotFound)
	ContentNotFoundError    = fmt.Errorf("content item %w", NotFound)
	AdminNotFoundError      = fmt.Errorf("admin %w", NotFound)
	MessageNotFoundError    = fmt.Errorf("chat message %w", NotFound)
)

// FieldError describes a problem with a single request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// InvalidRequest is a ValidationError carrying per-field details.
type InvalidRequest struct {
	Fields []FieldError
}

// NewInvalidRequest builds an InvalidRequest for a single field.
func NewInvalidRequest(field, msg string) error {
	return &InvalidRequest{Fields: []FieldError{{Field: field, Error: msg}}}
}

func (e *InvalidRequest) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return ValidationError.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidRequest) Unwrap() error {
	return ValidationError
}

// BackendError wraps any failure surfaced by the remote store or the identity provider.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Backend wraps err as a BackendError, leaving nil and already-classified errors alone.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) || IsDomain(err) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// IsDomain reports whether err belongs to the client-side taxonomy rather than the backend.
func IsDomain(err error) bool {
	for _, target := range []error{ValidationError, DuplicateKey, AlreadyExists, NotFound, Forbidden, RateLimited} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewForbidden returns a Forbidden error with the reason shown to the caller.
func NewForbidden(reason string) error {
	return fmt.Errorf("%w: %s", Forbidden, reason)
}
