// Package errors holds the domain error taxonomy shared by services and
// handlers. Every user-facing failure is a *DomainError; anything else is
// treated as an infrastructure failure.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies a DomainError for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindRateLimited
)

type DomainError struct {
	Code    string
	Message string
	Kind    Kind
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches on Code so wrapped copies still compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Kind: e.Kind, cause: cause}
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(msg string) *DomainError {
	return &DomainError{Code: e.Code, Message: msg, Kind: e.Kind, cause: e.cause}
}

// Retryable reports whether the caller may safely retry. Only
// infrastructure failures are.
func (e *DomainError) Retryable() bool {
	return e.Kind == KindInternal
}

// As extracts the DomainError from an error chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	de, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
