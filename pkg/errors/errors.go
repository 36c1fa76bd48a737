package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindValidation Kind = iota + 1000
	KindInvalidReference
	KindPermissionDenied
	KindInvalidTransition
	KindAlreadyInState
	KindNotFound
	KindStorage
	KindPersistence
)

// AppError represents an application error.
type AppError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status. AlreadyInState is a
// tolerated no-op, not a failure.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindInvalidReference:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindInvalidTransition:
		return http.StatusConflict
	case KindAlreadyInState:
		return http.StatusOK
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Expected reports whether the error is a business-rule outcome the caller
// handles, as opposed to a system failure worth logging.
func (e *AppError) Expected() bool {
	switch e.Kind {
	case KindStorage, KindPersistence:
		return false
	default:
		return true
	}
}

// Error constructors
func Validation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

func InvalidReference(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindInvalidReference,
		Message: fmt.Sprintf("invalid %s reference", resource),
		Err:     err,
	}
}

func PermissionDenied(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{Kind: KindPermissionDenied, Message: message}
}

func InvalidTransition(message string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Message: message}
}

func AlreadyInState(state string) *AppError {
	return &AppError{
		Kind:    KindAlreadyInState,
		Message: fmt.Sprintf("already %s", state),
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Storage(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Err: err}
}

func Persistence(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind anywhere in
// its chain.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
