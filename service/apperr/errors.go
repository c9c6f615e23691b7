// Package apperr defines the error taxonomy shared by every endpoint.
// Handlers convert any error into a JSON body and status code at the boundary
// using KindOf, StatusCode and MessageOf.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an error.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindChainPolicy Kind = "chain_policy"
	KindStorage     Kind = "storage"
	KindUnknown     Kind = "unknown"
)

// Error codes used across the service.
const (
	CodeInvalidMessageFormat = "InvalidMessageFormat"
	CodeInvalidSignature     = "InvalidSignature"
	CodeInvalidPublicKey     = "InvalidPublicKey"
	CodeMissingCredentials   = "MissingCredentials"
	CodeNonceReused          = "NonceReused"
	CodeUnauthorized         = "Unauthorized"
	CodeInvalidAmount        = "InvalidAmount"
	CodeInvalidAccount       = "InvalidAccount"
	CodeInvalidInput         = "InvalidInput"
	CodeNotFound             = "NotFound"
	CodeRentExempt           = "RentExempt"
	CodeStorage              = "StorageError"
	CodeUnknown              = "UnknownError"
)

// DefaultMessage is exposed when an error carries no human-readable message.
const DefaultMessage = "Unknown error occurred"

// FieldError is a single itemized validation problem.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the single structured error type returned by service components.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates an itemized validation error.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: message, Fields: fields}
}

// InvalidAmount is returned when an amount is missing, unparseable or not positive.
func InvalidAmount(raw string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidAmount,
		Message: fmt.Sprintf("Invalid amount: %q", raw),
	}
}

// InvalidAccount is returned when a payer account is not a valid public key.
func InvalidAccount(cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidAccount,
		Message: `Invalid "account" provided`,
		Cause:   cause,
	}
}

// Auth creates an authentication error with the given code.
func Auth(code, message string, cause error) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message, Cause: cause}
}

// Unauthorized is returned when a request carries no valid session.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuth, Code: CodeUnauthorized, Message: message}
}

// NotFound creates a lookup error for the given resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// RentExempt is returned when a donation would leave the recipient below the rent floor.
func RentExempt(recipient string) *Error {
	return &Error{
		Kind:    KindChainPolicy,
		Code:    CodeRentExempt,
		Message: fmt.Sprintf("Account may not be rent exempt: %s", recipient),
	}
}

// Storage wraps a persistence failure.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: message, Cause: cause}
}

// Unknown wraps a failure that fits no other category.
func Unknown(cause error) *Error {
	msg := DefaultMessage
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return &Error{Kind: KindUnknown, Code: CodeUnknown, Message: msg, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of err, CodeUnknown when err is not an *Error.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the human-readable message carried by err.
func MessageOf(err error) string {
	if err == nil {
		return DefaultMessage
	}
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}

// StatusCode maps a kind to its HTTP status.
// Not found maps to 404 here; the Action endpoints override it with 400.
func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation, KindChainPolicy:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
