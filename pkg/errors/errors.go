package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures reported back over the command channel
type ErrorType string

const (
	ErrorTypeInvalidInput     ErrorType = "invalid_input"
	ErrorTypeNotAuthenticated ErrorType = "not_authenticated"
	ErrorTypeSessionNotFound  ErrorType = "session_not_found"
	ErrorTypeProvider         ErrorType = "provider"
	ErrorTypeUnknownAction    ErrorType = "unknown_action"
	ErrorTypeStorage          ErrorType = "storage"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// Error carries a failure classification plus a message safe to forward to clients
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidInput reports a malformed or missing client-supplied value. The
// operation it guards must not have changed any state.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NotAuthenticated reports an operation attempted before login completed.
func NotAuthenticated(operation string) *Error {
	return &Error{Type: ErrorTypeNotAuthenticated, Message: fmt.Sprintf("%s requires authentication", operation)}
}

// SessionNotFound reports a command on a channel with no established phone key.
func SessionNotFound() *Error {
	return &Error{Type: ErrorTypeSessionNotFound, Message: "Session not found, please login again."}
}

// Provider wraps a failure from the auth/search/scrape backend.
func Provider(message string, cause error) *Error {
	return &Error{Type: ErrorTypeProvider, Message: message, Cause: cause}
}

// UnknownAction reports an unrecognized command tag.
func UnknownAction(action string) *Error {
	return &Error{Type: ErrorTypeUnknownAction, Message: fmt.Sprintf("Unknown action: %s", action)}
}

// Storage wraps a persistence failure.
func Storage(message string, cause error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: message, Cause: cause}
}

// TypeOf extracts the classification from err, walking wrapped causes.
// Errors without a classification map to ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// ClientMessage returns the human-readable message to forward over the
// channel. Unclassified errors are stringified as-is.
func ClientMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Is reports whether err carries the given classification.
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}
