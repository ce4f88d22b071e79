// Package errors provides structured error handling for nebula-crm
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors, fatal at open
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeRemoteFetch represents a failed page fetch; it ends the read sequence
	ErrorTypeRemoteFetch ErrorType = "remote_fetch"
	// ErrorTypeNotFound represents a missing remote record
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeRemoteWrite represents a failed create, update or identity lookup
	ErrorTypeRemoteWrite ErrorType = "remote_write"
	// ErrorTypeMalformedRecord represents input that could not be decoded into properties
	ErrorTypeMalformedRecord ErrorType = "malformed_record"
	// ErrorTypeConnection represents transport failures below the HTTP layer
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeFile represents local file errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value, or "" when it is missing or not a string.
func (e *Error) Detail(key string) string {
	s, _ := e.Details[key].(string)
	return s
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// NewRemoteFetch reports a failed page fetch for url.
func NewRemoteFetch(url string, cause error) *Error {
	e := Wrap(cause, ErrorTypeRemoteFetch, "page fetch failed")
	if e == nil {
		e = New(ErrorTypeRemoteFetch, "page fetch failed")
	}
	return e.WithDetail("url", url)
}

// NewRemoteWrite reports a failed write of operation against entity.
func NewRemoteWrite(entity, operation string, cause error) *Error {
	e := Wrap(cause, ErrorTypeRemoteWrite, operation+" failed")
	if e == nil {
		e = New(ErrorTypeRemoteWrite, operation+" failed")
	}
	return e.WithDetail("entity", entity).WithDetail("operation", operation)
}

// NewMalformedRecord reports input that could not be decoded.
func NewMalformedRecord(message string, cause error) *Error {
	if cause == nil {
		return New(ErrorTypeMalformedRecord, message)
	}
	return Wrap(cause, ErrorTypeMalformedRecord, message)
}

// IsType checks if the outermost structured error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost structured error, or "" when err
// carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// RemoteError is returned by transports when the remote answered with a
// non-success status.
type RemoteError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err anywhere in its chain is a 404 from the
// remote or a not_found structured error.
func IsNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if se, ok := e.(*Error); ok && se.Type == ErrorTypeNotFound {
			return true
		}
	}
	return false
}

// StatusCode returns the remote status code carried by err, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
