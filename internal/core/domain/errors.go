package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Error codes carried by APIError. Application codes parsed from an error
// body are passed through unchanged; these are the ones the client assigns.
const (
	// CodeTimeout marks an attempt that exceeded its time budget.
	CodeTimeout = "TIMEOUT"

	// CodeNetworkError marks a failure before any response was obtained.
	CodeNetworkError = "NETWORK_ERROR"

	// CodeDecodeError marks a successful response whose body could not be
	// decoded into the declared payload type.
	CodeDecodeError = "DECODE_ERROR"
)

// DefaultErrorMessage is used whenever no better message is available.
const DefaultErrorMessage = "An error occurred"

// ErrorKind is the failure class derived from an APIError.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindHTTP      ErrorKind = "http"
	KindDecode    ErrorKind = "decode"
)

// APIError is the single error shape surfaced by the request pipeline,
// whatever the underlying cause.
type APIError struct {
	// Message is the human-readable error message. Never empty.
	Message string `json:"message"`

	// Status is the HTTP status, or 0 for failures without a response.
	Status int `json:"status,omitempty"`

	// Code is a machine-readable category such as TIMEOUT or HTTP_404.
	Code string `json:"code,omitempty"`

	// Data is the parsed error body, if there was one.
	Data json.RawMessage `json:"data,omitempty"`

	err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Status != 0 && e.Code != "":
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.err
}

// HasStatus reports whether the error carries an HTTP status.
func (e *APIError) HasStatus() bool {
	return e.Status != 0
}

// Kind classifies the error.
func (e *APIError) Kind() ErrorKind {
	switch e.Code {
	case CodeTimeout:
		return KindTimeout
	case CodeNetworkError:
		return KindTransport
	case CodeDecodeError:
		return KindDecode
	}
	if e.Status == 0 {
		return KindTransport
	}
	return KindHTTP
}

// Retryable reports whether the failure is transient at the transport level.
// HTTP failures are never retried by the pipeline itself.
func (e *APIError) Retryable() bool {
	k := e.Kind()
	return k == KindTimeout || k == KindTransport
}

// NewAPIError creates an error with the given message, falling back to
// DefaultErrorMessage when message is empty.
func NewAPIError(message string) *APIError {
	if message == "" {
		message = DefaultErrorMessage
	}
	return &APIError{Message: message}
}

// WithStatus sets the HTTP status.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// WithCode sets the error code.
func (e *APIError) WithCode(code string) *APIError {
	e.Code = code
	return e
}

// WithData attaches the raw error payload.
func (e *APIError) WithData(data json.RawMessage) *APIError {
	e.Data = data
	return e
}

// WithCause records the underlying error for errors.Is/errors.As.
func (e *APIError) WithCause(err error) *APIError {
	e.err = err
	return e
}

// ErrTimeout creates the error for an attempt that exceeded its budget.
func ErrTimeout(cause error) *APIError {
	return NewAPIError("Request timeout").
		WithStatus(http.StatusRequestTimeout).
		WithCode(CodeTimeout).
		WithCause(cause)
}

// ErrNetwork wraps a failure that happened before a response was obtained.
func ErrNetwork(cause error) *APIError {
	msg := "Unknown error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return NewAPIError(msg).WithCode(CodeNetworkError).WithCause(cause)
}

// ErrDecode wraps a body decode failure on an otherwise successful response.
func ErrDecode(status int, cause error) *APIError {
	return NewAPIError(fmt.Sprintf("failed to decode response: %v", cause)).
		WithStatus(status).
		WithCode(CodeDecodeError).
		WithCause(cause)
}

// HTTPCode returns the fallback code for an HTTP status, e.g. HTTP_404.
func HTTPCode(status int) string {
	return "HTTP_" + strconv.Itoa(status)
}
