// Package errinfo turns pipeline failures into user-facing text.
package errinfo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
)

// Info is the presentation of one failure.
type Info struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Action  string `json:"action,omitempty"`
}

const actionRetry = "Please try again"

var (
	timeoutInfo = Info{
		Title:   "Request Timeout",
		Message: "The request took too long to complete.",
		Code:    domain.CodeTimeout,
		Action:  "Check your connection and try again",
	}
	networkInfo = Info{
		Title:   "Network Error",
		Message: "Unable to connect to the server. Please check your internet connection.",
		Code:    domain.CodeNetworkError,
		Action:  "Check your connection and try again",
	}
)

// FromError classifies err. An *domain.APIError anywhere in the chain is
// mapped by status first and code second; other errors get a generic entry.
func FromError(err error) Info {
	if err == nil {
		return Info{
			Title:   "Unknown Error",
			Message: "An unexpected error occurred",
			Action:  actionRetry,
		}
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr)
	}

	return Info{Title: "Error", Message: err.Error(), Action: actionRetry}
}

func fromAPIError(e *domain.APIError) Info {
	switch e.Status {
	case http.StatusBadRequest:
		return Info{
			Title:   "Bad Request",
			Message: messageOr(e, "Invalid request. Please check your input."),
			Code:    e.Code,
			Action:  "Check your input and try again",
		}
	case http.StatusUnauthorized:
		return Info{
			Title:   "Unauthorized",
			Message: "Your session has expired. Please log in again.",
			Code:    e.Code,
			Action:  "Log in again",
		}
	case http.StatusForbidden:
		return Info{
			Title:   "Forbidden",
			Message: "You do not have permission to perform this action.",
			Code:    e.Code,
			Action:  "Contact support if you need access",
		}
	case http.StatusNotFound:
		return Info{
			Title:   "Not Found",
			Message: messageOr(e, "The requested resource was not found."),
			Code:    e.Code,
			Action:  actionRetry,
		}
	case http.StatusRequestTimeout:
		return timeoutInfo
	case http.StatusTooManyRequests:
		return Info{
			Title:   "Too Many Requests",
			Message: "You have made too many requests. Please slow down.",
			Code:    e.Code,
			Action:  "Wait a moment and try again",
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Info{
			Title:   "Server Error",
			Message: "The server encountered an error. Please try again later.",
			Code:    e.Code,
			Action:  "Try again later",
		}
	}

	switch e.Code {
	case domain.CodeNetworkError:
		return networkInfo
	case domain.CodeTimeout:
		return timeoutInfo
	}

	return Info{
		Title:   "Error",
		Message: messageOr(e, domain.DefaultErrorMessage),
		Code:    e.Code,
		Action:  actionRetry,
	}
}

func messageOr(e *domain.APIError, fallback string) string {
	if e.Message == "" {
		return fallback
	}
	return e.Message
}

// Message returns only the user-facing message for err.
func Message(err error) string {
	return FromError(err).Message
}

// String renders the info as a short block of text.
func (i Info) String() string {
	s := fmt.Sprintf("%s: %s", i.Title, i.Message)
	if i.Action != "" {
		s += "\n\n" + i.Action
	}
	return s
}

// Log records err with its presentation fields. where names the operation
// that failed and may be empty.
func Log(logger *slog.Logger, err error, where string) {
	if logger == nil {
		logger = slog.Default()
	}
	info := FromError(err)
	attrs := []any{
		slog.String("title", info.Title),
		slog.String("message", info.Message),
	}
	if info.Code != "" {
		attrs = append(attrs, slog.String("code", info.Code))
	}
	if where != "" {
		attrs = append(attrs, slog.String("context", where))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.Error("operation failed", attrs...)
}
