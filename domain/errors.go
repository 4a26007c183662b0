package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError blocks a request before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError is returned when the backend rejects credentials.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// NotFoundError is returned for a 404 on a detail fetch.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Resource != "" {
		return e.Resource + " not found"
	}
	return "not found"
}

// TransportError covers network failures and undecodable responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is any other non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d (%s)", e.Status, http.StatusText(e.Status))
}

// Message returns the text shown to the user for err: the backend or
// validation message when there is one, the error text otherwise, and
// fallback when err carries nothing printable.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var (
		verr *ValidationError
		aerr *AuthenticationError
		nerr *NotFoundError
		perr *APIError
	)
	switch {
	case errors.As(err, &verr):
		return orFallback(verr.Message, fallback)
	case errors.As(err, &aerr):
		return orFallback(aerr.Message, fallback)
	case errors.As(err, &nerr):
		return orFallback(nerr.Message, fallback)
	case errors.As(err, &perr):
		return orFallback(perr.Message, fallback)
	}
	return orFallback(err.Error(), fallback)
}

func orFallback(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
