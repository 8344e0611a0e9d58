package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is wrapped by every error produced for an HTTP 401. By the
// time a caller sees it the session has already been cleared.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response.
type Error struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
