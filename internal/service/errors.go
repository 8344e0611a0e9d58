package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"teamboard/internal/api"
)

// Error is a failed resource operation. Message is the server's error
// message when it sent one, else the operation's fixed default.
type Error struct {
	Op      string
	Message string
	Status  int
	Code    string
	Details json.RawMessage

	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsForbidden reports whether err is a 403 rejection from the backend.
func IsForbidden(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Status == http.StatusForbidden
	}
	return api.StatusOf(err) == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound
	}
	return api.StatusOf(err) == http.StatusNotFound
}

type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	if f.Param == "" {
		return f.Field + ": " + f.Rule
	}
	return f.Field + ": " + f.Rule + "=" + f.Param
}

// ValidationError is returned before any request is sent when a payload
// fails its validate tags.
type ValidationError struct {
	Op     string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func fromValidator(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Op: op}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
