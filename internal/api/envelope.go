package api

import (
	json "github.com/goccy/go-json"
)

// Envelope is the wrapper every backend response uses.
type Envelope[T any] struct {
	Success bool           `json:"success"`
	Data    *T             `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`

	// Status is the HTTP status the envelope arrived with.
	Status int `json:"-"`
}

type EnvelopeError struct {
	Message string          `json:"message"`
	Code    Code            `json:"code"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Code is the error code of an envelope. The backend sends the HTTP status as
// a number; symbolic string codes are accepted too.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

// ErrorMessage returns the server's error message, or "".
func (e Envelope[T]) ErrorMessage() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Message
}

// decodeEnvelope reports ok=false when b is not an envelope at all.
func decodeEnvelope[T any](b []byte) (Envelope[T], bool) {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(b, &probe); err != nil || probe.Success == nil {
		return Envelope[T]{}, false
	}
	var env Envelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope[T]{}, false
	}
	return env, true
}
