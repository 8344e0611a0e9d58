package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL  = "http://localhost:5000/api"
	RequestIDPrefix = "TB-"

	maxBody = 8 << 20
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Tokens supplies the bearer token and is cleared on 401.
	Tokens TokenStore
	Logger *zerolog.Logger
	// OnUnauthorized runs after the session has been cleared by a 401.
	OnUnauthorized func()
	// Middleware is appended after the built-in stages, closest to the wire.
	Middleware []Middleware
}

// Client talks to the teamboard REST backend.
type Client struct {
	baseURL string
	doer    Doer
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	mw := []Middleware{
		RequestID(RequestIDPrefix),
		Logging(log),
		Unauthorized(opts.Tokens, log, opts.OnUnauthorized),
		BearerAuth(opts.Tokens),
	}
	mw = append(mw, opts.Middleware...)

	return &Client{
		baseURL: base,
		doer:    Chain(hc, mw...),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Call sends one request and decodes the envelope.
//
// Any response carrying an envelope is returned as-is, whatever its status,
// so callers can forward the server's message. A non-2xx response without an
// envelope becomes *Error; a request that fails before a response arrives
// becomes *TransportError.
func Call[T any](ctx context.Context, c *Client, method, path string, body any) (Envelope[T], error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Envelope[T]{}, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return Envelope[T]{}, &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return Envelope[T]{}, err
		}
		return Envelope[T]{}, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Envelope[T]{}, &TransportError{Method: method, Path: path, Err: err}
	}

	env, ok := decodeEnvelope[T](b)
	if !ok {
		msg := http.StatusText(resp.StatusCode)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			msg = "malformed response body"
		}
		return Envelope[T]{}, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: msg}
	}
	env.Status = resp.StatusCode
	return env, nil
}
