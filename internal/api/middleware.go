package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Doer sends one HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware wraps a Doer. Every request of a Client passes through the same
// chain.
type Middleware func(next Doer) Doer

// Chain applies mw so that mw[0] is the outermost stage.
func Chain(d Doer, mw ...Middleware) Doer {
	for i := len(mw) - 1; i >= 0; i-- {
		d = mw[i](d)
	}
	return d
}

// TokenStore is the persisted session as seen by the transport.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with a fresh id unless one is already set.
func RequestID(prefix string) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) == "" {
				id, err := gonanoid.New()
				if err != nil {
					return nil, fmt.Errorf("generate request id: %w", err)
				}
				req.Header.Set(HeaderRequestID, prefix+id)
			}
			return next.Do(req)
		})
	}
}

func Logging(log zerolog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			reqID := req.Header.Get(HeaderRequestID)
			if err != nil {
				log.Debug().Err(err).Str("request_id", reqID).Msgf("%s %s (%v)", req.Method, req.URL.Path, time.Since(start))
				return nil, err
			}
			log.Debug().Str("request_id", reqID).Msgf("%s %s (%v) %d", req.Method, req.URL.Path, time.Since(start), resp.StatusCode)
			return resp, nil
		})
	}
}

// BearerAuth reads the token on every request so a login or logout in another
// part of the program takes effect immediately.
func BearerAuth(tokens TokenStore) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if tokens != nil {
				tok, err := tokens.Token(req.Context())
				if err != nil {
					return nil, fmt.Errorf("read session token: %w", err)
				}
				if tok != "" {
					req.Header.Set("Authorization", "Bearer "+tok)
				}
			}
			return next.Do(req)
		})
	}
}

// Unauthorized turns any 401 into a session reset: the persisted session is
// cleared, onUnauthorized runs, and the caller gets an error wrapping
// ErrUnauthorized instead of the response.
func Unauthorized(tokens TokenStore, log zerolog.Logger, onUnauthorized func()) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			_ = resp.Body.Close()

			if tokens != nil {
				if cerr := tokens.Clear(context.WithoutCancel(req.Context())); cerr != nil {
					log.Warn().Err(cerr).Msg("clear session after 401")
				}
			}
			if onUnauthorized != nil {
				onUnauthorized()
			}

			apiErr := &Error{Method: req.Method, Path: req.URL.Path, Status: resp.StatusCode, Err: ErrUnauthorized}
			if env, ok := decodeEnvelope[struct{}](b); ok && env.Error != nil {
				apiErr.Message = env.Error.Message
				apiErr.Code = string(env.Error.Code)
			}
			return nil, apiErr
		})
	}
}
