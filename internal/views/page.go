// Package views holds the screen controllers shared by the TUI and tests:
// the dashboard, the team board and the task detail page. Controllers own a
// copy of the last server response and never apply a change the server has
// not confirmed.
package views

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
	"teamboard/internal/service"
)

// Identity is the signed-in user as the controllers see it. *session.Session
// implements it.
type Identity interface {
	User() (model.User, bool)
	Actor() (perm.Actor, bool)
}

type Deps struct {
	Services *service.Services
	Identity Identity
	Logger   *zerolog.Logger
}

// Error is what a controller returns when an operation fails. Message is the
// banner text; Err is the cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// page is the state every controller shares: the error banner, the loading
// flag and the closed latch.
type page struct {
	mu      sync.Mutex
	loading bool
	closed  bool
	err     string
	log     zerolog.Logger
}

func (p *page) setLogger(log *zerolog.Logger) {
	p.log = zerolog.Nop()
	if log != nil {
		p.log = *log
	}
}

// Err is the page-level error banner, empty when there is none.
func (p *page) Err() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *page) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = ""
}

func (p *page) IsLoading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Close detaches the controller from its screen. Responses that arrive later
// are dropped. Requests already in flight are left to finish.
func (p *page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// apply runs fn under the lock unless the page was closed meanwhile.
func (p *page) apply(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	fn()
	return true
}

// fail records msg in the banner and returns it as *Error. A closed page
// keeps its banner untouched.
func (p *page) fail(op, msg string, err error) error {
	p.log.Debug().Err(err).Str("op", op).Msg(msg)
	p.apply(func() { p.err = msg })
	return &Error{Message: msg, Err: err}
}

// bannerFor picks the message for a failed mutation: the local denial when
// the gate refused, the fixed denial for a server-side 403, otherwise the
// fallback.
func bannerFor(err error, fallback, denied string) string {
	var pe *mutate.PermissionError
	if errors.As(err, &pe) {
		return pe.Message
	}
	if denied != "" && service.IsForbidden(err) {
		return denied
	}
	return fallback
}

func actorOf(id Identity) (perm.Actor, bool) {
	if id == nil {
		return perm.Actor{}, false
	}
	return id.Actor()
}

func teamOf(id Identity) (int64, bool) {
	if id == nil {
		return 0, false
	}
	u, ok := id.User()
	if !ok || u.TeamID == nil {
		return 0, false
	}
	return *u.TeamID, true
}

func replaceByID[T any](items []T, id func(T) int64, v T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if id(out[i]) == id(v) {
			out[i] = v
		}
	}
	return out
}

func removeByID[T any](items []T, id func(T) int64, target int64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if id(it) != target {
			out = append(out, it)
		}
	}
	return out
}

func todoKey(t model.PrivateTodo) int64 { return t.ID }

func taskKey(t model.TeamTask) int64 { return t.ID }

func subTaskKey(s model.SubTask) int64 { return s.ID }
