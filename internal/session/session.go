package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"teamboard/internal/api"
	"teamboard/internal/model"
	"teamboard/internal/perm"
	"teamboard/internal/service"
	"teamboard/internal/store"
)

var ErrNotAuthenticated = errors.New("not signed in")

// InitOutcome records how Init resolved the persisted session.
type InitOutcome int

const (
	InitPending InitOutcome = iota
	// InitNoSession: nothing was persisted.
	InitNoSession
	// InitResolved: the persisted token resolved to a user.
	InitResolved
	// InitFailed: a token was persisted but resolving it failed; the
	// session was cleared.
	InitFailed
)

func (o InitOutcome) String() string {
	switch o {
	case InitNoSession:
		return "no-session"
	case InitResolved:
		return "resolved"
	case InitFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Navigator moves the front end to its login entry point.
type Navigator interface {
	ToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (model.User, error)
}

type Options struct {
	Store     *store.SessionStore
	Logger    *zerolog.Logger
	Navigator Navigator
}

// Session is the signed-in state shared by every view and command of one
// process. Login, logout and the 401 interrupt are its only writers; they are
// serialized here and the store writes token and user together.
type Session struct {
	mu sync.RWMutex
	// wmu serializes writers of the persisted state. It is never held across
	// a network call.
	wmu sync.Mutex

	store *store.SessionStore
	auth  AuthService
	log   zerolog.Logger
	nav   Navigator

	user    *model.User
	loading bool
	outcome InitOutcome
	initErr error
}

func New(opts Options) *Session {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Session{
		store:   opts.Store,
		log:     log,
		nav:     opts.Navigator,
		loading: true,
	}
}

// SetAuth attaches the auth service. The service's transport usually needs
// the session as its token store, so the two are built in two steps.
func (s *Session) SetAuth(a AuthService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

// SetNavigator replaces the login navigator.
func (s *Session) SetNavigator(n Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = n
}

type ConnectOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *store.SessionStore
	Logger     *zerolog.Logger
	Navigator  Navigator
}

// Connect builds a session and the services sharing its token.
func Connect(opts ConnectOptions) (*Session, *service.Services) {
	s := New(Options{Store: opts.Store, Logger: opts.Logger, Navigator: opts.Navigator})
	client := api.New(api.Options{
		BaseURL:        opts.BaseURL,
		HTTPClient:     opts.HTTPClient,
		Tokens:         s,
		Logger:         opts.Logger,
		OnUnauthorized: s.unauthorized,
	})
	svc := service.New(client)
	s.SetAuth(svc.Auth)
	return s, svc
}

func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin()
}

func (s *Session) Actor() (perm.Actor, bool) {
	u, ok := s.User()
	if !ok {
		return perm.Actor{}, false
	}
	return perm.ActorFor(u), true
}

// RequireActor is Actor with ErrNotAuthenticated for the signed-out case.
func (s *Session) RequireActor() (perm.Actor, error) {
	a, ok := s.Actor()
	if !ok {
		return perm.Actor{}, ErrNotAuthenticated
	}
	return a, nil
}

func (s *Session) Outcome() InitOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// InitErr is the cause of an InitFailed outcome.
func (s *Session) InitErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initErr
}

// Init resolves a persisted token into the current user. It never fails:
// when resolution fails the persisted session is dropped and the session
// continues signed out. IsLoading turns false once Init returns.
func (s *Session) Init(ctx context.Context) {
	outcome, user, cause := s.resolve(ctx)

	s.mu.Lock()
	s.user = user
	s.outcome = outcome
	s.initErr = cause
	s.loading = false
	s.mu.Unlock()

	switch outcome {
	case InitFailed:
		s.log.Warn().Err(cause).Msg("session check failed; continuing signed out")
	case InitResolved:
		s.log.Debug().Int64("user_id", user.ID).Msg("session resolved")
	default:
		s.log.Debug().Msg("no persisted session")
	}
}

func (s *Session) resolve(ctx context.Context) (InitOutcome, *model.User, error) {
	tok, err := s.store.Token(ctx)
	if err != nil {
		return InitFailed, nil, err
	}
	if tok == "" {
		return InitNoSession, nil, nil
	}
	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		return InitFailed, nil, errors.New("session has no auth service")
	}
	u, err := auth.CurrentUser(ctx)
	if err != nil {
		if cerr := s.Clear(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("clear session")
		}
		return InitFailed, nil, err
	}
	if err := s.refreshStoredUser(ctx, tok, u); err != nil {
		s.log.Warn().Err(err).Msg("refresh stored user")
	}
	return InitResolved, &u, nil
}

// refreshStoredUser persists u only while tok is still the stored token, so a
// Clear that raced the /auth/me call is not undone.
func (s *Session) refreshStoredUser(ctx context.Context, tok string, u model.User) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	cur, err := s.store.Token(ctx)
	if err != nil || cur != tok {
		return err
	}
	return s.store.SaveUser(ctx, u)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	auth, err := s.authService()
	if err != nil {
		return err
	}
	res, err := auth.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.establish(ctx, res)
}

func (s *Session) Register(ctx context.Context, name, email, password string) error {
	auth, err := s.authService()
	if err != nil {
		return err
	}
	res, err := auth.Register(ctx, model.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.establish(ctx, res)
}

// Logout tells the server, ignoring any failure, then always clears the
// local session.
func (s *Session) Logout(ctx context.Context) error {
	if auth, err := s.authService(); err == nil {
		if err := auth.Logout(ctx); err != nil {
			s.log.Debug().Err(err).Msg("logout request failed")
		}
	}
	return s.Clear(ctx)
}

func (s *Session) authService() (AuthService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, errors.New("session has no auth service")
	}
	return s.auth, nil
}

func (s *Session) establish(ctx context.Context, res model.AuthResponse) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.store.Save(ctx, res.AccessToken, res.User); err != nil {
		return err
	}
	u := res.User
	s.mu.Lock()
	s.user = &u
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Token implements api.TokenStore.
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.store.Token(ctx)
}

// Clear drops the persisted token and user and signs the session out. It
// implements api.TokenStore and is what the 401 interrupt calls.
func (s *Session) Clear(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	err := s.store.Clear(ctx)
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return err
}

func (s *Session) unauthorized() {
	s.mu.RLock()
	nav := s.nav
	s.mu.RUnlock()
	s.log.Info().Msg("unauthorized; returning to login")
	if nav != nil {
		nav.ToLogin()
	}
}
