package store

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"

	"teamboard/internal/model"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

// SessionStore persists the bearer token and the signed-in user side by side.
// Token and user are always written and cleared together.
type SessionStore struct {
	kv Storage
}

func NewSessionStore(kv Storage) *SessionStore {
	return &SessionStore{kv: kv}
}

// Token returns the persisted bearer token, or "" when signed out.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	v, ok, err := s.kv.Get(ctx, KeyToken)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// User returns the persisted user. A missing or unreadable entry yields nil.
func (s *SessionStore) User(ctx context.Context) (*model.User, error) {
	v, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil || !ok || strings.TrimSpace(v) == "" {
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

func (s *SessionStore) Save(ctx context.Context, token string, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.kv.SetMany(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(b),
	})
}

// SaveUser replaces the persisted user and leaves the token alone.
func (s *SessionStore) SaveUser(ctx context.Context, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.kv.SetMany(ctx, map[string]string{KeyUser: string(b)})
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken, KeyUser)
}
