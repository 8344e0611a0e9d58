package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes the persisted access token. The signature is not
// checked; only the backend can do that.
type TokenInfo struct {
	Subject   string    `json:"subject"`
	ID        string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Expired   bool      `json:"expired"`
}

// TokenInfo reports ok=false when no token is stored.
func (s *Session) TokenInfo(ctx context.Context) (TokenInfo, bool, error) {
	tok, err := s.store.Token(ctx)
	if err != nil || tok == "" {
		return TokenInfo{}, false, err
	}
	return ParseToken(tok, time.Now())
}

func ParseToken(tok string, now time.Time) (TokenInfo, bool, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return TokenInfo{}, true, err
	}
	info := TokenInfo{Subject: claims.Subject, ID: claims.ID}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time.UTC()
		info.Expired = !now.Before(info.ExpiresAt)
	}
	return info, true, nil
}
