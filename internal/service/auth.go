package service

import (
	"context"
	"net/http"

	"teamboard/internal/api"
	"teamboard/internal/model"
)

type AuthService struct{ base }

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	if err := s.validate("register", req); err != nil {
		return model.AuthResponse{}, err
	}
	return call[model.AuthResponse](ctx, s.base, "register", http.MethodPost, "/auth/register", req, "Registration failed")
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	if err := s.validate("login", req); err != nil {
		return model.AuthResponse{}, err
	}
	return call[model.AuthResponse](ctx, s.base, "login", http.MethodPost, "/auth/login", req, "Login failed")
}

// Logout notifies the server. The response body is not inspected.
func (s *AuthService) Logout(ctx context.Context) error {
	env, err := api.Call[struct{}](ctx, s.c, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	if env.Status >= 300 {
		return &Error{Op: "logout", Message: "Logout failed", Status: env.Status}
	}
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context) (model.User, error) {
	return call[model.User](ctx, s.base, "current user", http.MethodGet, "/auth/me", nil, "Failed to get user")
}
