package service

import (
	"context"
	"fmt"
	"net/http"

	"teamboard/internal/model"
)

type UserService struct{ base }

func (s *UserService) TeamMembers(ctx context.Context, teamID int64) ([]model.TeamMember, error) {
	return call[[]model.TeamMember](ctx, s.base, "team members", http.MethodGet, fmt.Sprintf("/teams/%d/users", teamID), nil, "Failed to fetch team members")
}
