package service

import (
	"context"
	"fmt"
	"net/http"

	"teamboard/internal/model"
)

type TodoService struct{ base }

func (s *TodoService) List(ctx context.Context) ([]model.PrivateTodo, error) {
	return call[[]model.PrivateTodo](ctx, s.base, "list todos", http.MethodGet, "/private-todos", nil, "Failed to fetch todos")
}

func (s *TodoService) Get(ctx context.Context, id int64) (model.PrivateTodo, error) {
	return call[model.PrivateTodo](ctx, s.base, "get todo", http.MethodGet, fmt.Sprintf("/private-todos/%d", id), nil, "Failed to fetch todo")
}

func (s *TodoService) Create(ctx context.Context, in model.CreateTodo) (model.PrivateTodo, error) {
	if err := s.validate("create todo", in); err != nil {
		return model.PrivateTodo{}, err
	}
	return call[model.PrivateTodo](ctx, s.base, "create todo", http.MethodPost, "/private-todos", in, "Failed to create todo")
}

func (s *TodoService) Update(ctx context.Context, id int64, in model.UpdateTodo) (model.PrivateTodo, error) {
	if err := s.validate("update todo", in); err != nil {
		return model.PrivateTodo{}, err
	}
	return call[model.PrivateTodo](ctx, s.base, "update todo", http.MethodPut, fmt.Sprintf("/private-todos/%d", id), in, "Failed to update todo")
}

// UpdateStatus is Update with only the status set. Todos have no dedicated
// status endpoint.
func (s *TodoService) UpdateStatus(ctx context.Context, id int64, status model.TodoStatus) (model.PrivateTodo, error) {
	return s.Update(ctx, id, model.UpdateTodo{Status: &status})
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	return callNoData(ctx, s.base, "delete todo", http.MethodDelete, fmt.Sprintf("/private-todos/%d", id), "Failed to delete todo")
}
