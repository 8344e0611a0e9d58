package service

import (
	"context"
	"fmt"
	"net/http"

	"teamboard/internal/model"
)

type TaskService struct{ base }

func taskPath(id int64) string { return fmt.Sprintf("/team-tasks/%d", id) }

func subTaskPath(taskID, subID int64) string {
	return fmt.Sprintf("/team-tasks/%d/sub-tasks/%d", taskID, subID)
}

func (s *TaskService) List(ctx context.Context) ([]model.TeamTask, error) {
	return call[[]model.TeamTask](ctx, s.base, "list tasks", http.MethodGet, "/team-tasks", nil, "Failed to fetch tasks")
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.TeamTask, error) {
	return call[model.TeamTask](ctx, s.base, "get task", http.MethodGet, taskPath(id), nil, "Failed to fetch task")
}

func (s *TaskService) Create(ctx context.Context, in model.CreateTask) (model.TeamTask, error) {
	if err := s.validate("create task", in); err != nil {
		return model.TeamTask{}, err
	}
	return call[model.TeamTask](ctx, s.base, "create task", http.MethodPost, "/team-tasks", in, "Failed to create task")
}

func (s *TaskService) Update(ctx context.Context, id int64, in model.UpdateTask) (model.TeamTask, error) {
	if err := s.validate("update task", in); err != nil {
		return model.TeamTask{}, err
	}
	return call[model.TeamTask](ctx, s.base, "update task", http.MethodPut, taskPath(id), in, "Failed to update task")
}

func (s *TaskService) UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) (model.TeamTask, error) {
	if err := s.validateTaskStatus("update task status", status); err != nil {
		return model.TeamTask{}, err
	}
	in := model.StatusPatch[model.TaskStatus]{Status: status}
	return call[model.TeamTask](ctx, s.base, "update task status", http.MethodPatch, taskPath(id)+"/status", in, "Failed to update status")
}

// Assign sets or, with a nil userID, clears the assignee.
func (s *TaskService) Assign(ctx context.Context, id int64, userID *int64) (model.TeamTask, error) {
	in := model.AssignPatch{AssignedUserID: userID}
	return call[model.TeamTask](ctx, s.base, "assign task", http.MethodPatch, taskPath(id)+"/assign", in, "Failed to assign task")
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return callNoData(ctx, s.base, "delete task", http.MethodDelete, taskPath(id), "Failed to delete task")
}

func (s *TaskService) ListSubTasks(ctx context.Context, taskID int64) ([]model.SubTask, error) {
	return call[[]model.SubTask](ctx, s.base, "list sub-tasks", http.MethodGet, taskPath(taskID)+"/sub-tasks", nil, "Failed to fetch sub-tasks")
}

func (s *TaskService) CreateSubTask(ctx context.Context, taskID int64, in model.CreateSubTask) (model.SubTask, error) {
	if err := s.validate("create sub-task", in); err != nil {
		return model.SubTask{}, err
	}
	return call[model.SubTask](ctx, s.base, "create sub-task", http.MethodPost, taskPath(taskID)+"/sub-tasks", in, "Failed to create sub-task")
}

func (s *TaskService) UpdateSubTask(ctx context.Context, taskID, subID int64, in model.UpdateSubTask) (model.SubTask, error) {
	if err := s.validate("update sub-task", in); err != nil {
		return model.SubTask{}, err
	}
	return call[model.SubTask](ctx, s.base, "update sub-task", http.MethodPut, subTaskPath(taskID, subID), in, "Failed to update sub-task")
}

func (s *TaskService) UpdateSubTaskStatus(ctx context.Context, taskID, subID int64, status model.TaskStatus) (model.SubTask, error) {
	if err := s.validateTaskStatus("update sub-task status", status); err != nil {
		return model.SubTask{}, err
	}
	in := model.StatusPatch[model.TaskStatus]{Status: status}
	return call[model.SubTask](ctx, s.base, "update sub-task status", http.MethodPatch, subTaskPath(taskID, subID)+"/status", in, "Failed to update sub-task status")
}

func (s *TaskService) DeleteSubTask(ctx context.Context, taskID, subID int64) error {
	return callNoData(ctx, s.base, "delete sub-task", http.MethodDelete, subTaskPath(taskID, subID), "Failed to delete sub-task")
}
