package statusutil

import (
	"fmt"
	"strings"

	"teamboard/internal/model"
)

// TaskStatuses is the closed set of team task and sub-task statuses, in board
// column order.
var TaskStatuses = []model.TaskStatus{
	model.TaskStatusTodo,
	model.TaskStatusInProgress,
	model.TaskStatusBlocked,
	model.TaskStatusDone,
}

// TodoStatuses is the closed set of private todo statuses.
var TodoStatuses = []model.TodoStatus{
	model.TodoStatusTodo,
	model.TodoStatusInProgress,
	model.TodoStatusDone,
}

var labels = map[string]string{
	"TODO":        "To Do",
	"IN_PROGRESS": "In Progress",
	"BLOCKED":     "Blocked",
	"DONE":        "Done",
}

// canonical maps user input to the wire value. Accepts the wire value in any
// case, the display label, and a few shorthands.
func canonical(s string) string {
	k := strings.ToUpper(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "TODO", "TO_DO":
		return "TODO"
	case "IN_PROGRESS", "INPROGRESS", "DOING", "WIP":
		return "IN_PROGRESS"
	case "BLOCKED":
		return "BLOCKED"
	case "DONE":
		return "DONE"
	default:
		return k
	}
}

func ParseTaskStatus(s string) (model.TaskStatus, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("invalid status: empty")
	}
	st := model.TaskStatus(canonical(s))
	if !ValidTaskStatus(st) {
		return "", fmt.Errorf("invalid status %q (want one of %s)", s, joinTask())
	}
	return st, nil
}

func ParseTodoStatus(s string) (model.TodoStatus, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("invalid status: empty")
	}
	st := model.TodoStatus(canonical(s))
	if !ValidTodoStatus(st) {
		return "", fmt.Errorf("invalid status %q (want one of %s)", s, joinTodo())
	}
	return st, nil
}

func ValidTaskStatus(s model.TaskStatus) bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ValidTodoStatus(s model.TodoStatus) bool {
	for _, v := range TodoStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Label returns the display label for a status ("In Progress" for IN_PROGRESS).
func Label[S ~string](s S) string {
	if l, ok := labels[string(s)]; ok {
		return l
	}
	return string(s)
}

func IsDone[S ~string](s S) bool {
	return string(s) == "DONE"
}

// ColumnIndex returns the board column for a task status, or -1.
func ColumnIndex(s model.TaskStatus) int {
	for i, v := range TaskStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

func joinTask() string {
	xs := make([]string, 0, len(TaskStatuses))
	for _, s := range TaskStatuses {
		xs = append(xs, string(s))
	}
	return strings.Join(xs, ", ")
}

func joinTodo() string {
	xs := make([]string, 0, len(TodoStatuses))
	for _, s := range TodoStatuses {
		xs = append(xs, string(s))
	}
	return strings.Join(xs, ", ")
}
