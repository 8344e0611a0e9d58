package mutate

import (
	"errors"
	"fmt"
)

var ErrInvalidStatus = errors.New("invalid status")

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

// Fixed denial messages shown to the user when the local gate refuses a
// change. A 403 from the backend maps to the same text.
const (
	DeniedTask    = "You can only update tasks assigned to you"
	DeniedSubTask = "You can only update sub-tasks assigned to you"
	DeniedTodo    = "You can only update your own todos"
	DeniedAdmin   = "Admin access required"
)

type PermissionError struct {
	Kind    string
	ID      int64
	ActorID int64
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}
