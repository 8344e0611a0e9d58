package mutate

import (
	"fmt"

	"teamboard/internal/model"
	"teamboard/internal/perm"
	"teamboard/internal/statusutil"
)

// StatusChange is a planned status update. When Changed is false the caller
// must not send anything to the server.
type StatusChange[S ~string] struct {
	From    S
	To      S
	Changed bool
}

// PlanTaskStatus checks a team task status change. Order: enum validity, then
// no-op detection, then the permission gate.
func PlanTaskStatus(a perm.Actor, t model.TeamTask, to model.TaskStatus) (StatusChange[model.TaskStatus], error) {
	if !statusutil.ValidTaskStatus(to) {
		return StatusChange[model.TaskStatus]{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if t.Status == to {
		return StatusChange[model.TaskStatus]{From: t.Status, To: to}, nil
	}
	if !perm.CanMutateTaskStatus(a, t) {
		return StatusChange[model.TaskStatus]{}, &PermissionError{Kind: "task", ID: t.ID, ActorID: a.ID, Message: DeniedTask}
	}
	return StatusChange[model.TaskStatus]{From: t.Status, To: to, Changed: true}, nil
}

func PlanSubTaskStatus(a perm.Actor, st model.SubTask, to model.TaskStatus) (StatusChange[model.TaskStatus], error) {
	if !statusutil.ValidTaskStatus(to) {
		return StatusChange[model.TaskStatus]{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if st.Status == to {
		return StatusChange[model.TaskStatus]{From: st.Status, To: to}, nil
	}
	if !perm.CanMutateSubTaskStatus(a, st) {
		return StatusChange[model.TaskStatus]{}, &PermissionError{Kind: "sub-task", ID: st.ID, ActorID: a.ID, Message: DeniedSubTask}
	}
	return StatusChange[model.TaskStatus]{From: st.Status, To: to, Changed: true}, nil
}

func PlanTodoStatus(a perm.Actor, td model.PrivateTodo, to model.TodoStatus) (StatusChange[model.TodoStatus], error) {
	if !statusutil.ValidTodoStatus(to) {
		return StatusChange[model.TodoStatus]{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if td.Status == to {
		return StatusChange[model.TodoStatus]{From: td.Status, To: to}, nil
	}
	if !perm.CanMutateTodo(a, td) {
		return StatusChange[model.TodoStatus]{}, &PermissionError{Kind: "todo", ID: td.ID, ActorID: a.ID, Message: DeniedTodo}
	}
	return StatusChange[model.TodoStatus]{From: td.Status, To: to, Changed: true}, nil
}

// RequireStructure returns a PermissionError unless a may make structural
// edits (create, edit, delete, assign) to tasks and sub-tasks.
func RequireStructure(a perm.Actor, kind string, id int64) error {
	if perm.CanEditStructure(a) {
		return nil
	}
	return &PermissionError{Kind: kind, ID: id, ActorID: a.ID, Message: DeniedAdmin}
}

// FindSubTask looks up a sub-task inside its loaded parent.
func FindSubTask(t *model.TeamTask, subID int64) (*model.SubTask, error) {
	st, ok := t.FindSubTask(subID)
	if !ok {
		return nil, NotFoundError{Kind: "sub-task", ID: subID}
	}
	return st, nil
}
