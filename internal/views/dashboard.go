package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
)

const (
	MsgLoadData         = "Failed to load data"
	MsgSaveTodo         = "Failed to save todo"
	MsgDeleteTodo       = "Failed to delete todo"
	MsgUpdateStatus     = "Failed to update status"
	MsgCreateTask       = "Failed to create task"
	MsgUpdateTaskStatus = "Failed to update task status"
	MsgLoadTask         = "Failed to load task"
	MsgUpdateTask       = "Failed to update task"
	MsgDeleteTask       = "Failed to delete task"
	MsgSaveSubTask      = "Failed to save sub-task"
	MsgDeleteSubTask    = "Failed to delete sub-task"
)

// Dashboard is the home screen: the actor's private todos and the team tasks
// assigned to them.
type Dashboard struct {
	page
	deps Deps

	todos    []model.PrivateTodo
	assigned []model.TeamTask
}

func NewDashboard(d Deps) *Dashboard {
	v := &Dashboard{deps: d}
	v.setLogger(d.Logger)
	return v
}

// Load fetches todos and team tasks concurrently. When either fetch fails the
// previous data stays and the banner is set.
func (v *Dashboard) Load(ctx context.Context) error {
	v.apply(func() { v.loading = true })
	defer v.apply(func() { v.loading = false })

	var (
		todos []model.PrivateTodo
		tasks []model.TeamTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		todos, err = v.deps.Services.Todos.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = v.deps.Services.Tasks.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return v.fail("load dashboard", MsgLoadData, err)
	}

	a, signedIn := actorOf(v.deps.Identity)
	mine := make([]model.TeamTask, 0, len(tasks))
	for _, t := range tasks {
		if signedIn && t.AssignedUserID != nil && *t.AssignedUserID == a.ID {
			mine = append(mine, t)
		}
	}
	v.apply(func() {
		v.todos = todos
		v.assigned = mine
	})
	return nil
}

func (v *Dashboard) Todos() []model.PrivateTodo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.PrivateTodo(nil), v.todos...)
}

// AssignedTasks are the team tasks assigned to the actor.
func (v *Dashboard) AssignedTasks() []model.TeamTask {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.TeamTask(nil), v.assigned...)
}

func (v *Dashboard) todo(id int64) (model.PrivateTodo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.todos {
		if t.ID == id {
			return t, nil
		}
	}
	return model.PrivateTodo{}, mutate.NotFoundError{Kind: "todo", ID: id}
}

// CreateTodo creates a todo and puts it at the top of the list.
func (v *Dashboard) CreateTodo(ctx context.Context, in model.CreateTodo) (model.PrivateTodo, error) {
	created, err := v.deps.Services.Todos.Create(ctx, in)
	if err != nil {
		return model.PrivateTodo{}, v.fail("create todo", MsgSaveTodo, err)
	}
	v.apply(func() {
		v.todos = append([]model.PrivateTodo{created}, v.todos...)
	})
	return created, nil
}

func (v *Dashboard) UpdateTodo(ctx context.Context, id int64, in model.UpdateTodo) (model.PrivateTodo, error) {
	if err := v.checkOwner(id); err != nil {
		return model.PrivateTodo{}, v.fail("update todo", bannerFor(err, MsgSaveTodo, ""), err)
	}
	updated, err := v.deps.Services.Todos.Update(ctx, id, in)
	if err != nil {
		return model.PrivateTodo{}, v.fail("update todo", bannerFor(err, MsgSaveTodo, mutate.DeniedTodo), err)
	}
	v.apply(func() { v.todos = replaceByID(v.todos, todoKey, updated) })
	return updated, nil
}

func (v *Dashboard) DeleteTodo(ctx context.Context, id int64) error {
	if err := v.checkOwner(id); err != nil {
		return v.fail("delete todo", bannerFor(err, MsgDeleteTodo, ""), err)
	}
	if err := v.deps.Services.Todos.Delete(ctx, id); err != nil {
		return v.fail("delete todo", bannerFor(err, MsgDeleteTodo, mutate.DeniedTodo), err)
	}
	v.apply(func() { v.todos = removeByID(v.todos, todoKey, id) })
	return nil
}

// SetTodoStatus changes a todo's status. Picking the current status sends
// nothing.
func (v *Dashboard) SetTodoStatus(ctx context.Context, id int64, to model.TodoStatus) error {
	td, err := v.todo(id)
	if err != nil {
		return v.fail("todo status", MsgUpdateStatus, err)
	}
	a, _ := actorOf(v.deps.Identity)
	change, err := mutate.PlanTodoStatus(a, td, to)
	if err != nil {
		return v.fail("todo status", bannerFor(err, MsgUpdateStatus, ""), err)
	}
	if !change.Changed {
		return nil
	}
	updated, err := v.deps.Services.Todos.UpdateStatus(ctx, id, change.To)
	if err != nil {
		return v.fail("todo status", bannerFor(err, MsgUpdateStatus, mutate.DeniedTodo), err)
	}
	v.apply(func() { v.todos = replaceByID(v.todos, todoKey, updated) })
	return nil
}

// checkOwner refuses writes to a loaded todo the actor does not own. Todos
// not in the list are left to the server.
func (v *Dashboard) checkOwner(id int64) error {
	td, err := v.todo(id)
	if err != nil {
		return nil
	}
	a, _ := actorOf(v.deps.Identity)
	if perm.CanMutateTodo(a, td) {
		return nil
	}
	return &mutate.PermissionError{Kind: "todo", ID: id, ActorID: a.ID, Message: mutate.DeniedTodo}
}
