package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
	"teamboard/internal/statusutil"
)

// Column is one status lane of the board.
type Column struct {
	Status model.TaskStatus
	Label  string
	Tasks  []model.TeamTask
}

// Board is the team kanban board.
type Board struct {
	page
	deps Deps

	tasks   []model.TeamTask
	members []model.TeamMember
}

func NewBoard(d Deps) *Board {
	v := &Board{deps: d}
	v.setLogger(d.Logger)
	return v
}

// Load fetches tasks and the team roster concurrently. The roster is skipped
// when the actor has no team.
func (v *Board) Load(ctx context.Context) error {
	v.apply(func() { v.loading = true })
	defer v.apply(func() { v.loading = false })

	tasks, members, err := loadTasksAndMembers(ctx, v.deps, func(gctx context.Context) ([]model.TeamTask, error) {
		return v.deps.Services.Tasks.List(gctx)
	})
	if err != nil {
		return v.fail("load board", MsgLoadData, err)
	}
	v.apply(func() {
		v.tasks = tasks
		v.members = members
	})
	return nil
}

// loadTasksAndMembers runs fetch alongside the roster request.
func loadTasksAndMembers[T any](ctx context.Context, d Deps, fetch func(context.Context) (T, error)) (T, []model.TeamMember, error) {
	var (
		out     T
		members []model.TeamMember
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out, err = fetch(gctx)
		return err
	})
	if teamID, ok := teamOf(d.Identity); ok {
		g.Go(func() error {
			var err error
			members, err = d.Services.Users.TeamMembers(gctx, teamID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		var zero T
		return zero, nil, err
	}
	return out, members, nil
}

func (v *Board) Tasks() []model.TeamTask {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.TeamTask(nil), v.tasks...)
}

func (v *Board) Members() []model.TeamMember {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.TeamMember(nil), v.members...)
}

// Columns groups the loaded tasks by status in board order. Tasks keep the
// server's order within a column.
func (v *Board) Columns() []Column {
	tasks := v.Tasks()
	cols := make([]Column, len(statusutil.TaskStatuses))
	for i, st := range statusutil.TaskStatuses {
		cols[i] = Column{Status: st, Label: statusutil.Label(st)}
	}
	for _, t := range tasks {
		if i := statusutil.ColumnIndex(t.Status); i >= 0 {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// CanCreate reports whether the create control is offered.
func (v *Board) CanCreate() bool {
	a, ok := actorOf(v.deps.Identity)
	return ok && perm.CanEditStructure(a)
}

// CanMove reports whether the actor may drag the task to another column.
func (v *Board) CanMove(taskID int64) bool {
	a, ok := actorOf(v.deps.Identity)
	if !ok {
		return false
	}
	t, err := v.task(taskID)
	return err == nil && perm.CanMutateTaskStatus(a, t)
}

func (v *Board) task(id int64) (model.TeamTask, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.TeamTask{}, mutate.NotFoundError{Kind: "task", ID: id}
}

// Create adds a task (admin only) and puts it first.
func (v *Board) Create(ctx context.Context, in model.CreateTask) (model.TeamTask, error) {
	a, _ := actorOf(v.deps.Identity)
	if err := mutate.RequireStructure(a, "task", 0); err != nil {
		return model.TeamTask{}, v.fail("create task", bannerFor(err, MsgCreateTask, ""), err)
	}
	created, err := v.deps.Services.Tasks.Create(ctx, in)
	if err != nil {
		return model.TeamTask{}, v.fail("create task", MsgCreateTask, err)
	}
	v.apply(func() {
		v.tasks = append([]model.TeamTask{created}, v.tasks...)
	})
	return created, nil
}

// Drop moves a task into the column for status. Dropping onto the task's own
// column does nothing and sends nothing.
func (v *Board) Drop(ctx context.Context, taskID int64, status model.TaskStatus) error {
	t, err := v.task(taskID)
	if err != nil {
		return v.fail("drop", MsgUpdateTaskStatus, err)
	}
	a, _ := actorOf(v.deps.Identity)
	change, err := mutate.PlanTaskStatus(a, t, status)
	if err != nil {
		return v.fail("drop", bannerFor(err, MsgUpdateTaskStatus, ""), err)
	}
	if !change.Changed {
		return nil
	}
	updated, err := v.deps.Services.Tasks.UpdateStatus(ctx, taskID, change.To)
	if err != nil {
		return v.fail("drop", bannerFor(err, MsgUpdateTaskStatus, mutate.DeniedTask), err)
	}
	v.apply(func() { v.tasks = replaceByID(v.tasks, taskKey, updated) })
	return nil
}
