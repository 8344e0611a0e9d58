package views

import (
	"context"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
)

// TaskDetail is the page for one team task and its sub-tasks.
//
// Progress is computed by the server. After any sub-task change the loaded
// value is stale until the task is fetched again, which every sub-task
// mutation does before returning.
type TaskDetail struct {
	page
	deps Deps
	id   int64

	task    *model.TeamTask
	members []model.TeamMember
	stale   bool
	deleted bool
}

func NewTaskDetail(d Deps, taskID int64) *TaskDetail {
	v := &TaskDetail{deps: d, id: taskID}
	v.setLogger(d.Logger)
	return v
}

func (v *TaskDetail) ID() int64 { return v.id }

// Load fetches the task and the team roster concurrently.
func (v *TaskDetail) Load(ctx context.Context) error {
	v.apply(func() { v.loading = true })
	defer v.apply(func() { v.loading = false })

	t, members, err := loadTasksAndMembers(ctx, v.deps, func(gctx context.Context) (model.TeamTask, error) {
		return v.deps.Services.Tasks.Get(gctx, v.id)
	})
	if err != nil {
		return v.fail("load task", MsgLoadTask, err)
	}
	v.apply(func() {
		v.task = &t
		v.members = members
		v.stale = false
	})
	return nil
}

// Task returns the loaded task; ok is false before the first successful load.
func (v *TaskDetail) Task() (model.TeamTask, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.task == nil {
		return model.TeamTask{}, false
	}
	t := *v.task
	t.SubTasks = append([]model.SubTask(nil), v.task.SubTasks...)
	return t, true
}

func (v *TaskDetail) Members() []model.TeamMember {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.TeamMember(nil), v.members...)
}

// ProgressStale reports whether a sub-task changed since the task was last
// fetched.
func (v *TaskDetail) ProgressStale() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stale
}

// Deleted reports whether the task was deleted from this page.
func (v *TaskDetail) Deleted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleted
}

func (v *TaskDetail) CanEdit() bool {
	a, ok := actorOf(v.deps.Identity)
	return ok && perm.CanEditStructure(a)
}

// CanChangeStatus decides between the status picker and a read-only badge.
func (v *TaskDetail) CanChangeStatus() bool {
	a, ok := actorOf(v.deps.Identity)
	t, loaded := v.Task()
	return ok && loaded && perm.CanMutateTaskStatus(a, t)
}

func (v *TaskDetail) CanChangeSubTaskStatus(subID int64) bool {
	a, ok := actorOf(v.deps.Identity)
	t, loaded := v.Task()
	if !ok || !loaded {
		return false
	}
	st, err := mutate.FindSubTask(&t, subID)
	return err == nil && perm.CanMutateSubTaskStatus(a, *st)
}

func (v *TaskDetail) loaded() (model.TeamTask, error) {
	t, ok := v.Task()
	if !ok {
		return model.TeamTask{}, mutate.NotFoundError{Kind: "task", ID: v.id}
	}
	return t, nil
}

// keepSubTasks stores updated as the task while keeping the loaded sub-tasks,
// which task-level responses do not carry.
func (v *TaskDetail) keepSubTasks(updated model.TeamTask) {
	v.apply(func() {
		if v.task != nil {
			updated.SubTasks = v.task.SubTasks
		}
		v.task = &updated
	})
}

func (v *TaskDetail) requireAdmin(op, kind, fallback string, id int64) error {
	a, _ := actorOf(v.deps.Identity)
	if err := mutate.RequireStructure(a, kind, id); err != nil {
		return v.fail(op, bannerFor(err, fallback, ""), err)
	}
	return nil
}

// Update edits title, description, status or assignee (admin only).
func (v *TaskDetail) Update(ctx context.Context, in model.UpdateTask) error {
	if err := v.requireAdmin("update task", "task", MsgUpdateTask, v.id); err != nil {
		return err
	}
	updated, err := v.deps.Services.Tasks.Update(ctx, v.id, in)
	if err != nil {
		return v.fail("update task", bannerFor(err, MsgUpdateTask, mutate.DeniedAdmin), err)
	}
	v.keepSubTasks(updated)
	return nil
}

// Assign sets or clears the assignee (admin only). A nil userID unassigns.
func (v *TaskDetail) Assign(ctx context.Context, userID *int64) error {
	if err := v.requireAdmin("assign task", "task", MsgUpdateTask, v.id); err != nil {
		return err
	}
	updated, err := v.deps.Services.Tasks.Assign(ctx, v.id, userID)
	if err != nil {
		return v.fail("assign task", bannerFor(err, MsgUpdateTask, mutate.DeniedAdmin), err)
	}
	v.keepSubTasks(updated)
	return nil
}

func (v *TaskDetail) Delete(ctx context.Context) error {
	if err := v.requireAdmin("delete task", "task", MsgDeleteTask, v.id); err != nil {
		return err
	}
	if err := v.deps.Services.Tasks.Delete(ctx, v.id); err != nil {
		return v.fail("delete task", bannerFor(err, MsgDeleteTask, mutate.DeniedAdmin), err)
	}
	v.apply(func() { v.deleted = true })
	return nil
}

// SetStatus changes the task status. Picking the current status sends
// nothing.
func (v *TaskDetail) SetStatus(ctx context.Context, to model.TaskStatus) error {
	t, err := v.loaded()
	if err != nil {
		return v.fail("task status", MsgUpdateStatus, err)
	}
	a, _ := actorOf(v.deps.Identity)
	change, err := mutate.PlanTaskStatus(a, t, to)
	if err != nil {
		return v.fail("task status", bannerFor(err, MsgUpdateStatus, ""), err)
	}
	if !change.Changed {
		return nil
	}
	updated, err := v.deps.Services.Tasks.UpdateStatus(ctx, v.id, change.To)
	if err != nil {
		return v.fail("task status", bannerFor(err, MsgUpdateStatus, mutate.DeniedTask), err)
	}
	v.keepSubTasks(updated)
	return nil
}

// CreateSubTask adds a sub-task (admin only) and re-fetches the task.
func (v *TaskDetail) CreateSubTask(ctx context.Context, in model.CreateSubTask) error {
	if err := v.requireAdmin("create sub-task", "sub-task", MsgSaveSubTask, 0); err != nil {
		return err
	}
	created, err := v.deps.Services.Tasks.CreateSubTask(ctx, v.id, in)
	if err != nil {
		return v.fail("create sub-task", bannerFor(err, MsgSaveSubTask, mutate.DeniedAdmin), err)
	}
	v.apply(func() {
		if v.task != nil {
			v.task.SubTasks = append(append([]model.SubTask(nil), v.task.SubTasks...), created)
		}
		v.stale = true
	})
	return v.refresh(ctx)
}

func (v *TaskDetail) UpdateSubTask(ctx context.Context, subID int64, in model.UpdateSubTask) error {
	if err := v.requireAdmin("update sub-task", "sub-task", MsgSaveSubTask, subID); err != nil {
		return err
	}
	updated, err := v.deps.Services.Tasks.UpdateSubTask(ctx, v.id, subID, in)
	if err != nil {
		return v.fail("update sub-task", bannerFor(err, MsgSaveSubTask, mutate.DeniedAdmin), err)
	}
	v.replaceSubTask(updated)
	return v.refresh(ctx)
}

func (v *TaskDetail) DeleteSubTask(ctx context.Context, subID int64) error {
	if err := v.requireAdmin("delete sub-task", "sub-task", MsgDeleteSubTask, subID); err != nil {
		return err
	}
	if err := v.deps.Services.Tasks.DeleteSubTask(ctx, v.id, subID); err != nil {
		return v.fail("delete sub-task", bannerFor(err, MsgDeleteSubTask, mutate.DeniedAdmin), err)
	}
	v.apply(func() {
		if v.task != nil {
			v.task.SubTasks = removeByID(v.task.SubTasks, subTaskKey, subID)
		}
		v.stale = true
	})
	return v.refresh(ctx)
}

// SetSubTaskStatus changes a sub-task's status and re-fetches the task.
// Picking the current status sends nothing.
func (v *TaskDetail) SetSubTaskStatus(ctx context.Context, subID int64, to model.TaskStatus) error {
	t, err := v.loaded()
	if err != nil {
		return v.fail("sub-task status", MsgUpdateStatus, err)
	}
	st, err := mutate.FindSubTask(&t, subID)
	if err != nil {
		return v.fail("sub-task status", MsgUpdateStatus, err)
	}
	a, _ := actorOf(v.deps.Identity)
	change, err := mutate.PlanSubTaskStatus(a, *st, to)
	if err != nil {
		return v.fail("sub-task status", bannerFor(err, MsgUpdateStatus, ""), err)
	}
	if !change.Changed {
		return nil
	}
	updated, err := v.deps.Services.Tasks.UpdateSubTaskStatus(ctx, v.id, subID, change.To)
	if err != nil {
		return v.fail("sub-task status", bannerFor(err, MsgUpdateStatus, mutate.DeniedSubTask), err)
	}
	v.replaceSubTask(updated)
	return v.refresh(ctx)
}

func (v *TaskDetail) replaceSubTask(updated model.SubTask) {
	v.apply(func() {
		if v.task != nil {
			v.task.SubTasks = replaceByID(v.task.SubTasks, subTaskKey, updated)
		}
		v.stale = true
	})
}

// refresh re-fetches after a sub-task change so progress is current again.
func (v *TaskDetail) refresh(ctx context.Context) error {
	return v.Load(ctx)
}
