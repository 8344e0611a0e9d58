package views

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"teamboard/internal/apitest"
	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/session"
	"teamboard/internal/store"
)

type env struct {
	backend *apitest.Backend
	store   *store.SessionStore
	sess    *session.Session
	deps    Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b, url := apitest.NewServer(t)
	e := &env{backend: b, store: store.NewSessionStore(store.NewMemoryStorage())}
	sess, svc := session.Connect(session.ConnectOptions{BaseURL: url, Store: e.store})
	e.sess = sess
	e.deps = Deps{Services: svc, Identity: sess}
	return e
}

// signIn persists a token for u, resolves it and forgets the requests made
// so far.
func (e *env) signIn(t *testing.T, u model.User) {
	t.Helper()
	ctx := context.Background()
	if err := e.store.Save(ctx, e.backend.TokenFor(u.ID), u); err != nil {
		t.Fatalf("save session: %v", err)
	}
	e.sess.Init(ctx)
	if e.sess.Outcome() != session.InitResolved {
		t.Fatalf("sign in %s: %v", u.Email, e.sess.InitErr())
	}
	e.backend.ResetRequests()
}

func TestDashboard_LoadKeepsOnlyAssignedTasks(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	e.backend.AddTask("Mine", model.TaskStatusTodo, &mia.ID)
	e.backend.AddTask("Theirs", model.TaskStatusTodo, &admin.ID)
	e.backend.AddTask("Nobody's", model.TaskStatusTodo, nil)
	e.backend.AddTodo(mia.ID, "Buy milk", model.TodoStatusTodo)
	e.backend.AddTodo(admin.ID, "Not visible", model.TodoStatusTodo)
	e.signIn(t, mia)

	d := NewDashboard(e.deps)
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.IsLoading() {
		t.Fatalf("expected loading to finish")
	}
	tasks := d.AssignedTasks()
	if len(tasks) != 1 || tasks[0].Title != "Mine" {
		t.Fatalf("expected only the assigned task; got %+v", tasks)
	}
	todos := d.Todos()
	if len(todos) != 1 || todos[0].Title != "Buy milk" {
		t.Fatalf("unexpected todos: %+v", todos)
	}
}

func TestDashboard_TodoLifecycle(t *testing.T) {
	e := newEnv(t)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	e.backend.AddTodo(mia.ID, "Older", model.TodoStatusTodo)
	e.signIn(t, mia)
	ctx := context.Background()

	d := NewDashboard(e.deps)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	created, err := d.CreateTodo(ctx, model.CreateTodo{Title: "Write report"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if got := d.Todos(); len(got) != 2 || got[0].ID != created.ID {
		t.Fatalf("expected new todo first; got %+v", got)
	}

	if _, err := d.UpdateTodo(ctx, created.ID, model.UpdateTodo{Title: model.StringPtr("Write the report")}); err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	if err := d.SetTodoStatus(ctx, created.ID, model.TodoStatusDone); err != nil {
		t.Fatalf("SetTodoStatus: %v", err)
	}
	stored, _ := e.backend.Todo(created.ID)
	if stored.Title != "Write the report" || stored.Status != model.TodoStatusDone {
		t.Fatalf("server not updated: %+v", stored)
	}
	if got := d.Todos(); got[0].Status != model.TodoStatusDone {
		t.Fatalf("local state not updated: %+v", got[0])
	}

	e.backend.ResetRequests()
	if err := d.SetTodoStatus(ctx, created.ID, model.TodoStatusDone); err != nil {
		t.Fatalf("same status: %v", err)
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("expected no request for same status; got %v", reqs)
	}

	if err := d.DeleteTodo(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	for _, td := range d.Todos() {
		if td.ID == created.ID {
			t.Fatalf("deleted todo still listed")
		}
	}
	if _, err := e.deps.Services.Todos.Get(ctx, created.ID); err == nil {
		t.Fatalf("expected fetch of deleted todo to fail")
	}
}

func TestDashboard_LoadFailureKeepsData(t *testing.T) {
	e := newEnv(t)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	e.backend.AddTodo(mia.ID, "Keep me", model.TodoStatusTodo)
	e.signIn(t, mia)
	ctx := context.Background()

	d := NewDashboard(e.deps)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.backend.Fail(http.MethodGet, "/api/team-tasks", http.StatusInternalServerError, "")
	err := d.Load(ctx)
	var ve *Error
	if !errors.As(err, &ve) || ve.Message != MsgLoadData {
		t.Fatalf("expected load failure; got %v", err)
	}
	if d.Err() != MsgLoadData {
		t.Fatalf("banner: %q", d.Err())
	}
	if len(d.Todos()) != 1 {
		t.Fatalf("expected previous todos to stay; got %+v", d.Todos())
	}
	d.ClearError()
	if d.Err() != "" {
		t.Fatalf("expected banner cleared")
	}
}

func TestDashboard_InvalidStatusNeverSent(t *testing.T) {
	e := newEnv(t)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	td := e.backend.AddTodo(mia.ID, "Todo", model.TodoStatusTodo)
	e.signIn(t, mia)
	ctx := context.Background()

	d := NewDashboard(e.deps)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.backend.ResetRequests()
	err := d.SetTodoStatus(ctx, td.ID, model.TodoStatus("BLOCKED"))
	if !errors.Is(err, mutate.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus; got %v", err)
	}
	if d.Err() != MsgUpdateStatus {
		t.Fatalf("banner: %q", d.Err())
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("expected nothing sent; got %v", reqs)
	}
}

func TestBoard_Columns(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	e.backend.AddTask("a", model.TaskStatusTodo, nil)
	e.backend.AddTask("b", model.TaskStatusBlocked, nil)
	e.backend.AddTask("c", model.TaskStatusDone, nil)
	e.backend.AddTask("d", model.TaskStatusTodo, nil)
	e.signIn(t, admin)

	b := NewBoard(e.deps)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cols := b.Columns()
	wantLabels := []string{"To Do", "In Progress", "Blocked", "Done"}
	wantCounts := []int{2, 0, 1, 1}
	for i, c := range cols {
		if c.Label != wantLabels[i] || len(c.Tasks) != wantCounts[i] {
			t.Fatalf("column %d: got %s with %d tasks", i, c.Label, len(c.Tasks))
		}
	}
	if cols[0].Tasks[0].Title != "d" {
		t.Fatalf("expected newest first within a column; got %q", cols[0].Tasks[0].Title)
	}
	if len(b.Members()) != 1 {
		t.Fatalf("expected roster loaded; got %+v", b.Members())
	}
}

func TestBoard_DropOnOwnColumnSendsNothing(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	task := e.backend.AddTask("a", model.TaskStatusInProgress, nil)
	e.signIn(t, admin)
	ctx := context.Background()

	b := NewBoard(e.deps)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.backend.ResetRequests()
	if err := b.Drop(ctx, task.ID, model.TaskStatusInProgress); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("expected no request; got %v", reqs)
	}
}

func TestBoard_DropRespectsAssignment(t *testing.T) {
	e := newEnv(t)
	e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	sam := e.backend.AddUser("Sam", "sam@example.com", "password123", model.RoleMember)
	theirs := e.backend.AddTask("theirs", model.TaskStatusTodo, &sam.ID)
	mine := e.backend.AddTask("mine", model.TaskStatusTodo, &mia.ID)
	e.signIn(t, mia)
	ctx := context.Background()

	b := NewBoard(e.deps)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.CanMove(theirs.ID) || !b.CanMove(mine.ID) {
		t.Fatalf("unexpected move gate: theirs=%v mine=%v", b.CanMove(theirs.ID), b.CanMove(mine.ID))
	}

	e.backend.ResetRequests()
	err := b.Drop(ctx, theirs.ID, model.TaskStatusDone)
	var pe *mutate.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermissionError; got %v", err)
	}
	if b.Err() != mutate.DeniedTask {
		t.Fatalf("banner: %q", b.Err())
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("expected no request for a denied drop; got %v", reqs)
	}

	if err := b.Drop(ctx, mine.ID, model.TaskStatusDone); err != nil {
		t.Fatalf("Drop mine: %v", err)
	}
	done := b.Columns()[3].Tasks
	if len(done) != 1 || done[0].ID != mine.ID {
		t.Fatalf("expected task in Done column; got %+v", done)
	}
	if stored, _ := e.backend.Task(mine.ID); stored.Status != model.TaskStatusDone {
		t.Fatalf("server status: %s", stored.Status)
	}
}

func TestBoard_ServerForbiddenShowsDenial(t *testing.T) {
	e := newEnv(t)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	task := e.backend.AddTask("mine", model.TaskStatusTodo, &mia.ID)
	e.signIn(t, mia)
	ctx := context.Background()

	b := NewBoard(e.deps)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.backend.Fail(http.MethodPatch, fmt.Sprintf("/api/team-tasks/%d/status", task.ID), http.StatusForbidden, "Only the assigned user or admin can update status")
	if err := b.Drop(ctx, task.ID, model.TaskStatusDone); err == nil {
		t.Fatalf("expected rejection")
	}
	if b.Err() != mutate.DeniedTask {
		t.Fatalf("banner: %q", b.Err())
	}
	if got := b.Columns()[0].Tasks; len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("expected local state unchanged; got %+v", got)
	}
}

func TestBoard_CreateIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	e.backend.AddTask("existing", model.TaskStatusTodo, nil)
	ctx := context.Background()

	e.signIn(t, mia)
	b := NewBoard(e.deps)
	if b.CanCreate() {
		t.Fatalf("member must not be offered create")
	}
	if _, err := b.Create(ctx, model.CreateTask{Title: "nope"}); err == nil || b.Err() != mutate.DeniedAdmin {
		t.Fatalf("expected admin denial; err=%v banner=%q", err, b.Err())
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("expected nothing sent; got %v", reqs)
	}

	e.signIn(t, admin)
	b = NewBoard(e.deps)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	created, err := b.Create(ctx, model.CreateTask{Title: "Ship it", AssignedUserID: &mia.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := b.Tasks(); len(got) != 2 || got[0].ID != created.ID {
		t.Fatalf("expected created task first; got %+v", got)
	}
}

func TestTaskDetail_SubTasksRefreshProgress(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	task := e.backend.AddTask("Release", model.TaskStatusInProgress, &mia.ID)
	e.signIn(t, admin)
	ctx := context.Background()

	d := NewTaskDetail(e.deps, task.ID)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, _ := d.Task(); got.Progress() != 0 {
		t.Fatalf("expected 0%% without sub-tasks; got %d", got.Progress())
	}
	if err := d.CreateSubTask(ctx, model.CreateSubTask{Title: "Build", ResponsibleUserID: &mia.ID}); err != nil {
		t.Fatalf("CreateSubTask: %v", err)
	}
	if err := d.CreateSubTask(ctx, model.CreateSubTask{Title: "Tag", Status: statusPtr(model.TaskStatusDone)}); err != nil {
		t.Fatalf("CreateSubTask: %v", err)
	}
	got, _ := d.Task()
	if len(got.SubTasks) != 2 || got.Progress() != 50 || d.ProgressStale() {
		t.Fatalf("expected two sub-tasks at 50%% and fresh progress; got %d subs, %d%%, stale=%v", len(got.SubTasks), got.Progress(), d.ProgressStale())
	}

	build := got.SubTasks[0]
	if err := d.SetSubTaskStatus(ctx, build.ID, model.TaskStatusDone); err != nil {
		t.Fatalf("SetSubTaskStatus: %v", err)
	}
	if got, _ := d.Task(); got.Progress() != 100 {
		t.Fatalf("expected 100%% after re-fetch; got %d", got.Progress())
	}

	if err := d.DeleteSubTask(ctx, build.ID); err != nil {
		t.Fatalf("DeleteSubTask: %v", err)
	}
	if got, _ := d.Task(); len(got.SubTasks) != 1 {
		t.Fatalf("expected one sub-task left; got %+v", got.SubTasks)
	}
}

func TestTaskDetail_MemberGates(t *testing.T) {
	e := newEnv(t)
	e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	sam := e.backend.AddUser("Sam", "sam@example.com", "password123", model.RoleMember)
	task := e.backend.AddTask("Release", model.TaskStatusTodo, &sam.ID)
	mineSub := e.backend.AddSubTask(task.ID, "mine", model.TaskStatusTodo, &mia.ID)
	theirSub := e.backend.AddSubTask(task.ID, "theirs", model.TaskStatusTodo, &sam.ID)
	e.signIn(t, mia)
	ctx := context.Background()

	d := NewTaskDetail(e.deps, task.ID)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.CanEdit() || d.CanChangeStatus() {
		t.Fatalf("member must see read-only task controls")
	}
	if !d.CanChangeSubTaskStatus(mineSub.ID) || d.CanChangeSubTaskStatus(theirSub.ID) {
		t.Fatalf("unexpected sub-task gate")
	}

	e.backend.ResetRequests()
	if err := d.SetStatus(ctx, model.TaskStatusDone); err == nil || d.Err() != mutate.DeniedTask {
		t.Fatalf("expected task denial; err=%v banner=%q", err, d.Err())
	}
	if err := d.SetSubTaskStatus(ctx, theirSub.ID, model.TaskStatusDone); err == nil || d.Err() != mutate.DeniedSubTask {
		t.Fatalf("expected sub-task denial; err=%v banner=%q", err, d.Err())
	}
	if err := d.Delete(ctx); err == nil || d.Err() != mutate.DeniedAdmin {
		t.Fatalf("expected admin denial; err=%v banner=%q", err, d.Err())
	}
	if reqs := e.backend.Requests(); len(reqs) != 0 {
		t.Fatalf("denied actions must not reach the server; got %v", reqs)
	}

	if err := d.SetSubTaskStatus(ctx, mineSub.ID, model.TaskStatusDone); err != nil {
		t.Fatalf("SetSubTaskStatus: %v", err)
	}
	got, _ := d.Task()
	if st, ok := got.FindSubTask(mineSub.ID); !ok || st.Status != model.TaskStatusDone {
		t.Fatalf("expected sub-task done; got %+v", st)
	}
	if got.Progress() != 50 {
		t.Fatalf("expected 50%%; got %d", got.Progress())
	}
}

func TestTaskDetail_AdminEditAssignDelete(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	task := e.backend.AddTask("Release", model.TaskStatusTodo, nil)
	e.backend.AddSubTask(task.ID, "step", model.TaskStatusTodo, nil)
	e.signIn(t, admin)
	ctx := context.Background()

	d := NewTaskDetail(e.deps, task.ID)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.Update(ctx, model.UpdateTask{Description: model.Set("Ship **v2**")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := d.Assign(ctx, &mia.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, _ := d.Task()
	if model.Deref(got.Description) != "Ship **v2**" || got.AssignedUser == nil || got.AssignedUser.Name != "Mia" {
		t.Fatalf("unexpected task after edit: %+v", got)
	}
	if len(got.SubTasks) != 1 {
		t.Fatalf("expected sub-tasks kept across task updates; got %+v", got.SubTasks)
	}
	if err := d.SetStatus(ctx, model.TaskStatusBlocked); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := d.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !d.Deleted() {
		t.Fatalf("expected Deleted")
	}
	if _, ok := e.backend.Task(task.ID); ok {
		t.Fatalf("task still on server")
	}
}

func TestTaskDetail_CloseDiscardsLateResponse(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	task := e.backend.AddTask("Release", model.TaskStatusTodo, nil)
	e.signIn(t, admin)

	release := e.backend.Hold(http.MethodGet, fmt.Sprintf("/api/team-tasks/%d", task.ID))
	d := NewTaskDetail(e.deps, task.ID)

	var wg sync.WaitGroup
	wg.Add(1)
	var loadErr error
	go func() {
		defer wg.Done()
		loadErr = d.Load(context.Background())
	}()
	e.waitForRequest(t, http.MethodGet, fmt.Sprintf("/api/team-tasks/%d", task.ID))
	d.Close()
	release()
	wg.Wait()

	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if _, ok := d.Task(); ok {
		t.Fatalf("late response must not populate a closed page")
	}
	if !d.isClosed() {
		t.Fatalf("expected closed")
	}
}

func TestDashboard_CloseDiscardsLateLoad(t *testing.T) {
	e := newEnv(t)
	mia := e.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	e.backend.AddTodo(mia.ID, "first", model.TodoStatusTodo)
	e.signIn(t, mia)

	d := NewDashboard(e.deps)
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.backend.AddTodo(mia.ID, "second", model.TodoStatusTodo)
	e.backend.ResetRequests()

	release := e.backend.Hold(http.MethodGet, "/api/private-todos")
	defer release()
	var wg sync.WaitGroup
	wg.Add(1)
	var loadErr error
	go func() {
		defer wg.Done()
		loadErr = d.Load(context.Background())
	}()
	e.waitForRequest(t, http.MethodGet, "/api/private-todos")
	d.Close()
	release()
	wg.Wait()

	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if todos := d.Todos(); len(todos) != 1 || todos[0].Title != "first" {
		t.Fatalf("late response must not replace the todos; got %+v", todos)
	}
	if d.Err() != "" {
		t.Fatalf("unexpected banner %q", d.Err())
	}
}

func TestBoard_CloseDiscardsLateDrop(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	task := e.backend.AddTask("Release", model.TaskStatusTodo, nil)
	e.signIn(t, admin)

	b := NewBoard(e.deps)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	path := fmt.Sprintf("/api/team-tasks/%d/status", task.ID)
	release := e.backend.Hold(http.MethodPatch, path)
	defer release()
	var wg sync.WaitGroup
	wg.Add(1)
	var dropErr error
	go func() {
		defer wg.Done()
		dropErr = b.Drop(context.Background(), task.ID, model.TaskStatusInProgress)
	}()
	e.waitForRequest(t, http.MethodPatch, path)
	b.Close()
	release()
	wg.Wait()

	if dropErr != nil {
		t.Fatalf("Drop: %v", dropErr)
	}
	if got := b.Tasks(); len(got) != 1 || got[0].Status != model.TaskStatusTodo {
		t.Fatalf("late response must not move the card; got %+v", got)
	}
	if got, _ := e.backend.Task(task.ID); got.Status != model.TaskStatusInProgress {
		t.Fatalf("expected the server to have applied the move; got %s", got.Status)
	}
}

// waitForRequest blocks until the backend has seen method+path.
func (e *env) waitForRequest(t *testing.T, method, path string) {
	t.Helper()
	want := method + " " + path
	deadline := time.Now().Add(5 * time.Second)
	for !slices.Contains(e.backend.Requests(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; saw %v", want, e.backend.Requests())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTaskDetail_LoadFailure(t *testing.T) {
	e := newEnv(t)
	admin := e.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	e.signIn(t, admin)

	d := NewTaskDetail(e.deps, 999)
	if err := d.Load(context.Background()); err == nil {
		t.Fatalf("expected failure for missing task")
	}
	if d.Err() != MsgLoadTask {
		t.Fatalf("banner: %q", d.Err())
	}
}

func statusPtr(s model.TaskStatus) *model.TaskStatus { return &s }
