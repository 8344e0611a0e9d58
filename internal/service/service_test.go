package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"teamboard/internal/api"
	"teamboard/internal/apitest"
	"teamboard/internal/model"
	"teamboard/internal/store"
)

type fixture struct {
	backend *apitest.Backend
	tokens  *store.SessionStore
	svc     *Services
	expired int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, url := apitest.NewServer(t)
	f := &fixture{backend: b, tokens: store.NewSessionStore(store.NewMemoryStorage())}
	client := api.New(api.Options{
		BaseURL:        url,
		Tokens:         f.tokens,
		OnUnauthorized: func() { f.expired++ },
	})
	f.svc = New(client)
	return f
}

func (f *fixture) signIn(t *testing.T, u model.User) {
	t.Helper()
	if err := f.tokens.Save(context.Background(), f.backend.TokenFor(u.ID), u); err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Auth.Register(ctx, model.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccessToken == "" || res.User.Role != model.RoleAdmin {
		t.Fatalf("expected first user to be admin with token; got %+v", res)
	}

	_, err = f.svc.Auth.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error; got %T %v", err, err)
	}
	if se.Message != "Invalid email or password" || se.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected login failure: %+v", se)
	}

	res, err = f.svc.Auth.Login(ctx, model.LoginRequest{Email: "ADA@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.tokens.Save(ctx, res.AccessToken, res.User); err != nil {
		t.Fatalf("save: %v", err)
	}
	me, err := f.svc.Auth.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if me.ID != res.User.ID || me.Team == nil || me.Team.Name != "Default Team" {
		t.Fatalf("unexpected current user: %+v", me)
	}

	if err := f.svc.Auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// The token is revoked server side now.
	if _, err := f.svc.Auth.CurrentUser(ctx); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected revoked token to be unauthorized; got %v", err)
	}
}

func TestAuth_RegisterValidatesBeforeSending(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Auth.Register(context.Background(), model.RegisterRequest{Name: "A", Email: "not-an-email", Password: "short"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError; got %T %v", err, err)
	}
	fields := map[string]bool{}
	for _, fe := range ve.Fields {
		fields[fe.Field] = true
	}
	for _, want := range []string{"name", "email", "password"} {
		if !fields[want] {
			t.Fatalf("expected %q in validation errors; got %+v", want, ve.Fields)
		}
	}
	if n := len(f.backend.Requests()); n != 0 {
		t.Fatalf("expected no request; got %d", n)
	}
}

func TestTodos_CreateFetchDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	f.signIn(t, u)

	created, err := f.svc.Todos.Create(ctx, model.CreateTodo{Title: "Buy milk", Description: model.StringPtr("2 litres")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Status != model.TodoStatusTodo || created.OwnerUserID != u.ID {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	got, err := f.svc.Todos.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != created.ID || got.Title != "Buy milk" || model.Deref(got.Description) != "2 litres" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	updated, err := f.svc.Todos.Update(ctx, created.ID, model.UpdateTodo{Description: model.Clear[string]()})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != nil || updated.Title != "Buy milk" {
		t.Fatalf("expected description cleared and title kept; got %+v", updated)
	}

	if err := f.svc.Todos.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, err := f.svc.Todos.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete; got %+v", list)
	}
	_, err = f.svc.Todos.Get(ctx, created.ID)
	if !IsNotFound(err) {
		t.Fatalf("expected not found after delete; got %v", err)
	}
	if err.Error() != "Todo not found" {
		t.Fatalf("expected server message; got %q", err.Error())
	}
}

func TestTodos_InvalidStatusRejectedLocally(t *testing.T) {
	f := newFixture(t)
	st := model.TodoStatus("BLOCKED")
	_, err := f.svc.Todos.Create(context.Background(), model.CreateTodo{Title: "x", Status: &st})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError; got %v", err)
	}
	if len(f.backend.Requests()) != 0 {
		t.Fatalf("expected no request to be sent")
	}
}

func TestTasks_StatusPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	other := f.backend.AddUser("Olga", "olga@example.com", "password123", model.RoleMember)
	f.signIn(t, member)

	foreign := f.backend.AddTask("theirs", model.TaskStatusTodo, &other.ID)
	_, err := f.svc.Tasks.UpdateStatus(ctx, foreign.ID, model.TaskStatusDone)
	if !IsForbidden(err) {
		t.Fatalf("expected 403; got %v", err)
	}
	if err.Error() != "Only the assigned user or admin can update status" {
		t.Fatalf("expected server denial message; got %q", err.Error())
	}

	mine := f.backend.AddTask("mine", model.TaskStatusTodo, &member.ID)
	updated, err := f.svc.Tasks.UpdateStatus(ctx, mine.ID, model.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != model.TaskStatusInProgress {
		t.Fatalf("expected IN_PROGRESS; got %q", updated.Status)
	}

	if _, err := f.svc.Tasks.UpdateStatus(ctx, mine.ID, "ARCHIVED"); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestTasks_AdminStructureAndSubTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	member := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	f.signIn(t, admin)

	task, err := f.svc.Tasks.Create(ctx, model.CreateTask{Title: "Ship", AssignedUserID: &member.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.AssignedUser == nil || task.AssignedUser.ID != member.ID {
		t.Fatalf("expected embedded assignee; got %+v", task.AssignedUser)
	}

	st, err := f.svc.Tasks.CreateSubTask(ctx, task.ID, model.CreateSubTask{Title: "write", ResponsibleUserID: &member.ID})
	if err != nil {
		t.Fatalf("CreateSubTask: %v", err)
	}
	if _, err := f.svc.Tasks.CreateSubTask(ctx, task.ID, model.CreateSubTask{Title: "test"}); err != nil {
		t.Fatalf("CreateSubTask: %v", err)
	}
	if _, err := f.svc.Tasks.UpdateSubTaskStatus(ctx, task.ID, st.ID, model.TaskStatusDone); err != nil {
		t.Fatalf("UpdateSubTaskStatus: %v", err)
	}
	got, err := f.svc.Tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Progress() != 50 || len(got.SubTasks) != 2 {
		t.Fatalf("expected 50%% with 2 sub-tasks; got %d%% %d", got.Progress(), len(got.SubTasks))
	}

	subs, err := f.svc.Tasks.ListSubTasks(ctx, task.ID)
	if err != nil || len(subs) != 2 {
		t.Fatalf("ListSubTasks: %v %d", err, len(subs))
	}

	unassigned, err := f.svc.Tasks.Assign(ctx, task.ID, nil)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if unassigned.AssignedUserID != nil {
		t.Fatalf("expected assignee cleared; got %v", *unassigned.AssignedUserID)
	}

	renamed, err := f.svc.Tasks.UpdateSubTask(ctx, task.ID, st.ID, model.UpdateSubTask{Title: model.StringPtr("write docs"), ResponsibleUserID: model.Clear[int64]()})
	if err != nil {
		t.Fatalf("UpdateSubTask: %v", err)
	}
	if renamed.Title != "write docs" || renamed.ResponsibleUserID != nil {
		t.Fatalf("unexpected sub-task: %+v", renamed)
	}

	if err := f.svc.Tasks.DeleteSubTask(ctx, task.ID, st.ID); err != nil {
		t.Fatalf("DeleteSubTask: %v", err)
	}
	if err := f.svc.Tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Tasks.Get(ctx, task.ID); !IsNotFound(err) {
		t.Fatalf("expected deleted task to be gone; got %v", err)
	}
}

func TestTasks_MemberCannotCreate(t *testing.T) {
	f := newFixture(t)
	member := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	f.signIn(t, member)
	_, err := f.svc.Tasks.Create(context.Background(), model.CreateTask{Title: "nope"})
	if !IsForbidden(err) || err.Error() != "Admin access required" {
		t.Fatalf("expected admin-only denial; got %v", err)
	}
}

func TestUsers_TeamMembers(t *testing.T) {
	f := newFixture(t)
	admin := f.backend.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	f.signIn(t, admin)

	members, err := f.svc.Users.TeamMembers(context.Background(), *admin.TeamID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(members) != 2 || members[0].Name != "Ada" || members[1].Role != model.RoleMember {
		t.Fatalf("unexpected roster: %+v", members)
	}
	if _, err := f.svc.Users.TeamMembers(context.Background(), *admin.TeamID+100); !IsForbidden(err) {
		t.Fatalf("expected other team to be forbidden; got %v", err)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	if err := f.tokens.Save(ctx, f.backend.ExpiredTokenFor(u.ID), u); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := f.svc.Tasks.List(ctx)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized; got %v", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Message != "Token has expired" {
		t.Fatalf("expected server message forwarded; got %v", err)
	}
	tok, _ := f.tokens.Token(ctx)
	user, _ := f.tokens.User(ctx)
	if tok != "" || user != nil {
		t.Fatalf("expected session cleared; token=%q user=%v", tok, user)
	}
	if f.expired != 1 {
		t.Fatalf("expected unauthorized hook once; got %d", f.expired)
	}
}

func TestTransportFailureUsesDefaultMessage(t *testing.T) {
	f := newFixture(t)
	u := f.backend.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	f.signIn(t, u)
	f.backend.Fail(http.MethodGet, "/api/private-todos", http.StatusInternalServerError, "")

	_, err := f.svc.Todos.List(context.Background())
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error; got %T %v", err, err)
	}
	if se.Message != "Failed to fetch todos" || se.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error: %+v", se)
	}
}
