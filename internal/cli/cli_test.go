package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"teamboard/internal/apitest"
	"teamboard/internal/model"
	"teamboard/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// setup points the CLI at a fresh fake backend and a private config dir.
func setup(t *testing.T) (*apitest.Backend, string) {
	t.Helper()
	b, url := apitest.NewServer(t)
	dir := t.TempDir()
	t.Setenv("TEAMBOARD_CONFIG_DIR", dir)
	t.Setenv("TEAMBOARD_API_URL", url)
	t.Setenv("TEAMBOARD_FORMAT", "")
	t.Setenv("TEAMBOARD_SESSION_BACKEND", "")
	t.Setenv("TEAMBOARD_PASSWORD", "")
	t.Setenv("TEAMBOARD_EMAIL", "")
	return b, dir
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: teamboard %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func mustFail(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err == nil {
		t.Fatalf("expected teamboard %v to fail; stdout:\n%s", args, stdout)
	}
	return string(stderr)
}

func dataMap(env map[string]any) map[string]any {
	m, _ := env["data"].(map[string]any)
	return m
}

func num(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}

func TestCLI_AuthAndTodos(t *testing.T) {
	setup(t)

	u := dataMap(mustRun(t, "register", "--name", "Ada", "--email", "ada@example.com", "--password", "password123"))
	if u["role"] != "ADMIN" {
		t.Fatalf("expected first user to be admin; got %v", u)
	}

	sess := dataMap(mustRun(t, "session"))
	if sess["signed_in"] != true || sess["outcome"] != "resolved" {
		t.Fatalf("unexpected session: %v", sess)
	}
	if tok, _ := sess["token"].(map[string]any); tok == nil || tok["expired"] != false {
		t.Fatalf("expected token info; got %v", sess["token"])
	}

	created := dataMap(mustRun(t, "todos", "create", "--title", "Buy milk", "--due", "2026-11-01"))
	todoID := fmt.Sprint(num(created["id"]))

	shown := dataMap(mustRun(t, "todos", "show", todoID))
	if shown["title"] != "Buy milk" || shown["status"] != "TODO" {
		t.Fatalf("unexpected todo: %v", shown)
	}

	env := mustRun(t, "todos", "set-status", todoID, "in-progress")
	if dataMap(env)["status"] != "IN_PROGRESS" || env["meta"].(map[string]any)["changed"] != true {
		t.Fatalf("unexpected set-status output: %v", env)
	}
	env = mustRun(t, "todos", "set-status", todoID, "IN_PROGRESS")
	if env["meta"].(map[string]any)["changed"] != false {
		t.Fatalf("expected no-op for same status: %v", env)
	}

	stderr := mustFail(t, "todos", "set-status", todoID, "blocked")
	if !strings.Contains(stderr, "invalid status \"blocked\"") {
		t.Fatalf("expected local rejection; stderr: %s", stderr)
	}

	mustRun(t, "todos", "update", todoID, "--clear-due", "--description", "2% milk")
	shown = dataMap(mustRun(t, "todos", "show", todoID))
	if shown["due_date"] != nil || shown["description"] != "2% milk" {
		t.Fatalf("unexpected todo after update: %v", shown)
	}

	mustRun(t, "todos", "delete", todoID)
	list := mustRun(t, "todos", "list")
	if xs, _ := list["data"].([]any); len(xs) != 0 {
		t.Fatalf("expected empty list; got %v", list["data"])
	}
	mustFail(t, "todos", "show", todoID)

	mustRun(t, "logout")
	stderr = mustFail(t, "todos", "list")
	if !strings.Contains(stderr, "teamboard login") {
		t.Fatalf("expected login hint; stderr: %s", stderr)
	}
}

func TestCLI_TaskPermissions(t *testing.T) {
	b, _ := setup(t)
	b.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	mia := b.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	sam := b.AddUser("Sam", "sam@example.com", "password123", model.RoleMember)

	mustRun(t, "login", "--email", "ada@example.com", "--password", "password123")
	theirs := dataMap(mustRun(t, "tasks", "create", "--title", "Theirs", "--assign", fmt.Sprint(sam.ID)))
	mine := dataMap(mustRun(t, "tasks", "create", "--title", "Mine", "--assign", fmt.Sprint(mia.ID), "--description", "**bold**"))
	theirsID := fmt.Sprint(num(theirs["id"]))
	mineID := fmt.Sprint(num(mine["id"]))
	sub := dataMap(mustRun(t, "subtasks", "create", mineID, "--title", "Step", "--responsible", fmt.Sprint(mia.ID)))
	subID := fmt.Sprint(num(sub["id"]))

	mustRun(t, "login", "--email", "mia@example.com", "--password", "password123")

	stderr := mustFail(t, "tasks", "set-status", theirsID, "done")
	if !strings.Contains(stderr, "You can only update tasks assigned to you") {
		t.Fatalf("expected denial; stderr: %s", stderr)
	}
	if got, _ := b.Task(num(theirs["id"])); got.Status != model.TaskStatusTodo {
		t.Fatalf("denied change reached the server: %s", got.Status)
	}

	env := mustRun(t, "tasks", "move", mineID, "in progress")
	if dataMap(env)["status"] != "IN_PROGRESS" {
		t.Fatalf("unexpected move output: %v", env)
	}

	stderr = mustFail(t, "tasks", "create", "--title", "Nope")
	if !strings.Contains(stderr, "Admin access required") {
		t.Fatalf("expected admin denial; stderr: %s", stderr)
	}

	mustRun(t, "subtasks", "set-status", mineID, subID, "done")
	shown := mustRun(t, "tasks", "show", mineID)
	task := dataMap(shown)
	if num(task["progress"]) != 100 {
		t.Fatalf("expected 100%% progress; got %v", task["progress"])
	}
	if meta := shown["meta"].(map[string]any); meta["can_change_status"] != true || meta["can_edit"] != false {
		t.Fatalf("unexpected meta: %v", meta)
	}

	list := mustRun(t, "tasks", "list", "--mine")
	if xs, _ := list["data"].([]any); len(xs) != 1 {
		t.Fatalf("expected one assigned task; got %v", list["data"])
	}

	members := mustRun(t, "team", "members")
	if xs, _ := members["data"].([]any); len(xs) != 3 {
		t.Fatalf("expected three members; got %v", members["data"])
	}
}

func TestCLI_TableFormat(t *testing.T) {
	b, _ := setup(t)
	u := b.AddUser("Ada", "ada@example.com", "password123", model.RoleAdmin)
	b.AddTask("Ship the release", model.TaskStatusBlocked, &u.ID)
	mustRun(t, "login", "--email", "ada@example.com", "--password", "password123")

	stdout, stderr, err := runCLI(t, []string{"tasks", "list", "--format", "table"})
	if err != nil {
		t.Fatalf("tasks list: %v\n%s", err, stderr)
	}
	out := string(stdout)
	for _, want := range []string{"STATUS", "Blocked", "Ship the release", "Ada", "0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestCLI_ExpiredSessionIsCleared(t *testing.T) {
	b, dir := setup(t)
	u := b.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)
	kv, err := store.Open(store.BackendFile, dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	st := store.NewSessionStore(kv)
	if err := st.Save(context.Background(), b.ExpiredTokenFor(u.ID), u); err != nil {
		t.Fatalf("save: %v", err)
	}

	stderr := mustFail(t, "tasks", "list")
	if !strings.Contains(stderr, "signed out; run `teamboard login`") || !strings.Contains(stderr, "Token has expired") {
		t.Fatalf("expected expiry reported; stderr: %s", stderr)
	}
	if tok, _ := st.Token(context.Background()); tok != "" {
		t.Fatalf("expected token cleared; got %q", tok)
	}
}

func TestCLI_WrongPasswordDoesNotClaimExpiry(t *testing.T) {
	b, _ := setup(t)
	b.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)

	stderr := mustFail(t, "login", "--email", "mia@example.com", "--password", "wrong-password")
	if !strings.Contains(stderr, "Invalid email or password") {
		t.Fatalf("expected the server message; stderr: %s", stderr)
	}
	if strings.Contains(stderr, "expired") {
		t.Fatalf("a failed sign-in must not report an expired session; stderr: %s", stderr)
	}
}

func TestCLI_SQLiteSessionBackend(t *testing.T) {
	b, _ := setup(t)
	b.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)

	mustRun(t, "--session-backend", "sqlite", "login", "--email", "mia@example.com", "--password", "password123")
	sess := dataMap(mustRun(t, "--session-backend", "sqlite", "session"))
	if sess["signed_in"] != true || sess["session_backend"] != "sqlite" {
		t.Fatalf("unexpected session: %v", sess)
	}
	sess = dataMap(mustRun(t, "session"))
	if sess["signed_in"] != false {
		t.Fatalf("file backend must not see the sqlite session: %v", sess)
	}
}

func TestCLI_LoginPasswordFromStdin(t *testing.T) {
	b, _ := setup(t)
	b.AddUser("Mia", "mia@example.com", "password123", model.RoleMember)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("password123\n"))
	cmd.SetArgs([]string{"login", "--email", "mia@example.com", "--password-stdin"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("login: %v\n%s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "mia@example.com") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestCLI_ConfigShowAndDocs(t *testing.T) {
	setup(t)
	t.Setenv("TEAMBOARD_LOG_LEVEL", "debug")

	cfg := dataMap(mustRun(t, "config", "show"))
	if cfg["log_level"] != "debug" || cfg["format"] != "json" {
		t.Fatalf("unexpected config: %v", cfg)
	}

	topics := dataMap(mustRun(t, "docs"))["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected docs topics")
	}
	doc := dataMap(mustRun(t, "docs", "permissions"))
	if !strings.Contains(doc["markdown"].(string), "ADMIN") {
		t.Fatalf("unexpected doc: %v", doc)
	}
	mustFail(t, "docs", "nope")

	stdout, _, err := runCLI(t, []string{"--format", "edn", "docs"})
	if err != nil || !strings.HasPrefix(string(stdout), "{:data {:topics [") {
		t.Fatalf("unexpected edn: %q err=%v", stdout, err)
	}
}

func TestCLI_ExportBoard(t *testing.T) {
	setup(t)
	out := t.TempDir()

	mustRun(t, "register", "--name", "Ada", "--email", "ada@example.com", "--password", "password123")
	task := dataMap(mustRun(t, "tasks", "create", "--title", "Ship v1", "--description", "Release notes"))
	taskID := fmt.Sprint(num(task["id"]))
	mustRun(t, "subtasks", "create", taskID, "--title", "Write docs", "--status", "done")

	res := dataMap(mustRun(t, "export", "board", "--to", out))
	written, _ := res["written"].([]any)
	if len(written) != 2 {
		t.Fatalf("expected index and one task page; got %v", res)
	}
	b, err := os.ReadFile(filepath.Join(out, "tasks", taskID+".md"))
	if err != nil {
		t.Fatalf("read task page: %v", err)
	}
	if !strings.Contains(string(b), "- [x] Write docs") || !strings.Contains(string(b), "Release notes") {
		t.Fatalf("unexpected task page:\n%s", b)
	}

	stderr := mustFail(t, "export", "task", taskID, "--to", out)
	if !strings.Contains(stderr, "file exists") {
		t.Fatalf("expected overwrite guard; stderr: %s", stderr)
	}
	mustRun(t, "export", "task", taskID, "--to", out, "--overwrite")
}
