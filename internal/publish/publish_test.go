package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"teamboard/internal/model"
)

// fakeTasks decodes tasks from JSON so progress comes from the wire, as it
// does in production.
type fakeTasks struct {
	byID map[int64]model.TeamTask
	list []model.TeamTask
	err  error
}

func newFakeTasks(t *testing.T, raw string) *fakeTasks {
	t.Helper()
	var tasks []model.TeamTask
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	f := &fakeTasks{byID: map[int64]model.TeamTask{}}
	for _, task := range tasks {
		f.byID[task.ID] = task
		listed := task
		listed.SubTasks = nil
		f.list = append(f.list, listed)
	}
	return f
}

func (f *fakeTasks) List(context.Context) ([]model.TeamTask, error) { return f.list, f.err }

func (f *fakeTasks) Get(_ context.Context, id int64) (model.TeamTask, error) {
	if f.err != nil {
		return model.TeamTask{}, f.err
	}
	t, ok := f.byID[id]
	if !ok {
		return model.TeamTask{}, errors.New("not found")
	}
	return t, nil
}

const fixture = `[
  {"id": 1, "team_id": 1, "title": "Ship v1", "description": "Some **markdown**.", "status": "IN_PROGRESS",
   "assigned_user_id": 5, "assigned_user": {"id": 5, "name": "Mia", "email": "mia@example.com"}, "progress": 50,
   "sub_tasks": [
     {"id": 10, "team_task_id": 1, "title": "Write docs", "status": "DONE"},
     {"id": 11, "team_task_id": 1, "title": "Tag release", "status": "BLOCKED", "responsible_user": {"id": 5, "name": "Mia", "email": "mia@example.com"}}
   ]},
  {"id": 2, "team_id": 1, "title": "Retro", "status": "DONE", "progress": 100}
]`

func TestRenderTaskMarkdown_IncludesDescriptionAndChecklist(t *testing.T) {
	t.Parallel()

	f := newFakeTasks(t, fixture)
	md := RenderTaskMarkdown(f.byID[1])
	for _, want := range []string{
		"# Ship v1",
		"- Status: In Progress",
		"- Assignee: Mia",
		"- Progress: 50%",
		"## Description",
		"Some **markdown**.",
		"- [x] Write docs",
		"- [ ] Tag release (Blocked) @Mia",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestRenderBoardIndexMarkdown_GroupsByColumn(t *testing.T) {
	t.Parallel()

	f := newFakeTasks(t, fixture)
	md := RenderBoardIndexMarkdown("", f.list)
	for _, want := range []string{
		"# Team board",
		"## To Do (0)",
		"## In Progress (1)",
		"- [Ship v1](tasks/1.md) - Mia, 50%",
		"## Done (1)",
		"- [Retro](tasks/2.md) - Unassigned, 100%",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestWriteBoard_WritesIndexAndTaskPages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f := newFakeTasks(t, fixture)
	res, err := WriteBoard(context.Background(), f, dir, WriteOptions{Title: "Core team"})
	if err != nil {
		t.Fatalf("WriteBoard: %v", err)
	}
	if len(res.Written) != 3 {
		t.Fatalf("expected index + 2 pages; got %v", res.Written)
	}

	b, err := os.ReadFile(filepath.Join(dir, "tasks", "1.md"))
	if err != nil {
		t.Fatalf("read task page: %v", err)
	}
	if !strings.Contains(string(b), "- [x] Write docs") {
		t.Fatalf("expected sub-tasks fetched for the page:\n%s", b)
	}

	if _, err := WriteBoard(context.Background(), f, dir, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "file exists") {
		t.Fatalf("expected an overwrite error; got %v", err)
	}
	if _, err := WriteBoard(context.Background(), f, dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("WriteBoard overwrite: %v", err)
	}
}

func TestWriteTask_Errors(t *testing.T) {
	t.Parallel()

	f := newFakeTasks(t, fixture)
	if _, err := WriteTask(context.Background(), f, 1, "  ", WriteOptions{}); err == nil {
		t.Fatalf("expected missing --to error")
	}
	if _, err := WriteTask(context.Background(), f, 99, t.TempDir(), WriteOptions{}); err == nil {
		t.Fatalf("expected not found error")
	}
	f.err = errors.New("boom")
	if _, err := WriteBoard(context.Background(), f, t.TempDir(), WriteOptions{}); err == nil {
		t.Fatalf("expected the fetch error to surface")
	}
}
