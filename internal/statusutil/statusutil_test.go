package statusutil

import (
	"testing"

	"teamboard/internal/model"
)

func TestParseTaskStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    model.TaskStatus
		wantErr bool
	}{
		{"TODO", model.TaskStatusTodo, false},
		{"todo", model.TaskStatusTodo, false},
		{"To Do", model.TaskStatusTodo, false},
		{"in-progress", model.TaskStatusInProgress, false},
		{"In Progress", model.TaskStatusInProgress, false},
		{"doing", model.TaskStatusInProgress, false},
		{" blocked ", model.TaskStatusBlocked, false},
		{"DONE", model.TaskStatusDone, false},
		{"ARCHIVED", "", true},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tc := range cases {
		got, err := ParseTaskStatus(tc.in)
		if tc.wantErr && err == nil {
			t.Fatalf("ParseTaskStatus(%q): expected error", tc.in)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("ParseTaskStatus(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTaskStatus(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestParseTodoStatus_RejectsBlocked(t *testing.T) {
	if _, err := ParseTodoStatus("BLOCKED"); err == nil {
		t.Fatalf("expected BLOCKED to be rejected for todos")
	}
	got, err := ParseTodoStatus("done")
	if err != nil {
		t.Fatalf("ParseTodoStatus(done): %v", err)
	}
	if got != model.TodoStatusDone {
		t.Fatalf("expected DONE, got %q", got)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"TODO":        "To Do",
		"IN_PROGRESS": "In Progress",
		"BLOCKED":     "Blocked",
		"DONE":        "Done",
		"WEIRD":       "WEIRD",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	if got := ColumnIndex(model.TaskStatusBlocked); got != 2 {
		t.Fatalf("expected BLOCKED column 2, got %d", got)
	}
	if got := ColumnIndex("NOPE"); got != -1 {
		t.Fatalf("expected -1 for unknown status, got %d", got)
	}
}

func TestValidator_StatusTags(t *testing.T) {
	v := NewValidator()

	bad := model.TaskStatus("ARCHIVED")
	if err := v.Struct(model.CreateTask{Title: "x", Status: &bad}); err == nil {
		t.Fatalf("expected invalid task status to fail validation")
	}
	ok := model.TaskStatusBlocked
	if err := v.Struct(model.CreateTask{Title: "x", Status: &ok}); err != nil {
		t.Fatalf("expected BLOCKED to validate for tasks: %v", err)
	}

	blocked := model.TodoStatus("BLOCKED")
	if err := v.Struct(model.CreateTodo{Title: "x", Status: &blocked}); err == nil {
		t.Fatalf("expected BLOCKED to fail validation for todos")
	}
	if err := v.Struct(model.CreateTodo{Title: ""}); err == nil {
		t.Fatalf("expected missing title to fail validation")
	}
}
