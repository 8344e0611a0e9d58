package publish

import (
	"bytes"
	"fmt"
	"strings"

	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// RenderTaskMarkdown renders one team task as a standalone markdown page.
// Sub-tasks become a checklist; DONE sub-tasks are checked.
func RenderTaskMarkdown(t model.TeamTask) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", t.ID))
	writeLn("- Status: " + statusutil.Label(t.Status))
	writeLn("- Assignee: " + assigneeName(t))
	writeLn(fmt.Sprintf("- Progress: %d%%", t.Progress()))
	if t.CreatedAt != "" {
		writeLn("- Created: " + t.CreatedAt)
	}
	if t.UpdatedAt != "" {
		writeLn("- Updated: " + t.UpdatedAt)
	}

	if desc := strings.TrimSpace(model.Deref(t.Description)); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	if len(t.SubTasks) > 0 {
		writeLn("")
		writeLn("## Sub-tasks")
		writeLn("")
		for _, st := range t.SubTasks {
			box := "[ ]"
			if statusutil.IsDone(st.Status) {
				box = "[x]"
			}
			line := "- " + box + " " + strings.TrimSpace(st.Title)
			if st.Status != model.TaskStatusDone && st.Status != model.TaskStatusTodo {
				line += " (" + statusutil.Label(st.Status) + ")"
			}
			if st.ResponsibleUser != nil {
				line += " @" + st.ResponsibleUser.Name
			}
			writeLn(line)
		}
	}
	return buf.String()
}

// RenderBoardIndexMarkdown renders the board as one section per column with
// links to the task pages under tasks/.
func RenderBoardIndexMarkdown(title string, tasks []model.TeamTask) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	if strings.TrimSpace(title) == "" {
		title = "Team board"
	}
	writeLn("# " + title)

	byStatus := map[model.TaskStatus][]model.TeamTask{}
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}
	for _, st := range statusutil.TaskStatuses {
		col := byStatus[st]
		writeLn("")
		writeLn(fmt.Sprintf("## %s (%d)", statusutil.Label(st), len(col)))
		writeLn("")
		if len(col) == 0 {
			writeLn("_No tasks._")
			continue
		}
		for _, t := range col {
			writeLn(fmt.Sprintf("- [%s](tasks/%d.md) - %s, %d%%", strings.TrimSpace(t.Title), t.ID, assigneeName(t), t.Progress()))
		}
	}
	return buf.String()
}

func assigneeName(t model.TeamTask) string {
	if t.AssignedUser != nil && t.AssignedUser.Name != "" {
		return t.AssignedUser.Name
	}
	if t.AssignedUserID != nil {
		return fmt.Sprintf("user %d", *t.AssignedUserID)
	}
	return "Unassigned"
}
