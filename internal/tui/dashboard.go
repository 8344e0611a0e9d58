package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// dashRow is one selectable line: a private todo or an assigned task.
type dashRow struct {
	todo *model.PrivateTodo
	task *model.TeamTask
}

func (m appModel) dashRows() []dashRow {
	if m.dash == nil {
		return nil
	}
	todos := m.dash.Todos()
	tasks := m.dash.AssignedTasks()
	rows := make([]dashRow, 0, len(todos)+len(tasks))
	for i := range todos {
		rows = append(rows, dashRow{todo: &todos[i]})
	}
	for i := range tasks {
		rows = append(rows, dashRow{task: &tasks[i]})
	}
	return rows
}

func (m appModel) selectedDashRow() (dashRow, bool) {
	rows := m.dashRows()
	if m.dashSel < 0 || m.dashSel >= len(rows) {
		return dashRow{}, false
	}
	return rows[m.dashSel], true
}

func (m appModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dash
	row, hasRow := m.selectedDashRow()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.dashSel = clamp(m.dashSel-1, 0, len(m.dashRows())-1)
	case key.Matches(msg, m.keys.Down):
		m.dashSel = clamp(m.dashSel+1, 0, len(m.dashRows())-1)
	case key.Matches(msg, m.keys.Reload):
		d.ClearError()
		return m, m.do("", d.Load)
	case key.Matches(msg, m.keys.Board):
		return m.openBoard()
	case key.Matches(msg, m.keys.Logout):
		return m.logout()

	case key.Matches(msg, m.keys.New):
		md, cmd := newFormModal("New todo", formValues{}, true, func(v formValues) tea.Cmd {
			in := model.CreateTodo{Title: v.title}
			if v.description != "" {
				in.Description = model.StringPtr(v.description)
			}
			return m.do("Todo created.", func(ctx context.Context) error {
				_, err := d.CreateTodo(ctx, in)
				return err
			})
		})
		m.modal = md
		m.dashSel = 0
		return m, cmd

	case key.Matches(msg, m.keys.Enter) && hasRow && row.task != nil:
		return m.openDetail(row.task.ID)

	case (key.Matches(msg, m.keys.Edit) || key.Matches(msg, m.keys.Enter)) && hasRow && row.todo != nil:
		td := *row.todo
		md, cmd := newFormModal("Edit todo", formValues{title: td.Title, description: model.Deref(td.Description)}, true, func(v formValues) tea.Cmd {
			in := model.UpdateTodo{Title: model.StringPtr(v.title), Description: model.Clear[string]()}
			if v.description != "" {
				in.Description = model.Set(v.description)
			}
			return m.do("Todo saved.", func(ctx context.Context) error {
				_, err := d.UpdateTodo(ctx, td.ID, in)
				return err
			})
		})
		m.modal = md
		return m, cmd

	case key.Matches(msg, m.keys.Status) && hasRow && row.todo != nil:
		id := row.todo.ID
		opts := make([]pickerOption, 0, len(statusutil.TodoStatuses))
		for _, st := range statusutil.TodoStatuses {
			opts = append(opts, pickerOption{label: statusutil.Label(st), value: string(st)})
		}
		m.modal = newPickerModal("Todo status", opts, string(row.todo.Status), func(v string) tea.Cmd {
			return m.do("", func(ctx context.Context) error {
				return d.SetTodoStatus(ctx, id, model.TodoStatus(v))
			})
		})

	case key.Matches(msg, m.keys.Delete) && hasRow && row.todo != nil:
		id, title := row.todo.ID, row.todo.Title
		m.modal = newConfirmModal("Delete todo", fmt.Sprintf("Delete %q? This cannot be undone.", title), func() tea.Cmd {
			return m.do("Todo deleted.", func(ctx context.Context) error {
				return d.DeleteTodo(ctx, id)
			})
		})
	}
	return m, nil
}

func (m appModel) viewDashboard() string {
	if m.dash == nil {
		return ""
	}
	w := m.contentWidth()
	todos := m.dash.Todos()
	tasks := m.dash.AssignedTasks()

	var b strings.Builder
	b.WriteString(styleHeader().Render(fmt.Sprintf("My todos (%d)", len(todos))))
	b.WriteString("\n")
	if len(todos) == 0 {
		b.WriteString(styleMuted().Render("  Nothing here yet. Press n to add a todo."))
		b.WriteString("\n")
	}
	for i, td := range todos {
		line := statusBadge(td.Status) + " " + td.Title
		if due := model.Deref(td.DueDate); due != "" {
			line += styleMuted().Render("  due " + due)
		}
		b.WriteString(m.dashLine(i, line, w))
	}

	b.WriteString("\n")
	b.WriteString(styleHeader().Render(fmt.Sprintf("Assigned to me (%d)", len(tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(styleMuted().Render("  No team tasks are assigned to you."))
		b.WriteString("\n")
	}
	for i, t := range tasks {
		line := statusBadge(t.Status) + " " + t.Title + "  " + m.g.progressBar(t.Progress(), 10) + fmt.Sprintf(" %d%%", t.Progress())
		b.WriteString(m.dashLine(len(todos)+i, line, w))
	}

	help := helpLine(m.keys.Up, m.keys.Down, m.keys.New, m.keys.Edit, m.keys.Status, m.keys.Delete,
		m.keys.Enter, m.keys.Board, m.keys.Reload, m.keys.Logout, m.keys.Quit)
	return m.frame("Dashboard", m.dash, strings.TrimRight(b.String(), "\n"), help)
}

func (m appModel) dashLine(idx int, line string, width int) string {
	prefix := "  "
	if idx == m.dashSel {
		prefix = styleKey().Render(m.g.cursor) + " "
	}
	return xansi.Truncate(prefix+line, width, "…") + "\n"
}
