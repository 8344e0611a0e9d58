package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/statusutil"
)

func taskStatusOptions() []pickerOption {
	opts := make([]pickerOption, 0, len(statusutil.TaskStatuses))
	for _, st := range statusutil.TaskStatuses {
		opts = append(opts, pickerOption{label: statusutil.Label(st), value: string(st)})
	}
	return opts
}

func (m appModel) selectedSubTask() (model.SubTask, bool) {
	t, ok := m.detail.Task()
	if !ok || m.detailSel < 0 || m.detailSel >= len(t.SubTasks) {
		return model.SubTask{}, false
	}
	return t.SubTasks[m.detailSel], true
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	t, loaded := d.Task()
	sub, hasSub := m.selectedSubTask()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		return m.openBoard()
	case key.Matches(msg, m.keys.Home):
		return m.openDashboard()
	case key.Matches(msg, m.keys.Reload):
		d.ClearError()
		return m, m.do("", d.Load)
	case key.Matches(msg, m.keys.Up):
		m.detailSel = clamp(m.detailSel-1, 0, len(t.SubTasks)-1)
	case key.Matches(msg, m.keys.Down):
		m.detailSel = clamp(m.detailSel+1, 0, len(t.SubTasks)-1)
	}
	if !loaded {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Status):
		if !d.CanChangeStatus() {
			m.flash = mutate.DeniedTask
			return m, nil
		}
		m.modal = newPickerModal("Task status", taskStatusOptions(), string(t.Status), func(v string) tea.Cmd {
			return m.do("", func(ctx context.Context) error {
				return d.SetStatus(ctx, model.TaskStatus(v))
			})
		})

	case key.Matches(msg, m.keys.Grab) && hasSub:
		if !d.CanChangeSubTaskStatus(sub.ID) {
			m.flash = mutate.DeniedSubTask
			return m, nil
		}
		m.modal = newPickerModal("Sub-task status", taskStatusOptions(), string(sub.Status), func(v string) tea.Cmd {
			return m.do("", func(ctx context.Context) error {
				return d.SetSubTaskStatus(ctx, sub.ID, model.TaskStatus(v))
			})
		})
	}

	if !d.CanEdit() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Edit):
		md, cmd := newFormModal("Edit task", formValues{title: t.Title, description: model.Deref(t.Description)}, true, func(v formValues) tea.Cmd {
			in := model.UpdateTask{Title: model.StringPtr(v.title), Description: model.Clear[string]()}
			if v.description != "" {
				in.Description = model.Set(v.description)
			}
			return m.do("Task saved.", func(ctx context.Context) error {
				return d.Update(ctx, in)
			})
		})
		m.modal = md
		return m, cmd

	case key.Matches(msg, m.keys.Assign):
		opts := []pickerOption{{label: "Unassigned", value: ""}}
		for _, mem := range d.Members() {
			opts = append(opts, pickerOption{label: mem.Name + " <" + mem.Email + ">", value: strconv.FormatInt(mem.ID, 10)})
		}
		current := ""
		if t.AssignedUserID != nil {
			current = strconv.FormatInt(*t.AssignedUserID, 10)
		}
		m.modal = newPickerModal("Assign task", opts, current, func(v string) tea.Cmd {
			var userID *int64
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				userID = &id
			}
			return m.do("Assignee saved.", func(ctx context.Context) error {
				return d.Assign(ctx, userID)
			})
		})

	case key.Matches(msg, m.keys.Delete):
		m.modal = newConfirmModal("Delete task", fmt.Sprintf("Delete %q and all of its sub-tasks?", t.Title), func() tea.Cmd {
			return m.do("", d.Delete)
		})

	case key.Matches(msg, m.keys.New):
		md, cmd := newFormModal("New sub-task", formValues{}, false, func(v formValues) tea.Cmd {
			return m.do("Sub-task added.", func(ctx context.Context) error {
				return d.CreateSubTask(ctx, model.CreateSubTask{Title: v.title})
			})
		})
		m.modal = md
		return m, cmd

	case key.Matches(msg, m.keys.SubEdit) && hasSub:
		md, cmd := newFormModal("Rename sub-task", formValues{title: sub.Title}, false, func(v formValues) tea.Cmd {
			return m.do("Sub-task saved.", func(ctx context.Context) error {
				return d.UpdateSubTask(ctx, sub.ID, model.UpdateSubTask{Title: model.StringPtr(v.title)})
			})
		})
		m.modal = md
		return m, cmd

	case key.Matches(msg, m.keys.SubDel) && hasSub:
		m.modal = newConfirmModal("Delete sub-task", fmt.Sprintf("Delete %q?", sub.Title), func() tea.Cmd {
			return m.do("Sub-task deleted.", func(ctx context.Context) error {
				return d.DeleteSubTask(ctx, sub.ID)
			})
		})
	}
	return m, nil
}

func (m appModel) viewDetail() string {
	if m.detail == nil {
		return ""
	}
	d := m.detail
	w := m.contentWidth()
	t, ok := d.Task()
	if !ok {
		return m.frame(fmt.Sprintf("Task #%d", d.ID()), d, "", helpLine(m.keys.Back, m.keys.Reload, m.keys.Quit))
	}

	var b strings.Builder
	b.WriteString(styleTitle().Render(t.Title))
	b.WriteString("\n\n")

	status := statusBadge(t.Status)
	if d.CanChangeStatus() {
		status += styleMuted().Render("  (s: change)")
	} else {
		status += styleMuted().Render("  " + m.g.locked + " read-only")
	}
	b.WriteString("Status    " + status + "\n")

	assignee := "Unassigned"
	if t.AssignedUser != nil {
		assignee = t.AssignedUser.Name
	}
	b.WriteString("Assignee  " + assignee + "\n")

	progress := m.g.progressBar(t.Progress(), 20) + fmt.Sprintf(" %d%%", t.Progress())
	if d.ProgressStale() {
		progress += styleMuted().Render("  updating...")
	}
	b.WriteString("Progress  " + progress + "\n")

	if desc := renderMarkdown(model.Deref(t.Description), w-2); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleHeader().Render(fmt.Sprintf("Sub-tasks (%d)", len(t.SubTasks))))
	b.WriteString("\n")
	if len(t.SubTasks) == 0 {
		b.WriteString(styleMuted().Render("  No sub-tasks."))
		b.WriteString("\n")
	}
	for i, st := range t.SubTasks {
		prefix := "  "
		if i == m.detailSel {
			prefix = styleKey().Render(m.g.cursor) + " "
		}
		line := prefix + statusBadge(st.Status) + " " + st.Title
		if st.ResponsibleUser != nil {
			line += styleMuted().Render("  " + m.g.bullet + " " + st.ResponsibleUser.Name)
		}
		if !d.CanChangeSubTaskStatus(st.ID) {
			line += styleMuted().Render("  " + m.g.locked)
		}
		b.WriteString(xansi.Truncate(line, w, "…"))
		b.WriteString("\n")
	}

	subStatus := m.keys.Grab
	subStatus.SetHelp("space", "sub-task status")
	bindings := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Status, subStatus}
	if d.CanEdit() {
		bindings = append(bindings, m.keys.Edit, m.keys.Assign, m.keys.Delete, m.keys.New, m.keys.SubEdit, m.keys.SubDel)
	}
	bindings = append(bindings, m.keys.Reload, m.keys.Back, m.keys.Quit)
	return m.frame(fmt.Sprintf("Task #%d", t.ID), d, strings.TrimRight(b.String(), "\n"), helpLine(bindings...))
}
