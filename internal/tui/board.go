package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/statusutil"
	"teamboard/internal/views"
)

type boardCursor struct {
	col int
	row int
}

func (c boardCursor) clamp(cols []views.Column) boardCursor {
	if len(cols) == 0 {
		return boardCursor{}
	}
	c.col = clamp(c.col, 0, len(cols)-1)
	c.row = clamp(c.row, 0, len(cols[c.col].Tasks)-1)
	return c
}

// grabState is a card lifted with space. to is the column it hovers over.
type grabState struct {
	taskID int64
	title  string
	from   int
	to     int
}

func (m appModel) selectedCard() (model.TeamTask, bool) {
	if m.board == nil {
		return model.TeamTask{}, false
	}
	cols := m.board.Columns()
	c := m.cur.clamp(cols)
	if len(cols) == 0 || len(cols[c.col].Tasks) == 0 {
		return model.TeamTask{}, false
	}
	return cols[c.col].Tasks[c.row], true
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.board
	cols := b.Columns()
	last := len(cols) - 1

	if m.grab != nil {
		switch {
		case key.Matches(msg, m.keys.Left):
			m.grab.to = clamp(m.grab.to-1, 0, last)
		case key.Matches(msg, m.keys.Right):
			m.grab.to = clamp(m.grab.to+1, 0, last)
		case key.Matches(msg, m.keys.Back):
			m.grab = nil
		case key.Matches(msg, m.keys.Enter):
			g := *m.grab
			m.grab = nil
			m.cur = boardCursor{col: g.to}
			to := cols[g.to].Status
			if g.to == g.from {
				return m, nil
			}
			flash := fmt.Sprintf("Moved %q to %s.", g.title, statusutil.Label(to))
			return m, m.do(flash, func(ctx context.Context) error {
				return b.Drop(ctx, g.taskID, to)
			})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.cur = boardCursor{col: m.cur.col - 1, row: m.cur.row}.clamp(cols)
	case key.Matches(msg, m.keys.Right):
		m.cur = boardCursor{col: m.cur.col + 1, row: m.cur.row}.clamp(cols)
	case key.Matches(msg, m.keys.Up):
		m.cur = boardCursor{col: m.cur.col, row: m.cur.row - 1}.clamp(cols)
	case key.Matches(msg, m.keys.Down):
		m.cur = boardCursor{col: m.cur.col, row: m.cur.row + 1}.clamp(cols)
	case key.Matches(msg, m.keys.Reload):
		b.ClearError()
		return m, m.do("", b.Load)
	case key.Matches(msg, m.keys.Home):
		return m.openDashboard()
	case key.Matches(msg, m.keys.Logout):
		return m.logout()

	case key.Matches(msg, m.keys.Grab):
		t, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		if !b.CanMove(t.ID) {
			m.flash = mutate.DeniedTask
			return m, nil
		}
		m.cur = m.cur.clamp(cols)
		m.grab = &grabState{taskID: t.ID, title: t.Title, from: m.cur.col, to: m.cur.col}

	case key.Matches(msg, m.keys.Enter):
		if t, ok := m.selectedCard(); ok {
			return m.openDetail(t.ID)
		}

	case key.Matches(msg, m.keys.New):
		if !b.CanCreate() {
			return m, nil
		}
		md, cmd := newFormModal("New task", formValues{}, true, func(v formValues) tea.Cmd {
			in := model.CreateTask{Title: v.title}
			if v.description != "" {
				in.Description = model.StringPtr(v.description)
			}
			return m.do("Task created.", func(ctx context.Context) error {
				_, err := b.Create(ctx, in)
				return err
			})
		})
		m.modal = md
		m.cur = boardCursor{}
		return m, cmd
	}
	return m, nil
}

func (m appModel) viewBoard() string {
	if m.board == nil {
		return ""
	}
	cols := m.board.Columns()
	w := m.contentWidth()
	gap := 1
	colW := (w - gap*(len(cols)-1)) / len(cols)
	if colW < 16 {
		colW = 16
	}

	rendered := make([]string, 0, len(cols))
	for ci, col := range cols {
		rendered = append(rendered, m.renderColumn(ci, col, colW))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, interleave(rendered, strings.Repeat(" ", gap))...)

	var help string
	if m.grab != nil {
		help = helpLine(m.keys.Left, m.keys.Right) + "   " + styleKey().Render("enter") + ": drop   " + styleKey().Render("esc") + ": cancel"
	} else {
		newKey := m.keys.New
		newKey.SetEnabled(m.board.CanCreate())
		help = helpLine(m.keys.Left, m.keys.Right, m.keys.Up, m.keys.Down, m.keys.Grab, m.keys.Enter,
			newKey, m.keys.Reload, m.keys.Home, m.keys.Quit)
	}
	return m.frame("Board", m.board, body, help)
}

func (m appModel) renderColumn(ci int, col views.Column, width int) string {
	inner := width - 2
	title := fmt.Sprintf("%s (%d)", col.Label, len(col.Tasks))
	lines := []string{styleHeader().Render(xansi.Truncate(title, inner, "…")), ""}

	if m.grab != nil && m.grab.to == ci && m.grab.to != m.grab.from {
		ghost := m.g.grabbed + " " + m.grab.title
		lines = append(lines, styleSelected().Render(xansi.Truncate(ghost, inner, "…")), "")
	}
	for ri, t := range col.Tasks {
		lines = append(lines, m.renderCard(t, inner, ci == m.cur.col && ri == m.cur.row), "")
	}
	if len(col.Tasks) == 0 {
		lines = append(lines, styleMuted().Render("empty"))
	}

	border := colorCardBorder
	if ci == m.cur.col || (m.grab != nil && ci == m.grab.to) {
		border = colorSelectedBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(border).
		Width(inner).
		Render(strings.Join(lines, "\n"))
}

func (m appModel) renderCard(t model.TeamTask, width int, selected bool) string {
	prefix := "  "
	if selected {
		prefix = m.g.cursor + " "
	}
	if m.grab != nil && m.grab.taskID == t.ID {
		prefix = m.g.grabbed + " "
	}
	title := xansi.Truncate(prefix+t.Title, width, "…")

	assignee := "Unassigned"
	if t.AssignedUser != nil {
		assignee = t.AssignedUser.Name
	}
	barW := width - 6
	if barW > 12 {
		barW = 12
	}
	progress := lipgloss.NewStyle().Foreground(progressColor(t)).
		Render(m.g.progressBar(t.Progress(), barW) + fmt.Sprintf(" %d%%", t.Progress()))
	meta := styleMuted().Render(xansi.Truncate("  "+assignee, width, "…"))

	switch {
	case m.grab != nil && m.grab.taskID == t.ID:
		title = styleMuted().Render(title)
	case selected:
		title = styleSelected().Render(title)
	}
	return title + "\n" + meta + "\n  " + progress
}

func interleave(items []string, sep string) []string {
	out := make([]string, 0, len(items)*2)
	for i, it := range items {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, it)
	}
	return out
}
