package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalForm modalKind = iota
	modalPicker
	modalConfirm
)

type pickerOption struct {
	label string
	value string
}

// formValues is what a form modal submits.
type formValues struct {
	title       string
	description string
}

type modal struct {
	kind  modalKind
	title string

	// modalForm
	input    textinput.Model
	desc     textarea.Model
	withDesc bool
	onDesc   bool
	errText  string
	onSubmit func(formValues) tea.Cmd

	// modalPicker
	options []pickerOption
	idx     int
	onPick  func(value string) tea.Cmd

	// modalConfirm
	body      string
	onConfirm func() tea.Cmd
}

func newFormModal(title string, v formValues, withDesc bool, onSubmit func(formValues) tea.Cmd) (*modal, tea.Cmd) {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Title"
	in.CharLimit = 255
	in.SetValue(v.title)
	_ = in.Cursor.SetMode(inputCursorMode)

	md := &modal{kind: modalForm, title: title, input: in, withDesc: withDesc, onSubmit: onSubmit}
	if withDesc {
		ta := textarea.New()
		ta.Placeholder = "Description (markdown)"
		ta.ShowLineNumbers = false
		ta.SetHeight(6)
		ta.SetValue(v.description)
		_ = ta.Cursor.SetMode(inputCursorMode)
		md.desc = ta
	}
	return md, md.input.Focus()
}

// newPickerModal preselects the option whose value is current.
func newPickerModal(title string, options []pickerOption, current string, onPick func(string) tea.Cmd) *modal {
	md := &modal{kind: modalPicker, title: title, options: options, onPick: onPick}
	for i, o := range options {
		if o.value == current {
			md.idx = i
		}
	}
	return md
}

func newConfirmModal(title, body string, onConfirm func() tea.Cmd) *modal {
	return &modal{kind: modalConfirm, title: title, body: body, onConfirm: onConfirm}
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	if msg.String() == "esc" {
		m.modal = nil
		return m, nil
	}
	switch md.kind {
	case modalConfirm:
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.modal = nil
			return m, md.onConfirm()
		case key.Matches(msg, m.keys.No):
			m.modal = nil
		}
		return m, nil

	case modalPicker:
		switch {
		case key.Matches(msg, m.keys.Up):
			md.idx = clamp(md.idx-1, 0, len(md.options)-1)
		case key.Matches(msg, m.keys.Down):
			md.idx = clamp(md.idx+1, 0, len(md.options)-1)
		case key.Matches(msg, m.keys.Enter):
			m.modal = nil
			if len(md.options) == 0 {
				return m, nil
			}
			return m, md.onPick(md.options[md.idx].value)
		}
		return m, nil
	}

	switch {
	case md.withDesc && (key.Matches(msg, m.keys.NextFld) || key.Matches(msg, m.keys.PrevFld)):
		md.onDesc = !md.onDesc
		if md.onDesc {
			md.input.Blur()
			return m, md.desc.Focus()
		}
		md.desc.Blur()
		return m, md.input.Focus()
	case key.Matches(msg, m.keys.Submit), msg.String() == "enter" && !md.onDesc:
		v := formValues{title: strings.TrimSpace(md.input.Value())}
		if md.withDesc {
			v.description = strings.TrimSpace(md.desc.Value())
		}
		if v.title == "" {
			md.errText = "Title is required."
			return m, nil
		}
		m.modal = nil
		return m, md.onSubmit(v)
	}
	return m, md.updateInputs(msg)
}

func (md *modal) updateInputs(msg tea.Msg) tea.Cmd {
	if md.kind != modalForm {
		return nil
	}
	var cmd tea.Cmd
	if md.onDesc {
		md.desc, cmd = md.desc.Update(msg)
	} else {
		md.input, cmd = md.input.Update(msg)
	}
	return cmd
}

func (m appModel) modalWidth() int {
	w := m.contentWidth() - 8
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (md *modal) view(width int) string {
	bodyW := width - 4
	var lines []string
	switch md.kind {
	case modalConfirm:
		lines = append(lines,
			lipgloss.NewStyle().Width(bodyW).Render(md.body),
			"",
			styleMuted().Render("y/enter: confirm   n/esc: cancel"),
		)
	case modalPicker:
		for i, o := range md.options {
			line := "  " + o.label
			if i == md.idx {
				line = styleSelected().Render("> " + o.label)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "", styleMuted().Render("j/k: move   enter: pick   esc: cancel"))
	case modalForm:
		in := md.input
		in.Width = bodyW
		lines = append(lines, styleHeader().Render("Title"), in.View())
		if md.withDesc {
			desc := md.desc
			desc.SetWidth(bodyW)
			lines = append(lines, "", styleHeader().Render("Description"), desc.View())
		}
		if md.errText != "" {
			lines = append(lines, "", styleBanner().Render(md.errText))
		}
		help := "enter: save   esc: cancel"
		if md.withDesc {
			help = "tab: switch field   enter/ctrl+s: save   esc: cancel"
		}
		lines = append(lines, "", styleMuted().Render(help))
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSelectedBorder).
		Padding(0, 1).
		Width(width)
	return box.Render(styleTitle().Render(md.title) + "\n\n" + strings.Join(lines, "\n"))
}
