package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputCursorMode applies to every text field the TUI creates.
var inputCursorMode = cursor.CursorBlink

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

// authForm is the sign-in screen. In register mode it also asks for a name.
type authForm struct {
	register bool
	inputs   [3]textinput.Model
	focus    int
	busy     bool
	errText  string
	notice   string
}

func newAuthForm() authForm {
	var f authForm
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 255
		_ = in.Cursor.SetMode(inputCursorMode)
		f.inputs[i] = in
	}
	f.inputs[fieldName].Placeholder = "Your name"
	f.inputs[fieldEmail].Placeholder = "you@example.com"
	f.inputs[fieldPassword].Placeholder = "Password"
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].CharLimit = 128
	f.focus = fieldEmail
	return f
}

func (f authForm) fields() []int {
	if f.register {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) focusField(i int) tea.Cmd {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focus = i
	return f.inputs[i].Focus()
}

func (f *authForm) move(delta int) tea.Cmd {
	fs := f.fields()
	pos := 0
	for i, v := range fs {
		if v == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(fs)) % len(fs)
	return f.focusField(fs[pos])
}

// reset keeps the email so a re-login after expiry only needs the password.
func (f *authForm) reset() {
	f.inputs[fieldPassword].SetValue("")
	f.busy = false
	f.errText = ""
	f.notice = ""
	if f.inputs[fieldEmail].Value() == "" {
		f.focus = fieldEmail
	} else {
		f.focus = fieldPassword
	}
}

func (f *authForm) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.auth
	if f.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Toggle):
		f.register = !f.register
		f.errText = ""
		if f.register {
			cmd := f.focusField(fieldName)
			return m, cmd
		}
		cmd := f.focusField(fieldEmail)
		return m, cmd
	case key.Matches(msg, m.keys.NextFld), msg.String() == "down":
		cmd := f.move(1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevFld), msg.String() == "up":
		cmd := f.move(-1)
		return m, cmd
	case msg.String() == "enter":
		fs := f.fields()
		if f.focus != fs[len(fs)-1] {
			cmd := f.move(1)
			return m, cmd
		}
		return m.submitAuth()
	case msg.String() == "esc":
		return m, tea.Quit
	}
	cmd := f.updateInputs(msg)
	return m, cmd
}

func (m appModel) submitAuth() (tea.Model, tea.Cmd) {
	f := &m.auth
	name := strings.TrimSpace(f.inputs[fieldName].Value())
	email := strings.TrimSpace(f.inputs[fieldEmail].Value())
	password := f.inputs[fieldPassword].Value()
	if email == "" || password == "" || (f.register && name == "") {
		f.errText = "Please fill in every field."
		return m, nil
	}
	f.busy = true
	f.errText = ""
	f.notice = ""

	ctx, sess, register := m.ctx, m.sess, f.register
	return m, func() tea.Msg {
		if register {
			return authDoneMsg{err: sess.Register(ctx, name, email, password)}
		}
		return authDoneMsg{err: sess.Login(ctx, email, password)}
	}
}

func (m appModel) authDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	m.auth.busy = false
	if msg.err != nil {
		m.log.Debug().Err(msg.err).Msg("sign in failed")
		m.auth.errText = errorText(msg.err)
		m.auth.inputs[fieldPassword].SetValue("")
		cmd := m.auth.focusField(fieldPassword)
		return m, cmd
	}
	m.auth.inputs[fieldPassword].SetValue("")
	return m.openDashboard()
}

func (m appModel) viewLogin() string {
	f := m.auth
	title := "Sign in"
	if f.register {
		title = "Create an account"
	}
	labels := map[int]string{fieldName: "Name", fieldEmail: "Email", fieldPassword: "Password"}

	lines := []string{styleTitle().Render("Teamboard") + styleMuted().Render(" / ") + styleTitle().Render(title), ""}
	if f.notice != "" {
		lines = append(lines, styleMuted().Render(f.notice), "")
	}
	for _, i := range f.fields() {
		label := "  " + labels[i]
		if i == f.focus {
			label = styleKey().Render(m.g.cursor) + " " + labels[i]
		}
		lines = append(lines, label, "  "+f.inputs[i].View(), "")
	}
	if f.errText != "" {
		lines = append(lines, styleBanner().Render(f.errText), "")
	}
	if f.busy {
		lines = append(lines, m.spinner.View()+" Signing in...", "")
	}
	other := "register"
	if f.register {
		other = "sign in"
	}
	lines = append(lines, styleMuted().Render("tab: next field   enter: submit   ctrl+r: "+other+"   esc: quit"))
	return strings.Join(lines, "\n")
}
