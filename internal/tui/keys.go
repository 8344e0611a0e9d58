package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Grab    key.Binding
	Enter   key.Binding
	Back    key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Status  key.Binding
	Assign  key.Binding
	SubEdit key.Binding
	SubDel  key.Binding
	Reload  key.Binding
	Board   key.Binding
	Home    key.Binding
	Logout  key.Binding
	Quit    key.Binding
	NextFld key.Binding
	PrevFld key.Binding
	Toggle  key.Binding
	Submit  key.Binding
	Yes     key.Binding
	No      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Left:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "left")),
		Right:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "right")),
		Grab:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "grab")),
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Status:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		Assign:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assign")),
		SubEdit: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "rename sub-task")),
		SubDel:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete sub-task")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Board:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "board")),
		Home:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dashboard")),
		Logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextFld: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevFld: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Toggle:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		Submit:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Yes:     key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		No:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
	}
}

// helpLine renders bindings as "k: up   j: down".
func helpLine(bs ...key.Binding) string {
	out := ""
	for i, b := range bs {
		if !b.Enabled() {
			continue
		}
		if i > 0 && out != "" {
			out += "   "
		}
		h := b.Help()
		out += styleKey().Render(h.Key) + ": " + h.Desc
	}
	return out
}
