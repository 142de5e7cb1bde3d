package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the console key bindings. On the sign-in form only Quit,
// NextField, PrevField and Submit are active; everything else types.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Jump   key.Binding // 1-9: jump to a menu entry.

	Hamburger key.Binding // Narrow terminals: show/hide the menu.
	Sidebar   key.Binding // Wide terminals: show/hide the menu.

	Retry  key.Binding
	Logout key.Binding
	Help   key.Binding
	Quit   key.Binding

	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Jump: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "go to"),
	),
	Hamburger: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "menu"),
	),
	Sidebar: key.NewBinding(
		key.WithKeys("ctrl+b", "b"),
		key.WithHelp("b", "sidebar"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Logout: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "log out"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "previous field"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "sign in"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Jump, k.Hamburger, k.Sidebar, k.Retry, k.Logout, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Jump},
		{k.Hamburger, k.Sidebar},
		{k.Retry, k.Logout, k.Help, k.Quit},
	}
}

// signInHelp is the help shown on the sign-in form.
type signInHelp struct{ keys KeyMap }

func (h signInHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.keys.NextField, h.keys.Submit, quitOnly}
}

func (h signInHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}

// quitOnly is Quit without "q", which the sign-in form needs as a letter.
var quitOnly = key.NewBinding(
	key.WithKeys("ctrl+c"),
	key.WithHelp("C-c", "quit"),
)
