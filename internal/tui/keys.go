package tui

import "charm.land/bubbles/v2/key"

type keyMap struct {
	Down        key.Binding
	Up          key.Binding
	PageDown    key.Binding
	PageUp      key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Toggle      key.Binding
	Refresh     key.Binding
	TimeRange   key.Binding
	Columns     key.Binding
	Search      key.Binding
	Quit        key.Binding
	Submit      key.Binding
	Cancel      key.Binding
	ClearStatus key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "move")),
		Up:          key.NewBinding(key.WithKeys("k", "up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn/pgup", "page")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g/G", "top/bottom")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end")),
		Toggle:      key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter", "expand")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		TimeRange:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "time range")),
		Columns:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		ClearStatus: key.NewBinding(key.WithKeys("esc")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.PageDown, k.Top, k.Toggle, k.Search, k.TimeRange, k.Columns, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.PageDown, k.PageUp, k.Top, k.Bottom},
		{k.Toggle, k.Search, k.TimeRange, k.Columns, k.Refresh, k.Quit},
	}
}

func (k keyMap) searchHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}
