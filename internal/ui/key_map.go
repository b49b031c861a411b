package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	submit key.Binding
	focus  key.Binding
	skip   key.Binding
	pause  key.Binding
	stop   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		focus:  key.NewBinding(key.WithKeys("tab", "esc"), key.WithHelp("tab", "switch focus")),
		skip:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		pause:  key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		stop:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.focus, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.submit},
		{k.skip, k.pause, k.stop},
		{k.focus, k.quit},
	}
}
