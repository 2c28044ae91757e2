package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Letter bindings only apply while the list has focus; the search box takes every printable key.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	focus    key.Binding
	tab      key.Binding
	toggle   key.Binding
	next     key.Binding
	prev     key.Binding
	rewind   key.Binding
	forward  key.Binding
	favorite key.Binding
	hide     key.Binding
	online   key.Binding
	dismiss  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play/open")),
		focus:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "search/list")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		rewind:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "seek -10%")),
		forward:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "seek +10%")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		hide:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hide")),
		online:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "online")),
		dismiss:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.toggle, k.focus, k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.focus, k.tab},
		{k.toggle, k.next, k.prev, k.rewind, k.forward},
		{k.favorite, k.hide, k.online, k.dismiss, k.quit},
	}
}
