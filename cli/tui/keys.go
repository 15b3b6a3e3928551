package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings.
type keyMap struct {
	Next  key.Binding
	Prev  key.Binding
	First key.Binding
	Pause key.Binding
	Quit  key.Binding
}

// Holding next or prev repeats the key, which scrubs through frames.
var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("right", "l", "n"),
		key.WithHelp("→/n", "next"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "b"),
		key.WithHelp("←/b", "prev"),
	),
	First: key.NewBinding(
		key.WithKeys("home", "0"),
		key.WithHelp("0", "first"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("p", "play/pause"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

func helpLine(bindings ...key.Binding) string {
	line := ""
	for i, b := range bindings {
		if i > 0 {
			line += " • "
		}
		h := b.Help()
		line += h.Key + " " + h.Desc
	}
	return line
}

