package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Refresh    key.Binding
	Activity   key.Binding

	// Selection
	PrevHabit key.Binding
	NextHabit key.Binding
	PrevDay   key.Binding
	NextDay   key.Binding
	Today     key.Binding
	PrevLog   key.Binding
	NextLog   key.Binding

	// Mutations
	Rate          key.Binding
	NewSession    key.Binding
	DeleteSession key.Binding
	AddExercise   key.Binding
	RemoveLog     key.Binding
	NewSet        key.Binding
	EditSet       key.Binding
	DeleteSet     key.Binding

	// Input
	Confirm key.Binding
	Cancel  key.Binding
	Up      key.Binding
	Down    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Activity: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Toggle activity"),
		),

		PrevHabit: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Previous habit"),
		),
		NextHabit: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Next habit"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "Previous day"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "Next day"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Today"),
		),
		PrevLog: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "Previous exercise"),
		),
		NextLog: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "Next exercise"),
		),

		Rate: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "Rate day"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "New session"),
		),
		DeleteSession: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete session"),
		),
		AddExercise: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add exercise"),
		),
		RemoveLog: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove exercise"),
		),
		NewSet: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New set"),
		),
		EditSet: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit last set"),
		),
		DeleteSet: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete last set"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("up", "Previous match"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("down", "Next match"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rate, k.NewSession, k.AddExercise, k.NewSet, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay, one column per group.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextHabit, k.PrevHabit, k.PrevDay, k.NextDay, k.Today},
		{k.Rate, k.NewSession, k.DeleteSession},
		{k.NextLog, k.PrevLog, k.AddExercise, k.RemoveLog, k.NewSet, k.EditSet, k.DeleteSet},
		{k.Refresh, k.Activity, k.CycleTheme, k.Help, k.Quit},
	}
}
