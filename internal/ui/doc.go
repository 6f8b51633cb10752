// Package ui implements the Trackbit terminal interface with Bubble Tea.
//
// The Model never edits server state itself. It reads the current
// projection from a view.Binding, moves the selection store, and turns
// mutation keys into tea.Cmds that call the mutation coordinator off the UI
// goroutine, so several writes may be in flight at once. Optimistic edits
// reach the screen through a history cache subscription; a one second tick
// picks up anything else (poller refreshes, status flags, the activity log).
//
// # Layout
//
//   - Header: selected habit and day, saving/offline state, last result
//   - Habit list on the left, day detail on the right: rating, the exercise
//     session tree for complex habits, and the heatmap (one column per week)
//   - Optional prompt for adding an exercise or editing a set
//   - Optional activity pane with the tail of the JSON log (L)
//   - Footer with short key help; ? opens the full list
//
// Themes (Dracula, Slate) cycle with T and persist through internal/prefs
// together with the last selected habit.
package ui
