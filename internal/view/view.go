package view

import (
	"sort"

	"github.com/strps/Trackbit-sub000/internal/state"
	"github.com/strps/Trackbit-sub000/internal/tracker"
)

// Projection is what the screen shows for a selection. Missing levels are
// nil; a nil Habit implies nil DayLog and Session.
type Projection struct {
	Selection state.Selection
	Habit     *tracker.Habit
	DayLog    *tracker.DayLog
	Session   *tracker.ExerciseSession
}

// Derive resolves sel against h. The returned pointers alias h.
func Derive(sel state.Selection, h tracker.History) Projection {
	p := Projection{Selection: sel}
	entry := h[sel.HabitID]
	if entry == nil {
		return p
	}
	p.Habit = &entry.Habit
	if sel.Day == "" {
		return p
	}
	p.DayLog = entry.DayLogs[sel.Day]
	if p.DayLog == nil {
		return p
	}
	p.Session = h.Session(sel.HabitID, sel.Day, sel.SessionIndex)
	return p
}

// Binding joins the selection store with the caches.
type Binding struct {
	selection *state.SelectionStore
	history   *state.Cache[tracker.History]
	catalog   *state.Cache[tracker.Catalog]
}

// NewBinding returns a Binding. catalog may be nil.
func NewBinding(selection *state.SelectionStore, history *state.Cache[tracker.History], catalog *state.Cache[tracker.Catalog]) *Binding {
	return &Binding{selection: selection, history: history, catalog: catalog}
}

// Current derives the projection of the current selection from a private
// copy of the history.
func (b *Binding) Current() Projection {
	h, _ := b.history.Read()
	return Derive(b.selection.Get(), h)
}

// Habits lists the cached habits ordered by id.
func (b *Binding) Habits() []tracker.Habit {
	var out []tracker.Habit
	b.history.View(func(h tracker.History, _ bool) {
		out = h.Habits()
	})
	return out
}

// Exercise resolves a catalog entry.
func (b *Binding) Exercise(id int64) (tracker.Exercise, bool) {
	if b.catalog == nil {
		return tracker.Exercise{}, false
	}
	var (
		ex    tracker.Exercise
		found bool
	)
	b.catalog.View(func(cat tracker.Catalog, _ bool) {
		if e := cat.Find(id); e != nil {
			ex, found = *e, true
		}
	})
	return ex, found
}

// Exercises returns the catalog ordered by name.
func (b *Binding) Exercises() []tracker.Exercise {
	if b.catalog == nil {
		return nil
	}
	cat, _ := b.catalog.Read()
	sort.SliceStable(cat, func(i, j int) bool { return cat[i].Name < cat[j].Name })
	return cat
}
