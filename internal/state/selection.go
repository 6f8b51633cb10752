package state

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Selection identifies the habit, day and session the user is working on.
// Zero values mean nothing is selected.
type Selection struct {
	HabitID      int64
	Day          string
	SessionIndex int
}

// Complete reports whether both a habit and a day are selected.
func (s Selection) Complete() bool {
	return s.HabitID > 0 && s.Day != ""
}

// SelectionStore is the single-writer, many-reader home of the Selection.
// Updates are synchronous: a Get after a Select observes it.
type SelectionStore struct {
	logger *log.Logger

	mu  sync.RWMutex
	sel Selection

	subMu   sync.Mutex
	subs    map[int]func(Selection)
	nextSub int
}

// NewSelectionStore returns a store holding initial. logger may be nil.
func NewSelectionStore(initial Selection, logger *log.Logger) *SelectionStore {
	return &SelectionStore{
		logger: logger,
		sel:    initial,
		subs:   make(map[int]func(Selection)),
	}
}

// Get returns the current selection.
func (s *SelectionStore) Get() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// Set replaces the whole selection.
func (s *SelectionStore) Set(sel Selection) {
	s.update(func(cur *Selection) { *cur = sel })
}

// SelectHabit changes the habit, keeping the day.
func (s *SelectionStore) SelectHabit(id int64) {
	s.update(func(cur *Selection) {
		cur.HabitID = id
		cur.SessionIndex = 0
	})
}

// SelectDay changes the day, keeping the habit.
func (s *SelectionStore) SelectDay(day string) {
	s.update(func(cur *Selection) {
		cur.Day = day
		cur.SessionIndex = 0
	})
}

// SelectSession changes the session index. Only index 0 is supported end to
// end; other values are stored but logged.
func (s *SelectionStore) SelectSession(index int) {
	s.update(func(cur *Selection) { cur.SessionIndex = index })
}

// Subscribe registers fn to run after every change.
func (s *SelectionStore) Subscribe(fn func(Selection)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.subs == nil {
		s.subs = make(map[int]func(Selection))
	}
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *SelectionStore) update(fn func(*Selection)) {
	s.mu.Lock()
	fn(&s.sel)
	sel := s.sel
	s.mu.Unlock()

	if sel.SessionIndex != 0 && s.logger != nil {
		s.logger.Warn("only the first session of a day is supported", "session_index", sel.SessionIndex)
	}

	s.subMu.Lock()
	subs := make([]func(Selection), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()
	for _, sub := range subs {
		sub(sel)
	}
}
