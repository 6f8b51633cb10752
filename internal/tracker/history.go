package tracker

import "sort"

// HabitLogs is the cached form of a habit: its attributes plus day logs
// indexed by date. Habit.DayLogs is always nil here.
type HabitLogs struct {
	Habit   Habit
	DayLogs map[string]*DayLog
}

// History is the per-user tree keyed by habit id.
type History map[int64]*HabitLogs

// NewHistory indexes the /tracker/history payload.
func NewHistory(habits []Habit) History {
	h := make(History, len(habits))
	for _, habit := range habits {
		entry := &HabitLogs{DayLogs: make(map[string]*DayLog, len(habit.DayLogs))}
		for _, dl := range habit.DayLogs {
			dl := cloneDayLog(dl)
			if dl.HabitID == 0 {
				dl.HabitID = habit.ID
			}
			entry.DayLogs[dl.Date] = &dl
		}
		habit.DayLogs = nil
		entry.Habit = cloneHabit(habit)
		h[habit.ID] = entry
	}
	return h
}

// Clone deep-copies every level of the tree. A nil History clones to an
// empty one.
func (h History) Clone() History {
	dup := make(History, len(h))
	for id, entry := range h {
		if entry == nil {
			continue
		}
		logs := make(map[string]*DayLog, len(entry.DayLogs))
		for date, dl := range entry.DayLogs {
			if dl == nil {
				continue
			}
			c := cloneDayLog(*dl)
			logs[date] = &c
		}
		dup[id] = &HabitLogs{Habit: cloneHabit(entry.Habit), DayLogs: logs}
	}
	return dup
}

// Habits returns the cached habits ordered by id.
func (h History) Habits() []Habit {
	out := make([]Habit, 0, len(h))
	for _, entry := range h {
		if entry != nil {
			out = append(out, entry.Habit)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Export converts the tree back to the /tracker/history shape, habits ordered
// by id and day logs by date.
func (h History) Export() []Habit {
	out := make([]Habit, 0, len(h))
	for _, entry := range h {
		if entry == nil {
			continue
		}
		habit := cloneHabit(entry.Habit)
		dates := make([]string, 0, len(entry.DayLogs))
		for date, dl := range entry.DayLogs {
			if dl != nil {
				dates = append(dates, date)
			}
		}
		sort.Strings(dates)
		habit.DayLogs = make([]DayLog, 0, len(dates))
		for _, date := range dates {
			habit.DayLogs = append(habit.DayLogs, cloneDayLog(*entry.DayLogs[date]))
		}
		out = append(out, habit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DayLog resolves habit -> date, returning nil when any level is missing.
func (h History) DayLog(habitID int64, date string) *DayLog {
	entry := h[habitID]
	if entry == nil {
		return nil
	}
	return entry.DayLogs[date]
}

// Session resolves habit -> date -> session index, returning nil when any
// level is missing.
func (h History) Session(habitID int64, date string, index int) *ExerciseSession {
	dl := h.DayLog(habitID, date)
	if dl == nil || index < 0 || index >= len(dl.ExerciseSessions) {
		return nil
	}
	return &dl.ExerciseSessions[index]
}

// EnsureDayLog returns the day log for (habitID, date), creating the habit
// entry and an empty shell as needed. Only call it on a draft.
func (h History) EnsureDayLog(habitID int64, date string) *DayLog {
	entry := h[habitID]
	if entry == nil {
		entry = &HabitLogs{Habit: Habit{ID: habitID}}
		h[habitID] = entry
	}
	if entry.DayLogs == nil {
		entry.DayLogs = make(map[string]*DayLog)
	}
	dl := entry.DayLogs[date]
	if dl == nil {
		dl = &DayLog{HabitID: habitID, Date: date}
		entry.DayLogs[date] = dl
	}
	if dl.ExerciseSessions == nil {
		dl.ExerciseSessions = []ExerciseSession{}
	}
	return dl
}

// Catalog is the cached exercise list.
type Catalog []Exercise

// Clone deep-copies the catalog.
func (c Catalog) Clone() Catalog {
	dup := make(Catalog, len(c))
	for i, ex := range c {
		dup[i] = cloneExercise(ex)
	}
	return dup
}

// Find returns the exercise with id, or nil.
func (c Catalog) Find(id int64) *Exercise {
	for i := range c {
		if c[i].ID == id {
			return &c[i]
		}
	}
	return nil
}

func cloneHabit(h Habit) Habit {
	if h.ColorStops != nil {
		stops := make([]ColorStop, len(h.ColorStops))
		copy(stops, h.ColorStops)
		h.ColorStops = stops
	}
	h.DailyGoal = clonePtr(h.DailyGoal)
	h.WeeklyGoal = clonePtr(h.WeeklyGoal)
	if h.DayLogs != nil {
		logs := make([]DayLog, len(h.DayLogs))
		for i, dl := range h.DayLogs {
			logs[i] = cloneDayLog(dl)
		}
		h.DayLogs = logs
	}
	return h
}

func cloneDayLog(dl DayLog) DayLog {
	dl.Rating = clonePtr(dl.Rating)
	if dl.ExerciseSessions != nil {
		sessions := make([]ExerciseSession, len(dl.ExerciseSessions))
		for i, s := range dl.ExerciseSessions {
			sessions[i] = cloneSession(s)
		}
		dl.ExerciseSessions = sessions
	}
	return dl
}

func cloneSession(s ExerciseSession) ExerciseSession {
	if s.ExerciseLogs != nil {
		logs := make([]ExerciseLog, len(s.ExerciseLogs))
		for i, l := range s.ExerciseLogs {
			logs[i] = cloneExerciseLog(l)
		}
		s.ExerciseLogs = logs
	}
	return s
}

func cloneExerciseLog(l ExerciseLog) ExerciseLog {
	if l.ExercisePerformances != nil {
		sets := make([]ExercisePerformance, len(l.ExercisePerformances))
		for i, p := range l.ExercisePerformances {
			sets[i] = clonePerformance(p)
		}
		l.ExercisePerformances = sets
	}
	return l
}

func clonePerformance(p ExercisePerformance) ExercisePerformance {
	p.Reps = clonePtr(p.Reps)
	p.Weight = clonePtr(p.Weight)
	p.Duration = clonePtr(p.Duration)
	p.Distance = clonePtr(p.Distance)
	p.RPE = clonePtr(p.RPE)
	return p
}

func cloneExercise(ex Exercise) Exercise {
	ex.UserID = clonePtr(ex.UserID)
	if ex.LastPerformance != nil {
		lp := *ex.LastPerformance
		lp.Reps = clonePtr(lp.Reps)
		lp.Weight = clonePtr(lp.Weight)
		lp.Duration = clonePtr(lp.Duration)
		lp.Distance = clonePtr(lp.Distance)
		ex.LastPerformance = &lp
	}
	return ex
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
