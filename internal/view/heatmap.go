package view

import (
	"github.com/strps/Trackbit-sub000/internal/tracker"
)

// Cell is one day of a heatmap.
type Cell struct {
	Date      string
	Logged    bool
	Intensity float64
}

// Heatmap returns weeks*7 cells ending at end, oldest first. Intensity is
// the day's value over the habit's daily goal (1 when unset), clamped to
// [0,1]. The value is the rating for simple and negative habits and the
// number of sets for complex ones.
func Heatmap(h tracker.History, habitID int64, end string, weeks int) []Cell {
	if weeks <= 0 {
		return nil
	}
	entry := h[habitID]
	goal := 1.0
	if entry != nil && entry.Habit.DailyGoal != nil && *entry.Habit.DailyGoal > 0 {
		goal = float64(*entry.Habit.DailyGoal)
	}

	days := weeks * 7
	cells := make([]Cell, days)
	for i := range cells {
		date := tracker.ShiftDate(end, i-days+1)
		cells[i].Date = date
		if entry == nil {
			continue
		}
		dl := entry.DayLogs[date]
		if dl == nil {
			continue
		}
		value, logged := dayValue(entry.Habit.Type, dl)
		cells[i].Logged = logged
		cells[i].Intensity = clamp(value / goal)
	}
	return cells
}

func dayValue(kind tracker.HabitType, dl *tracker.DayLog) (float64, bool) {
	if kind == tracker.HabitComplex {
		sets := 0
		for _, s := range dl.ExerciseSessions {
			for _, l := range s.ExerciseLogs {
				sets += len(l.ExercisePerformances)
			}
		}
		return float64(sets), len(dl.ExerciseSessions) > 0
	}
	if dl.Rating == nil {
		return 0, false
	}
	return float64(*dl.Rating), true
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
