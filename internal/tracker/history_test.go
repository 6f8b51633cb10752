package tracker

import (
	"reflect"
	"testing"
)

func sampleHabits() []Habit {
	reps := 5
	return []Habit{
		{ID: 2, Name: "Read", Type: HabitSimple, DayLogs: []DayLog{{Date: "2024-01-02", Rating: &reps}}},
		{
			ID:   1,
			Name: "Gym",
			Type: HabitComplex,
			DayLogs: []DayLog{{
				HabitID: 1,
				Date:    "2024-01-01",
				ExerciseSessions: []ExerciseSession{{
					ID: 10,
					ExerciseLogs: []ExerciseLog{{
						ID:                   20,
						ExercisePerformances: []ExercisePerformance{{ID: 30, Reps: &reps}},
					}},
				}},
			}},
		},
	}
}

func TestNewHistory_IndexesAndFillsHabitID(t *testing.T) {
	h := NewHistory(sampleHabits())
	if len(h) != 2 {
		t.Fatalf("len = %d, want 2", len(h))
	}
	dl := h.DayLog(2, "2024-01-02")
	if dl == nil || dl.HabitID != 2 {
		t.Fatalf("DayLog(2) = %#v, want habit id filled in", dl)
	}
	if h[1].Habit.DayLogs != nil {
		t.Fatal("cached Habit.DayLogs should be nil")
	}
	if s := h.Session(1, "2024-01-01", 0); s == nil || s.ID != 10 {
		t.Fatalf("Session = %#v, want id 10", s)
	}
	if h.Session(1, "2024-01-01", 1) != nil || h.Session(1, "2024-01-09", 0) != nil || h.Session(9, "2024-01-01", 0) != nil {
		t.Fatal("Session should be nil for missing levels")
	}
}

func TestHistoryClone_IsDeep(t *testing.T) {
	h := NewHistory(sampleHabits())
	dup := h.Clone()
	if !reflect.DeepEqual(h, dup) {
		t.Fatal("clone differs from original")
	}

	*dup.DayLog(2, "2024-01-02").Rating = 1
	s := dup.Session(1, "2024-01-01", 0)
	*s.ExerciseLogs[0].ExercisePerformances[0].Reps = 9
	s.ExerciseLogs = append(s.ExerciseLogs, ExerciseLog{TempID: "tmp"})
	dup[1].Habit.Name = "Lift"

	if *h.DayLog(2, "2024-01-02").Rating != 5 {
		t.Fatal("rating shared between clone and original")
	}
	orig := h.Session(1, "2024-01-01", 0)
	if *orig.ExerciseLogs[0].ExercisePerformances[0].Reps != 5 || len(orig.ExerciseLogs) != 1 {
		t.Fatalf("session shared between clone and original: %#v", orig)
	}
	if h[1].Habit.Name != "Gym" {
		t.Fatal("habit shared between clone and original")
	}

	var empty History
	if got := empty.Clone(); got == nil || len(got) != 0 {
		t.Fatalf("nil Clone = %#v, want empty map", got)
	}
}

func TestEnsureDayLog_CreatesShellOnce(t *testing.T) {
	h := History{}
	first := h.EnsureDayLog(3, "2024-02-02")
	if first.HabitID != 3 || first.Date != "2024-02-02" || first.ExerciseSessions == nil || first.Rating != nil {
		t.Fatalf("shell = %#v", first)
	}
	second := h.EnsureDayLog(3, "2024-02-02")
	if first != second || len(h[3].DayLogs) != 1 {
		t.Fatal("EnsureDayLog created a second shell")
	}
}

func TestExport_SortsHabitsAndDays(t *testing.T) {
	h := NewHistory(sampleHabits())
	h.EnsureDayLog(1, "2023-12-31")

	out := h.Export()
	if len(out) != 2 || out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("Export ids = %v, want [1 2]", []int64{out[0].ID, out[1].ID})
	}
	if len(out[0].DayLogs) != 2 || out[0].DayLogs[0].Date != "2023-12-31" {
		t.Fatalf("Export day logs = %#v, want sorted by date", out[0].DayLogs)
	}
	if got := h.Habits(); len(got) != 2 || got[0].Name != "Gym" {
		t.Fatalf("Habits = %#v", got)
	}
}

func TestCatalog_FindAndClone(t *testing.T) {
	reps := 8
	c := Catalog{{ID: 1, Name: "Row", LastPerformance: &LastPerformance{Reps: &reps}}}
	dup := c.Clone()
	*dup.Find(1).LastPerformance.Reps = 2
	if *c.Find(1).LastPerformance.Reps != 8 {
		t.Fatal("last performance shared between clone and original")
	}
	if c.Find(2) != nil {
		t.Fatal("Find(2) should be nil")
	}
}

func TestShiftDate(t *testing.T) {
	tests := []struct {
		in   string
		days int
		want string
	}{
		{"2024-02-28", 1, "2024-02-29"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2024-12-31", 1, "2025-01-01"},
		{"garbage", 3, "garbage"},
	}
	for _, tt := range tests {
		if got := ShiftDate(tt.in, tt.days); got != tt.want {
			t.Fatalf("ShiftDate(%q, %d) = %q, want %q", tt.in, tt.days, got, tt.want)
		}
	}
}
