package tracker

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of day-log dates.
const DateLayout = "2006-01-02"

// HabitType distinguishes how a habit is logged.
type HabitType string

const (
	HabitSimple   HabitType = "simple"
	HabitComplex  HabitType = "complex"
	HabitNegative HabitType = "negative"
)

// ColorStop is one stop of a habit's heatmap gradient.
type ColorStop struct {
	Position float64 `json:"position"`
	Color    string  `json:"color"`
}

// Habit mirrors a habit entry of /tracker/history.
type Habit struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Type       HabitType   `json:"type"`
	ColorStops []ColorStop `json:"colorStops,omitempty"`
	DailyGoal  *int        `json:"dailyGoal,omitempty"`
	WeeklyGoal *int        `json:"weeklyGoal,omitempty"`
	Icon       string      `json:"icon,omitempty"`
	DayLogs    []DayLog    `json:"dayLogs,omitempty"`
}

// DayLog is identified by (HabitID, Date).
type DayLog struct {
	HabitID          int64             `json:"habitId"`
	Date             string            `json:"date"`
	Rating           *int              `json:"rating,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	ExerciseSessions []ExerciseSession `json:"exerciseSessions"`
}

// ExerciseSession is one workout on a day. TempID is set while the session is
// an unconfirmed placeholder.
type ExerciseSession struct {
	ID           int64         `json:"id,omitempty"`
	TempID       string        `json:"tempId,omitempty"`
	HabitID      int64         `json:"habitId"`
	Date         string        `json:"date"`
	ExerciseLogs []ExerciseLog `json:"exerciseLogs"`
}

// Pending reports whether the session still waits for a server id.
func (s ExerciseSession) Pending() bool { return s.TempID != "" || s.ID <= 0 }

// ExerciseLog is one exercise performed within a session.
type ExerciseLog struct {
	ID                   int64                 `json:"id,omitempty"`
	TempID               string                `json:"tempId,omitempty"`
	ExerciseSessionID    int64                 `json:"exerciseSessionId"`
	ExerciseID           int64                 `json:"exerciseId"`
	ExercisePerformances []ExercisePerformance `json:"exercisePerformances"`
}

// Pending reports whether the log still waits for a server id.
func (l ExerciseLog) Pending() bool { return l.TempID != "" || l.ID <= 0 }

// ExercisePerformance is a single set.
type ExercisePerformance struct {
	ID            int64    `json:"id,omitempty"`
	TempID        string   `json:"tempId,omitempty"`
	ExerciseLogID int64    `json:"exerciseLogId"`
	Number        int      `json:"number"`
	Reps          *int     `json:"reps"`
	Weight        *float64 `json:"weight"`
	Duration      *float64 `json:"duration"`
	Distance      *float64 `json:"distance"`
	RPE           *float64 `json:"rpe"`
}

// Pending reports whether the set still waits for a server id.
func (p ExercisePerformance) Pending() bool { return p.TempID != "" || p.ID <= 0 }

// LastPerformance is the most recent recorded values of an exercise, used to
// prefill new sets.
type LastPerformance struct {
	Reps     *int     `json:"reps"`
	Weight   *float64 `json:"weight"`
	Duration *float64 `json:"duration"`
	Distance *float64 `json:"distance"`
}

// Exercise is a catalog entry. A nil UserID marks a global exercise.
type Exercise struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category,omitempty"`
	MuscleGroup     string           `json:"muscleGroup,omitempty"`
	UserID          *int64           `json:"userId"`
	LastPerformance *LastPerformance `json:"lastPerformance,omitempty"`
}

// RatingInput is the body of POST /tracker/check.
type RatingInput struct {
	HabitID int64  `json:"habitId"`
	Date    string `json:"date"`
	Rating  int    `json:"rating"`
}

// RatingResult is the reply of POST /tracker/check.
type RatingResult struct {
	Success bool   `json:"success"`
	HabitID int64  `json:"habitId"`
	Date    string `json:"date"`
}

// SessionInput is the body of POST /tracker/exercise-sessions.
type SessionInput struct {
	HabitID int64  `json:"habitId"`
	Date    string `json:"date"`
}

// SetSeed prefills a set created together with its exercise log.
type SetSeed struct {
	Reps   *int     `json:"reps"`
	Weight *float64 `json:"weight"`
	Number int      `json:"number"`
}

// ExerciseLogInput is the body of POST /tracker/exercise-logs.
type ExerciseLogInput struct {
	ExerciseSessionID    int64     `json:"exerciseSessionId"`
	ExerciseID           int64     `json:"exerciseId"`
	ExercisePerformances []SetSeed `json:"exercisePerformances"`
}

// PerformanceInput is the body of POST /tracker/exercise-performances.
type PerformanceInput struct {
	ExerciseLogID int64    `json:"exerciseLogId"`
	Number        int      `json:"number"`
	Reps          *int     `json:"reps"`
	Weight        *float64 `json:"weight"`
}

// PerformanceUpdate is the body of PATCH /tracker/exercise-performances/{id}.
type PerformanceUpdate struct {
	ID            int64    `json:"id"`
	Number        int      `json:"number"`
	ExerciseLogID int64    `json:"exerciseLogId"`
	Reps          *int     `json:"reps"`
	Weight        *float64 `json:"weight"`
	Duration      *float64 `json:"duration"`
	Distance      *float64 `json:"distance"`
	RPE           *float64 `json:"rpe"`
}

// UpdateFrom builds the PATCH body from a cached performance.
func UpdateFrom(p ExercisePerformance) PerformanceUpdate {
	return PerformanceUpdate{
		ID:            p.ID,
		Number:        p.Number,
		ExerciseLogID: p.ExerciseLogID,
		Reps:          p.Reps,
		Weight:        p.Weight,
		Duration:      p.Duration,
		Distance:      p.Distance,
		RPE:           p.RPE,
	}
}

// FormatDate renders t as a day-log date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate validates a day-log date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// ShiftDate moves a day-log date by days, returning value unchanged when it
// does not parse.
func ShiftDate(value string, days int) string {
	t, err := ParseDate(value)
	if err != nil {
		return value
	}
	return FormatDate(t.AddDate(0, 0, days))
}
