package mutation

import (
	"context"

	"github.com/strps/Trackbit-sub000/internal/tracker"
)

// LogRating records a rating for a habit on date. The day log shell is
// created in the cache when the day has none yet.
func (c *Coordinator) LogRating(ctx context.Context, habitID int64, date string, rating int) error {
	if habitID <= 0 || date == "" {
		return ErrNoSelection
	}
	return c.run(ctx, plan{
		kind: KindLogRating,
		optimistic: func(draft *tracker.History) {
			dl := draft.EnsureDayLog(habitID, date)
			r := rating
			dl.Rating = &r
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			_, err := c.api.UpsertRating(ctx, tracker.RatingInput{HabitID: habitID, Date: date, Rating: rating})
			return nil, err
		},
		refetch: true,
	})
}

// CreateSession starts a workout session on the selected habit and day. The
// session appears in the cache only once the server has answered.
func (c *Coordinator) CreateSession(ctx context.Context) (tracker.ExerciseSession, error) {
	sel, err := c.selected()
	if err != nil {
		return tracker.ExerciseSession{}, err
	}
	var created tracker.ExerciseSession
	err = c.run(ctx, plan{
		kind: KindCreateSession,
		call: func(ctx context.Context) (func(*tracker.History), error) {
			s, err := c.api.CreateSession(ctx, tracker.SessionInput{HabitID: sel.HabitID, Date: sel.Day})
			if err != nil {
				return nil, err
			}
			s.TempID = ""
			if s.ExerciseLogs == nil {
				s.ExerciseLogs = []tracker.ExerciseLog{}
			}
			created = s
			return func(draft *tracker.History) {
				dl := draft.EnsureDayLog(sel.HabitID, sel.Day)
				for _, existing := range dl.ExerciseSessions {
					if existing.ID == s.ID {
						return
					}
				}
				dl.ExerciseSessions = append(dl.ExerciseSessions, s)
			}, nil
		},
	})
	return created, err
}

// DeleteSession removes a session. The cache is only edited when sessionID
// is the selected session.
func (c *Coordinator) DeleteSession(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return ErrPendingEntity
	}
	sel, err := c.selected()
	if err != nil {
		return err
	}
	return c.run(ctx, plan{
		kind: KindDeleteSession,
		optimistic: func(draft *tracker.History) {
			dl := draft.DayLog(sel.HabitID, sel.Day)
			if dl == nil || sel.SessionIndex >= len(dl.ExerciseSessions) {
				return
			}
			if dl.ExerciseSessions[sel.SessionIndex].ID != sessionID {
				return
			}
			i := sel.SessionIndex
			dl.ExerciseSessions = append(dl.ExerciseSessions[:i:i], dl.ExerciseSessions[i+1:]...)
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			return nil, c.api.DeleteSession(ctx, sessionID)
		},
		refetch: true,
	})
}

// AddExerciseLog adds an exercise to the selected session with one set,
// prefilled from the exercise's last performance.
func (c *Coordinator) AddExerciseLog(ctx context.Context, exerciseID int64) (tracker.ExerciseLog, error) {
	sel, err := c.selected()
	if err != nil {
		return tracker.ExerciseLog{}, err
	}
	var sessionID int64
	var found, pending bool
	c.history.View(func(h tracker.History, _ bool) {
		if s := currentSession(h, sel, 0); s != nil {
			found = true
			sessionID = s.ID
			pending = s.Pending()
		}
	})
	switch {
	case !found:
		return tracker.ExerciseLog{}, ErrNoSession
	case pending:
		return tracker.ExerciseLog{}, ErrPendingEntity
	}

	reps, weight := c.seed(exerciseID)
	logTemp, setTemp := c.tempID(), c.tempID()

	var created tracker.ExerciseLog
	err = c.run(ctx, plan{
		kind: KindAddExerciseLog,
		optimistic: func(draft *tracker.History) {
			s := currentSession(*draft, sel, sessionID)
			if s == nil {
				return
			}
			s.ExerciseLogs = append(s.ExerciseLogs, tracker.ExerciseLog{
				TempID:            logTemp,
				ExerciseSessionID: sessionID,
				ExerciseID:        exerciseID,
				ExercisePerformances: []tracker.ExercisePerformance{{
					TempID: setTemp,
					Number: 1,
					Reps:   reps,
					Weight: weight,
				}},
			})
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			l, err := c.api.CreateExerciseLog(ctx, tracker.ExerciseLogInput{
				ExerciseSessionID:    sessionID,
				ExerciseID:           exerciseID,
				ExercisePerformances: []tracker.SetSeed{{Reps: reps, Weight: weight, Number: 1}},
			})
			if err != nil {
				return nil, err
			}
			l.TempID = ""
			if l.ExercisePerformances == nil {
				l.ExercisePerformances = []tracker.ExercisePerformance{}
			}
			for i := range l.ExercisePerformances {
				l.ExercisePerformances[i].TempID = ""
			}
			created = l
			return func(draft *tracker.History) {
				s := currentSession(*draft, sel, sessionID)
				if placeholder := findLog(s, func(x tracker.ExerciseLog) bool { return x.TempID == logTemp }); placeholder != nil {
					*placeholder = l
				}
			}, nil
		},
		refetch: true,
	})
	return created, err
}

// RemoveExerciseLog removes an exercise log from the selected session.
func (c *Coordinator) RemoveExerciseLog(ctx context.Context, exerciseLogID int64) error {
	if exerciseLogID <= 0 {
		return ErrPendingEntity
	}
	sel, err := c.selected()
	if err != nil {
		return err
	}
	return c.run(ctx, plan{
		kind: KindRemoveExerciseLog,
		optimistic: func(draft *tracker.History) {
			s := currentSession(*draft, sel, 0)
			if s == nil {
				return
			}
			kept := s.ExerciseLogs[:0:0]
			for _, l := range s.ExerciseLogs {
				if l.ID != exerciseLogID {
					kept = append(kept, l)
				}
			}
			s.ExerciseLogs = kept
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			return nil, c.api.DeleteExerciseLog(ctx, exerciseLogID)
		},
		refetch: true,
	})
}

// CreatePerformance appends a set to exerciseLog, numbered after the sets
// already cached and prefilled from the exercise's last performance.
func (c *Coordinator) CreatePerformance(ctx context.Context, exerciseLog tracker.ExerciseLog) (tracker.ExercisePerformance, error) {
	if exerciseLog.Pending() {
		return tracker.ExercisePerformance{}, ErrPendingEntity
	}
	sel, err := c.selected()
	if err != nil {
		return tracker.ExercisePerformance{}, err
	}

	logID := exerciseLog.ID
	reps, weight := c.seed(exerciseLog.ExerciseID)
	temp := c.tempID()

	// number is recounted from the draft under the write lock.
	number := len(exerciseLog.ExercisePerformances) + 1
	var created tracker.ExercisePerformance
	err = c.run(ctx, plan{
		kind: KindCreatePerformance,
		optimistic: func(draft *tracker.History) {
			s := currentSession(*draft, sel, exerciseLog.ExerciseSessionID)
			l := findLog(s, func(x tracker.ExerciseLog) bool { return x.ID == logID })
			if l == nil {
				return
			}
			number = len(l.ExercisePerformances) + 1
			l.ExercisePerformances = append(l.ExercisePerformances, tracker.ExercisePerformance{
				TempID:        temp,
				ExerciseLogID: logID,
				Number:        number,
				Reps:          reps,
				Weight:        weight,
			})
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			p, err := c.api.CreatePerformance(ctx, tracker.PerformanceInput{
				ExerciseLogID: logID,
				Number:        number,
				Reps:          reps,
				Weight:        weight,
			})
			if err != nil {
				return nil, err
			}
			p.TempID = ""
			created = p
			return func(draft *tracker.History) {
				s := currentSession(*draft, sel, exerciseLog.ExerciseSessionID)
				if placeholder := findPerformance(s, func(x tracker.ExercisePerformance) bool { return x.TempID == temp }); placeholder != nil {
					*placeholder = p
				}
			}, nil
		},
		refetch: true,
	})
	return created, err
}

// UpdatePerformance saves an edited set. The exercise's last performance in
// the catalog is updated along with the set so new sets pick up the edit.
func (c *Coordinator) UpdatePerformance(ctx context.Context, performance tracker.ExercisePerformance) (tracker.ExercisePerformance, error) {
	if performance.Pending() {
		return tracker.ExercisePerformance{}, ErrPendingEntity
	}
	sel, err := c.selected()
	if err != nil {
		return tracker.ExercisePerformance{}, err
	}

	var exerciseID int64
	c.history.View(func(h tracker.History, _ bool) {
		s := currentSession(h, sel, 0)
		if l := findLog(s, func(x tracker.ExerciseLog) bool { return x.ID == performance.ExerciseLogID }); l != nil {
			exerciseID = l.ExerciseID
		}
	})

	id, logID := performance.ID, performance.ExerciseLogID
	match := func(x tracker.ExercisePerformance) bool {
		return x.ID == id && x.ExerciseLogID == logID
	}

	var saved tracker.ExercisePerformance
	p := plan{
		kind: KindUpdatePerformance,
		optimistic: func(draft *tracker.History) {
			s := currentSession(*draft, sel, 0)
			if cached := findPerformance(s, match); cached != nil {
				cached.Reps = performance.Reps
				cached.Weight = performance.Weight
			}
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			resp, err := c.api.UpdatePerformance(ctx, tracker.UpdateFrom(performance))
			if err != nil {
				return nil, err
			}
			resp.TempID = ""
			saved = resp
			return func(draft *tracker.History) {
				s := currentSession(*draft, sel, 0)
				if cached := findPerformance(s, match); cached != nil {
					*cached = resp
				}
			}, nil
		},
		refetch: true,
	}
	if exerciseID != 0 {
		p.optimisticCatalog = func(draft *tracker.Catalog) {
			ex := draft.Find(exerciseID)
			if ex == nil {
				return
			}
			ex.LastPerformance = &tracker.LastPerformance{
				Reps:     performance.Reps,
				Weight:   performance.Weight,
				Duration: performance.Duration,
				Distance: performance.Distance,
			}
		}
	}
	if err := c.run(ctx, p); err != nil {
		return tracker.ExercisePerformance{}, err
	}
	return saved, nil
}

// DeletePerformance removes a set from the selected session.
func (c *Coordinator) DeletePerformance(ctx context.Context, performanceID int64) error {
	if performanceID <= 0 {
		return ErrPendingEntity
	}
	sel, err := c.selected()
	if err != nil {
		return err
	}
	return c.run(ctx, plan{
		kind: KindDeletePerformance,
		optimistic: func(draft *tracker.History) {
			s := currentSession(*draft, sel, 0)
			if s == nil {
				return
			}
			for i := range s.ExerciseLogs {
				sets := s.ExerciseLogs[i].ExercisePerformances
				kept := sets[:0:0]
				for _, p := range sets {
					if p.ID != performanceID {
						kept = append(kept, p)
					}
				}
				s.ExerciseLogs[i].ExercisePerformances = kept
			}
		},
		call: func(ctx context.Context) (func(*tracker.History), error) {
			return nil, c.api.DeletePerformance(ctx, performanceID)
		},
		refetch: true,
	})
}
