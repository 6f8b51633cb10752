package mutation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strps/Trackbit-sub000/internal/state"
	"github.com/strps/Trackbit-sub000/internal/tracker"
	"github.com/strps/Trackbit-sub000/internal/tracker/trackertest"
)

const gymDay = "2024-03-04"

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func ratingOf(dl *tracker.DayLog) int { return *dl.Rating }

type fixture struct {
	srv       *trackertest.Server
	history   *state.Cache[tracker.History]
	catalog   *state.Cache[tracker.Catalog]
	selection *state.SelectionStore
	coord     *Coordinator
}

func newFixture(t *testing.T, habits []tracker.Habit, exercises []tracker.Exercise) *fixture {
	t.Helper()
	srv := trackertest.New(habits, exercises)
	t.Cleanup(srv.Close)

	client, err := tracker.NewClient(srv.URL)
	require.NoError(t, err)

	history := state.NewHistoryCache(client)
	catalog := state.NewCatalogCache(client)
	require.NoError(t, history.Refetch(context.Background()))
	require.NoError(t, catalog.Refetch(context.Background()))

	selection := state.NewSelectionStore(state.Selection{}, nil)
	var n atomic.Int64
	coord := New(client, history, catalog, selection, Options{
		TempID: func() string { return fmt.Sprintf("tmp-%d", n.Add(1)) },
	})
	return &fixture{srv: srv, history: history, catalog: catalog, selection: selection, coord: coord}
}

func (f *fixture) cached(t *testing.T) tracker.History {
	t.Helper()
	h, ok := f.history.Read()
	require.True(t, ok, "history not loaded")
	return h
}

func (f *fixture) serverHistory() tracker.History {
	return tracker.NewHistory(f.srv.History())
}

// gymHabit has one session on gymDay with one bench log holding one set.
func gymHabit() tracker.Habit {
	return tracker.Habit{
		ID:   1,
		Name: "Gym",
		Type: tracker.HabitComplex,
		DayLogs: []tracker.DayLog{{
			HabitID: 1,
			Date:    gymDay,
			ExerciseSessions: []tracker.ExerciseSession{{
				ID:      10,
				HabitID: 1,
				Date:    gymDay,
				ExerciseLogs: []tracker.ExerciseLog{{
					ID:                20,
					ExerciseSessionID: 10,
					ExerciseID:        7,
					ExercisePerformances: []tracker.ExercisePerformance{
						{ID: 30, ExerciseLogID: 20, Number: 1, Reps: intPtr(5), Weight: floatPtr(40)},
					},
				}},
			}},
		}},
	}
}

func bench() tracker.Exercise {
	return tracker.Exercise{
		ID:              7,
		Name:            "Bench press",
		LastPerformance: &tracker.LastPerformance{Reps: intPtr(10), Weight: floatPtr(50)},
	}
}

func assertNoPlaceholders(t *testing.T, h tracker.History) {
	t.Helper()
	for id, entry := range h {
		for date, dl := range entry.DayLogs {
			for _, s := range dl.ExerciseSessions {
				assert.Empty(t, s.TempID, "session %d on %s/%d", s.ID, date, id)
				for _, l := range s.ExerciseLogs {
					assert.Empty(t, l.TempID, "exercise log %d", l.ID)
					for _, p := range l.ExercisePerformances {
						assert.Empty(t, p.TempID, "performance %d", p.ID)
					}
				}
			}
		}
	}
}

func TestLogRatingCreatesShellAndSettles(t *testing.T) {
	f := newFixture(t, []tracker.Habit{{ID: 1, Name: "Read", Type: tracker.HabitSimple}}, nil)
	ctx := context.Background()

	require.NoError(t, f.coord.LogRating(ctx, 1, "2024-03-01", 4))
	require.NoError(t, f.coord.LogRating(ctx, 1, "2024-03-01", 5))

	h := f.cached(t)
	require.Len(t, h[1].DayLogs, 1)
	dl := h.DayLog(1, "2024-03-01")
	require.NotNil(t, dl)
	assert.Equal(t, 5, ratingOf(dl))
	assert.NotNil(t, dl.ExerciseSessions)
	assert.Equal(t, f.serverHistory(), h)

	requests := f.srv.Requests()
	assert.Equal(t, "GET /tracker/history", requests[len(requests)-1], "settle refetch")

	status := f.coord.Status(KindLogRating)
	assert.Zero(t, status.InFlight)
	assert.NoError(t, status.LastError)
}

func TestLogRatingFailureLeavesPreviousState(t *testing.T) {
	f := newFixture(t, []tracker.Habit{{ID: 1, Type: tracker.HabitSimple}, {ID: 2, Type: tracker.HabitSimple}}, nil)
	before := f.cached(t)
	f.srv.Fail(trackertest.RouteCheck, http.StatusInternalServerError, "database unavailable")

	err := f.coord.LogRating(context.Background(), 2, "2024-02-02", 3)

	var apiErr *tracker.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, before, f.cached(t))
	assert.Nil(t, f.cached(t).DayLog(2, "2024-02-02"))
	assert.Equal(t, err, f.coord.Status(KindLogRating).LastError)
}

func TestCreateSessionAddLogDeleteSession(t *testing.T) {
	f := newFixture(t, []tracker.Habit{{ID: 1, Name: "Gym", Type: tracker.HabitComplex}}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	ctx := context.Background()

	wantID := f.srv.NextID()
	session, err := f.coord.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantID, session.ID)
	requests := f.srv.Requests()
	assert.Equal(t, "POST /tracker/exercise-sessions", requests[len(requests)-1], "no refetch after create session")

	cachedSession := f.cached(t).Session(1, gymDay, 0)
	require.NotNil(t, cachedSession)
	assert.Equal(t, session.ID, cachedSession.ID)
	assert.Empty(t, cachedSession.ExerciseLogs)

	log, err := f.coord.AddExerciseLog(ctx, 7)
	require.NoError(t, err)
	assert.Positive(t, log.ID)
	require.Len(t, log.ExercisePerformances, 1)
	set := log.ExercisePerformances[0]
	assert.Equal(t, 1, set.Number)
	assert.Equal(t, intPtr(10), set.Reps)
	assert.Equal(t, floatPtr(50), set.Weight)

	h := f.cached(t)
	assertNoPlaceholders(t, h)
	require.Len(t, h.Session(1, gymDay, 0).ExerciseLogs, 1)
	assert.Equal(t, log.ID, h.Session(1, gymDay, 0).ExerciseLogs[0].ID)

	require.NoError(t, f.coord.DeleteSession(ctx, session.ID))
	h = f.cached(t)
	require.NotNil(t, h.DayLog(1, gymDay))
	assert.Empty(t, h.DayLog(1, gymDay).ExerciseSessions)
	assert.Equal(t, f.serverHistory(), h)
}

func TestCreateSessionFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t, []tracker.Habit{{ID: 1, Type: tracker.HabitComplex}}, nil)
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	version := f.history.Version()
	f.srv.Fail(trackertest.RouteCreateSession, http.StatusBadRequest, "habit is not complex")

	_, err := f.coord.CreateSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "habit is not complex")
	assert.Equal(t, version, f.history.Version())
}

func TestAddExerciseLogWithoutLastPerformance(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{{ID: 8, Name: "Plank"}})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})

	log, err := f.coord.AddExerciseLog(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, log.ExercisePerformances, 1)
	assert.Nil(t, log.ExercisePerformances[0].Reps)
	assert.Nil(t, log.ExercisePerformances[0].Weight)
	assert.Len(t, f.cached(t).Session(1, gymDay, 0).ExerciseLogs, 2)
}

func TestAddExerciseLogFailureRemovesPlaceholder(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	before := f.cached(t)
	f.srv.Fail(trackertest.RouteCreateExerciseLog, http.StatusInternalServerError, "boom")

	_, err := f.coord.AddExerciseLog(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, before, f.cached(t))
}

func TestAddExerciseLogRequiresSession(t *testing.T) {
	f := newFixture(t, []tracker.Habit{{ID: 1, Type: tracker.HabitComplex}}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	sent := len(f.srv.Requests())

	_, err := f.coord.AddExerciseLog(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Len(t, f.srv.Requests(), sent)
}

func TestRemoveExerciseLog(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})

	require.NoError(t, f.coord.RemoveExerciseLog(context.Background(), 20))
	assert.Empty(t, f.cached(t).Session(1, gymDay, 0).ExerciseLogs)
	assert.Equal(t, f.serverHistory(), f.cached(t))
}

func TestCreatePerformanceNumbersAfterCachedSets(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	log := f.cached(t).Session(1, gymDay, 0).ExerciseLogs[0]

	created, err := f.coord.CreatePerformance(context.Background(), log)
	require.NoError(t, err)
	assert.Equal(t, 2, created.Number)
	assert.Equal(t, intPtr(10), created.Reps)
	assert.Equal(t, floatPtr(50), created.Weight)

	sets := f.cached(t).Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances
	require.Len(t, sets, 2)
	assert.Equal(t, created.ID, sets[1].ID)
	assertNoPlaceholders(t, f.cached(t))
}

func TestCreatePerformanceOnPendingLog(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	version := f.history.Version()
	sent := len(f.srv.Requests())

	_, err := f.coord.CreatePerformance(context.Background(), tracker.ExerciseLog{TempID: "tmp-9", ExerciseID: 7})
	assert.ErrorIs(t, err, ErrPendingEntity)
	assert.Equal(t, version, f.history.Version())
	assert.Len(t, f.srv.Requests(), sent)
}

func TestUpdatePerformanceEditsCatalog(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	perf := f.cached(t).Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances[0]
	perf.Reps = intPtr(8)
	perf.Weight = floatPtr(45)

	saved, err := f.coord.UpdatePerformance(context.Background(), perf)
	require.NoError(t, err)
	assert.Equal(t, intPtr(8), saved.Reps)

	cachedPerf := f.cached(t).Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances[0]
	assert.Equal(t, intPtr(8), cachedPerf.Reps)
	assert.Equal(t, floatPtr(45), cachedPerf.Weight)

	catalog, _ := f.catalog.Read()
	require.NotNil(t, catalog.Find(7).LastPerformance)
	assert.Equal(t, intPtr(8), catalog.Find(7).LastPerformance.Reps)
	assert.Equal(t, floatPtr(45), catalog.Find(7).LastPerformance.Weight)
}

func TestUpdatePerformanceFailureRestoresCatalog(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})
	catalogBefore, _ := f.catalog.Read()
	historyBefore := f.cached(t)
	f.srv.Fail(trackertest.RouteUpdatePerformance, http.StatusUnprocessableEntity, "reps must be positive")

	perf := historyBefore.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances[0]
	perf.Reps = intPtr(-1)
	_, err := f.coord.UpdatePerformance(context.Background(), perf)
	require.Error(t, err)

	catalogAfter, _ := f.catalog.Read()
	assert.Equal(t, catalogBefore, catalogAfter)
	assert.Equal(t, historyBefore, f.cached(t))
}

func TestDeletePerformance(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	f.selection.Set(state.Selection{HabitID: 1, Day: gymDay})

	require.NoError(t, f.coord.DeletePerformance(context.Background(), 30))
	assert.Empty(t, f.cached(t).Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances)
	assert.Equal(t, f.serverHistory(), f.cached(t))
}

func TestMutationsRequireSelection(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	ctx := context.Background()
	version := f.history.Version()
	sent := len(f.srv.Requests())

	tests := []struct {
		name string
		run  func() error
	}{
		{"log rating", func() error { return f.coord.LogRating(ctx, 0, "", 1) }},
		{"create session", func() error { _, err := f.coord.CreateSession(ctx); return err }},
		{"delete session", func() error { return f.coord.DeleteSession(ctx, 10) }},
		{"add exercise log", func() error { _, err := f.coord.AddExerciseLog(ctx, 7); return err }},
		{"remove exercise log", func() error { return f.coord.RemoveExerciseLog(ctx, 20) }},
		{"create performance", func() error {
			_, err := f.coord.CreatePerformance(ctx, tracker.ExerciseLog{ID: 20, ExerciseID: 7})
			return err
		}},
		{"update performance", func() error {
			_, err := f.coord.UpdatePerformance(ctx, tracker.ExercisePerformance{ID: 30, ExerciseLogID: 20})
			return err
		}},
		{"delete performance", func() error { return f.coord.DeletePerformance(ctx, 30) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), ErrNoSelection)
		})
	}
	assert.Equal(t, version, f.history.Version())
	assert.Len(t, f.srv.Requests(), sent)
}

// stubAPI overrides single endpoints; any other call panics.
type stubAPI struct {
	tracker.API
	fetchHistory      func(context.Context) ([]tracker.Habit, error)
	upsertRating      func(context.Context, tracker.RatingInput) (tracker.RatingResult, error)
	createSession     func(context.Context, tracker.SessionInput) (tracker.ExerciseSession, error)
	deleteSession     func(context.Context, int64) error
	createExerciseLog func(context.Context, tracker.ExerciseLogInput) (tracker.ExerciseLog, error)
	deleteExerciseLog func(context.Context, int64) error
	createPerformance func(context.Context, tracker.PerformanceInput) (tracker.ExercisePerformance, error)
	updatePerformance func(context.Context, tracker.PerformanceUpdate) (tracker.ExercisePerformance, error)
	deletePerformance func(context.Context, int64) error
}

func (s *stubAPI) FetchHistory(ctx context.Context) ([]tracker.Habit, error) {
	return s.fetchHistory(ctx)
}

func (s *stubAPI) UpsertRating(ctx context.Context, in tracker.RatingInput) (tracker.RatingResult, error) {
	return s.upsertRating(ctx, in)
}

func (s *stubAPI) CreateSession(ctx context.Context, in tracker.SessionInput) (tracker.ExerciseSession, error) {
	return s.createSession(ctx, in)
}

func (s *stubAPI) DeleteSession(ctx context.Context, id int64) error {
	return s.deleteSession(ctx, id)
}

func (s *stubAPI) CreateExerciseLog(ctx context.Context, in tracker.ExerciseLogInput) (tracker.ExerciseLog, error) {
	return s.createExerciseLog(ctx, in)
}

func (s *stubAPI) DeleteExerciseLog(ctx context.Context, id int64) error {
	return s.deleteExerciseLog(ctx, id)
}

func (s *stubAPI) CreatePerformance(ctx context.Context, in tracker.PerformanceInput) (tracker.ExercisePerformance, error) {
	return s.createPerformance(ctx, in)
}

func (s *stubAPI) UpdatePerformance(ctx context.Context, in tracker.PerformanceUpdate) (tracker.ExercisePerformance, error) {
	return s.updatePerformance(ctx, in)
}

func (s *stubAPI) DeletePerformance(ctx context.Context, id int64) error {
	return s.deletePerformance(ctx, id)
}

var errOffline = errors.New("offline")

func offline(context.Context) ([]tracker.Habit, error) { return nil, errOffline }

// stubFixture seeds the history directly; refetches fail, so the cache shows
// exactly what the mutation itself wrote.
func stubFixture(api *stubAPI, habits []tracker.Habit, sel state.Selection) (*Coordinator, *state.Cache[tracker.History]) {
	if api.fetchHistory == nil {
		api.fetchHistory = offline
	}
	history := state.NewHistoryCache(api)
	history.Set(tracker.NewHistory(habits))
	coord := New(api, history, nil, state.NewSelectionStore(sel, nil), Options{})
	return coord, history
}

func TestConcurrentFailureKeepsOtherMutation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &stubAPI{
		upsertRating: func(_ context.Context, in tracker.RatingInput) (tracker.RatingResult, error) {
			if in.Date == "2024-01-01" {
				close(started)
				<-release
				return tracker.RatingResult{Success: true, HabitID: in.HabitID, Date: in.Date}, nil
			}
			return tracker.RatingResult{}, errors.New("rejected")
		},
	}
	coord, history := stubFixture(api, []tracker.Habit{{ID: 1, Type: tracker.HabitSimple}}, state.Selection{})
	ctx := context.Background()

	var wg sync.WaitGroup
	var first error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = coord.LogRating(ctx, 1, "2024-01-01", 5)
	}()
	<-started

	require.Error(t, coord.LogRating(ctx, 1, "2024-01-02", 2))
	h, _ := history.Read()
	require.NotNil(t, h.DayLog(1, "2024-01-01"), "in-flight edit survives the other rollback")
	assert.Equal(t, 5, ratingOf(h.DayLog(1, "2024-01-01")))
	assert.Nil(t, h.DayLog(1, "2024-01-02"))
	assert.Equal(t, 1, coord.InFlight())

	close(release)
	wg.Wait()
	require.NoError(t, first)
	assert.Zero(t, coord.InFlight())
	h, _ = history.Read()
	assert.Equal(t, 5, ratingOf(h.DayLog(1, "2024-01-01")))
}

func TestLogRatingRollbackWithoutRefetch(t *testing.T) {
	api := &stubAPI{
		upsertRating: func(context.Context, tracker.RatingInput) (tracker.RatingResult, error) {
			return tracker.RatingResult{}, errors.New("rejected")
		},
	}
	coord, history := stubFixture(api, []tracker.Habit{{ID: 2, Type: tracker.HabitSimple}}, state.Selection{})
	before, _ := history.Read()

	var seen []tracker.History
	history.Subscribe(func(h tracker.History) { seen = append(seen, h) })
	require.Error(t, coord.LogRating(context.Background(), 2, "2024-02-02", 3))

	require.Len(t, seen, 2, "optimistic write then restore")
	require.NotNil(t, seen[0].DayLog(2, "2024-02-02"))
	assert.Equal(t, 3, ratingOf(seen[0].DayLog(2, "2024-02-02")))
	after, _ := history.Read()
	assert.Equal(t, before, after)
}

func TestDeletePerformanceOnlyTouchesSelectedSession(t *testing.T) {
	habit := gymHabit()
	other := habit.DayLogs[0]
	other.Date = "2024-03-05"
	other.ExerciseSessions = []tracker.ExerciseSession{{
		ID: 11, HabitID: 1, Date: other.Date,
		ExerciseLogs: []tracker.ExerciseLog{{
			ID: 21, ExerciseSessionID: 11, ExerciseID: 7,
			ExercisePerformances: []tracker.ExercisePerformance{{ID: 32, ExerciseLogID: 21, Number: 1}},
		}},
	}}
	habit.DayLogs = append(habit.DayLogs, other)

	var deleted []int64
	api := &stubAPI{deletePerformance: func(_ context.Context, id int64) error {
		deleted = append(deleted, id)
		return nil
	}}
	coord, history := stubFixture(api, []tracker.Habit{habit}, state.Selection{HabitID: 1, Day: gymDay})

	require.NoError(t, coord.DeletePerformance(context.Background(), 32))
	h, _ := history.Read()
	assert.Len(t, h.Session(1, "2024-03-05", 0).ExerciseLogs[0].ExercisePerformances, 1)
	assert.Len(t, h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances, 1)

	require.NoError(t, coord.DeletePerformance(context.Background(), 30))
	h, _ = history.Read()
	assert.Empty(t, h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances)
	assert.Equal(t, []int64{32, 30}, deleted)
}

func TestDeleteSessionIgnoresUnselectedID(t *testing.T) {
	api := &stubAPI{deleteSession: func(context.Context, int64) error { return nil }}
	coord, history := stubFixture(api, []tracker.Habit{gymHabit()}, state.Selection{HabitID: 1, Day: gymDay})

	require.NoError(t, coord.DeleteSession(context.Background(), 99))
	h, _ := history.Read()
	require.NotNil(t, h.Session(1, gymDay, 0))
	assert.Equal(t, int64(10), h.Session(1, gymDay, 0).ID)

	require.NoError(t, coord.DeleteSession(context.Background(), 10))
	h, _ = history.Read()
	assert.Empty(t, h.DayLog(1, gymDay).ExerciseSessions)
}

func TestRefreshReportsFetchErrors(t *testing.T) {
	f := newFixture(t, []tracker.Habit{gymHabit()}, []tracker.Exercise{bench()})
	require.NoError(t, f.coord.Refresh(context.Background()))

	f.srv.Fail(trackertest.RouteExercises, http.StatusBadGateway, "upstream down")
	err := f.coord.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, 1, f.catalog.Status().ConsecutiveFailures)
	assert.Zero(t, f.history.Status().ConsecutiveFailures)
}

// rejectingAPI fails every mutation endpoint and every refetch.
func rejectingAPI() *stubAPI {
	rejected := errors.New("rejected")
	return &stubAPI{
		upsertRating: func(context.Context, tracker.RatingInput) (tracker.RatingResult, error) {
			return tracker.RatingResult{}, rejected
		},
		createSession: func(context.Context, tracker.SessionInput) (tracker.ExerciseSession, error) {
			return tracker.ExerciseSession{}, rejected
		},
		deleteSession: func(context.Context, int64) error { return rejected },
		createExerciseLog: func(context.Context, tracker.ExerciseLogInput) (tracker.ExerciseLog, error) {
			return tracker.ExerciseLog{}, rejected
		},
		deleteExerciseLog: func(context.Context, int64) error { return rejected },
		createPerformance: func(context.Context, tracker.PerformanceInput) (tracker.ExercisePerformance, error) {
			return tracker.ExercisePerformance{}, rejected
		},
		updatePerformance: func(context.Context, tracker.PerformanceUpdate) (tracker.ExercisePerformance, error) {
			return tracker.ExercisePerformance{}, rejected
		},
		deletePerformance: func(context.Context, int64) error { return rejected },
	}
}

func TestFailedMutationRestoresPreWriteValue(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		kind       Kind
		optimistic bool
		run        func(c *Coordinator, h tracker.History) error
	}{
		{KindLogRating, true, func(c *Coordinator, _ tracker.History) error {
			return c.LogRating(ctx, 1, gymDay, 4)
		}},
		{KindCreateSession, false, func(c *Coordinator, _ tracker.History) error {
			_, err := c.CreateSession(ctx)
			return err
		}},
		{KindDeleteSession, true, func(c *Coordinator, _ tracker.History) error {
			return c.DeleteSession(ctx, 10)
		}},
		{KindAddExerciseLog, true, func(c *Coordinator, _ tracker.History) error {
			_, err := c.AddExerciseLog(ctx, 7)
			return err
		}},
		{KindRemoveExerciseLog, true, func(c *Coordinator, _ tracker.History) error {
			return c.RemoveExerciseLog(ctx, 20)
		}},
		{KindCreatePerformance, true, func(c *Coordinator, h tracker.History) error {
			_, err := c.CreatePerformance(ctx, h.Session(1, gymDay, 0).ExerciseLogs[0])
			return err
		}},
		{KindUpdatePerformance, true, func(c *Coordinator, h tracker.History) error {
			perf := h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances[0]
			perf.Reps = intPtr(12)
			_, err := c.UpdatePerformance(ctx, perf)
			return err
		}},
		{KindDeletePerformance, true, func(c *Coordinator, _ tracker.History) error {
			return c.DeletePerformance(ctx, 30)
		}},
	}
	require.Len(t, tests, len(Kinds))

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			coord, history := stubFixture(rejectingAPI(), []tracker.Habit{gymHabit()}, state.Selection{HabitID: 1, Day: gymDay})
			before, _ := history.Read()

			var seen []tracker.History
			history.Subscribe(func(h tracker.History) { seen = append(seen, h) })

			err := tt.run(coord, before)
			require.Error(t, err)
			assert.Equal(t, err, coord.Status(tt.kind).LastError)

			after, _ := history.Read()
			assert.Equal(t, before, after)
			if tt.optimistic {
				require.Len(t, seen, 2, "optimistic write then restore")
				assert.NotEqual(t, before, seen[0])
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestFailedMutationRestoresOwnSnapshotOverLaterWrite(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := rejectingAPI()
	api.deletePerformance = func(context.Context, int64) error {
		close(started)
		<-release
		return errors.New("rejected")
	}
	api.upsertRating = func(_ context.Context, in tracker.RatingInput) (tracker.RatingResult, error) {
		return tracker.RatingResult{Success: true, HabitID: in.HabitID, Date: in.Date}, nil
	}
	coord, history := stubFixture(api, []tracker.Habit{gymHabit()}, state.Selection{HabitID: 1, Day: gymDay})
	ctx := context.Background()
	before, _ := history.Read()

	var wg sync.WaitGroup
	var deleteErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		deleteErr = coord.DeletePerformance(ctx, 30)
	}()
	<-started

	require.NoError(t, coord.LogRating(ctx, 1, "2024-03-06", 5))
	mid, _ := history.Read()
	assert.Empty(t, mid.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances)
	require.NotNil(t, mid.DayLog(1, "2024-03-06"))

	close(release)
	wg.Wait()
	require.Error(t, deleteErr)

	after, _ := history.Read()
	assert.Equal(t, before, after)
}

func TestConcurrentCreatePerformanceNumbersDistinct(t *testing.T) {
	var mu sync.Mutex
	var sent []int
	var ids atomic.Int64
	ids.Store(100)
	api := &stubAPI{
		createPerformance: func(_ context.Context, in tracker.PerformanceInput) (tracker.ExercisePerformance, error) {
			mu.Lock()
			sent = append(sent, in.Number)
			mu.Unlock()
			return tracker.ExercisePerformance{
				ID:            ids.Add(1),
				ExerciseLogID: in.ExerciseLogID,
				Number:        in.Number,
				Reps:          in.Reps,
				Weight:        in.Weight,
			}, nil
		},
		fetchHistory: offline,
	}
	history := state.NewHistoryCache(api)
	history.Set(tracker.NewHistory([]tracker.Habit{gymHabit()}))

	// The first caller stalls before its optimistic write until the second
	// has finished.
	paused := make(chan struct{})
	resume := make(chan struct{})
	var calls atomic.Int32
	coord := New(api, history, nil, state.NewSelectionStore(state.Selection{HabitID: 1, Day: gymDay}, nil), Options{
		TempID: func() string {
			n := calls.Add(1)
			if n == 1 {
				close(paused)
				<-resume
			}
			return fmt.Sprintf("tmp-%d", n)
		},
	})
	ctx := context.Background()
	h, _ := history.Read()
	log := h.Session(1, gymDay, 0).ExerciseLogs[0]

	var wg sync.WaitGroup
	var first tracker.ExercisePerformance
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = coord.CreatePerformance(ctx, log)
	}()
	<-paused

	second, err := coord.CreatePerformance(ctx, log)
	require.NoError(t, err)
	close(resume)
	wg.Wait()
	require.NoError(t, firstErr)

	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 3, first.Number)
	assert.Equal(t, []int{2, 3}, sent)

	h, _ = history.Read()
	var numbers []int
	for _, p := range h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances {
		numbers = append(numbers, p.Number)
	}
	assert.Equal(t, []int{1, 2, 3}, numbers)
	assertNoPlaceholders(t, h)
}

func TestUpdatePerformanceReconcilesByRequestedID(t *testing.T) {
	api := &stubAPI{
		updatePerformance: func(context.Context, tracker.PerformanceUpdate) (tracker.ExercisePerformance, error) {
			// Response without the ids echoed back.
			return tracker.ExercisePerformance{Number: 1, Reps: intPtr(12), Weight: floatPtr(42.5)}, nil
		},
	}
	coord, history := stubFixture(api, []tracker.Habit{gymHabit()}, state.Selection{HabitID: 1, Day: gymDay})
	h, _ := history.Read()
	perf := h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances[0]
	perf.Reps = intPtr(12)
	perf.Weight = floatPtr(42.5)

	saved, err := coord.UpdatePerformance(context.Background(), perf)
	require.NoError(t, err)
	assert.Equal(t, intPtr(12), saved.Reps)

	h, _ = history.Read()
	sets := h.Session(1, gymDay, 0).ExerciseLogs[0].ExercisePerformances
	require.Len(t, sets, 1)
	assert.Zero(t, sets[0].ID, "server response replaced the set located by the requested id")
	assert.Equal(t, floatPtr(42.5), sets[0].Weight)
}
