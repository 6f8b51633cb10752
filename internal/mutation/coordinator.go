package mutation

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/strps/Trackbit-sub000/internal/state"
	"github.com/strps/Trackbit-sub000/internal/tracker"
)

var (
	// ErrNoSelection is returned when an action needs a selected habit and day.
	ErrNoSelection = errors.New("no habit or day selected")
	// ErrNoSession is returned when an action needs a session on the selected day.
	ErrNoSession = errors.New("no session on the selected day")
	// ErrPendingEntity is returned when the target has no server id yet.
	ErrPendingEntity = errors.New("entity is not saved yet")
)

// Kind names a mutation.
type Kind string

const (
	KindLogRating         Kind = "log-rating"
	KindCreateSession     Kind = "create-session"
	KindDeleteSession     Kind = "delete-session"
	KindAddExerciseLog    Kind = "add-exercise-log"
	KindRemoveExerciseLog Kind = "remove-exercise-log"
	KindCreatePerformance Kind = "create-performance"
	KindUpdatePerformance Kind = "update-performance"
	KindDeletePerformance Kind = "delete-performance"
)

// Kinds lists every mutation kind.
var Kinds = []Kind{
	KindLogRating,
	KindCreateSession,
	KindDeleteSession,
	KindAddExerciseLog,
	KindRemoveExerciseLog,
	KindCreatePerformance,
	KindUpdatePerformance,
	KindDeletePerformance,
}

// Status is the loading/error flag of one mutation kind.
type Status struct {
	InFlight    int
	LastError   error
	LastSettled time.Time
}

// Options configure a Coordinator.
type Options struct {
	Logger *log.Logger
	// TempID generates placeholder ids; defaults to random UUIDs.
	TempID func() string
}

// Coordinator applies user actions to the caches optimistically, sends them
// to the API and reconciles or rolls back. It is safe for concurrent use;
// every method blocks until its mutation has settled.
type Coordinator struct {
	api       tracker.API
	history   *state.Cache[tracker.History]
	catalog   *state.Cache[tracker.Catalog]
	selection *state.SelectionStore
	logger    *log.Logger
	tempID    func() string

	mu     sync.Mutex
	status map[Kind]Status
}

// New wires a Coordinator to its caches and selection.
func New(api tracker.API, history *state.Cache[tracker.History], catalog *state.Cache[tracker.Catalog], selection *state.SelectionStore, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tempID := opts.TempID
	if tempID == nil {
		tempID = uuid.NewString
	}
	return &Coordinator{
		api:       api,
		history:   history,
		catalog:   catalog,
		selection: selection,
		logger:    logger.WithPrefix("mutation"),
		tempID:    tempID,
		status:    make(map[Kind]Status),
	}
}

// Status returns the loading/error flag of kind.
func (c *Coordinator) Status(kind Kind) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[kind]
}

// InFlight returns the number of mutations that have not settled yet.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.status {
		n += s.InFlight
	}
	return n
}

// Refresh refetches the history and the exercise catalog.
func (c *Coordinator) Refresh(ctx context.Context) error {
	var errs []error
	if err := c.history.Refetch(ctx); err != nil && !errors.Is(err, state.ErrFetchDiscarded) {
		errs = append(errs, err)
	}
	if c.catalog != nil {
		if err := c.catalog.Refetch(ctx); err != nil && !errors.Is(err, state.ErrFetchDiscarded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// plan describes one mutation: its optimistic edits, its network call and
// whether settling refetches the history.
type plan struct {
	kind Kind
	// optimistic edits the history draft before the call; nil means the
	// mutation has nothing to roll back in the history.
	optimistic func(draft *tracker.History)
	// optimisticCatalog edits the catalog draft before the call.
	optimisticCatalog func(draft *tracker.Catalog)
	// call performs the request and returns the reconcile edit, if any.
	call    func(ctx context.Context) (reconcile func(draft *tracker.History), err error)
	refetch bool
}

func (c *Coordinator) run(ctx context.Context, p plan) error {
	c.begin(p.kind)

	c.history.CancelFetches()
	var historySnap *state.Snapshot[tracker.History]
	if p.optimistic != nil {
		snap := c.history.Write(p.optimistic)
		historySnap = &snap
	}
	var catalogSnap *state.Snapshot[tracker.Catalog]
	if p.optimisticCatalog != nil && c.catalog != nil {
		c.catalog.CancelFetches()
		snap := c.catalog.Write(p.optimisticCatalog)
		catalogSnap = &snap
	}

	reconcile, err := p.call(ctx)
	if err != nil {
		if historySnap != nil {
			c.history.Restore(*historySnap)
		}
		if catalogSnap != nil {
			c.catalog.Restore(*catalogSnap)
		}
		c.logger.Warn("rolled back", "kind", p.kind, "err", err)
	} else if reconcile != nil {
		c.history.Write(reconcile)
		c.logger.Debug("reconciled", "kind", p.kind)
	}

	if p.refetch {
		c.refetchHistory(ctx, p.kind)
	}
	c.end(p.kind, err)
	return err
}

func (c *Coordinator) refetchHistory(ctx context.Context, kind Kind) {
	err := c.history.Refetch(ctx)
	switch {
	case err == nil:
	case errors.Is(err, state.ErrFetchDiscarded):
		c.logger.Debug("settle refetch superseded", "kind", kind)
	default:
		c.logger.Warn("settle refetch failed", "kind", kind, "err", err)
	}
}

func (c *Coordinator) begin(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status[kind]
	s.InFlight++
	c.status[kind] = s
}

func (c *Coordinator) end(kind Kind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status[kind]
	s.InFlight--
	s.LastError = err
	s.LastSettled = time.Now()
	c.status[kind] = s
}

// selected returns the selection captured at call time.
func (c *Coordinator) selected() (state.Selection, error) {
	sel := c.selection.Get()
	if !sel.Complete() {
		return sel, ErrNoSelection
	}
	return sel, nil
}

// currentSession resolves the selected session in h. When want is non-zero
// and the session at the selected index has another id, the day's sessions
// are searched by id instead.
func currentSession(h tracker.History, sel state.Selection, want int64) *tracker.ExerciseSession {
	s := h.Session(sel.HabitID, sel.Day, sel.SessionIndex)
	if want == 0 || (s != nil && s.ID == want) {
		return s
	}
	dl := h.DayLog(sel.HabitID, sel.Day)
	if dl == nil {
		return nil
	}
	for i := range dl.ExerciseSessions {
		if dl.ExerciseSessions[i].ID == want {
			return &dl.ExerciseSessions[i]
		}
	}
	return nil
}

func findLog(s *tracker.ExerciseSession, match func(tracker.ExerciseLog) bool) *tracker.ExerciseLog {
	if s == nil {
		return nil
	}
	for i := range s.ExerciseLogs {
		if match(s.ExerciseLogs[i]) {
			return &s.ExerciseLogs[i]
		}
	}
	return nil
}

func findPerformance(s *tracker.ExerciseSession, match func(tracker.ExercisePerformance) bool) *tracker.ExercisePerformance {
	if s == nil {
		return nil
	}
	for i := range s.ExerciseLogs {
		sets := s.ExerciseLogs[i].ExercisePerformances
		for j := range sets {
			if match(sets[j]) {
				return &sets[j]
			}
		}
	}
	return nil
}

// seed returns the reps and weight to prefill from an exercise's last
// performance; both stay nil when there is none.
func (c *Coordinator) seed(exerciseID int64) (*int, *float64) {
	if c.catalog == nil {
		return nil, nil
	}
	var reps *int
	var weight *float64
	c.catalog.View(func(cat tracker.Catalog, _ bool) {
		ex := cat.Find(exerciseID)
		if ex == nil || ex.LastPerformance == nil {
			return
		}
		if ex.LastPerformance.Reps != nil {
			v := *ex.LastPerformance.Reps
			reps = &v
		}
		if ex.LastPerformance.Weight != nil {
			v := *ex.LastPerformance.Weight
			weight = &v
		}
	})
	return reps, weight
}
