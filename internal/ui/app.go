package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/strps/Trackbit-sub000/internal/logtail"
	"github.com/strps/Trackbit-sub000/internal/mutation"
	"github.com/strps/Trackbit-sub000/internal/prefs"
	"github.com/strps/Trackbit-sub000/internal/state"
	"github.com/strps/Trackbit-sub000/internal/tracker"
	"github.com/strps/Trackbit-sub000/internal/view"
)

// inputMode is the active text prompt, if any.
type inputMode int

const (
	modeNormal inputMode = iota
	modeAddExercise
	modeEditSet
)

// activityLines is how many log entries the activity pane keeps.
const activityLines = 200

// kindRefresh labels a manual refresh, which settles like a mutation.
const kindRefresh mutation.Kind = "refresh"

// Options configures the UI.
type Options struct {
	Context     context.Context
	Coordinator *mutation.Coordinator
	Binding     *view.Binding
	Selection   *state.SelectionStore
	History     *state.Cache[tracker.History]
	LogPath     string
	Prefs       prefs.Prefs
	PrefsPath   string
	Tick        time.Duration
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	coord     *mutation.Coordinator
	binding   *view.Binding
	selection *state.SelectionStore
	history   *state.Cache[tracker.History]
	logPath   string
	prefs     prefs.Prefs
	prefsPath string
	tick      time.Duration
	now       func() time.Time

	// UI state
	theme        Theme
	keys         keyMap
	help         help.Model
	width        int
	height       int
	ready        bool
	showHelp     bool
	showActivity bool

	// Data state
	proj      view.Projection
	habits    []tracker.Habit
	heat      []view.Cell
	logCursor int
	offline   bool
	inFlight  int
	activity  []logtail.Entry

	// Prompt state
	mode     inputMode
	input    textinput.Model
	matches  []tracker.Exercise
	matchIdx int
	editing  tracker.ExercisePerformance

	flash    string
	flashErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	if opts.Prefs.HeatmapWeeks <= 0 {
		opts.Prefs.HeatmapWeeks = 12
	}

	input := textinput.New()
	input.CharLimit = 64

	m := Model{
		ctx:       ctx,
		coord:     opts.Coordinator,
		binding:   opts.Binding,
		selection: opts.Selection,
		history:   opts.History,
		logPath:   opts.LogPath,
		prefs:     opts.Prefs,
		prefsPath: prefsPath,
		tick:      tick,
		now:       now,
		theme:     GetTheme(opts.Prefs.Theme),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     input,
	}
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tick), m.readActivity())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		m.sync()
		return m, tea.Batch(tickCmd(m.tick), m.readActivity())

	case cacheMsg:
		m.sync()
		return m, nil

	case activityMsg:
		m.activity = msg
		return m, nil

	case mutationMsg:
		m.settle(msg)
		m.sync()
		return m, m.readActivity()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.mode != modeNormal {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveLastHabit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		if p, err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err == nil {
			m.prefs = p
		}
	case key.Matches(msg, m.keys.Activity):
		m.showActivity = !m.showActivity
		return m, m.readActivity()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.NextHabit):
		m.moveHabit(1)
	case key.Matches(msg, m.keys.PrevHabit):
		m.moveHabit(-1)
	case key.Matches(msg, m.keys.PrevDay):
		m.selection.SelectDay(tracker.ShiftDate(m.day(), -1))
		m.logCursor = 0
	case key.Matches(msg, m.keys.NextDay):
		m.selection.SelectDay(tracker.ShiftDate(m.day(), 1))
		m.logCursor = 0
	case key.Matches(msg, m.keys.Today):
		m.selection.SelectDay(tracker.FormatDate(m.now()))
		m.logCursor = 0
	case key.Matches(msg, m.keys.NextLog):
		m.moveLog(1)
	case key.Matches(msg, m.keys.PrevLog):
		m.moveLog(-1)

	case key.Matches(msg, m.keys.Rate):
		return m, m.rate(msg.String())
	case key.Matches(msg, m.keys.NewSession):
		return m, m.createSession()
	case key.Matches(msg, m.keys.DeleteSession):
		return m, m.deleteSession()
	case key.Matches(msg, m.keys.AddExercise):
		return m.openExercisePrompt()
	case key.Matches(msg, m.keys.RemoveLog):
		return m, m.removeLog()
	case key.Matches(msg, m.keys.NewSet):
		return m, m.newSet()
	case key.Matches(msg, m.keys.EditSet):
		return m.openSetPrompt()
	case key.Matches(msg, m.keys.DeleteSet):
		return m, m.deleteSet()
	}
	m.sync()
	return m, nil
}

// handlePromptKey routes keys to the active text prompt.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.submitPrompt()
	case m.mode == modeAddExercise && key.Matches(msg, m.keys.Up):
		if m.matchIdx > 0 {
			m.matchIdx--
		}
		return m, nil
	case m.mode == modeAddExercise && key.Matches(msg, m.keys.Down):
		if m.matchIdx < len(m.matches)-1 {
			m.matchIdx++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeAddExercise {
		m.matches = matchExercises(m.binding.Exercises(), m.input.Value())
		m.matchIdx = 0
	}
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddExercise:
		if len(m.matches) == 0 {
			m.setFlash("no exercise matches "+strconv.Quote(m.input.Value()), true)
			return m, nil
		}
		ex := m.matches[m.matchIdx]
		m.closePrompt()
		coord := m.coord
		return m, m.mutate(mutation.KindAddExerciseLog, "add "+ex.Name, func(ctx context.Context) error {
			_, err := coord.AddExerciseLog(ctx, ex.ID)
			return err
		})

	case modeEditSet:
		reps, weight, err := parseSetInput(m.input.Value())
		if err != nil {
			m.setFlash(err.Error(), true)
			return m, nil
		}
		perf := m.editing
		perf.Reps = reps
		perf.Weight = weight
		m.closePrompt()
		coord := m.coord
		return m, m.mutate(mutation.KindUpdatePerformance, fmt.Sprintf("set %d", perf.Number), func(ctx context.Context) error {
			_, err := coord.UpdatePerformance(ctx, perf)
			return err
		})
	}
	m.closePrompt()
	return m, nil
}

func (m *Model) closePrompt() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.Reset()
	m.matches = nil
	m.matchIdx = 0
}

func (m Model) openExercisePrompt() (tea.Model, tea.Cmd) {
	if m.proj.Session == nil {
		m.setFlash("no session on this day; press s to start one", true)
		return m, nil
	}
	m.mode = modeAddExercise
	m.input.Reset()
	m.input.Placeholder = "exercise name"
	m.matches = matchExercises(m.binding.Exercises(), "")
	m.matchIdx = 0
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) openSetPrompt() (tea.Model, tea.Cmd) {
	log := m.selectedLog()
	if log == nil || len(log.ExercisePerformances) == 0 {
		m.setFlash("no set to edit", true)
		return m, nil
	}
	perf := log.ExercisePerformances[len(log.ExercisePerformances)-1]
	m.mode = modeEditSet
	m.editing = perf
	m.input.Reset()
	m.input.Placeholder = "reps weight"
	m.input.SetValue(formatSetInput(perf))
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m *Model) moveHabit(delta int) {
	if len(m.habits) == 0 {
		return
	}
	idx := 0
	for i, h := range m.habits {
		if h.ID == m.proj.Selection.HabitID {
			idx = i + delta
			break
		}
	}
	idx = max(0, min(idx, len(m.habits)-1))
	m.selection.SelectHabit(m.habits[idx].ID)
	m.logCursor = 0
}

func (m *Model) moveLog(delta int) {
	if m.proj.Session == nil {
		return
	}
	n := len(m.proj.Session.ExerciseLogs)
	m.logCursor = max(0, min(m.logCursor+delta, n-1))
}

func (m Model) day() string {
	if d := m.selection.Get().Day; d != "" {
		return d
	}
	return tracker.FormatDate(m.now())
}

func (m Model) selectedLog() *tracker.ExerciseLog {
	if m.proj.Session == nil || m.logCursor >= len(m.proj.Session.ExerciseLogs) {
		return nil
	}
	return &m.proj.Session.ExerciseLogs[m.logCursor]
}

// Mutation commands

func (m Model) rate(digit string) tea.Cmd {
	rating, err := strconv.Atoi(digit)
	if err != nil {
		return nil
	}
	sel := m.selection.Get()
	if sel.HabitID == 0 {
		return nil
	}
	coord := m.coord
	return m.mutate(mutation.KindLogRating, fmt.Sprintf("rating %d", rating), func(ctx context.Context) error {
		return coord.LogRating(ctx, sel.HabitID, sel.Day, rating)
	})
}

func (m Model) createSession() tea.Cmd {
	coord := m.coord
	return m.mutate(mutation.KindCreateSession, "new session", func(ctx context.Context) error {
		_, err := coord.CreateSession(ctx)
		return err
	})
}

func (m Model) deleteSession() tea.Cmd {
	if m.proj.Session == nil {
		return nil
	}
	id := m.proj.Session.ID
	coord := m.coord
	return m.mutate(mutation.KindDeleteSession, "delete session", func(ctx context.Context) error {
		return coord.DeleteSession(ctx, id)
	})
}

func (m Model) removeLog() tea.Cmd {
	log := m.selectedLog()
	if log == nil {
		return nil
	}
	id, name := log.ID, m.exerciseName(log.ExerciseID)
	coord := m.coord
	return m.mutate(mutation.KindRemoveExerciseLog, "remove "+name, func(ctx context.Context) error {
		return coord.RemoveExerciseLog(ctx, id)
	})
}

func (m Model) newSet() tea.Cmd {
	log := m.selectedLog()
	if log == nil {
		return nil
	}
	target := *log
	coord := m.coord
	return m.mutate(mutation.KindCreatePerformance, "new set", func(ctx context.Context) error {
		_, err := coord.CreatePerformance(ctx, target)
		return err
	})
}

func (m Model) deleteSet() tea.Cmd {
	log := m.selectedLog()
	if log == nil || len(log.ExercisePerformances) == 0 {
		return nil
	}
	perf := log.ExercisePerformances[len(log.ExercisePerformances)-1]
	if perf.Pending() {
		return func() tea.Msg {
			return mutationMsg{kind: mutation.KindDeletePerformance, label: "delete set", err: mutation.ErrPendingEntity}
		}
	}
	coord := m.coord
	return m.mutate(mutation.KindDeletePerformance, fmt.Sprintf("delete set %d", perf.Number), func(ctx context.Context) error {
		return coord.DeletePerformance(ctx, perf.ID)
	})
}

func (m Model) refresh() tea.Cmd {
	coord := m.coord
	return m.mutate(kindRefresh, "refresh", coord.Refresh)
}

// mutate runs fn off the UI goroutine; several may be in flight at once.
func (m Model) mutate(kind mutation.Kind, label string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return mutationMsg{kind: kind, label: label, err: fn(ctx)}
	}
}

func (m *Model) settle(msg mutationMsg) {
	switch {
	case msg.err == nil && msg.kind == kindRefresh:
		m.setFlash("refreshed", false)
	case msg.err == nil:
		m.setFlash(msg.label+" saved", false)
	case errors.Is(msg.err, mutation.ErrPendingEntity):
		m.setFlash(msg.label+": still saving, try again", true)
	case errors.Is(msg.err, mutation.ErrNoSession):
		m.setFlash(msg.label+": no session on this day", true)
	default:
		m.setFlash(msg.label+" failed: "+msg.err.Error(), true)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// sync reloads the projection, habit list and heatmap from the caches.
func (m *Model) sync() {
	if m.binding == nil || m.selection == nil {
		return
	}
	m.proj = m.binding.Current()
	m.habits = m.binding.Habits()
	m.heat = nil
	if m.proj.Habit != nil && m.history != nil {
		m.history.View(func(h tracker.History, _ bool) {
			m.heat = view.Heatmap(h, m.proj.Habit.ID, m.day(), m.prefs.HeatmapWeeks)
		})
		m.offline = m.history.Status().IsOffline()
	}
	if m.coord != nil {
		m.inFlight = m.coord.InFlight()
	}
	if m.proj.Session != nil {
		m.logCursor = max(0, min(m.logCursor, len(m.proj.Session.ExerciseLogs)-1))
	} else {
		m.logCursor = 0
	}
}

func (m Model) saveLastHabit() {
	id := m.selection.Get().HabitID
	if id == 0 || id == m.prefs.LastHabitID {
		return
	}
	_, _ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastHabitID = id })
}

func (m Model) exerciseName(id int64) string {
	if m.binding != nil {
		if ex, ok := m.binding.Exercise(id); ok {
			return ex.Name
		}
	}
	return fmt.Sprintf("exercise %d", id)
}

func (m Model) readActivity() tea.Cmd {
	if !m.showActivity || m.logPath == "" {
		return nil
	}
	path := m.logPath
	return func() tea.Msg {
		entries, err := logtail.Entries(path, activityLines)
		if err != nil {
			return activityMsg{{Raw: "activity unavailable: " + err.Error()}}
		}
		return activityMsg(entries)
	}
}

// matchExercises filters the catalog by a case-insensitive substring.
func matchExercises(all []tracker.Exercise, query string) []tracker.Exercise {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []tracker.Exercise
	for _, ex := range all {
		if strings.Contains(strings.ToLower(ex.Name), q) {
			out = append(out, ex)
		}
	}
	return out
}

// parseSetInput reads "reps weight"; either part may be "-" to clear it.
func parseSetInput(value string) (*int, *float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, nil, errors.New("enter reps and weight, e.g. 8 60")
	}
	var reps *int
	if fields[0] != "-" {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("invalid reps %q", fields[0])
		}
		reps = &n
	}
	var weight *float64
	if len(fields) == 2 && fields[1] != "-" {
		w, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "kg"), 64)
		if err != nil || w < 0 {
			return nil, nil, fmt.Errorf("invalid weight %q", fields[1])
		}
		weight = &w
	}
	return reps, weight, nil
}

func formatSetInput(p tracker.ExercisePerformance) string {
	reps, weight := "-", "-"
	if p.Reps != nil {
		reps = strconv.Itoa(*p.Reps)
	}
	if p.Weight != nil {
		weight = strconv.FormatFloat(*p.Weight, 'f', -1, 64)
	}
	return reps + " " + weight
}

// Messages

type tickMsg time.Time

type cacheMsg struct{}

type activityMsg []logtail.Entry

type mutationMsg struct {
	kind  mutation.Kind
	label string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	if opts.History != nil {
		unsubscribe := opts.History.Subscribe(func(tracker.History) {
			go p.Send(cacheMsg{})
		})
		defer unsubscribe()
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
