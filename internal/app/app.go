package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/strps/Trackbit-sub000/internal/config"
	"github.com/strps/Trackbit-sub000/internal/credentials"
	"github.com/strps/Trackbit-sub000/internal/logging"
	"github.com/strps/Trackbit-sub000/internal/mutation"
	"github.com/strps/Trackbit-sub000/internal/prefs"
	"github.com/strps/Trackbit-sub000/internal/state"
	"github.com/strps/Trackbit-sub000/internal/tracker"
	"github.com/strps/Trackbit-sub000/internal/ui"
	"github.com/strps/Trackbit-sub000/internal/view"
)

// Options configure the Trackbit application.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/trackbit/prefs.toml
	RefreshEvery time.Duration // zero uses the config value
	Debug        bool
}

// Services is the wired object graph shared by every command.
type Services struct {
	Config      config.Config
	Logger      *log.Logger
	Client      *tracker.Client
	History     *state.Cache[tracker.History]
	Catalog     *state.Cache[tracker.Catalog]
	Selection   *state.SelectionStore
	Coordinator *mutation.Coordinator
	Binding     *view.Binding

	closer io.Closer
}

// Bootstrap loads configuration and wires the caches, coordinator and view
// binding. Close releases the log file.
func Bootstrap(opts Options) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Debug {
		cfg.Debug = true
	}

	logger, closer, err := logging.New(logging.Options{Path: cfg.LogPath(), Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	token, err := credentials.Resolve(cfg.Session)
	if err != nil {
		logger.Warn("session token unavailable", "err", err)
	}
	if token == "" {
		logger.Warn("no session token; requests will be anonymous")
	}

	client, err := tracker.NewClient(cfg.APIURL,
		tracker.WithSession(cfg.CookieName, token),
		tracker.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init tracker client: %w", err)
	}

	return wire(cfg, logger, closer, client), nil
}

func wire(cfg config.Config, logger *log.Logger, closer io.Closer, client *tracker.Client) *Services {
	history := state.NewHistoryCache(client)
	catalog := state.NewCatalogCache(client)
	selection := state.NewSelectionStore(state.Selection{Day: tracker.FormatDate(time.Now())}, logger.WithPrefix("selection"))
	return &Services{
		Config:      cfg,
		Logger:      logger,
		Client:      client,
		History:     history,
		Catalog:     catalog,
		Selection:   selection,
		Coordinator: mutation.New(client, history, catalog, selection, mutation.Options{Logger: logger}),
		Binding:     view.NewBinding(selection, history, catalog),
		closer:      closer,
	}
}

// Close flushes and closes the log file.
func (s *Services) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Run boots the Trackbit TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	svc, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	interval := svc.Config.RefreshEvery
	if opts.RefreshEvery > 0 {
		interval = opts.RefreshEvery
	}

	// Initial load so the first frame has data; failures show as offline.
	if err := svc.Coordinator.Refresh(ctx); err != nil {
		svc.Logger.Warn("initial refresh failed", "err", err)
	}
	selectInitialHabit(svc, userPrefs.LastHabitID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	StartPoller(ctx, svc.Coordinator, interval, svc.Logger)

	svc.Logger.Info("tui started", "api_url", svc.Config.APIURL, "refresh", interval)
	return ui.Run(ui.Options{
		Context:     ctx,
		Coordinator: svc.Coordinator,
		Binding:     svc.Binding,
		Selection:   svc.Selection,
		History:     svc.History,
		LogPath:     svc.Config.LogPath(),
		Prefs:       userPrefs,
		PrefsPath:   opts.PrefsPath,
	})
}

// selectInitialHabit restores the last habit when it still exists, otherwise
// picks the first one.
func selectInitialHabit(svc *Services, last int64) {
	habits := svc.Binding.Habits()
	if len(habits) == 0 {
		return
	}
	for _, h := range habits {
		if h.ID == last {
			svc.Selection.SelectHabit(last)
			return
		}
	}
	svc.Selection.SelectHabit(habits[0].ID)
}

// CheckOnce records a single rating without starting the TUI.
func CheckOnce(ctx context.Context, opts Options, habitID int64, date string, rating int) error {
	if date == "" {
		date = tracker.FormatDate(time.Now())
	}
	if _, err := tracker.ParseDate(date); err != nil {
		return err
	}
	svc, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer svc.Close()
	return logRating(ctx, svc, os.Stdout, habitID, date, rating)
}

func logRating(ctx context.Context, svc *Services, out io.Writer, habitID int64, date string, rating int) error {
	if err := svc.Coordinator.LogRating(ctx, habitID, date, rating); err != nil {
		return fmt.Errorf("log rating: %w", err)
	}
	name := fmt.Sprintf("habit %d", habitID)
	if p := view.Derive(state.Selection{HabitID: habitID, Day: date}, mustRead(svc.History)); p.Habit != nil && p.Habit.Name != "" {
		name = p.Habit.Name
	}
	_, err := fmt.Fprintf(out, "%s: %s rated %d\n", date, name, rating)
	return err
}

func mustRead(c *state.Cache[tracker.History]) tracker.History {
	h, _ := c.Read()
	return h
}
