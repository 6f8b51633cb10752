package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/strps/Trackbit-sub000/internal/app"
	"github.com/strps/Trackbit-sub000/internal/credentials"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Config file path." type:"path" placeholder:"PATH"`
	Debug  bool   `help:"Log at debug level and mirror logs to stderr."`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Print version and exit."`

	Tui    TuiCmd    `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Check  CheckCmd  `cmd:"" help:"Rate a habit for a day."`
	Login  LoginCmd  `cmd:"" help:"Store the session token in the OS keyring."`
	Logout LogoutCmd `cmd:"" help:"Remove the stored session token."`
}

type runContext struct {
	ctx     context.Context
	globals Globals
	stdin   io.Reader
	stdout  io.Writer
}

func (r *runContext) options() app.Options {
	return app.Options{ConfigPath: r.globals.Config, Debug: r.globals.Debug}
}

func (r *runContext) in() io.Reader {
	if r.stdin != nil {
		return r.stdin
	}
	return os.Stdin
}

func (r *runContext) out() io.Writer {
	if r.stdout != nil {
		return r.stdout
	}
	return os.Stdout
}

// TuiCmd runs the terminal UI.
type TuiCmd struct {
	Refresh time.Duration `help:"Background refresh interval (e.g. 30s). Defaults to the config value."`
}

func (c *TuiCmd) Run(r *runContext) error {
	opts := r.options()
	opts.RefreshEvery = c.Refresh
	return app.Run(r.ctx, opts)
}

// CheckCmd records a rating without the TUI.
type CheckCmd struct {
	HabitID int64  `arg:"" name:"habit-id" help:"Habit to rate."`
	Rating  int    `arg:"" help:"Rating for the day (0-9)."`
	Date    string `help:"Day to rate as YYYY-MM-DD. Defaults to today." placeholder:"DATE"`
}

func (c *CheckCmd) Validate() error {
	if c.Rating < 0 || c.Rating > 9 {
		return fmt.Errorf("rating must be between 0 and 9, got %d", c.Rating)
	}
	return nil
}

func (c *CheckCmd) Run(r *runContext) error {
	return app.CheckOnce(r.ctx, r.options(), c.HabitID, c.Date, c.Rating)
}

// LoginCmd stores a session token. Without --token it reads one line from
// stdin so the token stays out of shell history.
type LoginCmd struct {
	Token string `help:"Session cookie value. Read from stdin when omitted."`
}

func (c *LoginCmd) Run(r *runContext) error {
	token := c.Token
	if token == "" {
		fmt.Fprint(r.out(), "Session token: ")
		line, err := bufio.NewReader(r.in()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if err := credentials.SetToken(token); err != nil {
		return err
	}
	fmt.Fprintln(r.out(), "Session token saved.")
	return nil
}

// LogoutCmd deletes the stored session token.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(r *runContext) error {
	err := credentials.DeleteToken()
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		fmt.Fprintln(r.out(), "No session token stored.")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(r.out(), "Session token removed.")
	return nil
}
