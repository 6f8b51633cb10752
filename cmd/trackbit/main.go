package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var cli CLI
	parser := kong.Parse(&cli,
		kong.Name("trackbit"),
		kong.Description("Habit and workout tracker for the terminal"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := parser.Run(&runContext{ctx: ctx, globals: cli.Globals}); err != nil {
		fmt.Fprintf(os.Stderr, "trackbit: %v\n", err)
		return 1
	}
	return 0
}
