// Package main is the entry point for the pake build tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/pake/cmd/pake/commands"
	"go.trai.ch/pake/internal/app"
	"go.trai.ch/pake/internal/core/domain"
	_ "go.trai.ch/pake/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit status: 0 on success, 1 when
// a target failed or was skipped, 2 for configuration and cycle errors.
func run(args []string) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx, graft.DisableCache())
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	// 2. Interface - CLI
	cli := commands.New(components.App, components.Logger)
	cli.SetArgs(args)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		// Failed targets were already rendered by the reporter.
		if !errors.Is(err, domain.ErrBuildFailed) {
			components.Logger.Error(err)
		}
		return domain.ExitCode(err)
	}
	return 0
}
