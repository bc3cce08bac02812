// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/pake/internal/core/domain"
)

// CommandRunner spawns external processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=command_runner.go -destination=mocks/mock_command_runner.go -package=mocks
type CommandRunner interface {
	// Execute runs argv to completion.
	//
	// A non-zero exit or an exceeded opts.Timeout returns a *domain.CommandError
	// together with the outcome collected so far.
	Execute(ctx context.Context, argv []string, opts domain.CommandOptions) (domain.CommandOutcome, error)
}
