package ports

import (
	"context"

	"go.trai.ch/pake/internal/core/domain"
)

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the pakefile at path and returns the populated graph.
	// Overrides take precedence over variables defined in the file.
	Load(ctx context.Context, path string, overrides map[string]string) (*domain.Graph, error)
}
