// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/pake/internal/adapters/cas"
	_ "go.trai.ch/pake/internal/adapters/config"
	_ "go.trai.ch/pake/internal/adapters/fs"
	_ "go.trai.ch/pake/internal/adapters/linear"
	_ "go.trai.ch/pake/internal/adapters/logger"
	_ "go.trai.ch/pake/internal/adapters/shell"
	_ "go.trai.ch/pake/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/pake/internal/app"
	_ "go.trai.ch/pake/internal/engine/scheduler"
)
