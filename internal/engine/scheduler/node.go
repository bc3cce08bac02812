package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pake/internal/adapters/cas"                //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pake/internal/adapters/fs"                 //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pake/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pake/internal/adapters/shell"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pake/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pake/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			fs.FileSystemNodeID,
			fs.HasherNodeID,
			fs.VerifierNodeID,
			cas.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			runner, err := graft.Dep[ports.CommandRunner](ctx)
			if err != nil {
				return nil, err
			}

			fsys, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			verifier, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.BuildInfoStore](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(runner, fsys, hasher, verifier, store, telemetry, log), nil
		},
	})
}
