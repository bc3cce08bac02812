package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pake/internal/adapters/logger"
	"go.trai.ch/pake/internal/core/ports"
)

// NodeID is the unique identifier for the build info store Graft node.
const NodeID graft.ID = "adapter.build_info_store"

func init() {
	graft.Register(graft.Node[ports.BuildInfoStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.BuildInfoStore, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return Open(DefaultPath, func(err error) {
				log.Warn("ignoring unreadable build info store " + DefaultPath)
				log.Error(err)
			}), nil
		},
	})
}
