package system

import (
	"time"

	"github.com/stridepath/server/internal/core/ecs"
	coresys "github.com/stridepath/server/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem destroys the actor entities despawned during the tick.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.FlushDestroyQueue(); n > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", n), zap.Int("live", s.world.Pool().Len()))
	}
}
