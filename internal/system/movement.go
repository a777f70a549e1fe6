package system

import (
	"time"

	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/movement"
	"github.com/stridepath/server/internal/world"
	"go.uber.org/zap"
)

// MovementSystem applies the movement edits abilities queued last frame,
// before any ability update of this frame runs. Phase 1 (PreUpdate).
type MovementSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewMovementSystem(ws *world.State, log *zap.Logger) *MovementSystem {
	return &MovementSystem{world: ws, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *MovementSystem) Update(_ time.Duration) {
	s.world.EachMovement(func(name string, m *movement.Component) {
		if n := m.Apply(); n > 0 {
			s.log.Debug("movement edits applied", zap.String("actor", name), zap.Int("edits", n))
		}
	})
}
