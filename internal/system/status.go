package system

import (
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/component"
	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/world"
	"go.uber.org/zap"
)

// StatusSystem periodically logs a one-line summary per actor. Phase 4 (Output).
type StatusSystem struct {
	world    *world.State
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

// NewStatusSystem logs every interval; zero disables the report.
func NewStatusSystem(ws *world.State, interval time.Duration, log *zap.Logger) *StatusSystem {
	return &StatusSystem{world: ws, log: log, interval: interval}
}

func (s *StatusSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *StatusSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.world.AllActors(func(a *component.Actor, sys *ability.System) {
		active := 0
		for _, ab := range sys.Abilities() {
			if ab.State() == ability.Active {
				active++
			}
		}
		s.log.Info("actor status",
			zap.String("actor", a.Name),
			zap.Bool("paused", a.Paused),
			zap.Int("abilities", sys.Len()),
			zap.Int("active", active),
			zap.String("tags", world.TagSummary(sys)),
			zap.Bool("ticking", sys.Scheduler().Running()))
	})
}
