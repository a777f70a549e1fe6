package system

import (
	"time"

	"github.com/stridepath/server/internal/core/event"
	coresys "github.com/stridepath/server/internal/core/system"
	"go.uber.org/zap"
)

// EventSystem delivers the events emitted so far this tick. Events raised by
// handlers are delivered on the next tick. Phase 3 (PostUpdate).
type EventSystem struct {
	bus *event.Bus
	log *zap.Logger
}

func NewEventSystem(bus *event.Bus, log *zap.Logger) *EventSystem {
	s := &EventSystem{bus: bus, log: log}
	event.Subscribe(bus, func(ev event.SettingsReloaded) {
		s.log.Info("ability settings changed",
			zap.Strings("added", ev.Added), zap.Strings("removed", ev.Removed), zap.Int("kept", len(ev.Kept)))
	})
	event.Subscribe(bus, func(ev event.ActorDespawned) {
		s.log.Info("actor despawned", zap.String("actor", ev.Name))
	})
	event.Subscribe(bus, func(ev event.AbilityNotice) {
		s.log.Info("ability notice",
			zap.String("actor", ev.Actor), zap.String("ability", ev.Ability), zap.String("message", ev.Message))
	})
	event.Subscribe(bus, func(ev event.AbilityChanged) {
		s.log.Debug("ability changed",
			zap.String("actor", ev.Actor),
			zap.String("ability", ev.Change.Key),
			zap.Stringer("change", ev.Change.Kind))
	})
	return s
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
