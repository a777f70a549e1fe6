package world

import (
	"time"

	"github.com/stridepath/server/internal/core/ecs"
	"github.com/stridepath/server/internal/core/event"
)

// AnnouncerSubsystem is the subsystem name every actor's Announcer is
// registered under. Only classes with subsystem access may reach it.
const AnnouncerSubsystem = "announcer"

// Announcer posts ability notices to the event bus for one actor.
type Announcer struct {
	bus   *event.Bus
	id    ecs.EntityID
	actor string
	clock func() time.Time
}

// Announce queues a notice from the ability under key. It reports false when
// the world has no bus.
func (a *Announcer) Announce(key, msg string) bool {
	if a.bus == nil {
		return false
	}
	event.Emit(a.bus, event.AbilityNotice{EntityID: a.id, Actor: a.actor, Ability: key, Message: msg, At: a.clock()})
	return true
}
