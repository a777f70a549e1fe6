package ticker

import (
	"fmt"
	"strings"
	"time"
)

// Event is a lifecycle signal that may auto-start or auto-stop a Manager.
type Event uint8

const (
	EventInit Event = iota
	EventBeginPlay
	EventPaused
	EventEndPlay
	EventUnpaused
)

var eventNames = [...]string{
	EventInit:      "init",
	EventBeginPlay: "begin_play",
	EventPaused:    "paused",
	EventEndPlay:   "end_play",
	EventUnpaused:  "unpaused",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", e)
}

// ParseEvent maps a config name ("begin_play", "paused", ...) to an Event.
func ParseEvent(s string) (Event, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range eventNames {
		if n == s {
			return Event(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle event %q", s)
}

// Module is a task collection ticked by a Manager.
type Module interface {
	Name() string
	Attach(owner Owner)
	Tick(dt time.Duration)
	// NeedsUpdate reports whether the module has pending work.
	NeedsUpdate() bool
}

// Owner is the view a module has of its Manager.
type Owner interface {
	TryStart()
	TryStop(requester Module) bool
	Paused() bool
}

// PauseAware modules may opt in to ticking while the game is paused.
type PauseAware interface {
	TickWhilePaused() bool
}

// LifecycleObserver modules are told about every lifecycle event after the
// manager applied its auto start/stop rules.
type LifecycleObserver interface {
	OnLifecycle(ev Event)
}

// Base carries the owner link for module implementations. Embed it.
type Base struct {
	owner Owner
}

func (b *Base) Attach(owner Owner) { b.owner = owner }

// StartTicker asks the owner to start ticking.
func (b *Base) StartTicker() {
	if b.owner != nil {
		b.owner.TryStart()
	}
}

// StopTicker asks the owner to stop; refused while other modules have work.
func (b *Base) StopTicker(self Module) bool {
	if b.owner == nil {
		return false
	}
	return b.owner.TryStop(self)
}

// ReleaseIfIdle stops the ticker when self has no pending work left.
func (b *Base) ReleaseIfIdle(self Module) {
	if b.owner == nil || self.NeedsUpdate() {
		return
	}
	b.owner.TryStop(self)
}

func (b *Base) GamePaused() bool {
	return b.owner != nil && b.owner.Paused()
}
