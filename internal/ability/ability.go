package ability

import (
	"fmt"
	"strings"
	"time"

	"github.com/stridepath/server/internal/core/ecs"
	"github.com/stridepath/server/internal/core/tag"
)

// State is the activation state of an ability.
type State uint8

const (
	Inactive State = iota
	Activating
	Active
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Activating:
		return "activating"
	case Active:
		return "active"
	}
	return fmt.Sprintf("state(%d)", s)
}

// Flag is a bit set of orthogonal ability flags.
type Flag uint8

const (
	FlagUpdating Flag = 1 << iota
)

// DisableReason tells a disabled hook why the ability stopped.
type DisableReason uint8

const (
	ReasonEnd DisableReason = iota
	ReasonRemoved
	ReasonForced
	ReasonFromUpdate
	ReasonOverridden
)

var reasonNames = [...]string{
	ReasonEnd:        "end",
	ReasonRemoved:    "removed",
	ReasonForced:     "forced",
	ReasonFromUpdate: "from_update",
	ReasonOverridden: "overridden",
}

func (r DisableReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", r)
}

// TriggerEvent is the phase of an input delivered through AddInput.
type TriggerEvent uint8

const (
	TriggerStarted TriggerEvent = iota
	TriggerOngoing
	TriggerTriggered
	TriggerCompleted
	TriggerCanceled
)

var triggerNames = [...]string{
	TriggerStarted:   "started",
	TriggerOngoing:   "ongoing",
	TriggerTriggered: "triggered",
	TriggerCompleted: "completed",
	TriggerCanceled:  "canceled",
}

func (e TriggerEvent) String() string {
	if int(e) < len(triggerNames) {
		return triggerNames[e]
	}
	return fmt.Sprintf("trigger(%d)", e)
}

// ParseTriggerEvent maps "started", "triggered", ... to a TriggerEvent.
func ParseTriggerEvent(s string) (TriggerEvent, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range triggerNames {
		if n == s {
			return TriggerEvent(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trigger event %q", s)
}

// Vector is a world-space direction carried by vector inputs.
type Vector struct {
	X, Y, Z float64
}

// Actor identifies whoever requests an operation: a world actor, a console
// session or another ability.
type Actor interface {
	Name() string
}

type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingActivation
	pendingSlide
)

// Ability is one activatable behavior owned by a System. Its handle goes
// stale once the ability is removed; every request through a stale ability
// is rejected.
type Ability struct {
	key      string
	handle   ecs.EntityID
	sys      *System
	class    *Class
	behavior Behavior
	settings Settings

	state State
	slide tag.Tag
	flags Flag

	pending     pendingKind
	pendingTo   tag.Tag
	baseGranted bool
	slideTags   tag.Container
}

func (a *Ability) Key() string              { return a.key }
func (a *Ability) Name() string             { return a.key }
func (a *Ability) Handle() ecs.EntityID     { return a.handle }
func (a *Ability) Class() *Class            { return a.class }
func (a *Ability) Kind() string             { return a.class.Kind }
func (a *Ability) Behavior() Behavior       { return a.behavior }
func (a *Ability) State() State             { return a.state }
func (a *Ability) Slide() tag.Tag           { return a.slide }
func (a *Ability) Flags() Flag              { return a.flags }
func (a *Ability) Updating() bool           { return a.flags&FlagUpdating != 0 }
func (a *Ability) Settings() *Settings      { return &a.settings }
func (a *Ability) Owner() Actor             { return a.sys.owner }
func (a *Ability) Valid() bool              { return a.sys.handles.Alive(a.handle) }
func (a *Ability) OwnedTags() tag.Container { return a.sys.OwnedTags() }

// Pending reports the remaining activation delay while the ability is
// Activating.
func (a *Ability) Pending() (time.Duration, bool) {
	if a.state != Activating {
		return 0, false
	}
	return a.sys.delay.Pending(a.key)
}

// System returns the owning system when the ability's class may reach it.
func (a *Ability) System() (*System, bool) {
	if !a.Valid() {
		return nil, false
	}
	return a.sys, a.sys.canAccessSystem(a)
}

// ChangeSlide asks the owning system to move this ability to slide.
func (a *Ability) ChangeSlide(slide tag.Tag) bool {
	if !a.Valid() {
		a.sys.log.Warn("slide change through stale ability", zapKey(a.key))
		return false
	}
	return a.sys.ChangeSlide(a.key, slide)
}

// End disables the ability with ReasonEnd.
func (a *Ability) End(cause tag.Tag) bool {
	if !a.Valid() {
		a.sys.log.Warn("end through stale ability", zapKey(a.key))
		return false
	}
	return a.sys.disable(a, ReasonEnd, a, cause)
}

func (a *Ability) Attribute(kind string) (Attribute, bool) {
	return a.sys.Attribute(a, kind)
}

func (a *Ability) ContextObject(key string, readOnly bool) (any, bool) {
	return a.sys.ContextObject(key, a, readOnly)
}

func (a *Ability) Subsystem(name string) (any, bool) {
	return a.sys.Subsystem(a, name)
}
