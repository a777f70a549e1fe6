package movement

import (
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
)

// Edit priorities of the built-in classes. Crouch outranks sprint so a
// crouching actor stays slow while sprint is held.
const (
	PrioritySprint uint8 = 5
	PriorityCrouch uint8 = 10
)

const (
	crouchSpeed = 300
	sprintSpeed = 1000
)

// Classes returns the built-in movement ability classes. Their settings are
// looked up by ability key.
func Classes() []*ability.Class {
	return []*ability.Class{
		{Kind: "crouch", DefaultName: "Crouch", SearchSettings: true, New: func() ability.Behavior { return &crouch{} }},
		{Kind: "sprint", DefaultName: "Sprint", SearchSettings: true, New: func() ability.Behavior { return &sprint{} }},
		{Kind: "jump", DefaultName: "Jump", SearchSettings: true, New: func() ability.Behavior { return &jump{} }},
	}
}

// Accepts returns an addition validator admitting only the given kinds.
func Accepts(kinds ...string) func(*ability.Class) bool {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(c *ability.Class) bool {
		_, ok := set[c.Kind]
		return ok
	}
}

// crouch lowers ground speed while active.
type crouch struct {
	ability.Hooks
}

func (crouch) OnActivated(a *ability.Ability) {
	if m, ok := From(a); ok {
		m.SetSetting(a, MaxGroundSpeed, crouchSpeed, PriorityCrouch)
	}
}

func (crouch) OnDisabled(a *ability.Ability, _ ability.DisableReason, _ tag.Tag, _ ability.Actor) {
	if m, ok := From(a); ok {
		m.SetSettingToDefault(a, MaxGroundSpeed, PriorityCrouch)
	}
}

// Releasing the crouch input ends the ability.
func (crouch) OnInput(a *ability.Ability, _ tag.Tag, ev ability.TriggerEvent) {
	if ev == ability.TriggerCompleted || ev == ability.TriggerCanceled {
		a.End("Input.Released")
	}
}

// sprint raises ground speed and acceleration while held.
type sprint struct {
	ability.Hooks
}

func (sprint) OnActivated(a *ability.Ability) {
	if m, ok := From(a); ok {
		m.SetSetting(a, MaxGroundSpeed, sprintSpeed, PrioritySprint)
		m.SetSetting(a, GroundAcceleration, m.Setting(GroundAcceleration, true)*1.5, PrioritySprint)
	}
}

func (sprint) OnDisabled(a *ability.Ability, _ ability.DisableReason, _ tag.Tag, _ ability.Actor) {
	if m, ok := From(a); ok {
		m.SetSettingToDefault(a, MaxGroundSpeed, PrioritySprint)
		m.SetSettingToDefault(a, GroundAcceleration, PrioritySprint)
	}
}

func (sprint) OnInput(a *ability.Ability, _ tag.Tag, ev ability.TriggerEvent) {
	if ev == ability.TriggerCompleted || ev == ability.TriggerCanceled {
		a.End("Input.Released")
	}
}

// jump launches the actor upward and lands after its airborne time, which
// its update rate sets.
type jump struct {
	ability.Hooks
}

func (jump) OnActivated(a *ability.Ability) {
	if m, ok := From(a); ok {
		m.ApplyImpulse(a, ability.Vector{Z: m.Setting(JumpZVelocity, false)}, false, 0)
	}
}

func (jump) Update(a *ability.Ability, _ time.Duration) tag.Tag {
	if m, ok := From(a); ok {
		m.ApplyImpulse(a, ability.Vector{}, true, 0)
	}
	return "Jump.Landed"
}
