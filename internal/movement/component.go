package movement

import (
	"github.com/stridepath/server/internal/ability"
	"go.uber.org/zap"
)

// ContextKey is the context object key a Component is published under.
const ContextKey = "movement"

type edit struct {
	source    string
	value     float64
	toDefault bool
}

type impulse struct {
	source   string
	dir      ability.Vector
	override bool
}

// Component is an actor's movement state as abilities see it. Abilities
// queue edits through it; Apply commits them once per frame, before ability
// updates run. For each setting only the highest-priority edit of the frame
// is applied; among equal priorities the last one queued wins.
type Component struct {
	log      *zap.Logger
	defaults Settings
	current  Settings
	velocity ability.Vector

	pending  [settingCount]map[uint8]edit
	impulses map[uint8]impulse

	// allows maps ability class kind to the settings it may edit. A nil
	// table leaves every setting and impulses open to every class.
	allows    map[string]map[Setting]struct{}
	impulsers map[string]struct{}
}

// ImpulseAllow is the allow-list entry that grants ApplyImpulse.
const ImpulseAllow = "velocity"

func NewComponent(defaults Settings, log *zap.Logger) *Component {
	if log == nil {
		log = zap.NewNop()
	}
	return &Component{
		log:      log,
		defaults: defaults,
		current:  defaults,
		impulses: make(map[uint8]impulse, 2),
	}
}

// Allow lets abilities of class kind edit the given settings. The first call
// switches the component from open to allow-list mode.
func (c *Component) Allow(kind string, settings ...Setting) {
	if c.allows == nil {
		c.allows = make(map[string]map[Setting]struct{}, 4)
	}
	set, ok := c.allows[kind]
	if !ok {
		set = make(map[Setting]struct{}, len(settings))
		c.allows[kind] = set
	}
	for _, s := range settings {
		set[s] = struct{}{}
	}
}

// AllowImpulses lets abilities of class kind apply impulses. Like Allow it
// switches the component to allow-list mode.
func (c *Component) AllowImpulses(kind string) {
	if c.allows == nil {
		c.allows = make(map[string]map[Setting]struct{}, 4)
	}
	if c.impulsers == nil {
		c.impulsers = make(map[string]struct{}, 2)
	}
	c.impulsers[kind] = struct{}{}
}

func (c *Component) canImpulse(a *ability.Ability) bool {
	if c.allows == nil {
		return true
	}
	if _, ok := c.impulsers[a.Kind()]; ok {
		return true
	}
	c.log.Error("movement impulse denied", zap.String("ability", a.Key()), zap.String("class", a.Kind()))
	return false
}

func (c *Component) canEdit(a *ability.Ability, s Setting) bool {
	if s >= settingCount {
		c.log.Error("unknown movement setting", zap.String("ability", a.Key()), zap.Stringer("setting", s))
		return false
	}
	if c.allows == nil {
		return true
	}
	if set, ok := c.allows[a.Kind()]; ok {
		if _, ok := set[s]; ok {
			return true
		}
	}
	c.log.Error("movement setting access denied", zap.String("ability", a.Key()),
		zap.String("class", a.Kind()), zap.Stringer("setting", s))
	return false
}

func (c *Component) queue(s Setting, priority uint8, e edit) {
	if c.pending[s] == nil {
		c.pending[s] = make(map[uint8]edit, 2)
	}
	c.pending[s][priority] = e
}

// SetSetting queues value for s at priority on behalf of a.
func (c *Component) SetSetting(a *ability.Ability, s Setting, value float64, priority uint8) bool {
	if !c.canEdit(a, s) {
		return false
	}
	c.queue(s, priority, edit{source: a.Key(), value: value})
	return true
}

// SetSettingToDefault queues a reset of s to its default value.
func (c *Component) SetSettingToDefault(a *ability.Ability, s Setting, priority uint8) bool {
	if !c.canEdit(a, s) {
		return false
	}
	c.queue(s, priority, edit{source: a.Key(), toDefault: true})
	return true
}

// ApplyImpulse queues a velocity change. With override the velocity is
// replaced; otherwise dir is added to it.
func (c *Component) ApplyImpulse(a *ability.Ability, dir ability.Vector, override bool, priority uint8) bool {
	if !c.canImpulse(a) {
		return false
	}
	c.impulses[priority] = impulse{source: a.Key(), dir: dir, override: override}
	return true
}

// Setting returns the current value of s, or its default.
func (c *Component) Setting(s Setting, def bool) float64 {
	if def {
		return c.defaults[s]
	}
	return c.current[s]
}

func (c *Component) Settings() Settings      { return c.current }
func (c *Component) Velocity() ability.Vector { return c.velocity }

// Pending returns how many settings have queued edits.
func (c *Component) Pending() int {
	n := 0
	for _, m := range c.pending {
		if len(m) > 0 {
			n++
		}
	}
	if len(c.impulses) > 0 {
		n++
	}
	return n
}

// Apply commits the winning edit of every setting and clears the queue. It
// returns the number of settings changed.
func (c *Component) Apply() int {
	applied := 0
	for s := Setting(0); s < settingCount; s++ {
		m := c.pending[s]
		if len(m) == 0 {
			continue
		}
		best, win := uint8(0), edit{}
		first := true
		for p, e := range m {
			if first || p > best {
				best, win, first = p, e, false
			}
		}
		v := win.value
		if win.toDefault {
			v = c.defaults[s]
		}
		if c.current[s] != v {
			c.log.Debug("movement setting applied", zap.Stringer("setting", s), zap.Float64("value", v),
				zap.String("source", win.source), zap.Uint8("priority", best))
			c.current[s] = v
			applied++
		}
		clear(m)
	}

	if len(c.impulses) > 0 {
		best, win := uint8(0), impulse{}
		first := true
		for p, imp := range c.impulses {
			if first || p > best {
				best, win, first = p, imp, false
			}
		}
		if win.override {
			c.velocity = win.dir
		} else {
			c.velocity.X += win.dir.X
			c.velocity.Y += win.dir.Y
			c.velocity.Z += win.dir.Z
		}
		clear(c.impulses)
		applied++
	}
	return applied
}

// Reset drops queued edits and restores the defaults.
func (c *Component) Reset() {
	for _, m := range c.pending {
		clear(m)
	}
	clear(c.impulses)
	c.current = c.defaults
	c.velocity = ability.Vector{}
}

// From returns the movement component published to a's system, if a may
// edit it.
func From(a *ability.Ability) (*Component, bool) {
	return ability.ContextAs[*Component](a, ContextKey, false)
}
