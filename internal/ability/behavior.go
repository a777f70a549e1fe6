package ability

import (
	"fmt"
	"sort"
	"time"

	"github.com/stridepath/server/internal/core/tag"
)

// Behavior carries the per-class hooks an ability runs. Embed Hooks to get
// no-op defaults and override what the class needs.
type Behavior interface {
	OnAdded(a *Ability)
	OnRemoved(a *Ability)
	ValidateActivation(a *Ability) bool
	ValidateSlideChange(a *Ability, slide tag.Tag) bool
	OnActivated(a *Ability)
	// Update runs while the ability is Updating. A valid returned tag ends
	// the update window with that reason.
	Update(a *Ability, dt time.Duration) tag.Tag
	OnDisabled(a *Ability, reason DisableReason, cause tag.Tag, disabler Actor)
	OnSlideChanged(a *Ability, from, to tag.Tag)
	OnInput(a *Ability, input tag.Tag, ev TriggerEvent)
	OnInputVector(a *Ability, input tag.Tag, ev TriggerEvent, v Vector)
}

// Hooks is the no-op Behavior.
type Hooks struct{}

func (Hooks) OnAdded(*Ability)                                      {}
func (Hooks) OnRemoved(*Ability)                                    {}
func (Hooks) ValidateActivation(*Ability) bool                      { return true }
func (Hooks) ValidateSlideChange(*Ability, tag.Tag) bool            { return true }
func (Hooks) OnActivated(*Ability)                                  {}
func (Hooks) Update(*Ability, time.Duration) tag.Tag                { return tag.Root }
func (Hooks) OnDisabled(*Ability, DisableReason, tag.Tag, Actor)    {}
func (Hooks) OnSlideChanged(*Ability, tag.Tag, tag.Tag)             {}
func (Hooks) OnInput(*Ability, tag.Tag, TriggerEvent)               {}
func (Hooks) OnInputVector(*Ability, tag.Tag, TriggerEvent, Vector) {}

// Class describes a kind of ability. Kind is the identity used by the
// permission tables.
type Class struct {
	Kind        string
	DefaultName string
	// Settings are used as is unless SearchSettings is set, in which case
	// they are looked up by ability key on add and on every activation.
	Settings       *Settings
	SearchSettings bool
	// FullAccess is the class's own claim to blanket access. It only takes
	// effect when the system's permissions also list the class.
	FullAccess bool
	New        func() Behavior
}

func (c *Class) newBehavior() Behavior {
	if c.New == nil {
		return Hooks{}
	}
	if b := c.New(); b != nil {
		return b
	}
	return Hooks{}
}

// Registry maps class kinds to classes.
type Registry struct {
	classes map[string]*Class
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class, 16)}
}

// Register adds c. Kinds are unique.
func (r *Registry) Register(c *Class) error {
	if c == nil || c.Kind == "" {
		return fmt.Errorf("register ability class: empty kind")
	}
	if _, ok := r.classes[c.Kind]; ok {
		return fmt.Errorf("register ability class %q: already registered", c.Kind)
	}
	if c.DefaultName == "" {
		c.DefaultName = c.Kind
	}
	r.classes[c.Kind] = c
	return nil
}

// Replace registers c, overwriting any class of the same kind.
func (r *Registry) Replace(c *Class) {
	if c.DefaultName == "" {
		c.DefaultName = c.Kind
	}
	r.classes[c.Kind] = c
}

func (r *Registry) Get(kind string) (*Class, bool) {
	c, ok := r.classes[kind]
	return c, ok
}

func (r *Registry) Count() int { return len(r.classes) }

// Kinds returns registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.classes))
	for k := range r.classes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
