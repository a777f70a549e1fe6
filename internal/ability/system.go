package ability

import (
	"github.com/stridepath/server/internal/core/ecs"
	"github.com/stridepath/server/internal/core/tag"
	"github.com/stridepath/server/internal/core/ticker"
	"go.uber.org/zap"
)

// NamedActor is an Actor known only by name, such as a console session.
type NamedActor string

func (n NamedActor) Name() string { return string(n) }

const systemActor NamedActor = "system"

// Options configure a System. Only Log is commonly set; everything else has
// a working default.
type Options struct {
	Owner       Actor
	Log         *zap.Logger
	Settings    SettingsSource
	Permissions Permissions
	Observer    func(Event)
	// ValidateAddition may reject classes this system does not accept.
	ValidateAddition func(c *Class) bool
	// Host is the frame clock the scheduler registers on. A private host is
	// created when nil; drive it through Host().
	Host   *ticker.Host
	Ticker *ticker.Config
}

// System owns a set of abilities, the tag pool they grant into, and the
// scheduler that completes delayed activations and runs periodic updates.
// It is not safe for concurrent use; call it from the game loop only.
type System struct {
	log              *zap.Logger
	owner            Actor
	source           SettingsSource
	observer         func(Event)
	validateAddition func(*Class) bool

	handles   *ecs.EntityPool
	abilities map[string]*Ability
	order     []string
	pool      *tag.Pool

	host      *ticker.Host
	scheduler *ticker.Manager
	delay     *ticker.DelayModule
	updates   *ticker.UpdateModule

	perms      permissionTable
	attributes map[string]Attribute
	attrOrder  []string
	contexts   map[string]*contextEntry
	subsystems map[string]any
}

func NewSystem(opts Options) *System {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	host := opts.Host
	if host == nil {
		host = ticker.NewHost()
	}
	cfg := ticker.DefaultConfig()
	if opts.Ticker != nil {
		cfg = *opts.Ticker
	}

	s := &System{
		log:              log,
		owner:            opts.Owner,
		source:           opts.Settings,
		observer:         opts.Observer,
		validateAddition: opts.ValidateAddition,
		handles:          ecs.NewEntityPool(),
		abilities:        make(map[string]*Ability, 8),
		order:            make([]string, 0, 8),
		pool:             tag.NewPool(),
		host:             host,
		perms:            newPermissionTable(opts.Permissions),
		attributes:       make(map[string]Attribute, 4),
		contexts:         make(map[string]*contextEntry, 4),
		subsystems:       make(map[string]any, 2),
	}
	s.delay = ticker.NewDelayModule()
	s.updates = ticker.NewUpdateModule(s.onUpdate, s.onUpdateComplete)
	s.scheduler = ticker.NewManager(host, cfg, log.Named("ticker"))
	s.scheduler.Register(s.delay)
	s.scheduler.Register(s.updates)
	return s
}

func zapKey(key string) zap.Field { return zap.String("ability", key) }

func (s *System) Owner() Actor                   { return s.owner }
func (s *System) Host() *ticker.Host             { return s.host }
func (s *System) Scheduler() *ticker.Manager     { return s.scheduler }
func (s *System) Len() int                       { return len(s.abilities) }
func (s *System) SetObserver(fn func(Event))     { s.observer = fn }
func (s *System) SetSettings(src SettingsSource) { s.source = src }

// Notify forwards a lifecycle event to the scheduler.
func (s *System) Notify(ev ticker.Event) { s.scheduler.Notify(ev) }

func (s *System) SetPaused(paused bool) { s.scheduler.SetPaused(paused) }

// OwnedTags returns the distinct tags currently granted, sorted.
func (s *System) OwnedTags() tag.Container { return s.pool.Tags() }

// TagCount returns how many sources currently grant exactly t.
func (s *System) TagCount(t tag.Tag) int { return s.pool.Count(t) }

// HasTag reports whether any granted tag matches t.
func (s *System) HasTag(t tag.Tag) bool { return s.pool.HasTag(t) }

// Ability returns the ability registered under key.
func (s *System) Ability(key string) (*Ability, bool) {
	a, ok := s.abilities[key]
	return a, ok
}

// Abilities returns every ability in the order it was added.
func (s *System) Abilities() []*Ability {
	out := make([]*Ability, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.abilities[k])
	}
	return out
}

func (s *System) snapshot() []string {
	return append([]string(nil), s.order...)
}

func (s *System) find(op, key string) (*Ability, bool) {
	a, ok := s.abilities[key]
	if !ok {
		s.log.Warn("ability not found", zap.String("op", op), zapKey(key))
	}
	return a, ok
}

// AddAbility creates an ability of class under key. It starts Inactive and
// is activated right away when its settings ask for activation on grant.
func (s *System) AddAbility(key string, class *Class, adder Actor) bool {
	if key == "" {
		s.log.Panic("add ability: empty key")
	}
	if class == nil {
		s.log.Panic("add ability: nil class", zapKey(key))
	}
	if adder == nil {
		s.log.Panic("add ability: nil adder", zapKey(key))
	}
	if _, ok := s.abilities[key]; ok {
		s.log.Warn("ability key already in use", zapKey(key), zap.String("class", class.Kind))
		return false
	}
	if s.validateAddition != nil && !s.validateAddition(class) {
		s.log.Warn("ability class rejected by system", zapKey(key), zap.String("class", class.Kind))
		return false
	}
	settings, ok := s.settingsFor(key, class)
	if !ok {
		return false
	}

	a := &Ability{
		key:      key,
		handle:   s.handles.Create(),
		sys:      s,
		class:    class,
		behavior: class.newBehavior(),
		settings: settings,
	}
	s.abilities[key] = a
	s.order = append(s.order, key)
	s.log.Debug("ability added", zapKey(key), zap.String("class", class.Kind), zap.String("adder", adder.Name()))

	a.behavior.OnAdded(a)
	s.emit(Event{Kind: EventAdded, Key: key, Class: class.Kind, Instigator: adder.Name()})

	if a.settings.ActivateOnGrant && a.Valid() && a.state == Inactive {
		s.Activate(key, adder)
	}
	return true
}

// RemoveAbility disables the ability under key with ReasonRemoved and
// unregisters it. Its handle is stale afterwards.
func (s *System) RemoveAbility(key string, remover Actor) bool {
	if key == "" {
		s.log.Panic("remove ability: empty key")
	}
	if remover == nil {
		s.log.Panic("remove ability: nil remover", zapKey(key))
	}
	a, ok := s.find("remove", key)
	if !ok {
		return false
	}
	s.remove(a, remover)
	return true
}

func (s *System) remove(a *Ability, remover Actor) {
	if a.state != Inactive {
		s.disable(a, ReasonRemoved, remover, tag.Root)
	}
	a.behavior.OnRemoved(a)
	// OnRemoved may have removed it already.
	if cur, ok := s.abilities[a.key]; !ok || cur != a {
		return
	}
	delete(s.abilities, a.key)
	for i, k := range s.order {
		if k == a.key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.handles.Destroy(a.handle)
	s.log.Debug("ability removed", zapKey(a.key), zap.String("remover", remover.Name()))
	s.emit(Event{Kind: EventRemoved, Key: a.key, Class: a.class.Kind, Instigator: remover.Name()})
}

// Shutdown removes every ability and stops the scheduler.
func (s *System) Shutdown() {
	remover := s.owner
	if remover == nil {
		remover = systemActor
	}
	for _, k := range s.snapshot() {
		if a, ok := s.abilities[k]; ok {
			s.remove(a, remover)
		}
	}
	s.scheduler.Stop()
}

func (s *System) settingsFor(key string, class *Class) (Settings, bool) {
	if class.SearchSettings {
		if s.source == nil {
			s.log.Error("ability settings lookup without a settings source", zapKey(key))
			return Settings{}, false
		}
		st, ok := s.source.AbilitySettings(key)
		if !ok || st == nil {
			s.log.Error("ability settings not found", zapKey(key), zap.String("class", class.Kind))
			return Settings{}, false
		}
		return *st, true
	}
	if class.Settings == nil {
		return Settings{}, true
	}
	return *class.Settings, true
}

// AddAbilityByClass adds class under its default name.
func (s *System) AddAbilityByClass(class *Class, adder Actor) bool {
	if class == nil {
		s.log.Panic("add ability by class: nil class")
	}
	name := class.DefaultName
	if name == "" {
		name = class.Kind
	}
	return s.AddAbility(name, class, adder)
}

// RemoveAbilityByClass removes every ability of kind.
func (s *System) RemoveAbilityByClass(kind string, remover Actor) bool {
	return s.eachOfKind("remove", kind, func(a *Ability) bool {
		return s.RemoveAbility(a.key, remover)
	})
}

func (s *System) ActivateByClass(kind string, activator Actor) bool {
	return s.eachOfKind("activate", kind, func(a *Ability) bool {
		return s.Activate(a.key, activator)
	})
}

func (s *System) ForceDisableByClass(kind string, disabler Actor, cause tag.Tag) bool {
	return s.eachOfKind("disable", kind, func(a *Ability) bool {
		return s.ForceDisable(a.key, disabler, cause)
	})
}

func (s *System) ChangeSlideByClass(kind string, slide tag.Tag) bool {
	return s.eachOfKind("slide", kind, func(a *Ability) bool {
		return s.ChangeSlide(a.key, slide)
	})
}

func (s *System) eachOfKind(op, kind string, fn func(*Ability) bool) bool {
	matched, done := false, false
	for _, k := range s.snapshot() {
		a, ok := s.abilities[k]
		if !ok || a.class.Kind != kind {
			continue
		}
		matched = true
		if fn(a) {
			done = true
		}
	}
	if !matched {
		s.log.Warn("no ability of class", zap.String("op", op), zap.String("class", kind))
	}
	return done
}
