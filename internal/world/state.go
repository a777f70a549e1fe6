package world

import (
	"fmt"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/component"
	"github.com/stridepath/server/internal/core/ecs"
	"github.com/stridepath/server/internal/core/event"
	"github.com/stridepath/server/internal/core/ticker"
	"github.com/stridepath/server/internal/data"
	"github.com/stridepath/server/internal/movement"
	"go.uber.org/zap"
)

// AttributeSpec describes a numeric attribute every actor starts with.
type AttributeSpec struct {
	Kind           string
	Base, Min, Max float64
}

// Options wire a State to the rest of the server.
type Options struct {
	Log         *zap.Logger
	Bus         *event.Bus
	Classes     *ability.Registry
	Settings    *data.SettingsStore
	Permissions ability.Permissions
	Ticker      ticker.Config
	Attributes  []AttributeSpec
	// MovementDefaults seed each actor's movement state. MovementAllows maps
	// class kind to editable settings and MovementImpulses lists the kinds
	// that may apply impulses; both empty leaves everything open.
	MovementDefaults movement.Settings
	MovementAllows   map[string][]movement.Setting
	MovementImpulses []string
	// SchedulerModules returns extra modules for an actor's scheduler. They
	// are registered before begin_play.
	SchedulerModules func(actor string) []ticker.Module
	Clock            func() time.Time
}

// State holds every actor in the world and the frame clock their ability
// schedulers run on. Accessed only from the game loop goroutine, so no locks.
type State struct {
	log   *zap.Logger
	bus   *event.Bus
	opts  Options
	clock func() time.Time

	ecs       *ecs.World
	host      *ticker.Host
	names     map[string]ecs.EntityID
	actors    *ecs.PtrComponentStore[component.Actor]
	abilities *ecs.PtrComponentStore[component.Abilities]
	movement  *ecs.PtrComponentStore[component.Movement]
}

func NewState(opts Options) *State {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &State{
		log:       log,
		bus:       opts.Bus,
		opts:      opts,
		clock:     clock,
		ecs:       ecs.NewWorld(),
		host:      ticker.NewHost(),
		names:     make(map[string]ecs.EntityID, 8),
		actors:    ecs.NewPtrComponentStore[component.Actor](),
		abilities: ecs.NewPtrComponentStore[component.Abilities](),
		movement:  ecs.NewPtrComponentStore[component.Movement](),
	}
	reg := s.ecs.Registry()
	reg.Register(s.actors)
	reg.Register(s.abilities)
	reg.Register(s.movement)
	s.ecs.OnDestroy(s.onDestroy)
	return s
}

func (s *State) World() *ecs.World  { return s.ecs }
func (s *State) Host() *ticker.Host { return s.host }
func (s *State) ActorCount() int    { return s.actors.Len() }

// Spawn creates an actor with an empty ability system and a movement state
// its movement abilities may edit.
func (s *State) Spawn(name string) (ecs.EntityID, error) {
	if name == "" {
		return 0, fmt.Errorf("spawn actor: empty name")
	}
	if _, ok := s.names[name]; ok {
		return 0, fmt.Errorf("spawn actor %q: name in use", name)
	}
	id := s.ecs.CreateEntity()
	log := s.log.With(zap.String("actor", name))

	kinds := s.opts.Classes.Kinds()
	cfg := s.opts.Ticker
	opts := ability.Options{
		Owner:            ability.NamedActor(name),
		Log:              log,
		Permissions:      s.opts.Permissions,
		ValidateAddition: movement.Accepts(kinds...),
		Host:             s.host,
		Ticker:           &cfg,
	}
	// A nil store must stay a nil interface.
	if s.opts.Settings != nil {
		opts.Settings = s.opts.Settings
	}
	// NewSystem has already applied init to the scheduler.
	sys := ability.NewSystem(opts)
	sys.SetObserver(func(ev ability.Event) {
		if s.bus != nil {
			event.Emit(s.bus, event.AbilityChanged{EntityID: id, Actor: name, At: s.clock(), Change: ev})
		}
	})
	for _, a := range s.opts.Attributes {
		sys.RegisterAttribute(ability.NewValue(a.Kind, a.Base, a.Min, a.Max))
	}

	move := movement.NewComponent(s.opts.MovementDefaults, log.Named("movement"))
	mutable := kinds
	if len(s.opts.MovementAllows) > 0 || len(s.opts.MovementImpulses) > 0 {
		mutable = make([]string, 0, len(s.opts.MovementAllows)+len(s.opts.MovementImpulses))
		for kind, settings := range s.opts.MovementAllows {
			move.Allow(kind, settings...)
			mutable = append(mutable, kind)
		}
		for _, kind := range s.opts.MovementImpulses {
			move.AllowImpulses(kind)
			if _, ok := s.opts.MovementAllows[kind]; !ok {
				mutable = append(mutable, kind)
			}
		}
	}
	sys.AddContextObject(movement.ContextKey, move, mutable...)
	sys.RegisterSubsystem(AnnouncerSubsystem, &Announcer{bus: s.bus, id: id, actor: name, clock: s.clock})
	if s.opts.SchedulerModules != nil {
		for _, mod := range s.opts.SchedulerModules(name) {
			sys.Scheduler().Register(mod)
		}
	}

	s.names[name] = id
	s.actors.Set(id, &component.Actor{Name: name, SpawnedAt: s.clock()})
	s.abilities.Set(id, &component.Abilities{System: sys})
	s.movement.Set(id, &component.Movement{State: move})

	sys.Notify(ticker.EventBeginPlay)
	if s.bus != nil {
		event.Emit(s.bus, event.ActorSpawned{EntityID: id, Name: name})
	}
	s.log.Info("actor spawned", zap.String("actor", name), zap.Int("classes", len(kinds)))
	return id, nil
}

// Despawn ends play for the actor, removes its abilities and queues the
// entity for destruction at the end of the tick.
func (s *State) Despawn(name string) bool {
	id, ok := s.names[name]
	if !ok {
		s.log.Warn("despawn unknown actor", zap.String("actor", name))
		return false
	}
	if ab, ok := s.abilities.Get(id); ok {
		ab.System.Notify(ticker.EventEndPlay)
		ab.System.Shutdown()
	}
	delete(s.names, name)
	s.ecs.MarkForDestruction(id)
	if s.bus != nil {
		event.Emit(s.bus, event.ActorDespawned{EntityID: id, Name: name})
	}
	return true
}

func (s *State) onDestroy(id ecs.EntityID) {
	if a, ok := s.actors.Get(id); ok {
		s.log.Info("actor destroyed", zap.String("actor", a.Name))
	}
}

// GetByName returns the ability system of the named actor.
func (s *State) GetByName(name string) (*ability.System, bool) {
	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	ab, ok := s.abilities.Get(id)
	if !ok {
		return nil, false
	}
	return ab.System, true
}

// Movement returns the movement state of the named actor.
func (s *State) Movement(name string) (*movement.Component, bool) {
	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	m, ok := s.movement.Get(id)
	if !ok {
		return nil, false
	}
	return m.State, true
}

// AllActors visits every live actor in spawn order.
func (s *State) AllActors(fn func(a *component.Actor, sys *ability.System)) {
	ecs.Each2(s.actors, s.abilities, func(_ ecs.EntityID, a *component.Actor, ab *component.Abilities) {
		fn(a, ab.System)
	})
}

// EachMovement visits every movement state in spawn order.
func (s *State) EachMovement(fn func(name string, m *movement.Component)) {
	ecs.Each2(s.actors, s.movement, func(_ ecs.EntityID, a *component.Actor, m *component.Movement) {
		fn(a.Name, m.State)
	})
}

// ResolveClass picks the class for an ability key: the explicit kind when
// given, else the settings table entry, else a kind equal to the key.
func (s *State) ResolveClass(key, kind string) (*ability.Class, bool) {
	if kind == "" && s.opts.Settings != nil {
		if t := s.opts.Settings.Table(); t != nil {
			if info := t.Get(key); info != nil {
				kind = info.Class
			}
		}
	}
	if kind == "" {
		kind = key
	}
	c, ok := s.opts.Classes.Get(kind)
	if !ok {
		s.log.Warn("unknown ability class", zap.String("ability", key), zap.String("class", kind))
	}
	return c, ok
}

// Grant adds the ability under key to the named actor.
func (s *State) Grant(actor, key, kind string, by ability.Actor) bool {
	sys, ok := s.GetByName(actor)
	if !ok {
		s.log.Warn("grant to unknown actor", zap.String("actor", actor), zap.String("ability", key))
		return false
	}
	c, ok := s.ResolveClass(key, kind)
	if !ok {
		return false
	}
	return sys.AddAbility(key, c, by)
}

// SetPaused pauses or resumes the named actor's scheduler.
func (s *State) SetPaused(actor string, paused bool) bool {
	id, ok := s.names[actor]
	if !ok {
		return false
	}
	a, _ := s.actors.Get(id)
	ab, _ := s.abilities.Get(id)
	if a.Paused == paused {
		return false
	}
	a.Paused = paused
	ab.System.SetPaused(paused)
	return true
}

// Shutdown despawns every actor and flushes the destroy queue.
func (s *State) Shutdown() {
	var names []string
	s.actors.Each(func(_ ecs.EntityID, a *component.Actor) { names = append(names, a.Name) })
	for _, n := range names {
		s.Despawn(n)
	}
	s.ecs.FlushDestroyQueue()
}

// TagSummary renders the owned tags of an actor, sorted.
func TagSummary(sys *ability.System) string {
	tags := sys.OwnedTags().Sorted()
	if len(tags) == 0 {
		return "(none)"
	}
	return tags.String()
}
