package ability

import (
	"sort"

	"go.uber.org/zap"
)

// Permissions decide what ability classes may reach through their system.
// FullAccess only applies to classes that also set Class.FullAccess.
type Permissions struct {
	FullAccess      []string
	SystemAccess    []string
	SubsystemAccess []string
	// Attributes maps an ability kind to the attribute kinds it may read.
	Attributes map[string][]string
}

type kindSet map[string]struct{}

func newKindSet(kinds []string) kindSet {
	set := make(kindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

func (k kindSet) has(kind string) bool {
	_, ok := k[kind]
	return ok
}

type permissionTable struct {
	full       kindSet
	system     kindSet
	subsystem  kindSet
	attributes map[string]kindSet
}

func newPermissionTable(p Permissions) permissionTable {
	t := permissionTable{
		full:       newKindSet(p.FullAccess),
		system:     newKindSet(p.SystemAccess),
		subsystem:  newKindSet(p.SubsystemAccess),
		attributes: make(map[string]kindSet, len(p.Attributes)),
	}
	for kind, attrs := range p.Attributes {
		t.attributes[kind] = newKindSet(attrs)
	}
	return t
}

func (s *System) hasFullAccess(a *Ability) bool {
	return a.class.FullAccess && s.perms.full.has(a.class.Kind)
}

func (s *System) canAccessSystem(a *Ability) bool {
	if s.hasFullAccess(a) || s.perms.system.has(a.class.Kind) {
		return true
	}
	s.log.Warn("system access denied", zapKey(a.key), zap.String("class", a.class.Kind))
	return false
}

// Attribute is a value object shared between abilities. Kind is unique per
// system.
type Attribute interface {
	Kind() string
}

// RegisterAttribute adds attr under its kind.
func (s *System) RegisterAttribute(attr Attribute) bool {
	if attr == nil || attr.Kind() == "" {
		s.log.Panic("register attribute: nil or unnamed attribute")
	}
	kind := attr.Kind()
	if _, ok := s.attributes[kind]; ok {
		s.log.Error("attribute already registered", zap.String("attribute", kind))
		return false
	}
	s.attributes[kind] = attr
	s.attrOrder = append(s.attrOrder, kind)
	return true
}

// Attributes returns registered attribute kinds in registration order.
func (s *System) Attributes() []string {
	return append([]string(nil), s.attrOrder...)
}

// Attribute returns the attribute of kind if a's class may read it.
func (s *System) Attribute(a *Ability, kind string) (Attribute, bool) {
	if a == nil {
		s.log.Panic("attribute: nil ability", zap.String("attribute", kind))
	}
	attr, ok := s.attributes[kind]
	if !ok {
		s.log.Error("attribute not registered", zapKey(a.key), zap.String("attribute", kind))
		return nil, false
	}
	if s.hasFullAccess(a) {
		return attr, true
	}
	if allowed, ok := s.perms.attributes[a.class.Kind]; ok && allowed.has(kind) {
		return attr, true
	}
	s.log.Error("attribute access denied", zapKey(a.key), zap.String("class", a.class.Kind),
		zap.String("attribute", kind))
	return nil, false
}

type contextEntry struct {
	obj     any
	mutable kindSet
}

// AddContextObject shares obj under key. Read-only access is open to every
// ability; mutable access is limited to the listed ability kinds.
func (s *System) AddContextObject(key string, obj any, mutableFor ...string) bool {
	if key == "" {
		s.log.Panic("add context object: empty key")
	}
	if obj == nil {
		s.log.Panic("add context object: nil object", zap.String("context", key))
	}
	if _, ok := s.contexts[key]; ok {
		s.log.Error("context object key in use", zap.String("context", key))
		return false
	}
	s.contexts[key] = &contextEntry{obj: obj, mutable: newKindSet(mutableFor)}
	return true
}

func (s *System) RemoveContextObject(key string) bool {
	if _, ok := s.contexts[key]; !ok {
		s.log.Error("context object not found", zap.String("context", key))
		return false
	}
	delete(s.contexts, key)
	return true
}

// ContextObjects returns the registered context keys, sorted.
func (s *System) ContextObjects() []string {
	out := make([]string, 0, len(s.contexts))
	for k := range s.contexts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ContextObject returns the object under key for a. Callers asking with
// readOnly must not mutate the result.
func (s *System) ContextObject(key string, a *Ability, readOnly bool) (any, bool) {
	if a == nil {
		s.log.Panic("context object: nil ability", zap.String("context", key))
	}
	entry, ok := s.contexts[key]
	if !ok {
		s.log.Warn("context object not found", zapKey(a.key), zap.String("context", key))
		return nil, false
	}
	if readOnly || s.hasFullAccess(a) || entry.mutable.has(a.class.Kind) {
		return entry.obj, true
	}
	s.log.Error("mutable context access denied", zapKey(a.key), zap.String("class", a.class.Kind),
		zap.String("context", key))
	return nil, false
}

// ContextAs is ContextObject with a type assertion.
func ContextAs[T any](a *Ability, key string, readOnly bool) (T, bool) {
	var zero T
	obj, ok := a.ContextObject(key, readOnly)
	if !ok {
		return zero, false
	}
	v, ok := obj.(T)
	if !ok {
		a.sys.log.Warn("context object has unexpected type", zapKey(a.key), zap.String("context", key))
		return zero, false
	}
	return v, true
}

// RegisterSubsystem exposes an external collaborator (input, camera) to
// abilities allowed to reach subsystems.
func (s *System) RegisterSubsystem(name string, v any) bool {
	if name == "" || v == nil {
		s.log.Panic("register subsystem: empty name or nil value")
	}
	if _, ok := s.subsystems[name]; ok {
		s.log.Error("subsystem already registered", zap.String("subsystem", name))
		return false
	}
	s.subsystems[name] = v
	return true
}

func (s *System) Subsystem(a *Ability, name string) (any, bool) {
	if a == nil {
		s.log.Panic("subsystem: nil ability", zap.String("subsystem", name))
	}
	v, ok := s.subsystems[name]
	if !ok {
		s.log.Warn("subsystem not registered", zapKey(a.key), zap.String("subsystem", name))
		return nil, false
	}
	if s.hasFullAccess(a) || s.perms.subsystem.has(a.class.Kind) {
		return v, true
	}
	s.log.Error("subsystem access denied", zapKey(a.key), zap.String("class", a.class.Kind),
		zap.String("subsystem", name))
	return nil, false
}
