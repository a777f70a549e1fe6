package scripting

import (
	"fmt"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
	"github.com/stridepath/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const abilityTypeName = "ability"

// scriptClass is a class declared by register_ability. Hooks live in def.
type scriptClass struct {
	class *ability.Class
	def   *lua.LTable
}

// registerAPI installs the globals scripts use to declare ability classes
// and the methods available on the ability handle passed to hooks.
func (e *Engine) registerAPI() {
	e.vm.SetGlobal("register_ability", e.vm.NewFunction(e.luaRegisterAbility))

	mt := e.vm.NewTypeMetatable(abilityTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"key":           luaAbilityKey,
		"kind":          luaAbilityKind,
		"state":         luaAbilityState,
		"slide":         luaAbilitySlide,
		"updating":      luaAbilityUpdating,
		"has_tag":       luaAbilityHasTag,
		"change_slide":  luaAbilityChangeSlide,
		"finish":        luaAbilityFinish,
		"attribute":     luaAbilityAttribute,
		"add_attribute": luaAbilityAddAttribute,
		"announce":      luaAbilityAnnounce,
	}))
}

// Classes returns the classes declared so far, in declaration order.
func (e *Engine) Classes() []*ability.Class {
	out := make([]*ability.Class, len(e.classes))
	for i, c := range e.classes {
		out[i] = c.class
	}
	return out
}

// RegisterClasses adds every scripted class to reg.
func (e *Engine) RegisterClasses(reg *ability.Registry) error {
	for _, c := range e.classes {
		if err := reg.Register(c.class); err != nil {
			return fmt.Errorf("register scripted class: %w", err)
		}
	}
	return nil
}

// register_ability{kind=..., name=..., search_settings=..., full_access=...,
// settings={...}, on_activated=function(a) end, update=function(a, dt) end, ...}
func (e *Engine) luaRegisterAbility(L *lua.LState) int {
	def := L.CheckTable(1)
	kind := lStr(def, "kind")
	if kind == "" {
		L.ArgError(1, "register_ability: kind is required")
		return 0
	}
	for _, c := range e.classes {
		if c.class.Kind == kind {
			L.ArgError(1, fmt.Sprintf("register_ability: kind %q already declared", kind))
			return 0
		}
	}

	sc := &scriptClass{def: def}
	sc.class = &ability.Class{
		Kind:           kind,
		DefaultName:    lStr(def, "name"),
		SearchSettings: lBool(def, "search_settings"),
		FullAccess:     lBool(def, "full_access"),
		New:            func() ability.Behavior { return &luaBehavior{e: e, sc: sc} },
	}
	if st := lTable(def, "settings"); st != nil {
		settings := parseSettings(st)
		sc.class.Settings = &settings
	}
	e.classes = append(e.classes, sc)
	e.log.Debug("lua ability class registered", zap.String("kind", kind))
	return 0
}

// Durations in scripts are seconds.
func seconds(t *lua.LTable, key string) time.Duration {
	return time.Duration(lNum(t, key) * float64(time.Second))
}

func parseTags(t *lua.LTable, key string) tag.Container {
	list := lTable(t, key)
	if list == nil {
		return nil
	}
	var c tag.Container
	list.ForEach(func(_, v lua.LValue) {
		c = c.With(tag.Tag(lua.LVAsString(v)))
	})
	return c
}

func parseSlide(t *lua.LTable) ability.SlideSettings {
	if t == nil {
		return ability.SlideSettings{}
	}
	return ability.SlideSettings{
		ActivationDelay: seconds(t, "activation_delay"),
		UpdateRate:      seconds(t, "update_rate"),
		EveryTick:       lBool(t, "every_tick"),
		MaxActiveTime:   seconds(t, "max_active_time"),
		Tags:            parseTags(t, "tags"),
		RequiredTags:    parseTags(t, "required_tags"),
		BlockedTags:     parseTags(t, "blocked_tags"),
	}
}

func parseSettings(t *lua.LTable) ability.Settings {
	st := ability.Settings{
		ActivateOnGrant: lBool(t, "activate_on_grant"),
		Inputs:          parseTags(t, "inputs"),
		OverrideTags:    parseTags(t, "override_tags"),
		Base:            parseSlide(lTable(t, "base")),
	}
	if slides := lTable(t, "slides"); slides != nil {
		st.Slides = make(map[tag.Tag]ability.SlideSettings)
		slides.ForEach(func(k, v lua.LValue) {
			if vt, ok := v.(*lua.LTable); ok {
				st.Slides[tag.Tag(lua.LVAsString(k))] = parseSlide(vt)
			}
		})
	}
	return st
}

// luaBehavior forwards ability hooks to the functions in a class table.
// Missing functions fall back to the no-op defaults.
type luaBehavior struct {
	e  *Engine
	sc *scriptClass
	ud *lua.LUserData
}

func (b *luaBehavior) handle(a *ability.Ability) *lua.LUserData {
	if b.ud == nil || b.ud.Value != a {
		b.ud = b.e.vm.NewUserData()
		b.ud.Value = a
		b.e.vm.SetMetatable(b.ud, b.e.vm.GetTypeMetatable(abilityTypeName))
	}
	return b.ud
}

func (b *luaBehavior) hook(name string) (*lua.LFunction, bool) {
	fn, ok := b.sc.def.RawGetString(name).(*lua.LFunction)
	return fn, ok
}

func (b *luaBehavior) invoke(name string, a *ability.Ability, args ...lua.LValue) (lua.LValue, bool) {
	fn, ok := b.hook(name)
	if !ok {
		return lua.LNil, false
	}
	all := append([]lua.LValue{b.handle(a)}, args...)
	res, err := b.e.call(b.sc.class.Kind+"."+name, fn, all...)
	if err != nil {
		return lua.LNil, false
	}
	return res, true
}

// validate treats a missing hook as approval and a failing one as a veto.
func (b *luaBehavior) validate(name string, a *ability.Ability, args ...lua.LValue) bool {
	if _, ok := b.hook(name); !ok {
		return true
	}
	res, ok := b.invoke(name, a, args...)
	return ok && lua.LVAsBool(res)
}

func (b *luaBehavior) OnAdded(a *ability.Ability)   { b.invoke("on_added", a) }
func (b *luaBehavior) OnRemoved(a *ability.Ability) { b.invoke("on_removed", a) }
func (b *luaBehavior) OnActivated(a *ability.Ability) {
	b.invoke("on_activated", a)
}

func (b *luaBehavior) ValidateActivation(a *ability.Ability) bool {
	return b.validate("validate_activation", a)
}

func (b *luaBehavior) ValidateSlideChange(a *ability.Ability, slide tag.Tag) bool {
	return b.validate("validate_slide", a, lua.LString(slide))
}

func (b *luaBehavior) Update(a *ability.Ability, dt time.Duration) tag.Tag {
	res, ok := b.invoke("update", a, lua.LNumber(dt.Seconds()))
	if !ok || res == lua.LNil {
		return tag.Root
	}
	return tag.Tag(lua.LVAsString(res))
}

func (b *luaBehavior) OnDisabled(a *ability.Ability, reason ability.DisableReason, cause tag.Tag, disabler ability.Actor) {
	name := ""
	if disabler != nil {
		name = disabler.Name()
	}
	b.invoke("on_disabled", a, lua.LString(reason.String()), lua.LString(cause), lua.LString(name))
}

func (b *luaBehavior) OnSlideChanged(a *ability.Ability, from, to tag.Tag) {
	b.invoke("on_slide_changed", a, lua.LString(from), lua.LString(to))
}

func (b *luaBehavior) OnInput(a *ability.Ability, input tag.Tag, ev ability.TriggerEvent) {
	b.invoke("on_input", a, lua.LString(input), lua.LString(ev.String()))
}

func (b *luaBehavior) OnInputVector(a *ability.Ability, input tag.Tag, ev ability.TriggerEvent, v ability.Vector) {
	vec := b.e.vm.NewTable()
	vec.RawSetString("x", lua.LNumber(v.X))
	vec.RawSetString("y", lua.LNumber(v.Y))
	vec.RawSetString("z", lua.LNumber(v.Z))
	b.invoke("on_input_vector", a, lua.LString(input), lua.LString(ev.String()), vec)
}

// --- ability handle methods ---

func checkAbility(L *lua.LState) *ability.Ability {
	ud := L.CheckUserData(1)
	if a, ok := ud.Value.(*ability.Ability); ok {
		return a
	}
	L.ArgError(1, "ability expected")
	return nil
}

func luaAbilityKey(L *lua.LState) int {
	L.Push(lua.LString(checkAbility(L).Key()))
	return 1
}

func luaAbilityKind(L *lua.LState) int {
	L.Push(lua.LString(checkAbility(L).Kind()))
	return 1
}

func luaAbilityState(L *lua.LState) int {
	L.Push(lua.LString(checkAbility(L).State().String()))
	return 1
}

func luaAbilitySlide(L *lua.LState) int {
	L.Push(lua.LString(checkAbility(L).Slide()))
	return 1
}

func luaAbilityUpdating(L *lua.LState) int {
	L.Push(lua.LBool(checkAbility(L).Updating()))
	return 1
}

func luaAbilityHasTag(L *lua.LState) int {
	a := checkAbility(L)
	t := tag.Tag(L.CheckString(2))
	L.Push(lua.LBool(a.OwnedTags().HasTag(t)))
	return 1
}

func luaAbilityChangeSlide(L *lua.LState) int {
	a := checkAbility(L)
	L.Push(lua.LBool(a.ChangeSlide(tag.Tag(L.OptString(2, "")))))
	return 1
}

func luaAbilityFinish(L *lua.LState) int {
	a := checkAbility(L)
	L.Push(lua.LBool(a.End(tag.Tag(L.OptString(2, "")))))
	return 1
}

// a:attribute(kind) returns the current value of a numeric attribute, or nil.
func luaAbilityAttribute(L *lua.LState) int {
	a := checkAbility(L)
	attr, ok := a.Attribute(L.CheckString(2))
	v, isValue := attr.(*ability.Value)
	if !ok || !isValue {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v.Current()))
	return 1
}

// a:add_attribute(kind, delta) returns the new value, or nil.
func luaAbilityAddAttribute(L *lua.LState) int {
	a := checkAbility(L)
	attr, ok := a.Attribute(L.CheckString(2))
	v, isValue := attr.(*ability.Value)
	if !ok || !isValue {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v.Add(float64(L.CheckNumber(3)))))
	return 1
}

// a:announce(msg) posts msg through the actor's announcer. Needs subsystem
// access.
func luaAbilityAnnounce(L *lua.LState) int {
	a := checkAbility(L)
	msg := L.CheckString(2)
	v, ok := a.Subsystem(world.AnnouncerSubsystem)
	ann, isAnnouncer := v.(*world.Announcer)
	if !ok || !isAnnouncer {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(ann.Announce(a.Key(), msg)))
	return 1
}
