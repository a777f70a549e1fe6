package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/event"
	"github.com/stridepath/server/internal/core/tag"
	"github.com/stridepath/server/internal/core/ticker"
	"github.com/stridepath/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

const dashScript = `
local count = 0
register_ability{
  kind = "dash",
  name = "Dash",
  settings = {
    inputs = {"Input.Dash"},
    base = { every_tick = true, tags = {"Ability.Dash"} },
    slides = {
      ["Ability.Dash.Boost"] = { tags = {"Ability.Dash.Boost"} },
      ["Ability.Dash.Locked"] = {},
    },
  },
  on_activated = function(a) activated = a:key() end,
  validate_slide = function(a, slide) return slide ~= "Ability.Dash.Locked" end,
  update = function(a, dt)
    count = count + 1
    updates = count
    if count >= 3 then return "Dash.Done" end
    return nil
  end,
  on_slide_changed = function(a, from, to) last_slide = to end,
  on_input = function(a, input, ev) last_input = input .. ":" .. ev end,
  on_disabled = function(a, reason, cause, by) disabled = reason .. ":" .. cause end,
}
`

func newScriptDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func global(e *Engine, name string) string {
	return lua.LVAsString(e.vm.GetGlobal(name))
}

func TestScriptedClassRunsThroughSystem(t *testing.T) {
	dir := newScriptDir(t, map[string]string{"abilities/dash.lua": dashScript})
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	reg := ability.NewRegistry()
	if err := e.RegisterClasses(reg); err != nil {
		t.Fatalf("RegisterClasses: %v", err)
	}
	class, ok := reg.Get("dash")
	if !ok {
		t.Fatal("dash class not registered")
	}
	if class.DefaultName != "Dash" || class.Settings == nil || !class.Settings.Base.EveryTick {
		t.Fatalf("class = %+v", class)
	}

	s := ability.NewSystem(ability.Options{Log: zaptest.NewLogger(t)})
	if !s.AddAbility("Dash", class, ability.NamedActor("test")) {
		t.Fatal("AddAbility failed")
	}
	if !s.Activate("Dash", ability.NamedActor("test")) {
		t.Fatal("Activate failed")
	}
	if got := global(e, "activated"); got != "Dash" {
		t.Fatalf("on_activated saw %q", got)
	}
	if !s.HasTag("Ability.Dash") {
		t.Fatal("base tag not granted")
	}

	if !s.AddInput("Input.Dash", ability.TriggerStarted) {
		t.Fatal("input not handled")
	}
	if got := global(e, "last_input"); got != "Input.Dash:started" {
		t.Fatalf("on_input saw %q", got)
	}

	if s.ChangeSlide("Dash", "Ability.Dash.Locked") {
		t.Fatal("validate_slide veto ignored")
	}
	if !s.ChangeSlide("Dash", "Ability.Dash.Boost") {
		t.Fatal("ChangeSlide to Boost failed")
	}
	if got := global(e, "last_slide"); got != "Ability.Dash.Boost" {
		t.Fatalf("on_slide_changed saw %q", got)
	}
	if !s.ChangeSlide("Dash", tag.Root) {
		t.Fatal("return to base failed")
	}

	for i := 0; i < 3; i++ {
		s.Host().Tick(100 * time.Millisecond)
	}
	a, _ := s.Ability("Dash")
	if a.State() != ability.Inactive {
		t.Fatalf("state = %v, want inactive", a.State())
	}
	if got := global(e, "disabled"); got != "from_update:Dash.Done" {
		t.Fatalf("on_disabled saw %q", got)
	}
	if s.HasTag("Ability.Dash") {
		t.Fatal("base tag kept after disable")
	}
}

func TestScriptErrorsAreContained(t *testing.T) {
	dir := newScriptDir(t, map[string]string{"abilities/broken.lua": `
register_ability{
  kind = "broken",
  settings = { base = { every_tick = true } },
  validate_activation = function(a) error("boom") end,
  update = function(a, dt) error("boom") end,
}
register_ability{
  kind = "noisy",
  settings = { base = { every_tick = true } },
  update = function(a, dt) error("boom") end,
}
`})
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	classes := e.Classes()
	if len(classes) != 2 || classes[0].Kind != "broken" || classes[1].Kind != "noisy" {
		t.Fatalf("classes = %v", classes)
	}

	s := ability.NewSystem(ability.Options{Log: zaptest.NewLogger(t)})
	s.AddAbility("Broken", classes[0], ability.NamedActor("test"))
	s.AddAbility("Noisy", classes[1], ability.NamedActor("test"))

	if s.Activate("Broken", ability.NamedActor("test")) {
		t.Fatal("failing validate_activation treated as approval")
	}
	if !s.Activate("Noisy", ability.NamedActor("test")) {
		t.Fatal("Activate failed")
	}
	s.Host().Tick(100 * time.Millisecond)
	a, _ := s.Ability("Noisy")
	if a.State() != ability.Active {
		t.Fatalf("failing update ended the ability: %v", a.State())
	}
}

func TestRegisterAbilityRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"missing kind":   `register_ability{ name = "x" }`,
		"duplicate kind": `register_ability{ kind = "a" } register_ability{ kind = "a" }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			dir := newScriptDir(t, map[string]string{"abilities/bad.lua": src})
			if e, err := NewEngine(dir, zaptest.NewLogger(t)); err == nil {
				e.Close()
				t.Fatal("expected load error")
			}
		})
	}
}

func TestRegisterClassesConflictsWithExistingKind(t *testing.T) {
	dir := newScriptDir(t, map[string]string{"abilities/a.lua": `register_ability{ kind = "crouch" }`})
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	reg := ability.NewRegistry()
	if err := reg.Register(&ability.Class{Kind: "crouch"}); err != nil {
		t.Fatal(err)
	}
	if err := e.RegisterClasses(reg); err == nil {
		t.Fatal("duplicate kind accepted")
	}
}

func TestHandleMethods(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.DoString(`
register_ability{
  kind = "gauge",
  settings = { base = { tags = {"Ability.Gauge"} } },
  on_activated = function(a)
    seen = a:state() .. "|" .. tostring(a:has_tag("Ability")) .. "|" .. tostring(a:attribute("Stamina"))
    stamina = a:add_attribute("Stamina", -30)
  end,
}
`); err != nil {
		t.Fatal(err)
	}

	s := ability.NewSystem(ability.Options{
		Log: zaptest.NewLogger(t),
		Permissions: ability.Permissions{
			Attributes: map[string][]string{"gauge": {"Stamina"}},
		},
	})
	s.RegisterAttribute(ability.NewValue("Stamina", 100, 0, 100))
	s.AddAbility("Gauge", e.Classes()[0], ability.NamedActor("test"))
	s.Activate("Gauge", ability.NamedActor("test"))

	if got := global(e, "seen"); got != "active|true|100" {
		t.Fatalf("seen = %q", got)
	}
	if got := float64(lua.LVAsNumber(e.vm.GetGlobal("stamina"))); got != 70 {
		t.Fatalf("stamina = %v", got)
	}
}

func TestAnnounceGoesThroughSubsystemGate(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.DoString(`
results = {}
for _, kind in ipairs({"herald", "mute"}) do
  register_ability{
    kind = kind,
    on_activated = function(a) results[a:key()] = a:announce("hello from " .. a:key()) end,
  }
end
`); err != nil {
		t.Fatal(err)
	}
	reg := ability.NewRegistry()
	if err := e.RegisterClasses(reg); err != nil {
		t.Fatal(err)
	}

	bus := event.NewBus()
	ws := world.NewState(world.Options{
		Log:         zaptest.NewLogger(t),
		Bus:         bus,
		Classes:     reg,
		Permissions: ability.Permissions{SubsystemAccess: []string{"herald"}},
		Ticker:      ticker.DefaultConfig(),
	})
	if _, err := ws.Spawn("hero"); err != nil {
		t.Fatal(err)
	}
	actor := ability.NamedActor("test")
	ws.Grant("hero", "Herald", "herald", actor)
	ws.Grant("hero", "Mute", "mute", actor)
	sys, _ := ws.GetByName("hero")
	sys.Activate("Herald", actor)
	sys.Activate("Mute", actor)

	results := e.vm.GetGlobal("results").(*lua.LTable)
	if results.RawGetString("Herald") != lua.LTrue || results.RawGetString("Mute") != lua.LFalse {
		t.Fatalf("announce results herald=%v mute=%v", results.RawGetString("Herald"), results.RawGetString("Mute"))
	}
	var got []string
	event.Subscribe(bus, func(ev event.AbilityNotice) { got = append(got, ev.Message) })
	bus.SwapBuffers()
	bus.DispatchAll()
	if len(got) != 1 || got[0] != "hello from Herald" {
		t.Fatalf("notices = %v", got)
	}
}
