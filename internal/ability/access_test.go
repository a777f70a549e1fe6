package ability

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

type navState struct{ waypoints int }

func newAccessSystem(t *testing.T) *System {
	t.Helper()
	return NewSystem(Options{
		Log: zaptest.NewLogger(t),
		Permissions: Permissions{
			FullAccess:      []string{"admin"},
			SystemAccess:    []string{"ctl"},
			SubsystemAccess: []string{"cam"},
			Attributes:      map[string][]string{"runner": {"stamina"}},
		},
	})
}

func addKind(t *testing.T, s *System, kind string, full bool) *Ability {
	t.Helper()
	return mustAdd(t, s, kind, &Class{Kind: kind, FullAccess: full, Settings: &Settings{}})
}

func TestAttributeAccess(t *testing.T) {
	s := newAccessSystem(t)
	stamina := NewValue("stamina", 100, 0, 100)
	if !s.RegisterAttribute(stamina) || !s.RegisterAttribute(NewValue("health", 50, 0, 0)) {
		t.Fatal("RegisterAttribute failed")
	}
	if s.RegisterAttribute(NewValue("stamina", 1, 0, 0)) {
		t.Fatal("duplicate attribute kind accepted")
	}

	runner := addKind(t, s, "runner", false)
	admin := addKind(t, s, "admin", true)
	pretender := addKind(t, s, "pretender", true)
	unlisted := addKind(t, s, "ctl", false)

	cases := []struct {
		name string
		a    *Ability
		kind string
		want bool
	}{
		{"allow listed", runner, "stamina", true},
		{"not in allow list", runner, "health", false},
		{"full access", admin, "health", true},
		{"self-declared only", pretender, "stamina", false},
		{"no entry", unlisted, "stamina", false},
		{"unregistered", admin, "mana", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := tc.a.Attribute(tc.kind)
			if ok != tc.want {
				t.Fatalf("Attribute(%s, %s) ok=%v, want %v", tc.a.Kind(), tc.kind, ok, tc.want)
			}
		})
	}

	attr, _ := runner.Attribute("stamina")
	attr.(*Value).Add(-30)
	if stamina.Current() != 70 {
		t.Fatalf("stamina = %v", stamina.Current())
	}
	if got := s.Attributes(); len(got) != 2 || got[0] != "stamina" {
		t.Fatalf("attributes = %v", got)
	}
}

func TestContextObjectAccess(t *testing.T) {
	s := newAccessSystem(t)
	nav := &navState{waypoints: 3}
	if !s.AddContextObject("nav", nav, "runner") {
		t.Fatal("AddContextObject failed")
	}
	if s.AddContextObject("nav", &navState{}) {
		t.Fatal("context key reused")
	}

	runner := addKind(t, s, "runner", false)
	admin := addKind(t, s, "admin", true)
	other := addKind(t, s, "ctl", false)

	if _, ok := other.ContextObject("nav", true); !ok {
		t.Fatal("read-only access denied")
	}
	if _, ok := other.ContextObject("nav", false); ok {
		t.Fatal("mutable access granted outside the allow list")
	}
	if got, ok := ContextAs[*navState](runner, "nav", false); !ok || got != nav {
		t.Fatal("allow-listed mutable access denied")
	}
	if _, ok := admin.ContextObject("nav", false); !ok {
		t.Fatal("full access denied")
	}
	if _, ok := ContextAs[*Value](runner, "nav", true); ok {
		t.Fatal("type mismatch not reported")
	}

	if !s.RemoveContextObject("nav") || s.RemoveContextObject("nav") {
		t.Fatal("RemoveContextObject should succeed exactly once")
	}
	if _, ok := admin.ContextObject("nav", true); ok {
		t.Fatal("removed context object still reachable")
	}
}

func TestSystemAndSubsystemGates(t *testing.T) {
	s := newAccessSystem(t)
	camera := struct{ fov float64 }{fov: 90}
	if !s.RegisterSubsystem("camera", &camera) || s.RegisterSubsystem("camera", &camera) {
		t.Fatal("RegisterSubsystem should succeed exactly once")
	}

	ctl := addKind(t, s, "ctl", false)
	cam := addKind(t, s, "cam", false)
	admin := addKind(t, s, "admin", true)

	if sys, ok := ctl.System(); !ok || sys != s {
		t.Fatal("system access denied to listed class")
	}
	if _, ok := cam.System(); ok {
		t.Fatal("system access granted to unlisted class")
	}
	if _, ok := cam.Subsystem("camera"); !ok {
		t.Fatal("subsystem access denied to listed class")
	}
	if _, ok := ctl.Subsystem("camera"); ok {
		t.Fatal("subsystem access granted to unlisted class")
	}
	if _, ok := admin.Subsystem("camera"); !ok {
		t.Fatal("full access denied")
	}
	if _, ok := admin.Subsystem("touch"); ok {
		t.Fatal("unregistered subsystem returned")
	}

	s.RemoveAbility("ctl", tester)
	if _, ok := ctl.System(); ok {
		t.Fatal("stale ability reached the system")
	}
}

func TestValueClamp(t *testing.T) {
	v := NewValue("stamina", 120, 0, 100)
	if v.Current() != 100 {
		t.Fatalf("initial = %v", v.Current())
	}
	if got := v.Add(-150); got != 0 {
		t.Fatalf("after drain = %v", got)
	}
	v.Reset()
	if v.Current() != 100 {
		t.Fatalf("after reset = %v", v.Current())
	}
	unbounded := NewValue("xp", 0, 0, 0)
	if unbounded.Set(1e6) != 1e6 {
		t.Fatal("max 0 should mean unbounded")
	}
}
