package movement

import (
	"testing"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap/zaptest"
)

var tester = ability.NamedActor("tester")

type fixture struct {
	sys  *ability.System
	comp *Component
}

func newFixture(t *testing.T, settings map[string]*ability.Settings) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	kinds := make([]string, 0, 3)
	for _, c := range Classes() {
		kinds = append(kinds, c.Kind)
	}
	sys := ability.NewSystem(ability.Options{
		Log:              log,
		ValidateAddition: Accepts(kinds...),
		Settings: ability.SettingsFunc(func(key string) (*ability.Settings, bool) {
			st, ok := settings[key]
			return st, ok
		}),
	})
	comp := NewComponent(DefaultSettings(), log)
	if !sys.AddContextObject(ContextKey, comp, kinds...) {
		t.Fatal("AddContextObject failed")
	}
	for _, c := range Classes() {
		if _, ok := settings[c.DefaultName]; ok {
			if !sys.AddAbilityByClass(c, tester) {
				t.Fatalf("add %s failed", c.Kind)
			}
		}
	}
	return &fixture{sys: sys, comp: comp}
}

func TestHighestPriorityEditWins(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{
		"Crouch": {Base: ability.SlideSettings{Tags: tag.New("Ability.Crouch")}},
		"Sprint": {Base: ability.SlideSettings{Tags: tag.New("Ability.Sprint")}},
	})
	// Same frame: crouch (10) beats sprint (5) regardless of order.
	f.sys.Activate("Crouch", tester)
	f.sys.Activate("Sprint", tester)
	if n := f.comp.Pending(); n != 2 {
		t.Fatalf("pending settings = %d, want 2", n)
	}
	f.comp.Apply()
	if got := f.comp.Setting(MaxGroundSpeed, false); got != crouchSpeed {
		t.Fatalf("ground speed = %v, want %v", got, crouchSpeed)
	}
	if got := f.comp.Setting(GroundAcceleration, false); got != 6000 {
		t.Fatalf("ground acceleration = %v, want 6000", got)
	}
	if f.comp.Pending() != 0 {
		t.Fatal("queue not cleared after Apply")
	}

	f.sys.ForceDisable("Crouch", tester, tag.Root)
	f.comp.Apply()
	if got := f.comp.Setting(MaxGroundSpeed, false); got != 600 {
		t.Fatalf("ground speed after crouch release = %v, want default", got)
	}
}

func TestEqualPriorityLastQueuedWins(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{"Crouch": {}})
	a, _ := f.sys.Ability("Crouch")
	f.comp.SetSetting(a, GravityZ, -100, 1)
	f.comp.SetSetting(a, GravityZ, -200, 1)
	f.comp.SetSetting(a, GravityZ, -300, 0)
	if n := f.comp.Apply(); n != 1 {
		t.Fatalf("applied = %d, want 1", n)
	}
	if got := f.comp.Setting(GravityZ, false); got != -200 {
		t.Fatalf("gravity = %v, want -200", got)
	}
	if got := f.comp.Setting(GravityZ, true); got != -980 {
		t.Fatalf("default gravity changed: %v", got)
	}
}

func TestAllowListRestrictsSettings(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{"Crouch": {}, "Sprint": {}})
	f.comp.Allow("crouch", MaxGroundSpeed)
	crouch, _ := f.sys.Ability("Crouch")
	sprint, _ := f.sys.Ability("Sprint")

	if !f.comp.SetSetting(crouch, MaxGroundSpeed, 1, 0) {
		t.Fatal("allowed edit rejected")
	}
	if f.comp.SetSetting(crouch, GravityZ, 1, 0) {
		t.Fatal("edit outside allow list accepted")
	}
	if f.comp.SetSettingToDefault(sprint, MaxGroundSpeed, 0) {
		t.Fatal("unlisted class accepted")
	}
}

func TestAllowListRestrictsImpulses(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{"Crouch": {}, "Jump": {}})
	f.comp.Allow("jump", JumpZVelocity)
	jump, _ := f.sys.Ability("Jump")
	crouch, _ := f.sys.Ability("Crouch")

	if f.comp.ApplyImpulse(jump, ability.Vector{Z: 1}, false, 0) {
		t.Fatal("impulse accepted without impulse rights")
	}
	f.sys.Activate("Jump", tester)
	f.comp.Apply()
	if v := f.comp.Velocity(); v != (ability.Vector{}) {
		t.Fatalf("denied jump moved the actor: %+v", v)
	}

	f.comp.AllowImpulses("jump")
	if !f.comp.ApplyImpulse(jump, ability.Vector{Z: 1}, false, 0) {
		t.Fatal("allowed impulse rejected")
	}
	if f.comp.ApplyImpulse(crouch, ability.Vector{X: 1}, true, 1) {
		t.Fatal("impulse from an unlisted class accepted")
	}
}

func TestJumpImpulseAndLanding(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{
		"Jump": {Base: ability.SlideSettings{UpdateRate: 500 * time.Millisecond, Tags: tag.New("Ability.Jump")}},
	})
	f.sys.Activate("Jump", tester)
	f.comp.Apply()
	if v := f.comp.Velocity(); v.Z != 500 {
		t.Fatalf("velocity after jump = %+v", v)
	}
	for i := 0; i < 5; i++ {
		f.sys.Host().Tick(100 * time.Millisecond)
	}
	a, _ := f.sys.Ability("Jump")
	if a.State() != ability.Inactive {
		t.Fatalf("jump state = %v, want inactive after landing", a.State())
	}
	f.comp.Apply()
	if v := f.comp.Velocity(); v != (ability.Vector{}) {
		t.Fatalf("velocity after landing = %+v", v)
	}
}

func TestInputReleaseEndsSprint(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{
		"Sprint": {Inputs: tag.New("Input.Sprint")},
	})
	f.sys.Activate("Sprint", tester)
	f.sys.AddInput("Input.Sprint", ability.TriggerCompleted)
	a, _ := f.sys.Ability("Sprint")
	if a.State() != ability.Inactive {
		t.Fatalf("state = %v after release", a.State())
	}
}

func TestAcceptsRejectsForeignClasses(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{})
	if f.sys.AddAbility("Fly", &ability.Class{Kind: "fly"}, tester) {
		t.Fatal("non-movement class accepted")
	}
}

func TestParseSettingAndOverlay(t *testing.T) {
	s, err := DefaultSettings().Overlay(map[string]float64{"max_ground_speed": 450, " Gravity_Z ": -500})
	if err != nil {
		t.Fatal(err)
	}
	if s[MaxGroundSpeed] != 450 || s[GravityZ] != -500 {
		t.Fatalf("overlay = %v", s)
	}
	if _, err := DefaultSettings().Overlay(map[string]float64{"warp": 1}); err == nil {
		t.Fatal("unknown setting accepted")
	}
	if MaxSlopeAngleDeg.String() != "max_slope_angle_deg" {
		t.Fatal("setting name mismatch")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	f := newFixture(t, map[string]*ability.Settings{"Crouch": {}})
	a, _ := f.sys.Ability("Crouch")
	f.comp.SetSetting(a, MaxAirSpeed, 1, 0)
	f.comp.Apply()
	f.comp.ApplyImpulse(a, ability.Vector{X: 1}, true, 0)
	f.comp.Reset()
	if f.comp.Pending() != 0 || f.comp.Settings() != DefaultSettings() {
		t.Fatal("Reset left state behind")
	}
}
