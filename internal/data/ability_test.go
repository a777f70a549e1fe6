package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap/zaptest"
)

const crouchYAML = `
abilities:
  - key: Crouch
    class: crouch
    inputs: [Input.Crouch]
    base:
      activation_delay: 3s
      every_tick: true
      max_active_time: 10s
      tags: [Ability.Crouch, Ability.Crouch]
    slides:
      Ability.Crouch.Start:
        activation_delay: 3s
        update_rate: 2s
        max_active_time: 10s
        tags: [Ability.Crouch.Start]
      Ability.Crouch.End: {}
  - key: Sprint
    override_tags: [Ability.Crouch]
    base:
      tags: [Ability.Sprint]
`

func TestParseAbilityTable(t *testing.T) {
	tbl, err := ParseAbilityTable([]byte(crouchYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d", tbl.Count())
	}
	if keys := tbl.Keys(); keys[0] != "Crouch" || keys[1] != "Sprint" {
		t.Fatalf("keys = %v", keys)
	}

	crouch := tbl.Get("Crouch")
	if crouch.Class != "crouch" {
		t.Fatalf("class = %q", crouch.Class)
	}
	base := crouch.Settings.Base
	if base.ActivationDelay != 3*time.Second || !base.EveryTick || base.MaxActiveTime != 10*time.Second {
		t.Fatalf("base = %+v", base)
	}
	if len(base.Tags) != 1 || base.Tags[0] != "Ability.Crouch" {
		t.Fatalf("duplicate tags not dropped: %v", base.Tags)
	}
	start, ok := crouch.Settings.Slides["Ability.Crouch.Start"]
	if !ok || start.UpdateRate != 2*time.Second {
		t.Fatalf("start slide = %+v", start)
	}
	if _, ok := crouch.Settings.Slides["Ability.Crouch.End"]; !ok {
		t.Fatal("empty slide dropped")
	}

	if tbl.Get("Sprint").Class != "Sprint" {
		t.Fatal("class should default to the key")
	}
	st, ok := tbl.AbilitySettings("Sprint")
	if !ok || !st.OverrideTags.HasExact(tag.Tag("Ability.Crouch")) {
		t.Fatalf("sprint settings = %+v", st)
	}
	if _, ok := tbl.AbilitySettings("Jump"); ok {
		t.Fatal("unknown key resolved")
	}
}

func TestParseAbilityTableRejects(t *testing.T) {
	cases := map[string]string{
		"missing key":    "abilities:\n  - class: x\n",
		"duplicate key":  "abilities:\n  - key: A\n  - key: A\n",
		"negative delay": "abilities:\n  - key: A\n    base:\n      activation_delay: -1s\n",
		"bad tag":        "abilities:\n  - key: A\n    base:\n      tags: [\"Ability..Crouch\"]\n",
		"bad slide name": "abilities:\n  - key: A\n    slides:\n      \"Pose.\": {}\n",
		"bad duration":   "abilities:\n  - key: A\n    base:\n      update_rate: soon\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAbilityTable([]byte(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSettingsStoreSwapAndDiff(t *testing.T) {
	first, _ := ParseAbilityTable([]byte("abilities:\n  - key: A\n  - key: B\n"))
	second, _ := ParseAbilityTable([]byte("abilities:\n  - key: B\n  - key: C\n"))
	store := NewSettingsStore(first)

	if _, ok := store.AbilitySettings("A"); !ok {
		t.Fatal("A missing from first table")
	}
	if prev := store.Swap(second); prev != first {
		t.Fatal("Swap returned the wrong table")
	}
	if _, ok := store.AbilitySettings("A"); ok {
		t.Fatal("A still served after swap")
	}

	added, removed, kept := Diff(first, second)
	if len(added) != 1 || added[0] != "C" || len(removed) != 1 || removed[0] != "A" || len(kept) != 1 {
		t.Fatalf("added=%v removed=%v kept=%v", added, removed, kept)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ability_list.yaml")
	if err := os.WriteFile(path, []byte("abilities:\n  - key: A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadAbilityTable(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewSettingsStore(tbl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *AbilityTable, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, store, zaptest.NewLogger(t), func(_, next *AbilityTable) {
			select {
			case reloaded <- next:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("abilities:\n  - key: A\n  - key: B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case next := <-reloaded:
		if next.Count() != 2 {
			t.Fatalf("reloaded count = %d", next.Count())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
	if _, ok := store.AbilitySettings("B"); !ok {
		t.Fatal("store not swapped")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
