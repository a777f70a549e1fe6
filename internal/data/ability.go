package data

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
	"gopkg.in/yaml.v3"
)

// AbilityInfo is one ability definition: the class it instantiates and the
// settings looked up by its key.
type AbilityInfo struct {
	Key      string
	Class    string
	Settings ability.Settings
}

// AbilityTable holds ability definitions indexed by key.
type AbilityTable struct {
	byKey map[string]*AbilityInfo
	keys  []string
}

// Get returns the definition for key, or nil if not found.
func (t *AbilityTable) Get(key string) *AbilityInfo {
	return t.byKey[key]
}

// Count returns total loaded abilities.
func (t *AbilityTable) Count() int {
	return len(t.byKey)
}

// Keys returns ability keys in file order.
func (t *AbilityTable) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// AbilitySettings implements ability.SettingsSource.
func (t *AbilityTable) AbilitySettings(key string) (*ability.Settings, bool) {
	info, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return &info.Settings, true
}

// --- YAML loading ---

type abilityEntry struct {
	Key              string `yaml:"key"`
	Class            string `yaml:"class"`
	ability.Settings `yaml:",inline"`
}

type abilityListFile struct {
	Abilities []abilityEntry `yaml:"abilities"`
}

// LoadAbilityTable loads ability_list.yaml.
func LoadAbilityTable(path string) (*AbilityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ability list: %w", err)
	}
	return ParseAbilityTable(raw)
}

// ParseAbilityTable builds a table from ability_list.yaml content.
func ParseAbilityTable(raw []byte) (*AbilityTable, error) {
	var f abilityListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse ability list: %w", err)
	}
	t := &AbilityTable{
		byKey: make(map[string]*AbilityInfo, len(f.Abilities)),
		keys:  make([]string, 0, len(f.Abilities)),
	}
	for i := range f.Abilities {
		e := &f.Abilities[i]
		if e.Key == "" {
			return nil, fmt.Errorf("ability list entry %d: missing key", i)
		}
		if _, dup := t.byKey[e.Key]; dup {
			return nil, fmt.Errorf("ability list: duplicate key %q", e.Key)
		}
		st, err := normalizeSettings(e.Settings)
		if err != nil {
			return nil, fmt.Errorf("ability %q: %w", e.Key, err)
		}
		class := e.Class
		if class == "" {
			class = e.Key
		}
		t.byKey[e.Key] = &AbilityInfo{Key: e.Key, Class: class, Settings: st}
		t.keys = append(t.keys, e.Key)
	}
	return t, nil
}

func normalizeSettings(st ability.Settings) (ability.Settings, error) {
	var err error
	if st.Inputs, err = normalizeTags("inputs", st.Inputs); err != nil {
		return st, err
	}
	if st.OverrideTags, err = normalizeTags("override_tags", st.OverrideTags); err != nil {
		return st, err
	}
	if st.Base, err = normalizeSlide("base", st.Base); err != nil {
		return st, err
	}
	for name, sl := range st.Slides {
		if err := checkTag(name); err != nil {
			return st, fmt.Errorf("slide name: %w", err)
		}
		if st.Slides[name], err = normalizeSlide(string(name), sl); err != nil {
			return st, err
		}
	}
	return st, nil
}

func normalizeSlide(name string, sl ability.SlideSettings) (ability.SlideSettings, error) {
	if sl.ActivationDelay < 0 || sl.UpdateRate < 0 || sl.MaxActiveTime < 0 {
		return sl, fmt.Errorf("slide %s: negative duration", name)
	}
	var err error
	if sl.Tags, err = normalizeTags(name+".tags", sl.Tags); err != nil {
		return sl, err
	}
	if sl.RequiredTags, err = normalizeTags(name+".required_tags", sl.RequiredTags); err != nil {
		return sl, err
	}
	if sl.BlockedTags, err = normalizeTags(name+".blocked_tags", sl.BlockedTags); err != nil {
		return sl, err
	}
	return sl, nil
}

// normalizeTags drops duplicates and rejects malformed tags.
func normalizeTags(field string, c tag.Container) (tag.Container, error) {
	out := make(tag.Container, 0, len(c))
	for _, t := range c {
		if err := checkTag(t); err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = out.With(t)
	}
	return out, nil
}

func checkTag(t tag.Tag) error {
	s := string(t)
	if s == "" || strings.ContainsAny(s, " \t") || strings.HasPrefix(s, ".") ||
		strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return fmt.Errorf("malformed tag %q", s)
	}
	return nil
}

// SettingsStore serves ability settings from the most recently loaded table.
// Reads are safe from the game loop while a watcher swaps tables.
type SettingsStore struct {
	cur atomic.Pointer[AbilityTable]
}

func NewSettingsStore(t *AbilityTable) *SettingsStore {
	s := &SettingsStore{}
	s.cur.Store(t)
	return s
}

// Table returns the current table.
func (s *SettingsStore) Table() *AbilityTable { return s.cur.Load() }

// Swap installs t and returns the previous table.
func (s *SettingsStore) Swap(t *AbilityTable) *AbilityTable { return s.cur.Swap(t) }

// AbilitySettings implements ability.SettingsSource.
func (s *SettingsStore) AbilitySettings(key string) (*ability.Settings, bool) {
	t := s.cur.Load()
	if t == nil {
		return nil, false
	}
	return t.AbilitySettings(key)
}

// Diff returns the keys added, removed or present in both tables, each sorted.
func Diff(prev, next *AbilityTable) (added, removed, kept []string) {
	for k := range next.byKey {
		if _, ok := prev.byKey[k]; ok {
			kept = append(kept, k)
		} else {
			added = append(added, k)
		}
	}
	for k := range prev.byKey {
		if _, ok := next.byKey[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(kept)
	return added, removed, kept
}
