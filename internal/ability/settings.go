package ability

import (
	"time"

	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap"
)

// SlideSettings describe one slide. The base slide's RequiredTags and
// BlockedTags are checked only on initial activation.
type SlideSettings struct {
	ActivationDelay time.Duration `yaml:"activation_delay"`
	UpdateRate      time.Duration `yaml:"update_rate"`
	EveryTick       bool          `yaml:"every_tick"`
	MaxActiveTime   time.Duration `yaml:"max_active_time"`
	Tags            tag.Container `yaml:"tags"`
	RequiredTags    tag.Container `yaml:"required_tags"`
	BlockedTags     tag.Container `yaml:"blocked_tags"`
}

// NeedsUpdate reports whether entering this slide arms a periodic update.
func (s *SlideSettings) NeedsUpdate() bool {
	return s.EveryTick || s.UpdateRate > 0
}

func (s *SlideSettings) rate() time.Duration {
	if s.EveryTick {
		return 0
	}
	return s.UpdateRate
}

// Settings is the full configuration of an ability.
type Settings struct {
	ActivateOnGrant bool                      `yaml:"activate_on_grant"`
	Inputs          tag.Container             `yaml:"inputs"`
	Base            SlideSettings             `yaml:"base"`
	OverrideTags    tag.Container             `yaml:"override_tags"`
	Slides          map[tag.Tag]SlideSettings `yaml:"slides"`
}

// SettingsSource resolves settings by ability key for classes that opt into
// lookup. Returned settings are shared and must not be mutated.
type SettingsSource interface {
	AbilitySettings(key string) (*Settings, bool)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func(key string) (*Settings, bool)

func (f SettingsFunc) AbilitySettings(key string) (*Settings, bool) { return f(key) }

// LookupMode selects which slide settings FindSlide resolves.
type LookupMode uint8

const (
	// LookupAuto resolves base settings for the root slide, else the named slide.
	LookupAuto LookupMode = iota
	LookupBase
	LookupCustom
	// LookupCurrent resolves the ability's current slide.
	LookupCurrent
)

func (m LookupMode) String() string {
	switch m {
	case LookupAuto:
		return "auto"
	case LookupBase:
		return "base"
	case LookupCustom:
		return "custom"
	case LookupCurrent:
		return "current"
	}
	return "unknown"
}

func (s *Settings) custom(slide tag.Tag) (*SlideSettings, bool) {
	sl, ok := s.Slides[slide]
	if !ok {
		return nil, false
	}
	return &sl, true
}

func (s *System) resolveSlide(a *Ability, mode LookupMode, slide tag.Tag) (*SlideSettings, bool) {
	switch mode {
	case LookupBase:
		return &a.settings.Base, true
	case LookupCustom:
		return a.settings.custom(slide)
	case LookupCurrent:
		if !a.slide.IsValid() {
			return &a.settings.Base, true
		}
		return a.settings.custom(a.slide)
	default:
		if !slide.IsValid() {
			return &a.settings.Base, true
		}
		return a.settings.custom(slide)
	}
}

// FindSlide resolves slide settings for a. A miss is logged and reported.
func (s *System) FindSlide(a *Ability, mode LookupMode, slide tag.Tag) (*SlideSettings, bool) {
	sl, ok := s.resolveSlide(a, mode, slide)
	if !ok {
		s.log.Warn("slide settings not found",
			zapKey(a.key), zap.Stringer("mode", mode), zap.Stringer("slide", slide))
	}
	return sl, ok
}

// MustFindSlide is FindSlide for callers that guarantee the slide exists.
// A miss is a programming error and panics.
func (s *System) MustFindSlide(a *Ability, mode LookupMode, slide tag.Tag) *SlideSettings {
	sl, ok := s.resolveSlide(a, mode, slide)
	if !ok {
		s.log.Panic("slide settings must exist",
			zapKey(a.key), zap.Stringer("mode", mode), zap.Stringer("slide", slide))
	}
	return sl
}
