package ability

import (
	"time"

	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap"
)

// Activate starts the ability under key. With a zero activation delay it
// becomes Active immediately; otherwise it is Activating until the delay
// elapses on the scheduler.
func (s *System) Activate(key string, activator Actor) bool {
	if key == "" {
		s.log.Panic("activate: empty key")
	}
	if activator == nil {
		s.log.Panic("activate: nil activator", zapKey(key))
	}
	a, ok := s.find("activate", key)
	if !ok {
		return false
	}
	if a.state != Inactive {
		s.log.Warn("ability already active", zapKey(key), zap.Stringer("state", a.state))
		return false
	}
	// Fresh settings are visible to the gates but only kept once accepted.
	prev := a.settings
	if a.class.SearchSettings {
		settings, ok := s.settingsFor(key, a.class)
		if !ok {
			return false
		}
		a.settings = settings
	}

	base, ok := s.FindSlide(a, LookupAuto, tag.Root)
	if !ok || !s.passesGate(a, tag.Root, base) {
		a.settings = prev
		return false
	}
	if !a.behavior.ValidateActivation(a) {
		s.log.Debug("activation rejected by ability", zapKey(key))
		a.settings = prev
		return false
	}

	if base.ActivationDelay <= 0 {
		s.completeActivation(a, activator)
		return true
	}
	a.state = Activating
	a.pending = pendingActivation
	s.delay.Set(key, base.ActivationDelay, func() { s.completeActivation(a, activator) })
	s.log.Debug("ability activating", zapKey(key), zap.Duration("delay", base.ActivationDelay))
	return true
}

func (s *System) completeActivation(a *Ability, activator Actor) {
	a.pending = pendingNone
	a.state = Active
	s.pool.Append(a.settings.Base.Tags)
	a.baseGranted = true

	s.overrideAbilities(a)
	s.log.Debug("ability active", zapKey(a.key))
	s.emit(Event{Kind: EventActivated, Key: a.key, Class: a.class.Kind, Instigator: activator.Name()})

	a.behavior.OnActivated(a)
	// The hook may have disabled the ability or moved it off the base slide.
	if a.state != Active || a.slide.IsValid() || !a.Valid() {
		return
	}
	s.armUpdate(a, &a.settings.Base)
}

// ChangeSlide moves an Active ability to slide. Returning to the root slide
// skips gating; any other slide must pass its tag gate and the ability's
// slide validation.
func (s *System) ChangeSlide(key string, slide tag.Tag) bool {
	if key == "" {
		s.log.Panic("change slide: empty key")
	}
	a, ok := s.find("slide", key)
	if !ok {
		return false
	}
	return s.changeSlide(a, slide)
}

func (s *System) changeSlide(a *Ability, slide tag.Tag) bool {
	switch a.state {
	case Inactive:
		s.log.Warn("cannot change slide of inactive ability", zapKey(a.key), zap.Stringer("slide", slide))
		return false
	case Activating:
		s.log.Warn("cannot change slide while activating", zapKey(a.key), zap.Stringer("slide", slide))
		return false
	}
	if slide == a.slide {
		s.log.Warn("slide already current", zapKey(a.key), zap.Stringer("slide", slide))
		return false
	}
	target, ok := s.FindSlide(a, LookupAuto, slide)
	if !ok {
		return false
	}
	if slide.IsValid() {
		if !s.passesGate(a, slide, target) {
			return false
		}
		if !a.behavior.ValidateSlideChange(a, slide) {
			s.log.Debug("slide change rejected by ability", zapKey(a.key), zap.Stringer("slide", slide))
			return false
		}
	}

	if a.Updating() {
		s.updates.End(a.key)
		a.flags &^= FlagUpdating
	}
	if target.ActivationDelay <= 0 {
		s.completeSlide(a, slide)
		return true
	}
	a.state = Activating
	a.pending = pendingSlide
	a.pendingTo = slide
	s.delay.Set(a.key, target.ActivationDelay, func() { s.completeSlide(a, slide) })
	s.log.Debug("slide change scheduled", zapKey(a.key), zap.Stringer("slide", slide),
		zap.Duration("delay", target.ActivationDelay))
	return true
}

func (s *System) completeSlide(a *Ability, to tag.Tag) {
	a.pending = pendingNone
	a.pendingTo = tag.Root
	if to.IsValid() && !a.behavior.ValidateSlideChange(a, to) {
		s.log.Warn("slide change rejected on completion", zapKey(a.key), zap.Stringer("slide", to))
		a.state = Active
		s.armUpdate(a, s.MustFindSlide(a, LookupCurrent, tag.Root))
		return
	}

	target := s.MustFindSlide(a, LookupAuto, to)
	from := a.slide
	if from.IsValid() {
		s.pool.Remove(a.slideTags)
		a.slideTags = nil
	}
	if to.IsValid() {
		a.slideTags = target.Tags
		s.pool.Append(a.slideTags)
	}
	s.armUpdate(a, target)
	a.slide = to
	a.state = Active

	a.behavior.OnSlideChanged(a, from, to)
	s.emit(Event{Kind: EventSlideChanged, Key: a.key, Class: a.class.Kind, From: from, To: to})
}

// passesGate checks a slide's tags against the pool: none of its granted or
// blocked tags may be owned, and one of its required tags must be.
func (s *System) passesGate(a *Ability, slide tag.Tag, sl *SlideSettings) bool {
	if s.pool.HasAny(sl.Tags) {
		s.log.Warn("slide tags already owned", zapKey(a.key), zap.Stringer("slide", slide),
			zap.Stringer("tags", sl.Tags))
		return false
	}
	if s.pool.HasAny(sl.BlockedTags) {
		s.log.Warn("slide blocked by owned tags", zapKey(a.key), zap.Stringer("slide", slide),
			zap.Stringer("blocked", sl.BlockedTags))
		return false
	}
	if !sl.RequiredTags.IsEmpty() && !s.pool.HasAny(sl.RequiredTags) {
		s.log.Warn("slide missing required tags", zapKey(a.key), zap.Stringer("slide", slide),
			zap.Stringer("required", sl.RequiredTags))
		return false
	}
	return true
}

func (s *System) armUpdate(a *Ability, sl *SlideSettings) {
	if !sl.NeedsUpdate() {
		return
	}
	a.flags |= FlagUpdating
	s.updates.Reset(a.key, sl.rate(), sl.MaxActiveTime)
}

// overrideAbilities disables every other running ability whose base tags,
// or current custom slide tags, match the overrider's override tags.
func (s *System) overrideAbilities(overrider *Ability) {
	over := overrider.settings.OverrideTags
	if over.IsEmpty() {
		return
	}
	for _, k := range s.snapshot() {
		other, ok := s.abilities[k]
		if !ok || other == overrider || other.state == Inactive {
			continue
		}
		if other.settings.Base.Tags.HasAny(over) {
			s.disable(other, ReasonOverridden, overrider, tag.Root)
			continue
		}
		if !other.slide.IsValid() {
			continue
		}
		if cur, ok := s.FindSlide(other, LookupCurrent, tag.Root); ok && cur.Tags.HasAny(over) {
			s.disable(other, ReasonOverridden, overrider, tag.Root)
		}
	}
}

// ForceDisable stops the ability under key with ReasonForced.
func (s *System) ForceDisable(key string, disabler Actor, cause tag.Tag) bool {
	if key == "" {
		s.log.Panic("force disable: empty key")
	}
	if disabler == nil {
		s.log.Panic("force disable: nil disabler", zapKey(key))
	}
	a, ok := s.find("disable", key)
	if !ok {
		return false
	}
	return s.disable(a, ReasonForced, disabler, cause)
}

func (s *System) disable(a *Ability, reason DisableReason, disabler Actor, cause tag.Tag) bool {
	if a.state == Inactive {
		s.log.Warn("ability already inactive", zapKey(a.key), zap.Stringer("reason", reason))
		return false
	}
	if a.pending != pendingNone {
		s.delay.Remove(a.key)
	}
	if a.Updating() {
		s.updates.End(a.key)
	}
	if a.baseGranted {
		s.pool.Remove(a.settings.Base.Tags)
		a.baseGranted = false
	}
	if a.slide.IsValid() {
		s.pool.Remove(a.slideTags)
		a.slideTags = nil
	}
	a.flags = 0
	a.slide = tag.Root
	a.state = Inactive
	a.pending = pendingNone
	a.pendingTo = tag.Root

	s.log.Debug("ability disabled", zapKey(a.key), zap.Stringer("reason", reason),
		zap.Stringer("cause", cause), zap.String("disabler", disabler.Name()))
	a.behavior.OnDisabled(a, reason, cause, disabler)
	s.emit(Event{
		Kind:       EventDisabled,
		Key:        a.key,
		Class:      a.class.Kind,
		Instigator: disabler.Name(),
		Reason:     reason,
		Cause:      cause,
	})
	return true
}

func (s *System) onUpdate(key string, dt time.Duration) (tag.Tag, bool) {
	a, ok := s.abilities[key]
	if !ok || a.state != Active {
		s.log.Warn("update task without an active ability", zapKey(key))
		return tag.Root, true
	}
	reason := a.behavior.Update(a, dt)
	return reason, reason.IsValid()
}

// onUpdateComplete runs after the update task is gone. An ability on its
// base slide is disabled; one on a custom slide returns to the base slide.
func (s *System) onUpdateComplete(key string, forced bool, reason tag.Tag) {
	a, ok := s.abilities[key]
	if !ok || a.state != Active {
		return
	}
	a.flags &^= FlagUpdating
	if forced {
		s.log.Debug("max active time reached", zapKey(key), zap.Stringer("slide", a.slide))
	}
	if !a.slide.IsValid() {
		s.disable(a, ReasonFromUpdate, a, reason)
		return
	}
	s.changeSlide(a, tag.Root)
}
