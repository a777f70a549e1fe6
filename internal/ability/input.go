package ability

import (
	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap"
)

// AddInput delivers input to every Active ability that lists it. Returns
// false when no ability took it.
func (s *System) AddInput(input tag.Tag, ev TriggerEvent) bool {
	return s.dispatchInput(input, ev, func(a *Ability) {
		a.behavior.OnInput(a, input, ev)
	})
}

// AddInputVector is AddInput with a world-space direction.
func (s *System) AddInputVector(input tag.Tag, ev TriggerEvent, v Vector) bool {
	return s.dispatchInput(input, ev, func(a *Ability) {
		a.behavior.OnInputVector(a, input, ev, v)
	})
}

func (s *System) dispatchInput(input tag.Tag, ev TriggerEvent, deliver func(*Ability)) bool {
	if !input.IsValid() {
		s.log.Panic("add input: empty input tag")
	}
	called := false
	for _, k := range s.snapshot() {
		a, ok := s.abilities[k]
		if !ok || a.state != Active || !a.settings.Inputs.HasExact(input) {
			continue
		}
		deliver(a)
		called = true
	}
	if !called {
		s.log.Error("no ability handles input", zap.Stringer("input", input), zap.Stringer("event", ev))
	}
	return called
}
