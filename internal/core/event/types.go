package event

import (
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/ecs"
)

type ActorSpawned struct {
	EntityID ecs.EntityID
	Name     string
}

type ActorDespawned struct {
	EntityID ecs.EntityID
	Name     string
}

// AbilityChanged carries one ability state change of an actor.
type AbilityChanged struct {
	EntityID ecs.EntityID
	Actor    string
	At       time.Time
	Change   ability.Event
}

// SettingsReloaded reports a hot-reloaded ability settings table.
type SettingsReloaded struct {
	Added   []string
	Removed []string
	Kept    []string
}

// AbilityNotice is a message an ability posted through its actor's announcer.
type AbilityNotice struct {
	EntityID ecs.EntityID
	Actor    string
	Ability  string
	Message  string
	At       time.Time
}
