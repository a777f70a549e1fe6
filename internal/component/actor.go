package component

import (
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/movement"
)

// Actor names an entity that owns abilities.
// Pure data; all mutations happen in System functions.
type Actor struct {
	Name      string
	SpawnedAt time.Time
	Paused    bool
}

// Abilities links an entity to its ability system.
type Abilities struct {
	System *ability.System
}

// Movement links an entity to the movement state its abilities edit.
type Movement struct {
	State *movement.Component
}
