package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain console intents and reloads
	PhasePreUpdate               // 1: apply queued movement edits
	PhaseUpdate                  // 2: advance ability schedulers
	PhasePostUpdate              // 3: dispatch last tick's events
	PhaseOutput                  // 4: status output
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: destroy queued entities
)

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
