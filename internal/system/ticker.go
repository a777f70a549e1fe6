package system

import (
	"time"

	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/core/ticker"
)

// TickerSystem advances the shared scheduler host, which runs every actor's
// delay and update modules. Phase 2 (Update).
type TickerSystem struct {
	host *ticker.Host
}

func NewTickerSystem(host *ticker.Host) *TickerSystem {
	return &TickerSystem{host: host}
}

func (s *TickerSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TickerSystem) Update(dt time.Duration) {
	s.host.Tick(dt)
}
