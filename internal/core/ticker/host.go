package ticker

import "time"

// Handle identifies a tick function registered on a Host. Zero is never issued.
type Handle uint64

// Host is the frame clock that ticks registered functions. The game loop owns
// one Host and advances it once per frame; managers register themselves only
// while they have work.
type Host struct {
	next    Handle
	order   []Handle
	entries map[Handle]*hostEntry
	scratch []Handle
}

type hostEntry struct {
	interval time.Duration
	elapsed  time.Duration
	fn       func(dt time.Duration) bool
}

func NewHost() *Host {
	return &Host{
		order:   make([]Handle, 0, 8),
		entries: make(map[Handle]*hostEntry, 8),
	}
}

// Add registers fn to run every interval of accumulated frame time. fn
// receives the accumulated delta; returning false unregisters it.
func (h *Host) Add(fn func(dt time.Duration) bool, interval time.Duration) Handle {
	h.next++
	id := h.next
	h.entries[id] = &hostEntry{interval: interval, fn: fn}
	h.order = append(h.order, id)
	return id
}

// Remove unregisters id. Removing an unknown handle is a no-op.
func (h *Host) Remove(id Handle) bool {
	if _, ok := h.entries[id]; !ok {
		return false
	}
	delete(h.entries, id)
	for i, x := range h.order {
		if x == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return true
}

func (h *Host) Active(id Handle) bool {
	_, ok := h.entries[id]
	return ok
}

func (h *Host) Len() int { return len(h.entries) }

// Tick advances every registered function by dt. Functions added during the
// tick first run on the next one.
func (h *Host) Tick(dt time.Duration) {
	h.scratch = append(h.scratch[:0], h.order...)
	for _, id := range h.scratch {
		e, ok := h.entries[id]
		if !ok {
			continue // removed by an earlier function this frame
		}
		e.elapsed += dt
		if e.elapsed < e.interval {
			continue
		}
		step := e.elapsed
		e.elapsed = 0
		if !e.fn(step) {
			h.Remove(id)
		}
	}
}
