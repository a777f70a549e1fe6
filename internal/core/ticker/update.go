package ticker

import (
	"time"

	"github.com/stridepath/server/internal/core/tag"
)

const UpdateModuleName = "update"

// UpdateTask is one periodic registration. Rate 0 means every tick; MaxActive
// 0 means unbounded.
type UpdateTask struct {
	Rate         time.Duration
	MaxActive    time.Duration
	LoopElapsed  time.Duration
	TotalElapsed time.Duration
}

// UpdateFunc runs a registration's update. Returning done ends it with reason.
type UpdateFunc func(key string, dt time.Duration) (reason tag.Tag, done bool)

// CompleteFunc is told about a finished registration after the task has been
// removed. forced is set when MaxActive ran out.
type CompleteFunc func(key string, forced bool, reason tag.Tag)

type completion struct {
	key    string
	task   *UpdateTask
	forced bool
	reason tag.Tag
}

// UpdateModule drives periodic per-key updates bounded by a max active time.
// Completions are applied in a second pass after the scan.
type UpdateModule struct {
	Base
	OnUpdate   UpdateFunc
	OnComplete CompleteFunc

	tasks   map[string]*UpdateTask
	order   []string
	keys    []string
	pending []completion
}

func NewUpdateModule(onUpdate UpdateFunc, onComplete CompleteFunc) *UpdateModule {
	return &UpdateModule{
		OnUpdate:   onUpdate,
		OnComplete: onComplete,
		tasks:      make(map[string]*UpdateTask, 8),
	}
}

func (m *UpdateModule) Name() string { return UpdateModuleName }

func (m *UpdateModule) NeedsUpdate() bool { return len(m.tasks) > 0 }

// Start registers key unless it is already registered.
func (m *UpdateModule) Start(key string, rate, maxActive time.Duration) bool {
	if _, ok := m.tasks[key]; ok {
		return false
	}
	m.Reset(key, rate, maxActive)
	return true
}

// Reset (re)registers key with fresh accumulators.
func (m *UpdateModule) Reset(key string, rate, maxActive time.Duration) {
	if _, ok := m.tasks[key]; ok {
		m.drop(key)
	}
	m.StartTicker()
	m.tasks[key] = &UpdateTask{Rate: rate, MaxActive: maxActive}
	m.order = append(m.order, key)
}

// End removes key. Unknown keys are a no-op.
func (m *UpdateModule) End(key string) bool {
	if _, ok := m.tasks[key]; !ok {
		return false
	}
	m.drop(key)
	m.ReleaseIfIdle(m)
	return true
}

// Task returns a copy of the registration under key.
func (m *UpdateModule) Task(key string) (UpdateTask, bool) {
	t, ok := m.tasks[key]
	if !ok {
		return UpdateTask{}, false
	}
	return *t, true
}

func (m *UpdateModule) Len() int { return len(m.tasks) }

func (m *UpdateModule) Tick(dt time.Duration) {
	m.pending = m.pending[:0]
	m.keys = append(m.keys[:0], m.order...)
	for _, key := range m.keys {
		t, ok := m.tasks[key]
		if !ok {
			continue // ended by an update hook earlier in this tick
		}
		t.TotalElapsed += dt
		t.LoopElapsed += dt

		if t.MaxActive != 0 && t.TotalElapsed >= t.MaxActive {
			m.pending = append(m.pending, completion{key: key, task: t, forced: true})
			continue
		}
		if t.LoopElapsed < t.Rate {
			continue
		}
		t.LoopElapsed = 0
		if m.OnUpdate == nil {
			continue
		}
		if reason, done := m.OnUpdate(key, dt); done {
			m.pending = append(m.pending, completion{key: key, task: t, reason: reason})
		}
	}

	completed := false
	for _, c := range m.pending {
		if cur, ok := m.tasks[c.key]; !ok || cur != c.task {
			continue // already ended or re-registered
		}
		m.drop(c.key)
		completed = true
		if m.OnComplete != nil {
			m.OnComplete(c.key, c.forced, c.reason)
		}
	}
	m.pending = m.pending[:0]
	// Only a removal releases the ticker; an idle auto-started ticker is
	// left to the leak check.
	if completed {
		m.ReleaseIfIdle(m)
	}
}

func (m *UpdateModule) drop(key string) {
	delete(m.tasks, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
