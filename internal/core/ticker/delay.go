package ticker

import "time"

const DelayModuleName = "delay"

type delayedTask struct {
	remaining time.Duration
	fn        func()
}

type dueTask struct {
	key  string
	task *delayedTask
}

// DelayModule holds one-shot callbacks keyed by name. Due callbacks are
// collected first and fired after the scan; a task cancelled or replaced by an
// earlier callback in the same batch does not fire.
type DelayModule struct {
	Base
	tasks map[string]*delayedTask
	order []string
	due   []dueTask
}

func NewDelayModule() *DelayModule {
	return &DelayModule{tasks: make(map[string]*delayedTask, 8)}
}

func (m *DelayModule) Name() string { return DelayModuleName }

func (m *DelayModule) NeedsUpdate() bool { return len(m.tasks) > 0 }

// Add schedules fn after delay. Returns false if key is already pending.
func (m *DelayModule) Add(key string, delay time.Duration, fn func()) bool {
	if _, ok := m.tasks[key]; ok {
		return false
	}
	m.Set(key, delay, fn)
	return true
}

// Set schedules fn after delay, replacing any pending task under key.
func (m *DelayModule) Set(key string, delay time.Duration, fn func()) {
	if _, ok := m.tasks[key]; ok {
		m.drop(key)
	}
	m.StartTicker()
	m.tasks[key] = &delayedTask{remaining: delay, fn: fn}
	m.order = append(m.order, key)
}

// Remove cancels the task under key. Unknown keys are a no-op.
func (m *DelayModule) Remove(key string) bool {
	if _, ok := m.tasks[key]; !ok {
		return false
	}
	m.drop(key)
	m.ReleaseIfIdle(m)
	return true
}

// Pending returns the remaining delay for key.
func (m *DelayModule) Pending(key string) (time.Duration, bool) {
	t, ok := m.tasks[key]
	if !ok {
		return 0, false
	}
	return t.remaining, true
}

func (m *DelayModule) Len() int { return len(m.tasks) }

func (m *DelayModule) Tick(dt time.Duration) {
	m.due = m.due[:0]
	for _, key := range m.order {
		t := m.tasks[key]
		t.remaining -= dt
		if t.remaining <= 0 {
			m.due = append(m.due, dueTask{key: key, task: t})
		}
	}
	fired := false
	for _, d := range m.due {
		if cur, ok := m.tasks[d.key]; !ok || cur != d.task {
			continue
		}
		m.drop(d.key)
		d.task.fn()
		fired = true
	}
	m.due = m.due[:0]
	if fired {
		m.ReleaseIfIdle(m)
	}
}

func (m *DelayModule) drop(key string) {
	delete(m.tasks, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
