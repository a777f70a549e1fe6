package ticker

import (
	"time"

	"go.uber.org/zap"
)

// Config controls a Manager's timer and lifecycle behaviour.
type Config struct {
	UseCleanup      bool
	CleanupInterval time.Duration
	TickInterval    time.Duration
	AutoStart       []Event
	AutoStop        []Event
}

func DefaultConfig() Config {
	return Config{
		UseCleanup:      true,
		CleanupInterval: 30 * time.Second,
		TickInterval:    time.Millisecond,
	}
}

// Manager owns a set of modules and a single Host registration that exists
// only while some module has work. A periodic leak check inside the tick
// stops a registration that outlived its work.
type Manager struct {
	host    *Host
	cfg     Config
	log     *zap.Logger
	handle  Handle
	modules map[string]Module
	order   []string
	paused  bool

	cleanupElapsed time.Duration
}

// NewManager creates a stopped manager and applies the init lifecycle event.
func NewManager(host *Host, cfg Config, log *zap.Logger) *Manager {
	m := &Manager{
		host:    host,
		cfg:     cfg,
		log:     log,
		modules: make(map[string]Module, 4),
		order:   make([]string, 0, 4),
	}
	m.Notify(EventInit)
	return m
}

// Register adds mod under its name and attaches it to the manager.
func (m *Manager) Register(mod Module) bool {
	name := mod.Name()
	if _, ok := m.modules[name]; ok {
		m.log.Warn("ticker module already registered", zap.String("module", name))
		return false
	}
	mod.Attach(m)
	m.modules[name] = mod
	m.order = append(m.order, name)
	return true
}

func (m *Manager) Module(name string) (Module, bool) {
	mod, ok := m.modules[name]
	if !ok {
		m.log.Warn("ticker module not found", zap.String("module", name))
	}
	return mod, ok
}

// Modules returns module names in registration order.
func (m *Manager) Modules() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Manager) Running() bool {
	return m.handle != 0 && m.host.Active(m.handle)
}

func (m *Manager) Paused() bool { return m.paused }

// TryStart registers the manager on its host. No-op when already running.
func (m *Manager) TryStart() {
	if m.Running() {
		return
	}
	m.cleanupElapsed = 0
	m.handle = m.host.Add(m.tick, m.cfg.TickInterval)
	m.log.Debug("ticker started")
}

// TryStop stops the ticker unless a module other than requester still needs
// updates. A nil requester checks every module.
func (m *Manager) TryStop(requester Module) bool {
	if m.RequiresTicking(requester) {
		if requester != nil {
			m.log.Debug("ticker still in use", zap.String("requester", requester.Name()))
		} else {
			m.log.Warn("cannot stop ticker: modules still have work")
		}
		return false
	}
	return m.Stop()
}

// Stop unregisters the ticker regardless of module demand.
func (m *Manager) Stop() bool {
	if !m.Running() {
		m.handle = 0
		return false
	}
	m.host.Remove(m.handle)
	m.handle = 0
	m.log.Debug("ticker stopped")
	return true
}

// RequiresTicking reports whether any module except ignore needs updates.
func (m *Manager) RequiresTicking(ignore Module) bool {
	for _, name := range m.order {
		if ignore != nil && name == ignore.Name() {
			continue
		}
		if m.modules[name].NeedsUpdate() {
			return true
		}
	}
	return false
}

func (m *Manager) tick(dt time.Duration) bool {
	for _, name := range m.order {
		mod := m.modules[name]
		if m.paused {
			if pa, ok := mod.(PauseAware); !ok || !pa.TickWhilePaused() {
				continue
			}
		}
		mod.Tick(dt)
	}
	return !m.cleanup(dt)
}

// cleanup reports true when the leak check forced the ticker off.
func (m *Manager) cleanup(dt time.Duration) bool {
	if !m.Running() || !m.cfg.UseCleanup {
		return false
	}
	m.cleanupElapsed += dt
	if m.cleanupElapsed < m.cfg.CleanupInterval {
		return false
	}
	m.cleanupElapsed = 0
	if m.RequiresTicking(nil) {
		return false
	}
	m.log.Error("ticker leak: running without active tasks, forcibly stopped")
	m.handle = 0
	return true
}

// Notify applies the auto start/stop rules for ev and forwards it to modules.
func (m *Manager) Notify(ev Event) {
	if containsEvent(m.cfg.AutoStart, ev) {
		m.TryStart()
	}
	if containsEvent(m.cfg.AutoStop, ev) {
		m.Stop()
	}
	for _, name := range m.order {
		if obs, ok := m.modules[name].(LifecycleObserver); ok {
			obs.OnLifecycle(ev)
		}
	}
}

// SetPaused records the pause state and emits paused/unpaused.
func (m *Manager) SetPaused(paused bool) {
	m.paused = paused
	if paused {
		m.Notify(EventPaused)
		return
	}
	m.Notify(EventUnpaused)
}

func containsEvent(set []Event, ev Event) bool {
	for _, e := range set {
		if e == ev {
			return true
		}
	}
	return false
}
