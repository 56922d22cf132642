package canvas3d

import (
	"sync"
)

// ConsoleStats is the snapshot handed to stats providers after a debug
// mode commit.
type ConsoleStats struct {
	Canvas  string
	Stats   Stats
	Timings string
}

// Mode carries the process mode flags and the console stats providers.
// One Mode is shared by every context and canvas it is passed to.
type Mode struct {
	// Debug enables console stats and context loss simulation.
	Debug bool
	// Timing logs commit and render timings.
	Timing bool
	// Production suppresses warnings that only help while developing.
	Production bool

	mu        sync.Mutex
	providers map[int]func(ConsoleStats)
	nextID    int
}

func NewMode() *Mode {
	return &Mode{providers: make(map[int]func(ConsoleStats))}
}

// RegisterStatsProvider adds fn to the providers called with console
// stats. The returned func unregisters it and may be called repeatedly.
func (m *Mode) RegisterStatsProvider(fn func(ConsoleStats)) (unregister func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.providers == nil {
		m.providers = make(map[int]func(ConsoleStats))
	}
	id := m.nextID
	m.nextID++
	m.providers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.providers, id)
		m.mu.Unlock()
	}
}

func (m *Mode) ProviderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.providers)
}

func (m *Mode) publish(s ConsoleStats) {
	m.mu.Lock()
	fns := make([]func(ConsoleStats), 0, len(m.providers))
	for _, fn := range m.providers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
