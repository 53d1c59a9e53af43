package coordinator

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Manager keeps one running coordinator per driver. Coordinators are
// created lazily on first use and torn down when the driver disconnects
// for good.
type Manager struct {
	mu           sync.Mutex
	coordinators map[primitive.ObjectID]*Coordinator
	deps         Deps
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		coordinators: make(map[primitive.ObjectID]*Coordinator),
		deps:         deps,
	}
}

// Coordinator returns the driver's coordinator, starting one if needed.
func (m *Manager) Coordinator(driverID primitive.ObjectID) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.coordinators[driverID]; ok {
		return c
	}

	c := New(driverID, m.deps)
	m.coordinators[driverID] = c
	go c.Run()
	return c
}

// Teardown stops and removes the driver's coordinator if one is running.
func (m *Manager) Teardown(driverID primitive.ObjectID) {
	m.mu.Lock()
	c, ok := m.coordinators[driverID]
	if ok {
		delete(m.coordinators, driverID)
	}
	m.mu.Unlock()

	if ok {
		c.Stop()
	}
}

// Shutdown stops every running coordinator.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	running := make([]*Coordinator, 0, len(m.coordinators))
	for _, c := range m.coordinators {
		running = append(running, c)
	}
	m.coordinators = make(map[primitive.ObjectID]*Coordinator)
	m.mu.Unlock()

	for _, c := range running {
		c.Stop()
	}
}
