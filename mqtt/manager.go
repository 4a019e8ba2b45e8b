package mqtt

import (
	"sync"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/publish"
)

// Manager manages multiple MQTT publishers.
type Manager struct {
	namespace         string
	publishers        map[string]*Publisher
	mu                sync.RWMutex
	writeHandler      publish.WriteHandler
	onConnectCallback func()
}

// NewManager creates a manager whose publishers use namespace ns.
func NewManager(ns string) *Manager {
	return &Manager{
		namespace:  ns,
		publishers: make(map[string]*Publisher),
	}
}

// Add adds a publisher for cfg and applies the current callbacks to it.
func (m *Manager) Add(cfg *config.MQTTConfig) *Publisher {
	pub := NewPublisher(cfg, m.namespace)

	m.mu.Lock()
	m.publishers[pub.Name()] = pub
	handler := m.writeHandler
	onConnect := m.onConnectCallback
	m.mu.Unlock()

	if handler != nil {
		pub.SetWriteHandler(handler)
	}
	if onConnect != nil {
		pub.SetOnConnectCallback(onConnect)
	}
	return pub
}

// Remove stops and removes a publisher by name.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	pub, exists := m.publishers[name]
	if exists {
		delete(m.publishers, name)
	}
	m.mu.Unlock()

	if exists {
		pub.Stop()
	}
	return exists
}

// Get returns a publisher by name.
func (m *Manager) Get(name string) *Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publishers[name]
}

// List returns all publishers.
func (m *Manager) List() []*Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		result = append(result, pub)
	}
	return result
}

// StartAll starts the publishers configured as enabled and returns how many
// connected.
func (m *Manager) StartAll() int {
	started := 0
	for _, pub := range m.List() {
		if pub.config.Enabled && !pub.IsRunning() {
			debugLog("Auto-starting MQTT publisher: %s", pub.Name())
			if err := pub.Start(); err != nil {
				debugLog("Failed to auto-start %s: %v", pub.Name(), err)
			} else {
				debugLog("Successfully started %s (%s)", pub.Name(), pub.Address())
				started++
			}
		}
	}
	return started
}

// StopAll stops all publishers.
func (m *Manager) StopAll() {
	for _, pub := range m.List() {
		pub.Stop()
	}
}

// Publish sends msg to every running publisher.
func (m *Manager) Publish(msg publish.Message, force bool) {
	pubs := m.List()
	if len(pubs) == 0 {
		return
	}

	runningCount := 0
	for _, pub := range pubs {
		if pub.IsRunning() {
			runningCount++
			pub.Publish(msg, force)
		}
	}
	if runningCount == 0 {
		debugLog("Manager.Publish: no publishers running")
	}
}

// AnyRunning returns true if any publisher is running.
func (m *Manager) AnyRunning() bool {
	for _, pub := range m.List() {
		if pub.IsRunning() {
			return true
		}
	}
	return false
}

// LoadFromConfig creates publishers from configuration.
func (m *Manager) LoadFromConfig(cfgs []config.MQTTConfig) {
	for i := range cfgs {
		m.Add(&cfgs[i])
	}
}

// SetWriteHandler sets the write handler for all publishers.
func (m *Manager) SetWriteHandler(handler publish.WriteHandler) {
	m.mu.Lock()
	m.writeHandler = handler
	m.mu.Unlock()

	for _, pub := range m.List() {
		pub.SetWriteHandler(handler)
	}
}

// SetOnConnectCallback sets the connect callback for all publishers.
func (m *Manager) SetOnConnectCallback(callback func()) {
	m.mu.Lock()
	m.onConnectCallback = callback
	m.mu.Unlock()

	for _, pub := range m.List() {
		pub.SetOnConnectCallback(callback)
	}
}
