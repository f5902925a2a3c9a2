package led

import (
	"log/slog"
	"sync"

	"github.com/camnode/camnode/internal/events"
)

// Manager subscribes to stream state events and drives a capture
// indicator LED: heartbeat while idle, solid while frames are flowing.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	ledType     string
	unsubscribe func()
	logger      *slog.Logger

	mu        sync.Mutex
	streaming bool
}

// NewManager creates a new LED manager that reacts to stream state changes
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	ledType := "system"
	if available := controller.Available(); len(available) > 0 {
		ledType = available[0]
	}
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		ledType:    ledType,
		logger:     logger,
	}
}

// Start begins listening for stream state change events
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.StreamStateEvent) {
		m.handleEvent(e)
	})
	m.updateLED()
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop stops the LED manager and unsubscribes from events
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if err := m.controller.Set(m.ledType, false, "none"); err != nil {
		m.logger.Debug("Failed to turn off LED", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleEvent(event events.StreamStateEvent) {
	m.mu.Lock()
	m.streaming = event.Streaming
	m.mu.Unlock()

	m.logger.Debug("Stream state changed",
		"camera", event.Camera,
		"streaming", event.Streaming)

	m.updateLED()
}

func (m *Manager) updateLED() {
	m.mu.Lock()
	streaming := m.streaming
	m.mu.Unlock()

	if streaming {
		if err := m.controller.Set(m.ledType, true, "solid"); err != nil {
			m.logger.Warn("Failed to set LED to solid", "error", err)
		}
		return
	}
	if err := m.controller.Set(m.ledType, true, "blink"); err != nil {
		m.logger.Warn("Failed to set LED to blink", "error", err)
	}
}
