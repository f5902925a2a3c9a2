package led

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/events"
)

// Mock controller for testing
type mockController struct {
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{"solid", "blink"}
}

func (m *mockController) lastCall(t *testing.T) setCall {
	t.Helper()
	if len(m.setCalls) == 0 {
		t.Fatal("No LED control calls made")
	}
	return m.setCalls[len(m.setCalls)-1]
}

func TestManager_StreamingSolid(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.StreamStateEvent{
		Camera:    "test_cam",
		Streaming: true,
		Timestamp: time.Now(),
	})

	// Give manager time to process
	time.Sleep(50 * time.Millisecond)

	last := ctrl.lastCall(t)
	if last.pattern != "solid" || !last.enabled {
		t.Errorf("Expected solid pattern while streaming, got %+v", last)
	}
	if last.ledType != "system" {
		t.Errorf("Expected first available LED, got %q", last.ledType)
	}
}

func TestManager_IdleBlink(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.StreamStateEvent{
		Camera:    "test_cam",
		Streaming: true,
		Timestamp: time.Now(),
	})
	eventBus.Publish(events.StreamStateEvent{
		Camera:    "test_cam",
		Streaming: false,
		Timestamp: time.Now(),
	})

	// Give manager time to process
	time.Sleep(50 * time.Millisecond)

	last := ctrl.lastCall(t)
	if last.pattern != "blink" {
		t.Errorf("Expected blink pattern when idle, got %+v", last)
	}
}

func TestManager_StopTurnsOff(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	mgr.Stop()

	last := ctrl.lastCall(t)
	if last.enabled {
		t.Errorf("Expected LED off after stop, got %+v", last)
	}
}
