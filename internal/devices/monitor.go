//go:build linux

package devices

import (
	"context"
	"log/slog"
	"time"

	"github.com/camnode/camnode/internal/events"
)

// Monitor polls the device list and publishes discovery events when
// capture nodes appear or vanish. Polling keeps the dependency surface
// small; hotplug latency is bounded by the interval.
type Monitor struct {
	bus      *events.Bus
	logger   *slog.Logger
	interval time.Duration

	known map[string]Info
}

// NewMonitor creates a monitor publishing on bus. Interval zero means
// 2s.
func NewMonitor(bus *events.Bus, logger *slog.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Monitor{
		bus:      bus,
		logger:   logger,
		interval: interval,
		known:    make(map[string]Info),
	}
}

// Run polls until the context is canceled. The first poll seeds the
// known set without publishing, so startup does not spray "added"
// events for devices that were always there.
func (m *Monitor) Run(ctx context.Context) {
	if devs, err := Discover(); err == nil {
		for _, d := range devs {
			m.known[d.Path] = d
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	devs, err := Discover()
	if err != nil {
		m.logger.Warn("device discovery failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(devs))
	for _, d := range devs {
		seen[d.Path] = true
		if _, ok := m.known[d.Path]; !ok {
			m.known[d.Path] = d
			m.logger.Info("device appeared", "path", d.Path, "card", d.Card)
			m.bus.Publish(events.DeviceDiscoveryEvent{
				Path:      d.Path,
				Card:      d.Card,
				Action:    "added",
				Timestamp: time.Now(),
			})
		}
	}

	for path, d := range m.known {
		if !seen[path] {
			delete(m.known, path)
			m.logger.Info("device vanished", "path", path, "card", d.Card)
			m.bus.Publish(events.DeviceDiscoveryEvent{
				Path:      path,
				Card:      d.Card,
				Action:    "removed",
				Timestamp: time.Now(),
			})
		}
	}
}
