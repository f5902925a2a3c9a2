//go:build linux

package devices

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/v4l2"
)

func TestDiscoverFiltersNonCaptureNodes(t *testing.T) {
	origProbe, origList := probe, listNodes
	defer func() { probe, listNodes = origProbe, origList }()

	listNodes = func() ([]string, error) {
		return []string{"/dev/video2", "/dev/video0", "/dev/video1"}, nil
	}
	probe = func(path string) (v4l2.Capability, error) {
		switch path {
		case "/dev/video0":
			return v4l2.Capability{Card: "Webcam", Driver: "uvcvideo", CanStream: true}, nil
		case "/dev/video1":
			// metadata node of the same camera
			return v4l2.Capability{Card: "Webcam", CanStream: false}, nil
		default:
			return v4l2.Capability{}, errors.New("open failed")
		}
	}

	devs, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("got %d devices, want 1: %+v", len(devs), devs)
	}
	if devs[0].Path != "/dev/video0" || devs[0].Card != "Webcam" {
		t.Errorf("devs[0] = %+v", devs[0])
	}
}

func TestDiscoverNoDevices(t *testing.T) {
	origList := listNodes
	defer func() { listNodes = origList }()

	listNodes = func() ([]string, error) { return nil, nil }
	devs, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(devs) != 0 {
		t.Errorf("devs = %+v", devs)
	}
}

func TestResolvePathPassthrough(t *testing.T) {
	got, err := ResolvePath("/dev/video0")
	if err != nil || got != "/dev/video0" {
		t.Errorf("ResolvePath = %q, %v", got, err)
	}
}

func TestResolvePathUnknownID(t *testing.T) {
	if _, err := ResolvePath("usb-definitely-not-plugged-in-0"); err == nil {
		t.Error("expected error for unknown device ID")
	}
}

func TestResolvePathByID(t *testing.T) {
	// Only meaningful on systems with the by-id tree.
	if _, err := os.Stat("/dev/v4l/by-id"); err != nil {
		t.Skip("no /dev/v4l/by-id on this system")
	}
	entries, err := filepath.Glob("/dev/v4l/by-id/usb-*")
	if err != nil || len(entries) == 0 {
		t.Skip("no usb capture devices present")
	}
	id := filepath.Base(entries[0])
	got, err := ResolvePath(id)
	if err != nil {
		t.Fatalf("ResolvePath(%q): %v", id, err)
	}
	if got != entries[0] {
		t.Errorf("got %q, want %q", got, entries[0])
	}
}

func TestMonitorPublishesChanges(t *testing.T) {
	origProbe, origList := probe, listNodes
	defer func() { probe, listNodes = origProbe, origList }()

	probe = func(path string) (v4l2.Capability, error) {
		return v4l2.Capability{Card: "Cam " + path, CanStream: true}, nil
	}

	var mu sync.Mutex
	nodes := []string{"/dev/video0"}
	listNodes = func() ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), nodes...), nil
	}

	bus := events.New()
	got := make(chan events.DeviceDiscoveryEvent, 8)
	unsub := bus.Subscribe(func(e events.DeviceDiscoveryEvent) { got <- e })
	defer unsub()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMonitor(bus, logger, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// The seed poll must not publish for pre-existing nodes.
	select {
	case e := <-got:
		t.Fatalf("unexpected event for seeded device: %+v", e)
	case <-time.After(30 * time.Millisecond):
	}

	mu.Lock()
	nodes = []string{"/dev/video0", "/dev/video2"}
	mu.Unlock()

	select {
	case e := <-got:
		if e.Action != "added" || e.Path != "/dev/video2" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for added event")
	}

	mu.Lock()
	nodes = []string{"/dev/video0"}
	mu.Unlock()

	select {
	case e := <-got:
		if e.Action != "removed" || e.Path != "/dev/video2" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for removed event")
	}

	cancel()
	<-done
}
