package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNoopController(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctrl := newNoop(logger)

	// Should return no errors
	if err := ctrl.Set("user", true, "solid"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}

	// Should return empty lists
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}

	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsController_Available(t *testing.T) {
	tests := []struct {
		name     string
		leds     map[string]string
		wantLen  int
		contains string
	}{
		{
			name:     "NanoPC-T6 LEDs",
			leds:     map[string]string{"user": "usr_led", "system": "sys_led"},
			wantLen:  2,
			contains: "user",
		},
		{
			name:     "Orange Pi LEDs",
			leds:     map[string]string{"blue": "blue_led", "green": "green_led"},
			wantLen:  2,
			contains: "blue",
		},
		{
			name:    "No LEDs",
			leds:    map[string]string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newSysfs(tt.leds)
			available := ctrl.Available()

			if len(available) != tt.wantLen {
				t.Errorf("Available() len = %d, want %d", len(available), tt.wantLen)
			}

			if tt.contains != "" {
				found := false
				for _, ledType := range available {
					if ledType == tt.contains {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Available() does not contain %q", tt.contains)
				}
			}
		})
	}
}

func TestSysfsController_Patterns(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "usr_led"})
	patterns := ctrl.Patterns()

	expectedPatterns := []string{"solid", "blink", "heartbeat"}
	if len(patterns) != len(expectedPatterns) {
		t.Errorf("Patterns() len = %d, want %d", len(patterns), len(expectedPatterns))
	}

	for _, expected := range expectedPatterns {
		found := false
		for _, pattern := range patterns {
			if pattern == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Patterns() missing %q", expected)
		}
	}
}

func TestSysfsController_Set_InvalidType(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "usr_led"})

	// Should error on unsupported LED type
	err := ctrl.Set("nonexistent", true, "")
	if err == nil {
		t.Error("Set() with invalid LED type should return error")
	}
}
func TestSysfsController_SetWritesSysfs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "act_led"), 0o755); err != nil {
		t.Fatal(err)
	}

	oldRoot := sysfsRoot
	sysfsRoot = root
	defer func() { sysfsRoot = oldRoot }()

	ctrl := newSysfs(map[string]string{"act": "act_led"})

	read := func(name string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(root, "act_led", name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return string(data)
	}

	if err := ctrl.Set("act", true, "solid"); err != nil {
		t.Fatalf("Set solid: %v", err)
	}
	if got := read("trigger"); got != "none" {
		t.Errorf("solid trigger = %q, want none", got)
	}
	if got := read("brightness"); got != "1" {
		t.Errorf("solid brightness = %q, want 1", got)
	}

	if err := ctrl.Set("act", true, "blink"); err != nil {
		t.Fatalf("Set blink: %v", err)
	}
	if got := read("trigger"); got != "heartbeat" {
		t.Errorf("blink trigger = %q, want heartbeat", got)
	}

	if err := ctrl.Set("act", false, "none"); err != nil {
		t.Fatalf("Set off: %v", err)
	}
	if got := read("brightness"); got != "0" {
		t.Errorf("off brightness = %q, want 0", got)
	}

	// Mapped LED whose sysfs directory does not exist.
	missing := newSysfs(map[string]string{"sys": "sys_led"})
	if err := missing.Set("sys", true, "solid"); err == nil {
		t.Error("Set on a missing LED directory should fail")
	}
}
