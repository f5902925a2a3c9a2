package led

import (
	"fmt"
	"os"
	"path/filepath"
)

// sysfsRoot is the kernel LED class directory. Variable so tests can
// point it at a scratch tree.
var sysfsRoot = "/sys/class/leds"

// sysfs drives board LEDs through the kernel LED class. leds maps a
// friendly LED type to the kernel's directory name for it.
type sysfs struct {
	leds map[string]string
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{leds: leds}
}

// Set applies a pattern and on/off state to one LED. "blink" and
// "heartbeat" hand the LED to the kernel heartbeat trigger, which
// drives brightness itself. Any other pattern releases the trigger and
// sets brightness directly, so "solid" is simply trigger none plus on.
func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("no %q LED on this board", ledType)
	}

	dir := filepath.Join(sysfsRoot, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("LED %q not present at %s: %w", ledType, dir, err)
	}

	trigger := "none"
	switch pattern {
	case "blink", "heartbeat":
		trigger = "heartbeat"
	}
	if err := os.WriteFile(filepath.Join(dir, "trigger"), []byte(trigger), 0o644); err != nil {
		return fmt.Errorf("setting trigger on %s: %w", name, err)
	}
	if trigger != "none" {
		return nil
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("setting brightness on %s: %w", name, err)
	}
	return nil
}

// Available returns the LED types this board exposes.
func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for ledType := range s.leds {
		types = append(types, ledType)
	}
	return types
}

// Patterns returns the patterns Set understands.
func (s *sysfs) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}
