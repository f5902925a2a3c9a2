package camera

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/camnode/camnode/internal/v4l2"
)

// ControlBridge exposes the device's controls under stable snake_case
// names derived from the driver-reported descriptions, so config files
// and APIs address "white_balance_temperature" instead of a raw
// control ID.
type ControlBridge struct {
	dev  Device
	log  *slog.Logger
	byID map[uint32]v4l2.Control
	name map[string]v4l2.Control
}

// NewControlBridge indexes the device's control descriptors. Two
// controls normalizing to the same name keep the first one.
func NewControlBridge(dev Device, log *slog.Logger) *ControlBridge {
	if log == nil {
		log = slog.Default()
	}
	b := &ControlBridge{
		dev:  dev,
		log:  log.With("component", "controls", "camera", dev.Name()),
		byID: make(map[uint32]v4l2.Control),
		name: make(map[string]v4l2.Control),
	}
	for _, c := range dev.Controls() {
		b.byID[c.ID] = c
		key := ParamName(c.Name)
		if _, dup := b.name[key]; dup {
			b.log.Warn("duplicate control name", "name", key, "id", c.ID)
			continue
		}
		b.name[key] = c
	}
	return b
}

// ParamName normalizes a driver-reported control description into a
// parameter name: lowercased, punctuation stripped, spaces collapsed
// to underscores. "White Balance Temperature, Auto" becomes
// "white_balance_temperature_auto".
func ParamName(description string) string {
	s := strings.ToLower(description)
	s = strings.NewReplacer(",", "", "(", "", ")", "").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// Names lists every known parameter name, in descriptor order.
func (b *ControlBridge) Names() []string {
	out := make([]string, 0, len(b.name))
	for _, c := range b.dev.Controls() {
		key := ParamName(c.Name)
		if existing, ok := b.name[key]; ok && existing.ID == c.ID {
			out = append(out, key)
		}
	}
	return out
}

// Lookup returns the descriptor behind a parameter name.
func (b *ControlBridge) Lookup(name string) (v4l2.Control, bool) {
	c, ok := b.name[name]
	return c, ok
}

// Value reads the current value of the named control.
func (b *ControlBridge) Value(name string) (int64, error) {
	c, ok := b.name[name]
	if !ok {
		return 0, fmt.Errorf("control %q: %w", name, v4l2.ErrControlUnsupported)
	}
	return b.dev.ControlValue(c.ID)
}

// Set applies a value to the named control. Values are range checked
// against the descriptor, and writing the value already in effect is
// suppressed.
func (b *ControlBridge) Set(name string, value int64) error {
	c, ok := b.name[name]
	if !ok {
		return fmt.Errorf("control %q: %w", name, v4l2.ErrControlUnsupported)
	}
	if c.Type == v4l2.ControlTypeUnsupported {
		return fmt.Errorf("control %q has an unsupported type: %w", name, v4l2.ErrControlUnsupported)
	}
	if value < c.Min || value > c.Max {
		return fmt.Errorf("control %q: value %d outside [%d, %d]", name, value, c.Min, c.Max)
	}

	if cur, err := b.dev.ControlValue(c.ID); err == nil && cur == value {
		b.log.Debug("control already at value", "name", name, "value", value)
		return nil
	}
	return b.dev.SetControlValue(c.ID, value)
}

// Apply sets a batch of named controls, typically from configuration.
// Every entry is attempted; the first error is returned after the
// batch completes.
func (b *ControlBridge) Apply(values map[string]int64) error {
	var firstErr error
	for name, v := range values {
		if err := b.Set(name, v); err != nil {
			b.log.Warn("applying control failed", "name", name, "value", v, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
