package camera

import (
	"errors"
	"testing"

	"github.com/camnode/camnode/internal/v4l2"
)

func TestParamName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Brightness", "brightness"},
		{"White Balance Temperature, Auto", "white_balance_temperature_auto"},
		{"Exposure (Absolute)", "exposure_absolute"},
		{"Power Line Frequency", "power_line_frequency"},
		{"Focus, Auto", "focus_auto"},
		{"  Gain  ", "gain"},
	}
	for _, tc := range cases {
		if got := ParamName(tc.in); got != tc.want {
			t.Errorf("ParamName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func bridgeFixture() (*fakeDevice, *ControlBridge) {
	dev := newFakeDevice()
	dev.controls = []v4l2.Control{
		{ID: 1, Name: "Brightness", Type: v4l2.ControlTypeInteger, Min: -64, Max: 64},
		{ID: 2, Name: "Focus, Auto", Type: v4l2.ControlTypeBoolean, Min: 0, Max: 1},
		{ID: 3, Name: "Weird Thing", Type: v4l2.ControlTypeUnsupported},
	}
	dev.values[1] = 10
	dev.values[2] = 1
	return dev, NewControlBridge(dev, discardLogger())
}

func TestBridgeValue(t *testing.T) {
	_, b := bridgeFixture()

	v, err := b.Value("brightness")
	if err != nil || v != 10 {
		t.Fatalf("Value = %d, %v", v, err)
	}
	if _, err := b.Value("no_such_control"); !errors.Is(err, v4l2.ErrControlUnsupported) {
		t.Errorf("err = %v, want ErrControlUnsupported", err)
	}
}

func TestBridgeSet(t *testing.T) {
	dev, b := bridgeFixture()

	if err := b.Set("brightness", -5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if dev.values[1] != -5 {
		t.Errorf("device value = %d", dev.values[1])
	}
}

func TestBridgeSetRangeChecked(t *testing.T) {
	dev, b := bridgeFixture()

	if err := b.Set("brightness", 1000); err == nil {
		t.Error("out-of-range value accepted")
	}
	if dev.values[1] != 10 {
		t.Errorf("device value changed to %d", dev.values[1])
	}
}

func TestBridgeSetSuppressesRedundantWrite(t *testing.T) {
	dev, b := bridgeFixture()

	if err := b.Set("brightness", 10); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for _, call := range dev.callLog() {
		if call == "set_control" {
			t.Error("redundant write reached the device")
		}
	}
}

func TestBridgeSetUnsupportedType(t *testing.T) {
	_, b := bridgeFixture()
	if err := b.Set("weird_thing", 1); !errors.Is(err, v4l2.ErrControlUnsupported) {
		t.Errorf("err = %v, want ErrControlUnsupported", err)
	}
}

func TestBridgeApply(t *testing.T) {
	dev, b := bridgeFixture()

	err := b.Apply(map[string]int64{
		"brightness": 3,
		"focus_auto": 0,
		"bogus":      1,
	})
	if !errors.Is(err, v4l2.ErrControlUnsupported) {
		t.Fatalf("err = %v, want the bogus entry reported", err)
	}
	if dev.values[1] != 3 || dev.values[2] != 0 {
		t.Errorf("values = %v", dev.values)
	}
}

func TestBridgeNames(t *testing.T) {
	_, b := bridgeFixture()
	names := b.Names()
	want := []string{"brightness", "focus_auto", "weird_thing"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
