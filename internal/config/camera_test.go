package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCameraStoreLoadMissingFile(t *testing.T) {
	store := NewCameraStore(filepath.Join(t.TempDir(), "camera.toml"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if store.Settings().Controls == nil {
		t.Error("controls map not initialized")
	}
}

func TestCameraStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.toml")
	store := NewCameraStore(path)

	if err := store.SetFormat("YUYV", 1280, 720); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}
	if err := store.SetControl("brightness", 12); err != nil {
		t.Fatalf("SetControl: %v", err)
	}

	reloaded := NewCameraStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := reloaded.Settings()
	if s.PixelFormat != "YUYV" || s.Width != 1280 || s.Height != 720 {
		t.Errorf("settings = %+v", s)
	}
	if s.Controls["brightness"] != 12 {
		t.Errorf("controls = %v", s.Controls)
	}
}

func TestCameraStoreParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.toml")
	content := `
version = 1

[camera]
device = "/dev/video0"
pixel_format = "YUYV"
width = 640
height = 480
output_format = "RGB3"

[camera.controls]
brightness = 10
contrast = -3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	settings, err := LoadCameraSettings(path)
	if err != nil {
		t.Fatalf("LoadCameraSettings: %v", err)
	}
	if settings.Device != "/dev/video0" || settings.OutputFormat != "RGB3" {
		t.Errorf("settings = %+v", settings)
	}
	if settings.Controls["contrast"] != -3 {
		t.Errorf("controls = %v", settings.Controls)
	}
}

func TestCameraStoreInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.toml")
	if err := os.WriteFile(path, []byte("[camera\nbad"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	store := NewCameraStore(path)
	if err := store.Load(); err == nil {
		t.Error("Load accepted invalid TOML")
	}
}
