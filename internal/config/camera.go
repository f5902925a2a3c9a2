package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CameraSettings is the declarative capture state for one device: the
// format to negotiate, the encoding to publish and the control values
// to apply. Reapplying the file is cheap; redundant values are
// suppressed downstream.
type CameraSettings struct {
	Device       string `toml:"device" json:"device"`
	PixelFormat  string `toml:"pixel_format,omitempty" json:"pixel_format,omitempty"`
	Width        uint32 `toml:"width,omitempty" json:"width,omitempty"`
	Height       uint32 `toml:"height,omitempty" json:"height,omitempty"`
	OutputFormat string `toml:"output_format,omitempty" json:"output_format,omitempty"`

	// Controls maps normalized control names to the values to apply,
	// for example brightness = 12.
	Controls map[string]int64 `toml:"controls,omitempty" json:"controls,omitempty"`
}

// CameraFile is the on-disk camera configuration.
type CameraFile struct {
	Version int            `toml:"version" json:"version"`
	Camera  CameraSettings `toml:"camera" json:"camera"`
}

// CameraStore reads and writes the camera configuration file.
type CameraStore struct {
	path string
	file *CameraFile
}

// NewCameraStore creates a store over the given path.
func NewCameraStore(path string) *CameraStore {
	if path == "" {
		path = "camera.toml"
	}
	return &CameraStore{
		path: path,
		file: &CameraFile{
			Version: 1,
			Camera:  CameraSettings{Controls: make(map[string]int64)},
		},
	}
}

// Load reads the configuration from file. A missing file leaves the
// defaults in place.
func (s *CameraStore) Load() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read camera config: %w", err)
	}
	if err := toml.Unmarshal(data, s.file); err != nil {
		return fmt.Errorf("failed to parse camera config: %w", err)
	}

	if s.file.Camera.Controls == nil {
		s.file.Camera.Controls = make(map[string]int64)
	}
	if s.file.Version == 0 {
		s.file.Version = 1
	}
	return nil
}

// Save writes the configuration back to file.
func (s *CameraStore) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(s.file)
	if err != nil {
		return fmt.Errorf("failed to marshal camera config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write camera config: %w", err)
	}
	return nil
}

// Settings returns the current camera settings.
func (s *CameraStore) Settings() CameraSettings {
	return s.file.Camera
}

// SetControl records a control value and persists the file.
func (s *CameraStore) SetControl(name string, value int64) error {
	s.file.Camera.Controls[name] = value
	return s.Save()
}

// SetFormat records the format to negotiate and persists the file.
func (s *CameraStore) SetFormat(pixelFormat string, width, height uint32) error {
	s.file.Camera.PixelFormat = pixelFormat
	s.file.Camera.Width = width
	s.file.Camera.Height = height
	return s.Save()
}
