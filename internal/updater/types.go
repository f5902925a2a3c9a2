package updater

import (
	"context"
	"time"
)

// Service checks GitHub for newer releases and swaps the running binary.
type Service interface {
	// CheckForUpdate queries the latest release without downloading it.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)

	// ApplyUpdate downloads the latest release and replaces the current
	// binary, keeping a backup of the old one.
	ApplyUpdate(ctx context.Context) error

	// Rollback restores the backed-up binary.
	Rollback(ctx context.Context) error

	// IsEnabled reports whether the binary location is writable.
	IsEnabled() bool

	// DisabledReason returns why updates are unavailable, empty if enabled.
	DisabledReason() string
}

// UpdateInfo describes the latest published release relative to the
// running version.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// Options configures the updater service.
type Options struct {
	Repository string // GitHub slug, e.g. "camnode/camnode"
	Prerelease bool
}
