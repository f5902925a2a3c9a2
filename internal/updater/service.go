package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/version"
)

type service struct {
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	backups    *backupStore

	mu     sync.Mutex
	latest *selfupdate.Release

	enabled        bool
	disabledReason string

	logger *slog.Logger
}

// NewService builds an updater for the given GitHub repository. If the
// installed binary's directory is not writable the service still
// constructs, but every operation reports ErrCodeDisabled.
func NewService(opts *Options) (Service, error) {
	logger := logging.GetLogger("updater")

	if reason := writeCheck(); reason != "" {
		logger.Warn("Updates disabled", "reason", reason)
		return &service{disabledReason: reason, logger: logger}, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub source: %w", err)
	}

	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}

	backups, err := newBackupStore(defaultBackupDir(), logger)
	if err != nil {
		logger.Warn("Backup store unavailable", "error", err)
	}

	return &service{
		repository: selfupdate.ParseSlug(opts.Repository),
		updater:    up,
		backups:    backups,
		enabled:    true,
		logger:     logger,
	}, nil
}

func defaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "camnode", "backup")
}

// writeCheck verifies the binary can be replaced in place. Returns an
// explanation when it cannot, empty otherwise.
func writeCheck() string {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Sprintf("locating executable: %v", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Sprintf("resolving executable path: %v", err)
	}

	dir := filepath.Dir(exe)
	tmp := filepath.Join(dir, ".camnode.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(tmp)
	return ""
}

func (s *service) IsEnabled() bool {
	return s.enabled
}

func (s *service) DisabledReason() string {
	return s.disabledReason
}

// CheckForUpdate asks GitHub for the newest release and compares it
// against the running version. A dev build always counts as outdated.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	release, found, err := s.updater.DetectLatest(ctx, s.repository)
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, newError(ErrCodeCheckFailed, "repository has no releases", nil)
	}

	current := version.Version
	info := &UpdateInfo{
		CurrentVersion: current,
		LatestVersion:  release.Version(),
	}
	if current != "dev" && !release.GreaterThan(current) {
		return info, nil
	}

	s.mu.Lock()
	s.latest = release
	s.mu.Unlock()

	info.ReleaseNotes = release.ReleaseNotes
	info.ReleaseURL = release.URL
	info.PublishedAt = release.PublishedAt
	info.AssetSize = release.AssetByteSize
	info.UpdateAvailable = true
	return info, nil
}

// ApplyUpdate replaces the running binary with the latest release. The
// current binary is saved first so a failed swap, or a bad release, can
// be rolled back. The process keeps running on the old code until it is
// restarted.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	s.mu.Lock()
	release := s.latest
	s.mu.Unlock()

	if release == nil {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
		s.mu.Lock()
		release = s.latest
		s.mu.Unlock()
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return newError(ErrCodeApplyFailed, "locating executable", err)
	}

	if s.backups != nil {
		if err := s.backups.save(exe); err != nil {
			return newError(ErrCodeBackupFailed, "saving current binary", err)
		}
	}

	if err := s.updater.UpdateTo(ctx, release, exe); err != nil {
		s.revert()
		return newError(ErrCodeApplyFailed, "applying update", err)
	}

	s.logger.Info("Update applied",
		"from", version.Version, "to", release.Version())
	return nil
}

// Rollback puts the backed-up binary back in place.
func (s *service) Rollback(_ context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if s.backups == nil || !s.backups.exists() {
		return newError(ErrCodeNoBackup, "no backup available", nil)
	}
	if err := s.backups.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "restoring backup", err)
	}
	s.logger.Info("Rolled back", "version", s.backups.version())
	return nil
}

// revert undoes a half-applied update so the install stays runnable.
func (s *service) revert() {
	if s.backups == nil || !s.backups.exists() {
		s.logger.Error("No backup to revert to after failed update")
		return
	}
	if err := s.backups.restore(); err != nil {
		s.logger.Error("Reverting failed update", "error", err)
		return
	}
	s.logger.Info("Reverted to previous binary")
}
