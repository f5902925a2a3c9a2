// Package updater replaces the camnode binary with a newer GitHub
// release and keeps a single-slot backup for rollback.
package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/camnode/camnode/internal/version"
)

const (
	backupBinName  = "camnode.bak"
	backupMetaName = "camnode.bak.json"
)

// backupMeta records where the saved binary came from so restore can
// put it back even after the executable path changed meaning.
type backupMeta struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backupStore holds at most one saved binary under dir. Saving again
// overwrites the previous slot.
type backupStore struct {
	dir    string
	meta   *backupMeta
	logger *slog.Logger
}

func newBackupStore(dir string, logger *slog.Logger) (*backupStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("no backup directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	b := &backupStore{dir: dir, logger: logger}
	b.meta = b.readMeta()
	return b, nil
}

// readMeta loads the metadata of an earlier backup, if both the
// metadata file and the saved binary are still present.
func (b *backupStore) readMeta() *backupMeta {
	data, err := os.ReadFile(filepath.Join(b.dir, backupMetaName))
	if err != nil {
		return nil
	}
	var meta backupMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		b.logger.Warn("Unreadable backup metadata", "error", err)
		return nil
	}
	if _, err := os.Stat(filepath.Join(b.dir, backupBinName)); err != nil {
		b.logger.Warn("Backup binary missing", "dir", b.dir)
		return nil
	}
	return &meta
}

// save copies the binary at execPath into the backup slot.
func (b *backupStore) save(execPath string) error {
	if err := copyFile(execPath, filepath.Join(b.dir, backupBinName), 0o755); err != nil {
		return fmt.Errorf("copying binary: %w", err)
	}

	meta := backupMeta{
		Version:   version.Version,
		CreatedAt: time.Now(),
		ExecPath:  execPath,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, backupMetaName), data, 0o644); err != nil {
		return fmt.Errorf("writing backup metadata: %w", err)
	}

	b.meta = &meta
	b.logger.Info("Binary backed up", "version", meta.Version, "dir", b.dir)
	return nil
}

// restore copies the saved binary back over its original path.
func (b *backupStore) restore() error {
	if b.meta == nil {
		return fmt.Errorf("no backup available")
	}
	src := filepath.Join(b.dir, backupBinName)
	if err := copyFile(src, b.meta.ExecPath, 0o755); err != nil {
		return fmt.Errorf("restoring binary: %w", err)
	}
	b.logger.Info("Binary restored", "version", b.meta.Version)
	return nil
}

func (b *backupStore) exists() bool {
	return b.meta != nil
}

func (b *backupStore) version() string {
	if b.meta == nil {
		return ""
	}
	return b.meta.Version
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
