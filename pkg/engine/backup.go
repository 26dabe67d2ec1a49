package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/envfile"
)

// backupTimeFormat is embedded in backup filenames. Zero-padded
// fractional seconds keep lexicographic and chronological order aligned.
const backupTimeFormat = "20060102T150405.000000000"

const backupInfix = ".backup."

// Backup is one on-disk configuration snapshot.
type Backup struct {
	Path      string
	CreatedAt time.Time
}

// createBackup snapshots the current file contents beside the env file
// and returns the backup path.
func (e *Engine) createBackup(file *envfile.File) (string, error) {
	path := e.envPath + backupInfix + e.now().UTC().Format(backupTimeFormat)
	if err := file.SaveTo(path); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return path, nil
}

// restoreBackup copies the backup contents back over the env file.
func (e *Engine) restoreBackup(backupRef string) error {
	backup, err := envfile.Load(backupRef)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", backupRef, err)
	}
	if err := backup.SaveTo(e.envPath); err != nil {
		return fmt.Errorf("failed to restore %s from backup: %w", e.envPath, err)
	}
	return nil
}

// ListBackups returns the snapshots beside the env file, newest first by
// the timestamp embedded in the filename. Files with unparseable names
// are skipped.
func (e *Engine) ListBackups() ([]Backup, error) {
	matches, err := filepath.Glob(e.envPath + backupInfix + "*")
	if err != nil {
		return nil, err
	}

	var backups []Backup
	for _, path := range matches {
		stamp := strings.TrimPrefix(path, e.envPath+backupInfix)
		created, err := time.Parse(backupTimeFormat, stamp)
		if err != nil {
			continue
		}
		backups = append(backups, Backup{Path: path, CreatedAt: created})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// CleanupOldBackups deletes all but the keep most recent snapshots.
// Individual delete failures are logged and skipped; the batch continues.
func (e *Engine) CleanupOldBackups(keep int) error {
	if keep < 0 {
		keep = 0
	}
	backups, err := e.ListBackups()
	if err != nil {
		return err
	}
	for _, backup := range backups[min(keep, len(backups)):] {
		if err := os.Remove(backup.Path); err != nil {
			e.logger.Warn().Str("backup", backup.Path).Err(err).Msg("failed to delete old backup")
		}
	}
	return nil
}
