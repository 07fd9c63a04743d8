package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backup writes a consistent copy of the database to destPath, which must
// be an absolute path to a file that does not exist yet.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBackupPath(destPath); err != nil {
		return err
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination %s already exists", destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if s.dbPath != ":memory:" {
		if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return fmt.Errorf("failed to checkpoint WAL: %w", err)
		}
	}

	// #nosec G201 - destPath is validated above
	query := fmt.Sprintf("VACUUM INTO '%s'", destPath)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// BackupPath returns the default backup location for a migration from
// version from.
func (s *SQLiteStorage) BackupPath(from int) string {
	return fmt.Sprintf("%s.v%d.bak", s.dbPath, from)
}

func validateBackupPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: backup path", ErrEmptyString)
	}
	if strings.ContainsAny(p, "'\";") {
		return fmt.Errorf("invalid backup path %q: contains forbidden characters", p)
	}
	if !filepath.IsAbs(p) || filepath.Clean(p) != p {
		return fmt.Errorf("invalid backup path %q: must be absolute and clean", p)
	}
	return nil
}
