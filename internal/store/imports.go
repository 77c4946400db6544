package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ImportChecksum returns the checksum recorded for an imported file, or ""
// if the file has never been imported.
func (s *SQLite) ImportChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := s.conn.QueryRowContext(ctx, `SELECT checksum FROM imports WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: import checksum: %w", err)
	}
	return cs, nil
}

// SetImportChecksum records that path was imported with checksum sum.
func (s *SQLite) SetImportChecksum(ctx context.Context, path, sum string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO imports (path, checksum, imported_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			imported_at = excluded.imported_at
	`, path, sum)
	if err != nil {
		return fmt.Errorf("store: set import checksum: %w", err)
	}
	return nil
}
