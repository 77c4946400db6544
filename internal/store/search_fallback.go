//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
)

func initSearch(_ context.Context, _ *sql.DB) error {
	// FTS5 not available; node search uses LIKE on nodes.text.
	return nil
}

// textFilter matches text as a substring of the node text.
func textFilter(text string) (string, []any) {
	return "text LIKE ?", []any{"%" + text + "%"}
}
