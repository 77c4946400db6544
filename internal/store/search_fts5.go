//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initSearch(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			text,
			content = 'nodes',
			content_rowid = 'rowid',
			tokenize = 'unicode61 remove_diacritics 2'
		);
		CREATE TRIGGER IF NOT EXISTS nodes_fts_ai AFTER INSERT ON nodes BEGIN
			INSERT INTO nodes_fts (rowid, text) VALUES (new.rowid, new.text);
		END;
		INSERT INTO nodes_fts (nodes_fts) VALUES ('rebuild');
	`)
	if err != nil {
		return fmt.Errorf("store: init fts: %w", err)
	}
	return nil
}

// textFilter matches nodes having a word that starts with each word of text.
func textFilter(text string) (string, []any) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "1 = 1", nil
	}
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	return "rowid IN (SELECT rowid FROM nodes_fts WHERE nodes_fts MATCH ?)", []any{strings.Join(words, " ")}
}
