package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/spacetime/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	class   INTEGER NOT NULL,
	cptr    INTEGER NOT NULL,
	text    TEXT    NOT NULL UNIQUE,
	length  INTEGER NOT NULL,
	chapter TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (class, cptr)
);

CREATE TABLE IF NOT EXISTS arrows (
	ptr       INTEGER PRIMARY KEY,
	sta_index INTEGER NOT NULL CHECK (sta_index BETWEEN 0 AND 6),
	long      TEXT    NOT NULL UNIQUE,
	short     TEXT    NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS arrow_inverses (
	plus  INTEGER PRIMARY KEY REFERENCES arrows(ptr),
	minus INTEGER NOT NULL REFERENCES arrows(ptr)
);

CREATE TABLE IF NOT EXISTS contexts (
	ptr     INTEGER PRIMARY KEY AUTOINCREMENT,
	context TEXT    NOT NULL UNIQUE CHECK (context <> '')
);

CREATE TABLE IF NOT EXISTS links (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	src_class INTEGER NOT NULL,
	src_cptr  INTEGER NOT NULL,
	channel   INTEGER NOT NULL CHECK (channel BETWEEN 0 AND 6),
	arrow     INTEGER NOT NULL REFERENCES arrows(ptr),
	weight    REAL    NOT NULL,
	ctx       INTEGER NOT NULL DEFAULT 0,
	dst_class INTEGER NOT NULL,
	dst_cptr  INTEGER NOT NULL,
	UNIQUE (src_class, src_cptr, channel, arrow, weight, ctx, dst_class, dst_cptr),
	FOREIGN KEY (src_class, src_cptr) REFERENCES nodes(class, cptr),
	FOREIGN KEY (dst_class, dst_cptr) REFERENCES nodes(class, cptr)
);

CREATE INDEX IF NOT EXISTS idx_links_src ON links(src_class, src_cptr, channel);
CREATE INDEX IF NOT EXISTS idx_links_dst ON links(dst_class, dst_cptr);

CREATE TABLE IF NOT EXISTS imports (
	path        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is the SQLite-backed Store.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
// Failing to reach the database is reported as apperr.ErrConnection.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w: %w", apperr.ErrConnection, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w: %w", apperr.ErrConnection, err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initSearch(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Stats counts the rows of each table.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM nodes),
			(SELECT count(*) FROM links),
			(SELECT count(*) FROM arrows),
			(SELECT count(*) FROM contexts)
	`).Scan(&st.Nodes, &st.Links, &st.Arrows, &st.Contexts)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
