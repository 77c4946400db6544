package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

// InsertNode returns the pointer of the node holding text, creating it in
// the given class lane if it does not exist yet. created reports whether a
// row was written. A node keeps the chapter it was first created with.
func (s *SQLite) InsertNode(ctx context.Context, length, class int, text, chapter string) (ptr models.NodePtr, created bool, err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.NodePtr{}, false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	err = tx.QueryRowContext(ctx, `SELECT class, cptr FROM nodes WHERE text = ?`, text).Scan(&ptr.Class, &ptr.CPtr)
	switch {
	case err == nil:
		return ptr, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return models.NodePtr{}, false, fmt.Errorf("store: find node: %w", err)
	}

	ptr.Class = class
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(cptr), 0) + 1 FROM nodes WHERE class = ?`, class,
	).Scan(&ptr.CPtr); err != nil {
		return models.NodePtr{}, false, fmt.Errorf("store: next node index: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (class, cptr, text, length, chapter) VALUES (?, ?, ?, ?, ?)`,
		ptr.Class, ptr.CPtr, text, length, chapter,
	); err != nil {
		return models.NodePtr{}, false, fmt.Errorf("store: insert node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.NodePtr{}, false, fmt.Errorf("store: commit node: %w", err)
	}
	return ptr, true, nil
}

// LookupNode returns the node at ptr with all seven channels populated.
func (s *SQLite) LookupNode(ctx context.Context, ptr models.NodePtr) (*models.Node, error) {
	n := &models.Node{Ptr: ptr}
	err := s.conn.QueryRowContext(ctx,
		`SELECT text, length, chapter FROM nodes WHERE class = ? AND cptr = ?`, ptr.Class, ptr.CPtr,
	).Scan(&n.Text, &n.Length, &n.Chapter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: lookup %s: %w", ptr, apperr.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup %s: %w", ptr, err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT channel, arrow, weight, ctx, dst_class, dst_cptr
		FROM links
		WHERE src_class = ? AND src_cptr = ?
		ORDER BY id
	`, ptr.Class, ptr.CPtr)
	if err != nil {
		return nil, fmt.Errorf("store: node links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ch models.Channel
			l  models.Link
		)
		if err := rows.Scan(&ch, &l.Arrow, &l.Weight, &l.Context, &l.Dst.Class, &l.Dst.CPtr); err != nil {
			return nil, err
		}
		if !ch.Valid() {
			return nil, fmt.Errorf("store: node %s: %w: channel %d", ptr, apperr.ErrSTTypeOutOfRange, ch)
		}
		n.Channels[ch] = append(n.Channels[ch], l)
	}
	return n, rows.Err()
}

// FindNodes returns nodes matching text whose chapter contains chapter.
// Empty arguments match everything. Text is a substring match, or a word
// prefix match when built with the sqlite_fts5 tag.
func (s *SQLite) FindNodes(ctx context.Context, text, chapter string, limit int) ([]models.Node, error) {
	if limit <= 0 {
		limit = 20
	}
	cond, args := textFilter(text)
	args = append(args, "%"+chapter+"%", limit)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT class, cptr, text, length, chapter
		FROM nodes
		WHERE `+cond+` AND chapter LIKE ?
		ORDER BY class, cptr
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find nodes: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.Ptr.Class, &n.Ptr.CPtr, &n.Text, &n.Length, &n.Chapter); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func nodeExists(ctx context.Context, q queryer, ptr models.NodePtr) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM nodes WHERE class = ? AND cptr = ?`, ptr.Class, ptr.CPtr,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: node exists: %w", err)
	}
	return true, nil
}
