package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/spacetime/internal/models"
)

// ContextDirectory returns every registered context.
func (s *SQLite) ContextDirectory(ctx context.Context) (map[string]models.ContextPtr, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT context, ptr FROM contexts`)
	if err != nil {
		return nil, fmt.Errorf("store: context directory: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.ContextPtr)
	for rows.Next() {
		var (
			c string
			p models.ContextPtr
		)
		if err := rows.Scan(&c, &p); err != nil {
			return nil, err
		}
		out[c] = p
	}
	return out, rows.Err()
}

// LookupContext finds the pointer of a normalized context string.
func (s *SQLite) LookupContext(ctx context.Context, normalized string) (models.ContextPtr, bool, error) {
	var p models.ContextPtr
	err := s.conn.QueryRowContext(ctx, `SELECT ptr FROM contexts WHERE context = ?`, normalized).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NoContext, false, nil
	}
	if err != nil {
		return models.NoContext, false, fmt.Errorf("store: lookup context: %w", err)
	}
	return p, true, nil
}

// RegisterContext inserts normalized if needed and returns its pointer.
func (s *SQLite) RegisterContext(ctx context.Context, normalized string) (models.ContextPtr, error) {
	if normalized == "" {
		return models.NoContext, errors.New("store: the empty context is never registered")
	}
	if _, err := s.conn.ExecContext(ctx,
		`INSERT INTO contexts (context) VALUES (?) ON CONFLICT(context) DO NOTHING`, normalized,
	); err != nil {
		return models.NoContext, fmt.Errorf("store: register context: %w", err)
	}
	p, _, err := s.LookupContext(ctx, normalized)
	return p, err
}
