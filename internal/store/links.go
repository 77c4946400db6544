package store

import (
	"context"
	"fmt"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

// AppendLink adds l to the channel ch of src unless it is already there.
func (s *SQLite) AppendLink(ctx context.Context, src models.NodePtr, ch models.Channel, l models.Link) error {
	_, err := s.AppendLinks(ctx, []LinkAppend{{Src: src, Channel: ch, Link: l}})
	return err
}

// AppendLinks applies every append of batch in one transaction and returns
// how many links were new. Links that are already present are skipped. If
// any endpoint is missing nothing is written.
func (s *SQLite) AppendLinks(ctx context.Context, batch []LinkAppend) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (src_class, src_cptr, channel, arrow, weight, ctx, dst_class, dst_cptr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare link insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range batch {
		if !a.Channel.Valid() {
			return 0, fmt.Errorf("store: append: %w: channel %d", apperr.ErrSTTypeOutOfRange, a.Channel)
		}
		for _, p := range []models.NodePtr{a.Src, a.Link.Dst} {
			ok, err := nodeExists(ctx, tx, p)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, fmt.Errorf("store: append: %s: %w", p, apperr.ErrNodeNotFound)
			}
		}
		l := a.Link
		res, err := stmt.ExecContext(ctx,
			a.Src.Class, a.Src.CPtr, int(a.Channel), int(l.Arrow), l.Weight, int(l.Context), l.Dst.Class, l.Dst.CPtr,
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert link: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit links: %w", err)
	}
	return inserted, nil
}
