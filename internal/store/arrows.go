package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

// ArrowDirectory returns the arrow directory ordered by pointer.
func (s *SQLite) ArrowDirectory(ctx context.Context) ([]models.ArrowEntry, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT sta_index, long, short, ptr FROM arrows ORDER BY ptr`)
	if err != nil {
		return nil, fmt.Errorf("store: arrow directory: %w", err)
	}
	defer rows.Close()

	var out []models.ArrowEntry
	for rows.Next() {
		var e models.ArrowEntry
		if err := rows.Scan(&e.STAIndex, &e.Long, &e.Short, &e.Ptr); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ArrowInverses returns the inverse pairs ordered by the plus pointer.
func (s *SQLite) ArrowInverses(ctx context.Context) ([]models.InversePair, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT plus, minus FROM arrow_inverses ORDER BY plus`)
	if err != nil {
		return nil, fmt.Errorf("store: arrow inverses: %w", err)
	}
	defer rows.Close()

	var out []models.InversePair
	for rows.Next() {
		var p models.InversePair
		if err := rows.Scan(&p.Plus, &p.Minus); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DefineArrowPair registers an arrow and its inverse. Arrows are matched by
// long name, so defining the same pair again changes nothing. When the
// inverse names equal the forward names a single self-inverse arrow is stored.
// Re-pairing an arrow that already has another inverse fails with
// apperr.ErrRegistryMismatch and writes nothing.
func (s *SQLite) DefineArrowPair(ctx context.Context, st models.SemanticType, long, short, invLong, invShort string) error {
	if !st.Valid() {
		return fmt.Errorf("store: define %q: %w", long, apperr.ErrSTTypeOutOfRange)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	fwd, err := ensureArrow(ctx, tx, st, long, short)
	if err != nil {
		return err
	}
	inv := fwd
	if invLong != long {
		if inv, err = ensureArrow(ctx, tx, -st, invLong, invShort); err != nil {
			return err
		}
	}
	for _, pair := range [][2]models.ArrowPtr{{fwd, inv}, {inv, fwd}} {
		if err := checkInverse(ctx, tx, pair[0], pair[1]); err != nil {
			return fmt.Errorf("store: define %q: %w", long, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO arrow_inverses (plus, minus) VALUES (?, ?), (?, ?) ON CONFLICT(plus) DO NOTHING`,
		int(fwd), int(inv), int(inv), int(fwd),
	); err != nil {
		return fmt.Errorf("store: insert inverse pair: %w", err)
	}
	return tx.Commit()
}

// checkInverse fails when ptr is already paired with an arrow other than want.
func checkInverse(ctx context.Context, tx *sql.Tx, ptr, want models.ArrowPtr) error {
	var minus models.ArrowPtr
	err := tx.QueryRowContext(ctx, `SELECT minus FROM arrow_inverses WHERE plus = ?`, int(ptr)).Scan(&minus)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("find inverse: %w", err)
	case minus != want:
		return fmt.Errorf("%w: arrow %d is the inverse of %d, not %d", apperr.ErrRegistryMismatch, ptr, minus, want)
	}
	return nil
}

func ensureArrow(ctx context.Context, tx *sql.Tx, st models.SemanticType, long, short string) (models.ArrowPtr, error) {
	var (
		ptr models.ArrowPtr
		sta int
	)
	err := tx.QueryRowContext(ctx, `SELECT ptr, sta_index FROM arrows WHERE long = ?`, long).Scan(&ptr, &sta)
	switch {
	case err == nil:
		if sta != st.STAIndex() {
			return 0, fmt.Errorf("store: arrow %q: %w: stored with type %d, defined with %s",
				long, apperr.ErrRegistryMismatch, sta-int(models.Express), st)
		}
		return ptr, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("store: find arrow: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(ptr), 0) + 1 FROM arrows`).Scan(&ptr); err != nil {
		return 0, fmt.Errorf("store: next arrow pointer: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO arrows (ptr, sta_index, long, short) VALUES (?, ?, ?, ?)`,
		int(ptr), st.STAIndex(), long, short,
	); err != nil {
		return 0, fmt.Errorf("store: insert arrow %q: %w", long, err)
	}
	return ptr, nil
}
