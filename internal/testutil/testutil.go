// Package testutil provides shared test helpers for setting up stores, graph
// sessions and import directories.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/spacetime/internal/graph"
	"github.com/starford/spacetime/internal/store"
	"github.com/starford/spacetime/internal/storage"
)

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "spacetime-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.OpenSQLite(context.Background(), dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// TestModel opens a graph session with the default vocabulary on a fresh
// store. The session (and the store) is closed on cleanup.
func TestModel(t *testing.T, opts ...graph.Option) (*graph.Model, *store.SQLite) {
	t.Helper()
	st := TestStore(t)
	opts = append([]graph.Option{graph.WithLogger(Logger())}, opts...)
	m, err := graph.Open(context.Background(), st, opts...)
	if err != nil {
		st.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m, st
}

// TestImportDir creates a temporary import directory with a storage.Provider.
func TestImportDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}
