// Package ingest applies YAML import files to the graph, once at startup and
// again whenever the import directory changes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/spacetime/internal/checksum"
	"github.com/starford/spacetime/internal/metrics"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/parser"
	"github.com/starford/spacetime/internal/storage"
)

// Graph is the part of the graph model an import writes through.
type Graph interface {
	CreateVertex(ctx context.Context, text, chapter string) (models.NodePtr, error)
	CreateEdge(ctx context.Context, src models.NodePtr, arrow string, dst models.NodePtr, tags []string, weight float32) (models.Link, error)
}

// Ledger remembers the checksum each file was last imported with.
type Ledger interface {
	ImportChecksum(ctx context.Context, path string) (string, error)
	SetImportChecksum(ctx context.Context, path, sum string) error
}

// EventCallback is called after a file has been applied.
type EventCallback func(kind string, path string)

// Sync walks the import directory and applies every file whose checksum
// differs from the ledger. A failing file is logged and skipped; it is
// retried on the next sync because its checksum is not recorded.
func Sync(ctx context.Context, g Graph, ledger Ledger, files storage.Provider, logger *slog.Logger) error {
	metas, err := files.List("")
	if err != nil {
		return err
	}
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return err
		}
		applied, err := ImportFile(ctx, g, ledger, files, m.Path)
		if err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if applied {
			logger.Debug("sync: imported", slog.String("path", m.Path))
		}
	}
	return nil
}

// ImportFile imports path unless the ledger already holds its checksum and
// reports whether it was applied.
func ImportFile(ctx context.Context, g Graph, ledger Ledger, files storage.Provider, path string) (bool, error) {
	data, err := files.Read(path)
	if err != nil {
		metrics.ImportedFiles.WithLabelValues("failed").Inc()
		return false, err
	}
	sum := checksum.Sum(data)
	prev, err := ledger.ImportChecksum(ctx, path)
	if err != nil {
		return false, err
	}
	if prev == sum {
		metrics.ImportedFiles.WithLabelValues("unchanged").Inc()
		return false, nil
	}
	if err := Apply(ctx, g, data); err != nil {
		metrics.ImportedFiles.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("ingest: %s: %w", path, err)
	}
	if err := ledger.SetImportChecksum(ctx, path, sum); err != nil {
		return false, err
	}
	metrics.ImportedFiles.WithLabelValues("applied").Inc()
	return true, nil
}

// Apply parses data and writes its vertices and edges through g. Every edge
// is attempted; the errors of those that fail are joined. Applying the same
// data twice changes nothing the second time.
func Apply(ctx context.Context, g Graph, data []byte) error {
	docs, err := parser.Parse(data)
	if err != nil {
		return err
	}

	var errs []error
	for _, d := range docs {
		ptrs := make(map[string]models.NodePtr)
		for _, text := range d.Texts() {
			p, err := g.CreateVertex(ctx, text, d.Chapter)
			if err != nil {
				return err
			}
			ptrs[text] = p
		}
		for _, e := range d.Edges {
			tags := append(append([]string(nil), d.Context...), e.Context...)
			if _, err := g.CreateEdge(ctx, ptrs[e.From], e.Arrow, ptrs[e.To], tags, e.EffectiveWeight()); err != nil {
				errs = append(errs, fmt.Errorf("%s -%s-> %s: %w", e.From, e.Arrow, e.To, err))
			}
		}
	}
	return errors.Join(errs...)
}
