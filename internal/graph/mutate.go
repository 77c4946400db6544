package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/metrics"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/store"
)

// CreateVertex returns the pointer of the node holding text, inserting it
// if needed. Calling it again with the same text returns the same pointer
// and emits no event.
func (m *Model) CreateVertex(ctx context.Context, text, chapter string) (models.NodePtr, error) {
	ptr, created, err := m.store.InsertNode(ctx, len(text), Classify(text), text, chapter)
	if err != nil {
		return models.NodePtr{}, fmt.Errorf("graph: create vertex: %w", err)
	}
	if created {
		metrics.VerticesCreated.Inc()
		m.notify(Event{Kind: VertexCreated, Node: ptr, Text: text, Chapter: chapter})
	}
	return ptr, nil
}

// CreateEdge links src to dst with the named arrow and adds the inverse link
// from dst back to src. Both links are appended in one store transaction:
// either both are visible afterwards or neither is. The forward link is returned.
func (m *Model) CreateEdge(ctx context.Context, src models.NodePtr, arrow string, dst models.NodePtr, tags []string, weight float32) (models.Link, error) {
	l, err := m.createEdge(ctx, src, arrow, dst, tags, weight)
	if err != nil {
		metrics.EdgeErrors.WithLabelValues(edgeErrorReason(err)).Inc()
		return models.Link{}, err
	}
	return l, nil
}

func (m *Model) createEdge(ctx context.Context, src models.NodePtr, arrow string, dst models.NodePtr, tags []string, weight float32) (models.Link, error) {
	if src == dst {
		return models.Link{}, fmt.Errorf("graph: create edge %s: %w", src, apperr.ErrSelfLoop)
	}
	if weight == 0 {
		return models.Link{}, fmt.Errorf("graph: create edge %s -> %s: %w", src, dst, apperr.ErrZeroWeight)
	}

	// Resolved-arrow.
	aptr, st, err := m.arrows.Resolve(arrow)
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge: %w", err)
	}
	iptr, err := m.arrows.InverseOf(aptr)
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge: %w", err)
	}
	fwdCh, err := st.Channel()
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge: %w", err)
	}
	invCh, err := st.Inverse().Channel()
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge: %w", err)
	}

	// Resolved-context.
	cptr, err := m.contexts.ResolveTags(ctx, tags)
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge: %w", err)
	}

	fwd := models.Link{Arrow: aptr, Weight: weight, Context: cptr, Dst: dst}
	inv := models.Link{Arrow: iptr, Weight: weight, Context: cptr, Dst: src}

	// Forward and inverse appended together, then committed.
	inserted, err := m.store.AppendLinks(ctx, []store.LinkAppend{
		{Src: src, Channel: fwdCh, Link: fwd},
		{Src: dst, Channel: invCh, Link: inv},
	})
	if err != nil {
		return models.Link{}, fmt.Errorf("graph: create edge %s -> %s: %w", src, dst, err)
	}
	if inserted == 0 {
		return fwd, nil
	}

	metrics.EdgesCreated.WithLabelValues(st.String()).Inc()
	m.logger.Debug("edge committed",
		slog.String("src", src.String()),
		slog.String("arrow", arrow),
		slog.String("dst", dst.String()),
		slog.Int("context", int(cptr)))
	m.notify(Event{Kind: EdgeCreated, Node: src, Arrow: arrow, Link: &fwd})
	return fwd, nil
}

func edgeErrorReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrSelfLoop):
		return "self_loop"
	case errors.Is(err, apperr.ErrZeroWeight):
		return "zero_weight"
	case errors.Is(err, apperr.ErrUnknownArrow):
		return "unknown_arrow"
	case errors.Is(err, apperr.ErrBrokenInverse):
		return "broken_inverse"
	case errors.Is(err, apperr.ErrNodeNotFound):
		return "node_not_found"
	}
	return "store"
}
