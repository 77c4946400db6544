package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/spacetime/internal/codec"
	"github.com/starford/spacetime/internal/metrics"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/store"
)

// ConeQuery describes a multi-source path search.
type ConeQuery struct {
	Orientation models.Orientation
	Start       []models.NodePtr
	Depth       int
	Chapter     string
	Context     []string
	Arrows      []string // arrow names; empty follows every arrow
	Limit       int
}

// FetchNode returns the node at ptr with all seven channels.
func (m *Model) FetchNode(ctx context.Context, ptr models.NodePtr) (*models.Node, error) {
	n, err := m.store.LookupNode(ctx, ptr)
	if err != nil {
		return nil, fmt.Errorf("graph: fetch node: %w", err)
	}
	return n, nil
}

// FindNodes searches node text and chapter by substring.
func (m *Model) FindNodes(ctx context.Context, text, chapter string, limit int) ([]models.Node, error) {
	nodes, err := m.store.FindNodes(ctx, text, chapter, limit)
	if err != nil {
		return nil, fmt.Errorf("graph: find nodes: %w", err)
	}
	return nodes, nil
}

// PathsForward returns the walks from start along links of semantic type st,
// each at most depth hops long. Every path begins with an anchor link whose
// destination is start.
//
// When part of the store's result is malformed the decodable paths are
// returned together with an error matching apperr.ErrMalformedPath.
func (m *Model) PathsForward(ctx context.Context, start models.NodePtr, st models.SemanticType, depth, limit int) ([]models.Path, error) {
	began := time.Now()
	blob, err := m.store.ForwardPaths(ctx, start, st, depth, limit)
	if err != nil {
		return nil, fmt.Errorf("graph: forward paths: %w", err)
	}
	return m.decode("forward", blob, began)
}

// PathsCone returns the walks from every start node through the half of the
// link cone selected by q.Orientation. Paths are decoded like PathsForward.
func (m *Model) PathsCone(ctx context.Context, q ConeQuery) ([]models.Path, error) {
	began := time.Now()
	req := store.ConeRequest{
		Orientation: q.Orientation,
		Start:       q.Start,
		Depth:       q.Depth,
		Chapter:     q.Chapter,
		Context:     q.Context,
		Limit:       q.Limit,
	}
	for _, name := range q.Arrows {
		ptr, _, err := m.arrows.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("graph: cone paths: %w", err)
		}
		req.Arrows = append(req.Arrows, ptr)
	}

	blob, err := m.store.ConePaths(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("graph: cone paths: %w", err)
	}
	return m.decode("cone", blob, began)
}

func (m *Model) decode(kind, blob string, began time.Time) ([]models.Path, error) {
	paths, err := codec.DecodePathArray(blob)
	metrics.ObservePathQuery(kind, began, len(paths))
	if err != nil {
		metrics.MalformedPaths.Inc()
		m.logger.Warn("malformed path result",
			slog.String("kind", kind),
			slog.Int("decoded", len(paths)),
			slog.String("error", err.Error()))
		return paths, fmt.Errorf("graph: %s paths: %w", kind, err)
	}
	return paths, nil
}
