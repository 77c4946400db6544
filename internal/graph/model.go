// Package graph is the semantic spacetime model: vertices, edges with their
// automatic inverses, and path searches over a store.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/spacetime/internal/arrows"
	"github.com/starford/spacetime/internal/contexts"
	"github.com/starford/spacetime/internal/store"
)

// Option is a functional option for Open.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	vocabulary []arrows.Definition
	observers  []Observer
}

// WithLogger sets the logger used by the model.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithVocabulary replaces the arrow definitions seeded before the registry
// loads. An empty list seeds nothing and loads the store's directory as is.
func WithVocabulary(defs []arrows.Definition) Option {
	return func(o *options) {
		o.vocabulary = defs
	}
}

// WithObserver registers fn to receive every committed mutation.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, fn)
	}
}

// Model is one open session on a store. Both registries are loaded before a
// Model is returned, so every method may be called concurrently.
type Model struct {
	store     store.Store
	arrows    *arrows.Registry
	contexts  *contexts.Registry
	logger    *slog.Logger
	observers []Observer

	closeOnce sync.Once
	closeErr  error
}

// Open seeds the arrow vocabulary, loads the arrow and context registries
// from st and returns the session. The model owns st from then on and closes
// it in Close. If Open fails the caller still owns st.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Model, error) {
	o := options{
		logger:     slog.Default(),
		vocabulary: arrows.DefaultVocabulary(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.vocabulary) > 0 {
		if err := arrows.Seed(ctx, st, o.vocabulary); err != nil {
			return nil, fmt.Errorf("graph: open: %w", err)
		}
	}
	ar, err := arrows.Load(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("graph: open: %w", err)
	}
	cr, err := contexts.Load(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("graph: open: %w", err)
	}

	o.logger.Info("graph session opened",
		slog.Int("arrows", ar.Len()),
		slog.Int("contexts", cr.Len()))

	return &Model{
		store:     st,
		arrows:    ar,
		contexts:  cr,
		logger:    o.logger,
		observers: o.observers,
	}, nil
}

// Close releases the store. Further calls return the first result.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.store.Close()
	})
	return m.closeErr
}

// Arrows returns the session's arrow registry.
func (m *Model) Arrows() *arrows.Registry {
	return m.arrows
}

// Contexts returns the session's context registry.
func (m *Model) Contexts() *contexts.Registry {
	return m.contexts
}

// Stats reports the store's row counts.
func (m *Model) Stats(ctx context.Context) (store.Stats, error) {
	return m.store.Stats(ctx)
}
