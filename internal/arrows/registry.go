// Package arrows holds the catalog of named edge kinds and their inverses.
package arrows

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

// Source supplies the persisted arrow directory, ordered by pointer.
type Source interface {
	ArrowDirectory(ctx context.Context) ([]models.ArrowEntry, error)
	ArrowInverses(ctx context.Context) ([]models.InversePair, error)
}

// Registry is the arrow catalog of one session. It is built once by Load
// and never mutated afterwards, so it may be read concurrently.
type Registry struct {
	arrows []models.Arrow // arrows[ptr-1]
	byName map[string]models.ArrowPtr
	bySTT  [models.NumChannels][]models.ArrowPtr
}

// Load reads the directory and the inverse pairs from src and checks that
// every arrow is paired with exactly one inverse of the opposite semantic type.
func Load(ctx context.Context, src Source) (*Registry, error) {
	dir, err := src.ArrowDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("arrows: load directory: %w", err)
	}
	pairs, err := src.ArrowInverses(ctx)
	if err != nil {
		return nil, fmt.Errorf("arrows: load inverses: %w", err)
	}
	return build(dir, pairs)
}

func build(dir []models.ArrowEntry, pairs []models.InversePair) (*Registry, error) {
	r := &Registry{
		arrows: make([]models.Arrow, len(dir)),
		byName: make(map[string]models.ArrowPtr, 2*len(dir)),
	}

	for i, e := range dir {
		if e.Ptr != models.ArrowPtr(i+1) {
			return nil, fmt.Errorf("arrows: %w: %q has pointer %d at position %d",
				apperr.ErrRegistryMismatch, e.Long, e.Ptr, i+1)
		}
		st, err := models.SemanticTypeFromSTAIndex(e.STAIndex)
		if err != nil {
			return nil, fmt.Errorf("arrows: %q: %w", e.Long, err)
		}
		for _, name := range []string{e.Long, e.Short} {
			if prev, ok := r.byName[name]; ok && prev != e.Ptr {
				return nil, fmt.Errorf("arrows: %w: name %q used by arrows %d and %d",
					apperr.ErrRegistryMismatch, name, prev, e.Ptr)
			}
			r.byName[name] = e.Ptr
		}
		r.arrows[i] = models.Arrow{
			Ptr:          e.Ptr,
			STAIndex:     e.STAIndex,
			Long:         e.Long,
			Short:        e.Short,
			SemanticType: st,
		}
		r.bySTT[e.STAIndex] = append(r.bySTT[e.STAIndex], e.Ptr)
	}

	for _, p := range pairs {
		if !r.valid(p.Plus) || !r.valid(p.Minus) {
			return nil, fmt.Errorf("arrows: %w: pair (%d,%d) outside directory",
				apperr.ErrBrokenInverse, p.Plus, p.Minus)
		}
		a := &r.arrows[p.Plus-1]
		if a.Inverse != 0 && a.Inverse != p.Minus {
			return nil, fmt.Errorf("arrows: %w: %q paired with both %d and %d",
				apperr.ErrBrokenInverse, a.Long, a.Inverse, p.Minus)
		}
		a.Inverse = p.Minus
	}

	for _, a := range r.arrows {
		if a.Inverse == 0 {
			return nil, fmt.Errorf("arrows: %w: %q has no inverse", apperr.ErrBrokenInverse, a.Long)
		}
		inv := r.arrows[a.Inverse-1]
		if inv.Inverse != a.Ptr {
			return nil, fmt.Errorf("arrows: %w: inverse of %q is %q whose inverse is %d",
				apperr.ErrBrokenInverse, a.Long, inv.Long, inv.Inverse)
		}
		if inv.SemanticType != -a.SemanticType {
			return nil, fmt.Errorf("arrows: %w: %q (%s) and %q (%s) are not opposite",
				apperr.ErrBrokenInverse, a.Long, a.SemanticType, inv.Long, inv.SemanticType)
		}
	}
	return r, nil
}

func (r *Registry) valid(ptr models.ArrowPtr) bool {
	return ptr >= 1 && int(ptr) <= len(r.arrows)
}

// Resolve looks an arrow up by its long or short name.
func (r *Registry) Resolve(name string) (models.ArrowPtr, models.SemanticType, error) {
	ptr, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", apperr.ErrUnknownArrow, name)
	}
	return ptr, r.arrows[ptr-1].SemanticType, nil
}

// InverseOf returns the arrow paired with ptr.
func (r *Registry) InverseOf(ptr models.ArrowPtr) (models.ArrowPtr, error) {
	if !r.valid(ptr) {
		return 0, fmt.Errorf("%w: no arrow %d", apperr.ErrBrokenInverse, ptr)
	}
	return r.arrows[ptr-1].Inverse, nil
}

// Get returns the arrow at ptr.
func (r *Registry) Get(ptr models.ArrowPtr) (models.Arrow, error) {
	if !r.valid(ptr) {
		return models.Arrow{}, fmt.Errorf("%w: no arrow %d", apperr.ErrUnknownArrow, ptr)
	}
	return r.arrows[ptr-1], nil
}

// BySemanticType lists the arrows of one semantic type in pointer order.
func (r *Registry) BySemanticType(st models.SemanticType) []models.Arrow {
	if !st.Valid() {
		return nil
	}
	ptrs := r.bySTT[st.STAIndex()]
	out := make([]models.Arrow, len(ptrs))
	for i, p := range ptrs {
		out[i] = r.arrows[p-1]
	}
	return out
}

// All returns a copy of the catalog in pointer order.
func (r *Registry) All() []models.Arrow {
	out := make([]models.Arrow, len(r.arrows))
	copy(out, r.arrows)
	return out
}

// Len returns the number of arrows.
func (r *Registry) Len() int {
	return len(r.arrows)
}

// Names returns every long and short name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
