// Package contexts normalizes tag sets and maps them to store pointers.
package contexts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/starford/spacetime/internal/models"
)

const sep = ","

// Source is the part of the store the registry talks to.
type Source interface {
	ContextDirectory(ctx context.Context) (map[string]models.ContextPtr, error)
	LookupContext(ctx context.Context, normalized string) (models.ContextPtr, bool, error)
	RegisterContext(ctx context.Context, normalized string) (models.ContextPtr, error)
}

// Normalize trims, dedupes and sorts tags and joins them with commas.
// A tag containing a comma is split into its parts.
func Normalize(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, t := range strings.Split(raw, sep) {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return strings.Join(out, sep)
}

// Split returns the tags of a normalized context string.
func Split(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, sep)
}

// Registry caches normalized context strings and their pointers for one
// session. Entries are only ever added.
type Registry struct {
	src Source

	mu    sync.RWMutex
	byStr map[string]models.ContextPtr
	byPtr map[models.ContextPtr]string

	group singleflight.Group
}

// Load creates a registry primed with every context src already knows.
func Load(ctx context.Context, src Source) (*Registry, error) {
	dir, err := src.ContextDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("contexts: load directory: %w", err)
	}
	r := &Registry{
		src:   src,
		byStr: make(map[string]models.ContextPtr, len(dir)),
		byPtr: make(map[models.ContextPtr]string, len(dir)),
	}
	for s, p := range dir {
		r.byStr[s] = p
		r.byPtr[p] = s
	}
	return r, nil
}

// Resolve returns the pointer for a normalized context, registering it with
// the store on first use. The empty context is always NoContext.
func (r *Registry) Resolve(ctx context.Context, normalized string) (models.ContextPtr, error) {
	if normalized == "" {
		return models.NoContext, nil
	}
	if p, ok := r.cached(normalized); ok {
		return p, nil
	}

	// The shared call outlives any single caller; each caller waits on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(normalized, func() (any, error) {
		if p, ok := r.cached(normalized); ok {
			return p, nil
		}
		p, found, err := r.src.LookupContext(shared, normalized)
		if err != nil {
			return nil, err
		}
		if !found {
			p, err = r.src.RegisterContext(shared, normalized)
			if err != nil {
				return nil, err
			}
		}
		r.mu.Lock()
		r.byStr[normalized] = p
		r.byPtr[p] = normalized
		r.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return models.NoContext, fmt.Errorf("contexts: resolve %q: %w", normalized, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.NoContext, fmt.Errorf("contexts: resolve %q: %w", normalized, res.Err)
		}
		return res.Val.(models.ContextPtr), nil
	}
}

// ResolveTags normalizes tags and resolves the result.
func (r *Registry) ResolveTags(ctx context.Context, tags []string) (models.ContextPtr, error) {
	return r.Resolve(ctx, Normalize(tags))
}

// Get returns the normalized string cached for ptr.
func (r *Registry) Get(ptr models.ContextPtr) (string, bool) {
	if ptr == models.NoContext {
		return "", true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byPtr[ptr]
	return s, ok
}

// Tags returns the individual tags of the context at ptr.
func (r *Registry) Tags(ptr models.ContextPtr) []string {
	s, _ := r.Get(ptr)
	return Split(s)
}

// Len returns the number of cached contexts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byStr)
}

func (r *Registry) cached(s string) (models.ContextPtr, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byStr[s]
	return p, ok
}
