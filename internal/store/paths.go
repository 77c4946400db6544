package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/codec"
	"github.com/starford/spacetime/internal/contexts"
	"github.com/starford/spacetime/internal/models"
)

// DefaultPathLimit caps searches that do not set a result limit.
const DefaultPathLimit = 100

// ForwardPaths walks links of one semantic type from start and returns the
// maximal simple paths of at most depth hops, encoded with the codec. Every
// path begins with an anchor link pointing at start.
func (s *SQLite) ForwardPaths(ctx context.Context, start models.NodePtr, st models.SemanticType, depth, limit int) (string, error) {
	ch, err := st.Channel()
	if err != nil {
		return "", fmt.Errorf("store: forward paths: %w", err)
	}
	w, err := s.newWalker([]models.Channel{ch}, depth, limit, nil)
	if err != nil {
		return "", err
	}
	if err := w.from(ctx, start); err != nil {
		return "", err
	}
	return codec.EncodePathArray(w.paths), nil
}

// ConePaths walks the half of the link cone selected by the orientation from
// every start node, keeping only links that pass the request's filters.
func (s *SQLite) ConePaths(ctx context.Context, req ConeRequest) (string, error) {
	sts := req.Orientation.SemanticTypes()
	chs := make([]models.Channel, 0, len(sts))
	for _, st := range sts {
		ch, err := st.Channel()
		if err != nil {
			return "", fmt.Errorf("store: cone paths: %w", err)
		}
		chs = append(chs, ch)
	}

	f := &filter{chapter: strings.ToLower(req.Chapter), context: req.Context}
	if len(req.Arrows) > 0 {
		f.arrows = make(map[models.ArrowPtr]struct{}, len(req.Arrows))
		for _, a := range req.Arrows {
			f.arrows[a] = struct{}{}
		}
	}

	w, err := s.newWalker(chs, req.Depth, req.Limit, f)
	if err != nil {
		return "", err
	}
	seen := make(map[models.NodePtr]struct{}, len(req.Start))
	for _, p := range req.Start {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if err := w.from(ctx, p); err != nil {
			return "", err
		}
		if w.full() {
			break
		}
	}
	return codec.EncodePathArray(w.paths), nil
}

// edge is one outgoing link together with what the filters need to see.
type edge struct {
	link    models.Link
	chapter string
	context string
}

type filter struct {
	chapter string
	context []string
	arrows  map[models.ArrowPtr]struct{}
}

func (f *filter) keep(e edge) bool {
	if f == nil {
		return true
	}
	if f.arrows != nil {
		if _, ok := f.arrows[e.link.Arrow]; !ok {
			return false
		}
	}
	if f.chapter != "" && !strings.Contains(strings.ToLower(e.chapter), f.chapter) {
		return false
	}
	return matchContext(f.context, e.context)
}

// matchContext reports whether any requested tag appears in the link's
// context. No tags, or the tag "any", match every link.
func matchContext(want []string, linkCtx string) bool {
	if len(want) == 0 {
		return true
	}
	have := contexts.Split(linkCtx)
	for _, w := range want {
		w = strings.TrimSpace(w)
		if strings.EqualFold(w, "any") {
			return true
		}
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

type walker struct {
	db       queryer
	channels []models.Channel
	depth    int
	limit    int
	filter   *filter

	adj   map[models.NodePtr][]edge
	paths []models.Path
}

func (s *SQLite) newWalker(chs []models.Channel, depth, limit int, f *filter) (*walker, error) {
	if depth < 0 {
		return nil, fmt.Errorf("store: depth %d: %w", depth, apperr.ErrInvalidDepth)
	}
	if limit <= 0 {
		limit = DefaultPathLimit
	}
	return &walker{
		db:       s.conn,
		channels: chs,
		depth:    depth,
		limit:    limit,
		filter:   f,
		adj:      make(map[models.NodePtr][]edge),
	}, nil
}

func (w *walker) full() bool {
	return len(w.paths) >= w.limit
}

func (w *walker) from(ctx context.Context, start models.NodePtr) error {
	ok, err := nodeExists(ctx, w.db, start)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("store: path start %s: %w", start, apperr.ErrNodeNotFound)
	}
	if w.depth == 0 {
		return nil
	}
	path := models.Path{{Arrow: models.AnchorArrow, Dst: start}}
	visited := map[models.NodePtr]bool{start: true}
	return w.walk(ctx, path, visited)
}

// walk extends path depth-first and records it once it cannot grow further.
func (w *walker) walk(ctx context.Context, path models.Path, visited map[models.NodePtr]bool) error {
	if w.full() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	at, _ := path.End()

	extended := false
	if len(path.Hops()) < w.depth {
		edges, err := w.edges(ctx, at)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if visited[e.link.Dst] || !w.filter.keep(e) {
				continue
			}
			extended = true
			visited[e.link.Dst] = true
			if err := w.walk(ctx, append(path, e.link), visited); err != nil {
				return err
			}
			delete(visited, e.link.Dst)
			if w.full() {
				return nil
			}
		}
	}
	if !extended && len(path.Hops()) > 0 {
		w.paths = append(w.paths, append(models.Path(nil), path...))
	}
	return nil
}

func (w *walker) edges(ctx context.Context, src models.NodePtr) ([]edge, error) {
	if es, ok := w.adj[src]; ok {
		return es, nil
	}
	args := []any{src.Class, src.CPtr}
	marks := make([]string, len(w.channels))
	for i, ch := range w.channels {
		marks[i] = "?"
		args = append(args, int(ch))
	}
	rows, err := w.db.QueryContext(ctx, `
		SELECT l.arrow, l.weight, l.ctx, l.dst_class, l.dst_cptr, n.chapter, COALESCE(c.context, '')
		FROM links l
		JOIN nodes n ON n.class = l.dst_class AND n.cptr = l.dst_cptr
		LEFT JOIN contexts c ON c.ptr = l.ctx
		WHERE l.src_class = ? AND l.src_cptr = ? AND l.channel IN (`+strings.Join(marks, ",")+`)
		ORDER BY l.channel, l.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: neighbours of %s: %w", src, err)
	}
	defer rows.Close()

	var out []edge
	for rows.Next() {
		var e edge
		l := &e.link
		if err := rows.Scan(&l.Arrow, &l.Weight, &l.Context, &l.Dst.Class, &l.Dst.CPtr, &e.chapter, &e.context); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	w.adj[src] = out
	return out, nil
}
