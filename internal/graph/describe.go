package graph

import (
	"context"
	"fmt"

	"github.com/starford/spacetime/internal/models"
)

// Step is one link of a path with its names resolved.
type Step struct {
	Arrow   string         `json:"arrow,omitempty"`
	Weight  float32        `json:"weight,omitempty"`
	Context []string       `json:"context,omitempty"`
	Node    models.NodePtr `json:"node"`
	Text    string         `json:"text"`
}

// Describe resolves the arrow names, context tags and node texts of each
// path. The anchor link becomes a step with an empty arrow.
func (m *Model) Describe(ctx context.Context, paths []models.Path) ([][]Step, error) {
	texts := make(map[models.NodePtr]string)
	out := make([][]Step, 0, len(paths))
	for _, p := range paths {
		steps := make([]Step, 0, len(p))
		for _, l := range p {
			text, ok := texts[l.Dst]
			if !ok {
				n, err := m.store.LookupNode(ctx, l.Dst)
				if err != nil {
					return nil, fmt.Errorf("graph: describe: %w", err)
				}
				text = n.Text
				texts[l.Dst] = text
			}
			s := Step{Node: l.Dst, Text: text}
			if l.Arrow != models.AnchorArrow {
				a, err := m.arrows.Get(l.Arrow)
				if err != nil {
					return nil, fmt.Errorf("graph: describe: %w", err)
				}
				s.Arrow = a.Long
				s.Weight = l.Weight
				s.Context = m.contexts.Tags(l.Context)
			}
			steps = append(steps, s)
		}
		out = append(out, steps)
	}
	return out, nil
}
