package graph

import "github.com/starford/spacetime/internal/models"

// EventKind names a committed mutation.
type EventKind string

const (
	VertexCreated EventKind = "vertex.created"
	EdgeCreated   EventKind = "edge.created"
)

// Event describes a committed mutation. For edges Node is the source and
// Link the forward link; the inverse is implied.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Node    models.NodePtr `json:"node"`
	Text    string         `json:"text,omitempty"`
	Chapter string         `json:"chapter,omitempty"`
	Arrow   string         `json:"arrow,omitempty"`
	Link    *models.Link   `json:"link,omitempty"`
}

// Observer receives events after the store has committed them. It is called
// synchronously and must not block.
type Observer func(Event)

func (m *Model) notify(ev Event) {
	for _, fn := range m.observers {
		fn(ev)
	}
}
