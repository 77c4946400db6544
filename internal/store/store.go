// Package store is the persistence side of the graph: idempotent node, link
// and context writes, the arrow directory, and path searches whose results
// come back in the codec's text encoding.
package store

import (
	"context"

	"github.com/starford/spacetime/internal/models"
)

// LinkAppend is one link to add to the channel of a source node.
type LinkAppend struct {
	Src     models.NodePtr
	Channel models.Channel
	Link    models.Link
}

// ConeRequest describes a multi-source path search.
type ConeRequest struct {
	Orientation models.Orientation
	Start       []models.NodePtr
	Depth       int
	Chapter     string // substring of the destination chapter, case-insensitive
	Context     []string
	Arrows      []models.ArrowPtr // empty follows every arrow
	Limit       int
}

// Stats counts the rows of each table.
type Stats struct {
	Nodes    int `json:"nodes"`
	Links    int `json:"links"`
	Arrows   int `json:"arrows"`
	Contexts int `json:"contexts"`
}

// Store defines the operations the graph needs from its backing store.
// Consumers should depend on this interface rather than the concrete *SQLite.
type Store interface {
	ArrowDirectory(ctx context.Context) ([]models.ArrowEntry, error)
	ArrowInverses(ctx context.Context) ([]models.InversePair, error)
	DefineArrowPair(ctx context.Context, st models.SemanticType, long, short, invLong, invShort string) error

	InsertNode(ctx context.Context, length, class int, text, chapter string) (ptr models.NodePtr, created bool, err error)
	LookupNode(ctx context.Context, ptr models.NodePtr) (*models.Node, error)
	FindNodes(ctx context.Context, text, chapter string, limit int) ([]models.Node, error)

	AppendLink(ctx context.Context, src models.NodePtr, ch models.Channel, l models.Link) error
	AppendLinks(ctx context.Context, batch []LinkAppend) (inserted int, err error)

	ContextDirectory(ctx context.Context) (map[string]models.ContextPtr, error)
	LookupContext(ctx context.Context, normalized string) (models.ContextPtr, bool, error)
	RegisterContext(ctx context.Context, normalized string) (models.ContextPtr, error)

	ForwardPaths(ctx context.Context, start models.NodePtr, st models.SemanticType, depth, limit int) (string, error)
	ConePaths(ctx context.Context, req ConeRequest) (string, error)

	ImportChecksum(ctx context.Context, path string) (string, error)
	SetImportChecksum(ctx context.Context, path, sum string) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Verify *SQLite satisfies Store at compile time.
var _ Store = (*SQLite)(nil)
