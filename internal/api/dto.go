package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/spacetime/internal/graph"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/storage"
	"github.com/starford/spacetime/internal/store"
)

// CreateVertexRequest is the request body for creating a vertex.
type CreateVertexRequest struct {
	Text    string `json:"text" example:"kettle" validate:"required"`
	Chapter string `json:"chapter" example:"kitchen"`
}

// VertexResponse is returned after a vertex is created or found.
type VertexResponse struct {
	Ptr models.NodePtr `json:"nptr" validate:"required"`
}

// CreateEdgeRequest is the request body for creating an edge. Weight
// defaults to 1 when omitted.
type CreateEdgeRequest struct {
	From    models.NodePtr `json:"from" validate:"required"`
	Arrow   string         `json:"arrow" example:"then" validate:"required"`
	To      models.NodePtr `json:"to" validate:"required"`
	Context []string       `json:"context" example:"morning,home"`
	Weight  *float32       `json:"weight,omitempty" example:"1"`
}

// EdgeResponse carries the forward link stored for a new edge.
type EdgeResponse struct {
	From models.NodePtr `json:"from" validate:"required"`
	Link models.Link    `json:"link" validate:"required"`
}

// NodeListResponse wraps node search results.
type NodeListResponse struct {
	Nodes []models.Node `json:"nodes" validate:"required"`
}

// ConeRequest is the request body for a cone search.
type ConeRequest struct {
	Orientation string           `json:"orientation" example:"fwd" enums:"fwd,bwd,both"`
	Start       []models.NodePtr `json:"start" validate:"required"`
	Depth       int              `json:"depth" example:"3"`
	Chapter     string           `json:"chapter,omitempty"`
	Context     []string         `json:"context,omitempty"`
	Arrows      []string         `json:"arrows,omitempty"`
	Limit       int              `json:"limit,omitempty" example:"100"`
}

// PathView is one path in both its wire form and with names resolved.
type PathView struct {
	Encoded string       `json:"encoded" example:"(0,0,0,1,1);(3,1,0,1,2)" validate:"required"`
	Steps   []graph.Step `json:"steps" validate:"required"`
}

// PathsResponse wraps path search results. Warnings lists the path lines
// the store returned that could not be decoded.
type PathsResponse struct {
	Paths    []PathView `json:"paths" validate:"required"`
	Warnings []string   `json:"warnings,omitempty"`
}

// ArrowListResponse wraps the arrow directory.
type ArrowListResponse struct {
	Arrows []models.Arrow `json:"arrows" validate:"required"`
}

// StatsResponse is the row count of each table.
type StatsResponse = store.Stats

// ImportListResponse wraps the import directory listing.
type ImportListResponse struct {
	Files []storage.FileInfo `json:"files" validate:"required"`
}

// ImportResponse is returned after an import file is written.
type ImportResponse struct {
	Path    string `json:"path" example:"kitchen.yaml" validate:"required"`
	Applied bool   `json:"applied" validate:"required"`
}

func nodePtrRule(value any) error {
	if p, ok := value.(models.NodePtr); ok && p.IsZero() {
		return validation.NewError("validation_nptr_required", "must address a node")
	}
	return nil
}

// Validate checks the request fields.
func (r CreateVertexRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// Validate checks the request fields.
func (r CreateEdgeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.By(nodePtrRule)),
		validation.Field(&r.Arrow, validation.Required),
		validation.Field(&r.To, validation.By(nodePtrRule)),
	)
}

// Validate checks the request fields.
func (r ConeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Start, validation.Required, validation.Each(validation.By(nodePtrRule))),
		validation.Field(&r.Depth, validation.Min(0)),
	)
}
