// Package models defines the domain types of the semantic spacetime graph.
package models

import (
	"fmt"
	"strings"

	"github.com/starford/spacetime/internal/apperr"
)

// NodePtr addresses a node by its size class and its index inside that class lane.
// The zero value addresses no node.
type NodePtr struct {
	Class int `json:"class"`
	CPtr  int `json:"cptr"`
}

// IsZero reports whether p addresses no node.
func (p NodePtr) IsZero() bool {
	return p == NodePtr{}
}

func (p NodePtr) String() string {
	return fmt.Sprintf("(%d,%d)", p.Class, p.CPtr)
}

// ArrowPtr is a 1-based position in the arrow directory.
type ArrowPtr int

// AnchorArrow marks the first link of a path: it carries no relation,
// only the start node as its destination.
const AnchorArrow ArrowPtr = 0

// ContextPtr is a position in the context directory; 0 means no context.
type ContextPtr int

// NoContext is the pointer used for links without context tags.
const NoContext ContextPtr = 0

// Link is a typed, weighted edge stored in the channel of its source node.
type Link struct {
	Arrow   ArrowPtr   `json:"arrow"`
	Weight  float32    `json:"weight"`
	Context ContextPtr `json:"context"`
	Dst     NodePtr    `json:"dst"`
}

// Node is a vertex with its seven channel arrays.
type Node struct {
	Text     string              `json:"text"`
	Length   int                 `json:"length"`
	Chapter  string              `json:"chapter"`
	Ptr      NodePtr             `json:"nptr"`
	Channels [NumChannels][]Link `json:"channels"`
}

// Links returns the channel array selected by st.
func (n *Node) Links(st SemanticType) ([]Link, error) {
	ch, err := st.Channel()
	if err != nil {
		return nil, err
	}
	return n.Channels[ch], nil
}

// HasLink reports whether l is stored in the channel for st.
func (n *Node) HasLink(st SemanticType, l Link) bool {
	links, err := n.Links(st)
	if err != nil {
		return false
	}
	for _, have := range links {
		if have == l {
			return true
		}
	}
	return false
}

// Arrow is a named edge kind with its registered inverse.
type Arrow struct {
	Ptr          ArrowPtr     `json:"ptr"`
	STAIndex     int          `json:"sta_index"`
	Long         string       `json:"long"`
	Short        string       `json:"short"`
	SemanticType SemanticType `json:"sttype"`
	Inverse      ArrowPtr     `json:"inverse"`
}

// Path is a walk through the graph. Paths produced by the store start
// with an anchor link whose destination is the start node.
type Path []Link

// Start returns the node the path begins at.
func (p Path) Start() (NodePtr, bool) {
	if len(p) == 0 || p[0].Arrow != AnchorArrow {
		return NodePtr{}, false
	}
	return p[0].Dst, true
}

// Hops returns the links after the anchor.
func (p Path) Hops() []Link {
	if _, ok := p.Start(); ok {
		return p[1:]
	}
	return p
}

// End returns the destination of the last link.
func (p Path) End() (NodePtr, bool) {
	if len(p) == 0 {
		return NodePtr{}, false
	}
	return p[len(p)-1].Dst, true
}

// Orientation selects which half of the link cone a search follows.
type Orientation int

const (
	Both Orientation = iota
	Forward
	Backward
)

// ParseOrientation accepts "fwd", "bwd", "both" or the empty string (both).
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return Both, nil
	case "fwd", "forward":
		return Forward, nil
	case "bwd", "backward":
		return Backward, nil
	}
	return Both, fmt.Errorf("%w: %q", apperr.ErrInvalidOrientation, s)
}

func (o Orientation) String() string {
	switch o {
	case Forward:
		return "fwd"
	case Backward:
		return "bwd"
	}
	return "both"
}

// SemanticTypes returns the semantic types a cone search follows, in channel order.
func (o Orientation) SemanticTypes() []SemanticType {
	switch o {
	case Forward:
		return []SemanticType{Near, LeadsTo, Contains, Express}
	case Backward:
		return []SemanticType{NegExpress, NegContains, NegLeadsTo, Near}
	}
	return []SemanticType{NegExpress, NegContains, NegLeadsTo, Near, LeadsTo, Contains, Express}
}

// ArrowEntry is one row of the arrow directory as kept by the store.
type ArrowEntry struct {
	STAIndex int
	Long     string
	Short    string
	Ptr      ArrowPtr
}

// InversePair records that Minus is the inverse of Plus.
type InversePair struct {
	Plus  ArrowPtr
	Minus ArrowPtr
}
