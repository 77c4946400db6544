package models

import (
	"fmt"

	"github.com/starford/spacetime/internal/apperr"
)

// SemanticType is the signed semantic distance of a link.
// Negative values point backwards (contains/leads-from), zero is similarity,
// positive values point forwards (leads-to/generalizes).
type SemanticType int

const (
	NegExpress  SemanticType = -3
	NegContains SemanticType = -2
	NegLeadsTo  SemanticType = -1
	Near        SemanticType = 0
	LeadsTo     SemanticType = 1
	Contains    SemanticType = 2
	Express     SemanticType = 3
)

// Valid reports whether st lies in -3..3.
func (st SemanticType) Valid() bool {
	return st >= NegExpress && st <= Express
}

// Inverse returns the semantic type of the inverse arrow.
func (st SemanticType) Inverse() SemanticType {
	return -st
}

// Channel returns the channel a link of this type is stored in.
func (st SemanticType) Channel() (Channel, error) {
	if !st.Valid() {
		return 0, fmt.Errorf("%w: %d", apperr.ErrSTTypeOutOfRange, int(st))
	}
	return Channel(st + Express), nil
}

// STAIndex returns the shifted array index used by the arrow directory.
func (st SemanticType) STAIndex() int {
	return int(st + Express)
}

// SemanticTypeFromSTAIndex reverses STAIndex.
func SemanticTypeFromSTAIndex(i int) (SemanticType, error) {
	st := SemanticType(i) - Express
	if !st.Valid() {
		return 0, fmt.Errorf("%w: sta index %d", apperr.ErrSTTypeOutOfRange, i)
	}
	return st, nil
}

func (st SemanticType) String() string {
	switch st {
	case NegExpress:
		return "-express"
	case NegContains:
		return "-contains"
	case NegLeadsTo:
		return "-leadsto"
	case Near:
		return "near"
	case LeadsTo:
		return "leadsto"
	case Contains:
		return "contains"
	case Express:
		return "express"
	}
	return fmt.Sprintf("sttype(%d)", int(st))
}

// Channel is one of the seven per-node link arrays.
type Channel int

// NumChannels is the number of link channels on every node.
const NumChannels = 7

var channelNames = [NumChannels]string{"Im3", "Im2", "Im1", "In0", "Il1", "Ic2", "Ie3"}

// Name returns the storage name of the channel.
func (c Channel) Name() string {
	if c < 0 || int(c) >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// SemanticType returns the semantic type stored in this channel.
func (c Channel) SemanticType() SemanticType {
	return SemanticType(c) - Express
}

// Valid reports whether c is one of the seven channels.
func (c Channel) Valid() bool {
	return c >= 0 && int(c) < NumChannels
}
