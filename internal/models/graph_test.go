package models

import (
	"errors"
	"testing"

	"github.com/starford/spacetime/internal/apperr"
)

func TestChannelMapping(t *testing.T) {
	want := map[SemanticType]string{
		NegExpress: "Im3", NegContains: "Im2", NegLeadsTo: "Im1", Near: "In0",
		LeadsTo: "Il1", Contains: "Ic2", Express: "Ie3",
	}
	for st, name := range want {
		ch, err := st.Channel()
		if err != nil {
			t.Fatalf("Channel(%d): %v", st, err)
		}
		if ch.Name() != name {
			t.Errorf("Channel(%d).Name() = %q, want %q", st, ch.Name(), name)
		}
		if ch.SemanticType() != st {
			t.Errorf("channel %s maps back to %d, want %d", name, ch.SemanticType(), st)
		}
	}
}

func TestChannelOutOfRange(t *testing.T) {
	for _, st := range []SemanticType{-4, 4, 100} {
		if _, err := st.Channel(); !errors.Is(err, apperr.ErrSTTypeOutOfRange) {
			t.Errorf("Channel(%d) err = %v, want ErrSTTypeOutOfRange", st, err)
		}
	}
}

func TestSTAIndexRoundTrip(t *testing.T) {
	for st := NegExpress; st <= Express; st++ {
		got, err := SemanticTypeFromSTAIndex(st.STAIndex())
		if err != nil || got != st {
			t.Errorf("round trip of %d = %d, %v", st, got, err)
		}
	}
	if _, err := SemanticTypeFromSTAIndex(7); err == nil {
		t.Error("sta index 7 should be rejected")
	}
}

func TestParseOrientation(t *testing.T) {
	cases := map[string]Orientation{"": Both, "both": Both, "fwd": Forward, "BWD": Backward}
	for in, want := range cases {
		got, err := ParseOrientation(in)
		if err != nil || got != want {
			t.Errorf("ParseOrientation(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOrientation("sideways"); !errors.Is(err, apperr.ErrInvalidOrientation) {
		t.Errorf("expected ErrInvalidOrientation, got %v", err)
	}
}

func TestPathStartAndHops(t *testing.T) {
	start := NodePtr{Class: 1, CPtr: 4}
	p := Path{
		{Arrow: AnchorArrow, Dst: start},
		{Arrow: 3, Weight: 1, Dst: NodePtr{Class: 2, CPtr: 1}},
	}
	got, ok := p.Start()
	if !ok || got != start {
		t.Fatalf("Start() = %v, %v", got, ok)
	}
	if len(p.Hops()) != 1 {
		t.Errorf("Hops() = %d links, want 1", len(p.Hops()))
	}
	end, _ := p.End()
	if end != (NodePtr{Class: 2, CPtr: 1}) {
		t.Errorf("End() = %v", end)
	}
}

func TestNodeHasLink(t *testing.T) {
	l := Link{Arrow: 2, Weight: 1, Dst: NodePtr{Class: 1, CPtr: 2}}
	var n Node
	n.Channels[4] = []Link{l}
	if !n.HasLink(LeadsTo, l) {
		t.Error("expected link in leads-to channel")
	}
	if n.HasLink(NegLeadsTo, l) {
		t.Error("link should not appear in the inverse channel")
	}
}
