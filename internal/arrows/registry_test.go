package arrows

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

// memSource keeps a directory in memory the way the store does.
type memSource struct {
	dir   []models.ArrowEntry
	pairs []models.InversePair
}

func (m *memSource) ArrowDirectory(context.Context) ([]models.ArrowEntry, error) {
	return m.dir, nil
}

func (m *memSource) ArrowInverses(context.Context) ([]models.InversePair, error) {
	return m.pairs, nil
}

func (m *memSource) add(st models.SemanticType, long, short string) models.ArrowPtr {
	for _, e := range m.dir {
		if e.Long == long {
			return e.Ptr
		}
	}
	ptr := models.ArrowPtr(len(m.dir) + 1)
	m.dir = append(m.dir, models.ArrowEntry{STAIndex: st.STAIndex(), Long: long, Short: short, Ptr: ptr})
	return ptr
}

func (m *memSource) DefineArrowPair(_ context.Context, st models.SemanticType, long, short, invLong, invShort string) error {
	fwd := m.add(st, long, short)
	inv := m.add(-st, invLong, invShort)
	m.pairs = append(m.pairs, models.InversePair{Plus: fwd, Minus: inv}, models.InversePair{Plus: inv, Minus: fwd})
	return nil
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	src := &memSource{}
	if err := Seed(context.Background(), src, DefaultVocabulary()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	r, err := Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestInverseIsInvolutionAndNegation(t *testing.T) {
	r := defaultRegistry(t)
	if r.Len() == 0 {
		t.Fatal("empty registry")
	}
	for _, a := range r.All() {
		inv, err := r.InverseOf(a.Ptr)
		if err != nil {
			t.Fatalf("InverseOf(%d): %v", a.Ptr, err)
		}
		back, err := r.InverseOf(inv)
		if err != nil || back != a.Ptr {
			t.Errorf("inverse(inverse(%q)) = %d, want %d", a.Long, back, a.Ptr)
		}
		ia, _ := r.Get(inv)
		if ia.SemanticType != -a.SemanticType {
			t.Errorf("%q is %s but inverse %q is %s", a.Long, a.SemanticType, ia.Long, ia.SemanticType)
		}
	}
}

func TestResolveByLongAndShortName(t *testing.T) {
	r := defaultRegistry(t)
	long, st, err := r.Resolve("leads to")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	short, _, _ := r.Resolve("fwd")
	if long != short {
		t.Errorf("long and short names resolve to %d and %d", long, short)
	}
	if st != models.LeadsTo {
		t.Errorf("sttype = %s, want leadsto", st)
	}
	if _, st, _ := r.Resolve("then"); st != models.LeadsTo {
		t.Errorf("then has sttype %s", st)
	}
}

func TestResolveUnknown(t *testing.T) {
	r := defaultRegistry(t)
	if _, _, err := r.Resolve("teleports to"); !errors.Is(err, apperr.ErrUnknownArrow) {
		t.Errorf("err = %v, want ErrUnknownArrow", err)
	}
}

func TestSelfInverseNear(t *testing.T) {
	r := defaultRegistry(t)
	ptr, st, err := r.Resolve("near")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if st != models.Near {
		t.Fatalf("sttype = %s", st)
	}
	if inv, _ := r.InverseOf(ptr); inv != ptr {
		t.Errorf("near should be its own inverse, got %d", inv)
	}
}

func TestBySemanticType(t *testing.T) {
	r := defaultRegistry(t)
	for _, a := range r.BySemanticType(models.Contains) {
		if a.SemanticType != models.Contains {
			t.Errorf("%q listed under contains", a.Long)
		}
	}
	if len(r.BySemanticType(models.NegContains)) == 0 {
		t.Error("expected inverse containment arrows")
	}
	if r.BySemanticType(9) != nil {
		t.Error("out of range sttype should list nothing")
	}
}

func TestLoadRejectsGaps(t *testing.T) {
	src := &memSource{
		dir: []models.ArrowEntry{
			{STAIndex: 4, Long: "a", Short: "a", Ptr: 1},
			{STAIndex: 2, Long: "b", Short: "b", Ptr: 3},
		},
	}
	if _, err := Load(context.Background(), src); !errors.Is(err, apperr.ErrRegistryMismatch) {
		t.Errorf("err = %v, want ErrRegistryMismatch", err)
	}
}

func TestLoadRejectsBrokenInverse(t *testing.T) {
	dir := []models.ArrowEntry{
		{STAIndex: 4, Long: "up", Short: "up", Ptr: 1},
		{STAIndex: 2, Long: "down", Short: "down", Ptr: 2},
		{STAIndex: 4, Long: "over", Short: "over", Ptr: 3},
	}
	cases := map[string][]models.InversePair{
		"missing":        {{Plus: 1, Minus: 2}, {Plus: 2, Minus: 1}},
		"not involution": {{Plus: 1, Minus: 2}, {Plus: 2, Minus: 3}, {Plus: 3, Minus: 2}},
		"same sign":      {{Plus: 1, Minus: 3}, {Plus: 3, Minus: 1}, {Plus: 2, Minus: 2}},
		"out of range":   {{Plus: 1, Minus: 9}},
	}
	for name, pairs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), &memSource{dir: dir, pairs: pairs})
			if !errors.Is(err, apperr.ErrBrokenInverse) {
				t.Errorf("err = %v, want ErrBrokenInverse", err)
			}
		})
	}
}

func TestSeedRejectsInvalidDefinitions(t *testing.T) {
	bad := []Definition{
		{Long: "loops", Short: "loop", InverseLong: "loops", InverseShort: "loop", SemanticType: models.LeadsTo},
		{Long: "", Short: "x", InverseLong: "y", InverseShort: "z", SemanticType: models.Contains},
		{Long: "far", Short: "far", InverseLong: "farther", InverseShort: "fr", SemanticType: 5},
	}
	for _, d := range bad {
		src := &memSource{}
		if err := Seed(context.Background(), src, []Definition{d}); err == nil {
			t.Errorf("Seed(%+v) should fail", d)
		}
		if len(src.dir) != 0 {
			t.Errorf("invalid definition %q reached the store", d.Long)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	src := &memSource{}
	for range 2 {
		if err := Seed(context.Background(), src, DefaultVocabulary()); err != nil {
			t.Fatalf("Seed: %v", err)
		}
	}
	r, err := Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load after double seed: %v", err)
	}
	if r.Len() != len(src.dir) {
		t.Errorf("Len = %d, dir = %d", r.Len(), len(src.dir))
	}
}
