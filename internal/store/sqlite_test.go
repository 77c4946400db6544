package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/arrows"
	"github.com/starford/spacetime/internal/codec"
	"github.com/starford/spacetime/internal/models"
)

func testDB(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "spacetime-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := OpenSQLite(context.Background(), f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustNode(t *testing.T, db *SQLite, class int, text, chapter string) models.NodePtr {
	t.Helper()
	p, _, err := db.InsertNode(context.Background(), len(text), class, text, chapter)
	if err != nil {
		t.Fatalf("InsertNode(%q): %v", text, err)
	}
	return p
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"nodes", "links", "arrows", "arrow_inverses", "contexts", "imports"} {
		var n int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenUnreachable(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "dir", "graph.db")
	_, err := OpenSQLite(context.Background(), dsn)
	if !errors.Is(err, apperr.ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
}

func TestInsertNodeIdempotent(t *testing.T) {
	db := testDB(t)
	a := mustNode(t, db, 1, "apple", "fruit")
	again := mustNode(t, db, 1, "apple", "fruit")
	if a != again {
		t.Errorf("second insert returned %v, want %v", again, a)
	}
	b := mustNode(t, db, 1, "banana", "fruit")
	if b.CPtr != a.CPtr+1 || b.Class != 1 {
		t.Errorf("banana = %v, want next index after %v", b, a)
	}
	c := mustNode(t, db, 2, "green apple", "fruit")
	if c.CPtr != 1 {
		t.Errorf("first node of class 2 has index %d, want 1", c.CPtr)
	}
	st, _ := db.Stats(context.Background())
	if st.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", st.Nodes)
	}

	if _, created, _ := db.InsertNode(context.Background(), 5, 1, "apple", "fruit"); created {
		t.Error("existing node reported as created")
	}
	if _, created, _ := db.InsertNode(context.Background(), 4, 1, "pear", "fruit"); !created {
		t.Error("new node not reported as created")
	}
}

func TestLookupNodeNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.LookupNode(context.Background(), models.NodePtr{Class: 1, CPtr: 42})
	if !errors.Is(err, apperr.ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestDefineArrowPair(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for range 2 {
		if err := db.DefineArrowPair(ctx, models.LeadsTo, "then", "then", "previously", "prev"); err != nil {
			t.Fatalf("DefineArrowPair: %v", err)
		}
	}
	if err := db.DefineArrowPair(ctx, models.Near, "is near", "near", "is near", "near"); err != nil {
		t.Fatalf("DefineArrowPair self-inverse: %v", err)
	}

	dir, err := db.ArrowDirectory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dir) != 3 {
		t.Fatalf("directory has %d arrows, want 3", len(dir))
	}
	for i, e := range dir {
		if e.Ptr != models.ArrowPtr(i+1) {
			t.Errorf("entry %d has pointer %d", i, e.Ptr)
		}
	}
	if dir[1].STAIndex != models.NegLeadsTo.STAIndex() {
		t.Errorf("previously has sta index %d", dir[1].STAIndex)
	}

	pairs, _ := db.ArrowInverses(ctx)
	want := []models.InversePair{{Plus: 1, Minus: 2}, {Plus: 2, Minus: 1}, {Plus: 3, Minus: 3}}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}

	err = db.DefineArrowPair(ctx, models.Contains, "then", "then", "previously", "prev")
	if !errors.Is(err, apperr.ErrRegistryMismatch) {
		t.Errorf("redefining with another type: err = %v", err)
	}
}

func TestDefineArrowPairRejectsRepairing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.DefineArrowPair(ctx, models.LeadsTo, "then", "then", "previously", "prev"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name                   string
		long, short, inv, invS string
	}{
		{"forward already paired", "then", "then", "before", "before"},
		{"inverse already paired", "follows", "follows", "previously", "prev"},
	}
	for _, tc := range cases {
		err := db.DefineArrowPair(ctx, models.LeadsTo, tc.long, tc.short, tc.inv, tc.invS)
		if !errors.Is(err, apperr.ErrRegistryMismatch) {
			t.Errorf("%s: err = %v, want ErrRegistryMismatch", tc.name, err)
		}
	}

	dir, _ := db.ArrowDirectory(ctx)
	if len(dir) != 2 {
		t.Errorf("directory has %d arrows after rejected definitions, want 2", len(dir))
	}
	reg, err := arrows.Load(ctx, db)
	if err != nil {
		t.Fatalf("arrows.Load after rejected definitions: %v", err)
	}
	if p, _, err := reg.Resolve("then"); err != nil || p != 1 {
		t.Errorf("Resolve(then) = %d, %v", p, err)
	}
}

func seedArrows(t *testing.T, db *SQLite) {
	t.Helper()
	ctx := context.Background()
	// 1 then, 2 previously, 3 contains, 4 is part of
	if err := db.DefineArrowPair(ctx, models.LeadsTo, "then", "then", "previously", "prev"); err != nil {
		t.Fatal(err)
	}
	if err := db.DefineArrowPair(ctx, models.Contains, "contains", "contain", "is part of", "part-of"); err != nil {
		t.Fatal(err)
	}
}

func TestAppendLinkIdempotent(t *testing.T) {
	db := testDB(t)
	seedArrows(t, db)
	ctx := context.Background()
	a := mustNode(t, db, 1, "a", "")
	b := mustNode(t, db, 1, "b", "")
	ch, _ := models.LeadsTo.Channel()
	l := models.Link{Arrow: 1, Weight: 0.5, Dst: b}

	for range 2 {
		if err := db.AppendLink(ctx, a, ch, l); err != nil {
			t.Fatalf("AppendLink: %v", err)
		}
	}
	n, err := db.LookupNode(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(n.Channels[ch]); got != 1 {
		t.Errorf("channel holds %d links, want 1", got)
	}
	if n.Channels[ch][0] != l {
		t.Errorf("stored %+v, want %+v", n.Channels[ch][0], l)
	}

	other := l
	other.Weight = 0.75
	if err := db.AppendLink(ctx, a, ch, other); err != nil {
		t.Fatal(err)
	}
	n, _ = db.LookupNode(ctx, a)
	if len(n.Channels[ch]) != 2 {
		t.Errorf("a different weight is a different link, got %d links", len(n.Channels[ch]))
	}
}

func TestAppendLinksCountsNewLinks(t *testing.T) {
	db := testDB(t)
	seedArrows(t, db)
	ctx := context.Background()
	a := mustNode(t, db, 1, "a", "")
	b := mustNode(t, db, 1, "b", "")
	fwd, _ := models.LeadsTo.Channel()
	bwd, _ := models.NegLeadsTo.Channel()
	batch := []LinkAppend{
		{Src: a, Channel: fwd, Link: models.Link{Arrow: 1, Weight: 1, Dst: b}},
		{Src: b, Channel: bwd, Link: models.Link{Arrow: 2, Weight: 1, Dst: a}},
	}

	if n, err := db.AppendLinks(ctx, batch); err != nil || n != 2 {
		t.Fatalf("first append = %d, %v; want 2", n, err)
	}
	if n, err := db.AppendLinks(ctx, batch); err != nil || n != 0 {
		t.Errorf("repeated append = %d, %v; want 0", n, err)
	}
}

func TestAppendLinksRollsBackOnMissingNode(t *testing.T) {
	db := testDB(t)
	seedArrows(t, db)
	ctx := context.Background()
	a := mustNode(t, db, 1, "a", "")
	b := mustNode(t, db, 1, "b", "")
	ghost := models.NodePtr{Class: 3, CPtr: 99}
	fwd, _ := models.LeadsTo.Channel()
	bwd, _ := models.NegLeadsTo.Channel()

	_, err := db.AppendLinks(ctx, []LinkAppend{
		{Src: a, Channel: fwd, Link: models.Link{Arrow: 1, Weight: 1, Dst: b}},
		{Src: b, Channel: bwd, Link: models.Link{Arrow: 2, Weight: 1, Dst: a}},
		{Src: a, Channel: fwd, Link: models.Link{Arrow: 1, Weight: 1, Dst: ghost}},
	})
	if !errors.Is(err, apperr.ErrNodeNotFound) {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
	st, _ := db.Stats(ctx)
	if st.Links != 0 {
		t.Errorf("%d links survived a failed batch", st.Links)
	}
}

func TestRegisterContext(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p1, err := db.RegisterContext(ctx, "home,kitchen")
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := db.RegisterContext(ctx, "home,kitchen")
	if p1 != p2 || p1 == models.NoContext {
		t.Errorf("pointers %d and %d", p1, p2)
	}
	got, ok, err := db.LookupContext(ctx, "home,kitchen")
	if err != nil || !ok || got != p1 {
		t.Errorf("LookupContext = %d, %v, %v", got, ok, err)
	}
	if _, ok, _ := db.LookupContext(ctx, "garden"); ok {
		t.Error("unknown context found")
	}
	if _, err := db.RegisterContext(ctx, ""); err == nil {
		t.Error("empty context was registered")
	}
	dir, _ := db.ContextDirectory(ctx)
	if len(dir) != 1 || dir["home,kitchen"] != p1 {
		t.Errorf("directory = %v", dir)
	}
}

func TestFindNodes(t *testing.T) {
	db := testDB(t)
	mustNode(t, db, 1, "apple", "fruit")
	mustNode(t, db, 2, "apple pie", "baking")
	mustNode(t, db, 1, "carrot", "vegetable")

	got, err := db.FindNodes(context.Background(), "apple", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("found %d nodes, want 2", len(got))
	}
	got, _ = db.FindNodes(context.Background(), "apple", "bak", 10)
	if len(got) != 1 || got[0].Text != "apple pie" {
		t.Errorf("chapter filter: %+v", got)
	}
}

func TestImportChecksum(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if cs, err := db.ImportChecksum(ctx, "a.yaml"); err != nil || cs != "" {
		t.Fatalf("fresh checksum = %q, %v", cs, err)
	}
	_ = db.SetImportChecksum(ctx, "a.yaml", "one")
	_ = db.SetImportChecksum(ctx, "a.yaml", "two")
	if cs, _ := db.ImportChecksum(ctx, "a.yaml"); cs != "two" {
		t.Errorf("checksum = %q, want two", cs)
	}
}

// chain builds a -then-> b -then-> c -then-> a plus a -contains-> d, with inverses.
func chain(t *testing.T, db *SQLite) (a, b, c, d models.NodePtr) {
	t.Helper()
	seedArrows(t, db)
	ctx := context.Background()
	a = mustNode(t, db, 1, "a", "story")
	b = mustNode(t, db, 1, "b", "story")
	c = mustNode(t, db, 1, "c", "epilogue")
	d = mustNode(t, db, 1, "d", "story")
	kitchen, _ := db.RegisterContext(ctx, "home,kitchen")

	fwd, _ := models.LeadsTo.Channel()
	bwd, _ := models.NegLeadsTo.Channel()
	has, _ := models.Contains.Channel()
	in, _ := models.NegContains.Channel()
	pair := func(src, dst models.NodePtr, ch, inv models.Channel, arrow, inverse models.ArrowPtr, cp models.ContextPtr) {
		_, err := db.AppendLinks(ctx, []LinkAppend{
			{Src: src, Channel: ch, Link: models.Link{Arrow: arrow, Weight: 1, Context: cp, Dst: dst}},
			{Src: dst, Channel: inv, Link: models.Link{Arrow: inverse, Weight: 1, Context: cp, Dst: src}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	pair(a, b, fwd, bwd, 1, 2, kitchen)
	pair(b, c, fwd, bwd, 1, 2, models.NoContext)
	pair(c, a, fwd, bwd, 1, 2, models.NoContext)
	pair(a, d, has, in, 3, 4, models.NoContext)
	return a, b, c, d
}

func decode(t *testing.T, blob string) []models.Path {
	t.Helper()
	paths, err := codec.DecodePathArray(blob)
	if err != nil {
		t.Fatalf("DecodePathArray(%q): %v", blob, err)
	}
	return paths
}

func TestForwardPaths(t *testing.T) {
	db := testDB(t)
	a, b, c, _ := chain(t, db)
	ctx := context.Background()

	blob, err := db.ForwardPaths(ctx, a, models.LeadsTo, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	paths := decode(t, blob)
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1 (the cycle stops at a): %v", len(paths), paths)
	}
	p := paths[0]
	if start, ok := p.Start(); !ok || start != a {
		t.Errorf("path does not start with an anchor at a: %v", p)
	}
	hops := p.Hops()
	if len(hops) != 2 || hops[0].Dst != b || hops[1].Dst != c {
		t.Errorf("hops = %v, want a->b->c", hops)
	}

	blob, _ = db.ForwardPaths(ctx, a, models.LeadsTo, 1, 10)
	if paths := decode(t, blob); len(paths) != 1 || len(paths[0].Hops()) != 1 {
		t.Errorf("depth 1 gave %v", paths)
	}

	blob, _ = db.ForwardPaths(ctx, a, models.LeadsTo, 0, 10)
	if blob != "" {
		t.Errorf("depth 0 gave %q", blob)
	}

	_, err = db.ForwardPaths(ctx, models.NodePtr{Class: 6, CPtr: 1}, models.LeadsTo, 2, 10)
	if !errors.Is(err, apperr.ErrNodeNotFound) {
		t.Errorf("missing start: err = %v", err)
	}
	_, err = db.ForwardPaths(ctx, a, 4, 2, 10)
	if !errors.Is(err, apperr.ErrSTTypeOutOfRange) {
		t.Errorf("bad sttype: err = %v", err)
	}
	_, err = db.ForwardPaths(ctx, a, models.LeadsTo, -1, 10)
	if !errors.Is(err, apperr.ErrInvalidDepth) {
		t.Errorf("negative depth: err = %v", err)
	}
}

func TestConePaths(t *testing.T) {
	db := testDB(t)
	a, b, c, d := chain(t, db)
	ctx := context.Background()

	cone := func(req ConeRequest) []models.Path {
		t.Helper()
		blob, err := db.ConePaths(ctx, req)
		if err != nil {
			t.Fatalf("ConePaths(%+v): %v", req, err)
		}
		return decode(t, blob)
	}

	fwd := cone(ConeRequest{Orientation: models.Forward, Start: []models.NodePtr{a}, Depth: 1})
	ends := map[models.NodePtr]bool{}
	for _, p := range fwd {
		e, _ := p.End()
		ends[e] = true
	}
	if len(fwd) != 2 || !ends[b] || !ends[d] {
		t.Errorf("forward cone from a = %v, want ends b and d", fwd)
	}

	bwd := cone(ConeRequest{Orientation: models.Backward, Start: []models.NodePtr{b}, Depth: 1})
	if len(bwd) != 1 || bwd[0].Hops()[0].Dst != a || bwd[0].Hops()[0].Arrow != 2 {
		t.Errorf("backward cone from b = %v, want one inverse link to a", bwd)
	}

	both := cone(ConeRequest{Orientation: models.Both, Start: []models.NodePtr{b}, Depth: 1})
	if len(both) != 2 {
		t.Errorf("both cone from b = %v, want a and c", both)
	}

	byChapter := cone(ConeRequest{Orientation: models.Forward, Start: []models.NodePtr{b}, Depth: 1, Chapter: "EPI"})
	if len(byChapter) != 1 || byChapter[0].Hops()[0].Dst != c {
		t.Errorf("chapter filter = %v", byChapter)
	}

	byContext := cone(ConeRequest{Orientation: models.Forward, Start: []models.NodePtr{a}, Depth: 1, Context: []string{"Kitchen"}})
	if len(byContext) != 1 || byContext[0].Hops()[0].Dst != b {
		t.Errorf("context filter = %v", byContext)
	}

	byArrow := cone(ConeRequest{Orientation: models.Forward, Start: []models.NodePtr{a}, Depth: 3, Arrows: []models.ArrowPtr{3}})
	if len(byArrow) != 1 || byArrow[0].Hops()[0].Dst != d {
		t.Errorf("arrow filter = %v", byArrow)
	}

	multi := cone(ConeRequest{Orientation: models.Forward, Start: []models.NodePtr{a, b, a}, Depth: 1, Limit: 2})
	if len(multi) != 2 {
		t.Errorf("limit 2 gave %d paths", len(multi))
	}
}

func TestMatchContext(t *testing.T) {
	cases := []struct {
		want []string
		have string
		ok   bool
	}{
		{nil, "", true},
		{nil, "home", true},
		{[]string{"home"}, "", false},
		{[]string{"any"}, "", true},
		{[]string{"HOME"}, "home,kitchen", true},
		{[]string{"garden", "kitchen"}, "home,kitchen", true},
		{[]string{"garden"}, "home,kitchen", false},
	}
	for _, c := range cases {
		if got := matchContext(c.want, c.have); got != c.ok {
			t.Errorf("matchContext(%v, %q) = %v, want %v", c.want, c.have, got, c.ok)
		}
	}
}
