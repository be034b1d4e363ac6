package store

import (
	"testing"

	"todomanager/internal/core"
)

func ref(k core.Kind, id string) core.EntityRef {
	return core.EntityRef{Kind: k, ID: id}
}

func TestLinkTableSymmetry(t *testing.T) {
	lt := newLinkTable()
	p := ref(core.KindProject, "1")
	a := ref(core.KindTodo, "1")
	b := ref(core.KindTodo, "2")

	if !lt.link(p, a) || !lt.link(p, b) {
		t.Fatal("expected new pairs to link")
	}
	if lt.link(a, p) {
		t.Fatal("reverse of an existing pair must not link twice")
	}
	if lt.pairs != 2 {
		t.Fatalf("pairs = %d, want 2", lt.pairs)
	}

	got := lt.neighbors(p)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("neighbors(p) = %v, want [%v %v]", got, a, b)
	}
	if n := lt.neighbors(b); len(n) != 1 || n[0] != p {
		t.Fatalf("neighbors(b) = %v, want [%v]", n, p)
	}
}

func TestLinkTableUnlinkFromEitherSide(t *testing.T) {
	lt := newLinkTable()
	c := ref(core.KindCategory, "1")
	td := ref(core.KindTodo, "1")
	lt.link(td, c)

	if !lt.unlink(c, td) {
		t.Fatal("unlink from the other side should succeed")
	}
	if lt.unlink(td, c) {
		t.Fatal("second unlink should fail")
	}
	if len(lt.adj) != 0 {
		t.Fatalf("adjacency not cleaned up: %v", lt.adj)
	}
}

func TestGraphPurge(t *testing.T) {
	g := newGraph()
	todo := ref(core.KindTodo, "1")
	g.table(core.ClassTodoCategory).link(todo, ref(core.KindCategory, "1"))
	g.table(core.ClassTodoCategory).link(todo, ref(core.KindCategory, "2"))
	g.table(core.ClassProjectTodo).link(ref(core.KindProject, "1"), todo)
	g.table(core.ClassProjectCategory).link(ref(core.KindProject, "1"), ref(core.KindCategory, "1"))

	if n := g.purge(todo); n != 3 {
		t.Fatalf("purged %d pairs, want 3", n)
	}
	if g.table(core.ClassProjectCategory).pairs != 1 {
		t.Fatal("unrelated class must be untouched")
	}
	if len(g.table(core.ClassTodoCategory).neighbors(ref(core.KindCategory, "1"))) != 0 {
		t.Fatal("category still points at purged todo")
	}
}

func TestNeighborsIsACopy(t *testing.T) {
	lt := newLinkTable()
	p := ref(core.KindProject, "1")
	lt.link(p, ref(core.KindTodo, "1"))

	got := lt.neighbors(p)
	got[0] = ref(core.KindTodo, "9")

	if lt.neighbors(p)[0].ID != "1" {
		t.Fatal("neighbors leaked internal slice")
	}
}
