package command

import (
	"testing"
)

type countingNode struct {
	name     string
	mirrored bool
	calls    int
	order    *[]string
}

func (n *countingNode) Name() string     { return n.name }
func (n *countingNode) IsMirrored() bool { return n.mirrored }
func (n *countingNode) Mirror() Mirrorable {
	n.calls++
	n.mirrored = true
	if n.order != nil {
		*n.order = append(*n.order, n.name)
	}
	return n
}

func TestNewNodesStartUnmirrored(t *testing.T) {
	leaf := NewLeaf("drive", nil)
	group := NewGroup("auto")
	if leaf.IsMirrored() {
		t.Fatalf("new leaf should not be mirrored")
	}
	if group.IsMirrored() {
		t.Fatalf("new group should not be mirrored")
	}
	if group.Len() != 0 {
		t.Fatalf("new group should have no children, got %d", group.Len())
	}
}

func TestLeafMirrorReturnsItself(t *testing.T) {
	leaf := NewLeaf("turn", nil)
	got := leaf.Mirror()
	if got != Mirrorable(leaf) {
		t.Fatalf("expected Mirror to return the leaf, got %T", got)
	}
	if !leaf.IsMirrored() {
		t.Fatalf("leaf should be mirrored")
	}
	leaf.Mirror()
	if !leaf.IsMirrored() {
		t.Fatalf("second mirror must keep the flag set")
	}
}

func TestGroupMirrorPropagatesToBothChildLists(t *testing.T) {
	group := NewGroup("score")
	seq := NewLeaf("seq", nil)
	par := NewLeaf("par", nil)
	group.AddSequential(seq)
	group.AddParallel(par)

	if got := group.Mirror(); got != Mirrorable(group) {
		t.Fatalf("expected Mirror to return the group, got %T", got)
	}
	if !group.IsMirrored() {
		t.Fatalf("group should be mirrored")
	}
	if !seq.IsMirrored() {
		t.Fatalf("sequential child should be mirrored")
	}
	if !par.IsMirrored() {
		t.Fatalf("parallel child should be mirrored")
	}
}

func TestGroupMirrorCallsEachChildOncePerMirror(t *testing.T) {
	var order []string
	a := &countingNode{name: "a", order: &order}
	b := &countingNode{name: "b", order: &order}
	c := &countingNode{name: "c", order: &order}
	group := NewGroup("root")
	group.AddParallel(a)
	group.AddSequential(b)
	group.AddSequential(c)

	group.Mirror()
	for _, n := range []*countingNode{a, b, c} {
		if n.calls != 1 {
			t.Fatalf("expected %s to receive exactly one mirror call, got %d", n.name, n.calls)
		}
	}
	want := []string{"b", "c", "a"}
	if len(order) != len(want) {
		t.Fatalf("unexpected mirror order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected sequential children before parallel, got %v", order)
		}
	}
}

func TestGroupMirrorIsIdempotent(t *testing.T) {
	inner := NewGroup("inner")
	leaf := NewLeaf("leaf", nil)
	inner.AddSequential(leaf)
	root := NewGroup("root")
	root.AddParallel(inner)

	root.Mirror()
	root.Mirror()
	root.Mirror()
	for _, node := range []Command{root, inner, leaf} {
		if !node.IsMirrored() {
			t.Fatalf("%s should stay mirrored after repeated calls", node.Name())
		}
	}
	if left := Unmirrored(root); len(left) != 0 {
		t.Fatalf("expected no unmirrored nodes, got %d", len(left))
	}
}

func TestChildAddedAfterMirrorIsNotRetroactive(t *testing.T) {
	root := NewGroup("root")
	root.AddSequential(NewLeaf("early", nil))
	root.Mirror()

	late := NewLeaf("late", nil)
	root.AddParallel(late)
	if late.IsMirrored() {
		t.Fatalf("child added after mirror must not be mirrored automatically")
	}
	left := Unmirrored(root)
	if len(left) != 1 || left[0] != Command(late) {
		t.Fatalf("expected only the late child to be unmirrored, got %v", left)
	}

	root.Mirror()
	if !late.IsMirrored() {
		t.Fatalf("a later mirror call that sees the child should mirror it")
	}
}

func TestLateChildOfNestedGroupNeedsAncestorMirror(t *testing.T) {
	inner := NewGroup("inner")
	root := NewGroup("root")
	root.AddSequential(inner)
	root.Mirror()

	late := NewLeaf("late", nil)
	inner.AddSequential(late)
	if late.IsMirrored() {
		t.Fatalf("late grandchild should not be mirrored yet")
	}
	root.Mirror()
	if !late.IsMirrored() {
		t.Fatalf("mirroring the ancestor again should reach the late grandchild")
	}
}

func TestMirrorDoesNotChangeStructure(t *testing.T) {
	root := NewGroup("root")
	root.AddSequential(NewLeaf("a", nil))
	root.AddParallel(NewLeaf("b", nil))
	before := Count(root)
	root.Mirror()
	if after := Count(root); after != before {
		t.Fatalf("mirror changed node count from %d to %d", before, after)
	}
	if len(root.Sequential()) != 1 || len(root.Parallel()) != 1 {
		t.Fatalf("mirror changed child lists")
	}
}

func TestAddIgnoresNilChildren(t *testing.T) {
	root := NewGroup("root")
	root.AddSequential(nil)
	root.AddParallel(nil)
	if root.Len() != 0 {
		t.Fatalf("nil children should be ignored, got %d", root.Len())
	}
	root.Mirror()
	if !root.IsMirrored() {
		t.Fatalf("empty group should still mirror itself")
	}
}

func TestChildListsAreCopies(t *testing.T) {
	root := NewGroup("root")
	root.AddSequential(NewLeaf("a", nil))
	seq := root.Sequential()
	seq[0] = NewLeaf("swapped", nil)
	if root.Sequential()[0].Name() != "a" {
		t.Fatalf("mutating the returned slice must not touch the group")
	}
}

// Tree used by the end-to-end scenario:
//
//	f: parallel a, sequential b, sequential g
//	g: sequential c, parallel h
//	h: sequential d, parallel e
func buildScenarioTree() (*Group, map[string]Command) {
	a := NewLeaf("a", nil)
	b := NewLeaf("b", nil)
	c := NewLeaf("c", nil)
	d := NewLeaf("d", nil)
	e := NewLeaf("e", nil)

	h := NewGroup("h")
	h.AddSequential(d)
	h.AddParallel(e)

	g := NewGroup("g")
	g.AddSequential(c)
	g.AddParallel(h)

	f := NewGroup("f")
	f.AddParallel(a)
	f.AddSequential(b)
	f.AddSequential(g)

	nodes := map[string]Command{"a": a, "b": b, "c": c, "d": d, "e": e, "f": f, "g": g, "h": h}
	return f, nodes
}

func TestScenarioTreeMirrorsEveryNode(t *testing.T) {
	f, nodes := buildScenarioTree()
	for name, node := range nodes {
		if node.IsMirrored() {
			t.Fatalf("%s should start unmirrored", name)
		}
	}

	f.Mirror()
	for name, node := range nodes {
		if !node.IsMirrored() {
			t.Fatalf("%s should be mirrored after f.Mirror()", name)
		}
	}

	f.Mirror()
	for name, node := range nodes {
		if !node.IsMirrored() {
			t.Fatalf("%s should remain mirrored after a second f.Mirror()", name)
		}
	}
}

func TestMirroringSubtreeLeavesAncestorsAlone(t *testing.T) {
	f, nodes := buildScenarioTree()
	nodes["g"].Mirror()
	for _, name := range []string{"g", "c", "h", "d", "e"} {
		if !nodes[name].IsMirrored() {
			t.Fatalf("%s should be mirrored through g", name)
		}
	}
	for _, name := range []string{"f", "a", "b"} {
		if nodes[name].IsMirrored() {
			t.Fatalf("%s is outside g and should stay unmirrored", name)
		}
	}
	if got := len(Unmirrored(f)); got != 3 {
		t.Fatalf("expected 3 unmirrored nodes, got %d", got)
	}
}
