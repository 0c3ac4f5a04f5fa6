package ast

import (
	"fmt"
	"slices"

	"prism/internal/types"
)

// Tree owns the nodes of one shader. Nodes reference their children by ID
// and know their owning parent; a child whose Parent differs from the node
// listing it is shared by mistake (see internal/validate).
type Tree struct {
	nodes *Arena[Node]
	Types *types.Interner
	Syms  *Symbols
	Root  NodeID
}

func NewTree(in *types.Interner, syms *Symbols) *Tree {
	if syms == nil {
		syms = NewSymbols(nil)
	}
	return &Tree{
		nodes: NewArena[Node](256),
		Types: in,
		Syms:  syms,
	}
}

// Node returns the node for id or nil. The pointer is invalidated by the next
// node allocation; re-fetch after building new nodes.
func (t *Tree) Node(id NodeID) *Node {
	return t.nodes.Get(uint32(id))
}

// Len is the number of nodes ever allocated, live or not.
func (t *Tree) Len() int {
	return int(t.nodes.Len())
}

// Add stores n and adopts its children.
func (t *Tree) Add(n Node) NodeID {
	kids := n.Kids
	n.Kids = nil
	n.Parent = NoNodeID
	id := NodeID(t.nodes.Allocate(n))
	t.SetKids(id, kids)
	return id
}

// Kid returns the i-th child or NoNodeID.
func (t *Tree) Kid(id NodeID, i int) NodeID {
	n := t.Node(id)
	if n == nil || i < 0 || i >= len(n.Kids) {
		return NoNodeID
	}
	return n.Kids[i]
}

// SetKids replaces the children list of parent and re-parents every child.
func (t *Tree) SetKids(parent NodeID, kids []NodeID) {
	n := t.Node(parent)
	if n == nil {
		panic(fmt.Sprintf("ast: SetKids on missing node %d", parent))
	}
	n.Kids = slices.Clone(kids)
	for _, k := range kids {
		if kn := t.Node(k); kn != nil {
			kn.Parent = parent
		}
	}
}

// SetKid replaces one child slot.
func (t *Tree) SetKid(parent NodeID, slot int, kid NodeID) {
	n := t.Node(parent)
	n.Kids[slot] = kid
	if kn := t.Node(kid); kn != nil {
		kn.Parent = parent
	}
}

// InsertKids inserts kids into parent's list before position pos.
func (t *Tree) InsertKids(parent NodeID, pos int, kids ...NodeID) {
	n := t.Node(parent)
	t.SetKids(parent, slices.Insert(slices.Clone(n.Kids), pos, kids...))
}

// SlotOf returns the index of kid in parent's children or -1.
func (t *Tree) SlotOf(parent, kid NodeID) int {
	n := t.Node(parent)
	if n == nil {
		return -1
	}
	return slices.Index(n.Kids, kid)
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the node's children. depth is 0 for id.
func (t *Tree) Walk(id NodeID, fn func(id NodeID, depth int) bool) {
	t.walk(id, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !id.IsValid() {
		return
	}
	if !fn(id, depth) {
		return
	}
	for i := 0; i < len(t.Node(id).Kids); i++ {
		t.walk(t.Node(id).Kids[i], depth+1, fn)
	}
}

// Detach unlinks the subtree at id from its parent's ownership and flags
// every node it owns. With release the nodes are also marked released and
// must never be reachable again. Children that were re-parented elsewhere are
// left alone. Returns the number of nodes flagged.
func (t *Tree) Detach(id NodeID, release bool) int {
	n := t.Node(id)
	if n == nil {
		return 0
	}
	n.Parent = NoNodeID
	return t.mark(id, release)
}

func (t *Tree) mark(id NodeID, release bool) int {
	n := t.Node(id)
	n.Flags |= FlagDetached
	if release {
		n.Flags |= FlagReleased
	}
	count := 1
	for _, k := range n.Kids {
		if kn := t.Node(k); kn != nil && kn.Parent == id {
			count += t.mark(k, release)
		}
	}
	return count
}

// Reattach clears the detached flag on an owned subtree so it can be linked
// back in. Released nodes cannot be revived.
func (t *Tree) Reattach(id NodeID) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if n.Has(FlagReleased) {
		panic(fmt.Sprintf("ast: reattaching released node %d", id))
	}
	n.Flags &^= FlagDetached
	for _, k := range n.Kids {
		if kn := t.Node(k); kn != nil && kn.Parent == id {
			t.Reattach(k)
		}
	}
}

// Count returns the number of nodes reachable from id.
func (t *Tree) Count(id NodeID) int {
	c := 0
	t.Walk(id, func(NodeID, int) bool { c++; return true })
	return c
}

// DeclaredVar returns the variable introduced by a declaration node.
func (t *Tree) DeclaredVar(decl NodeID) VarID {
	n := t.Node(decl)
	if n == nil || n.Kind != KindDeclaration || len(n.Kids) == 0 {
		return NoVarID
	}
	k := t.Node(n.Kids[0])
	if k.Kind == KindBinary && k.Op == OpInitialize {
		k = t.Node(k.Kids[0])
	}
	if k == nil || k.Kind != KindSymbol {
		return NoVarID
	}
	return k.Var
}
