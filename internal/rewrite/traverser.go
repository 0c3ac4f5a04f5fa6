package rewrite

import (
	"fmt"
	"slices"

	"prism/internal/ast"
)

// Disposition says what happens to a replaced subtree.
type Disposition uint8

const (
	// Dropped subtrees are released and must never be reachable again.
	Dropped Disposition = iota
	// Kept subtrees are detached and handed back through Detached.
	Kept
)

func (d Disposition) String() string {
	if d == Kept {
		return "kept"
	}
	return "dropped"
}

type State uint8

const (
	StateIdle State = iota
	StateTraversing
	StateCommitting
	StateDone
)

var stateNames = [...]string{"idle", "traversing", "committing", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

type blockPos struct {
	block ast.NodeID
	pos   int
}

// edit is a queued replacement (repl valid) or removal.
type edit struct {
	parent    ast.NodeID
	target    ast.NodeID
	slot      int
	repl      ast.NodeID
	disp      Disposition
	removal   bool
	ancestors []ast.NodeID
}

type insertion struct {
	block     ast.NodeID
	pos       int
	before    []ast.NodeID
	after     []ast.NodeID
	ancestors []ast.NodeID
}

// Traverser walks a tree calling Hooks and collects their edits.
type Traverser struct {
	tree    *ast.Tree
	hooks   *Hooks
	root    ast.NodeID
	state   State
	path    []ast.NodeID
	blocks  []blockPos
	edits   []edit
	inserts []insertion
	queued  map[ast.NodeID]struct{}
	kept    map[ast.NodeID]struct{}
}

func New(tree *ast.Tree, root ast.NodeID, hooks *Hooks) *Traverser {
	if hooks == nil {
		hooks = &Hooks{}
	}
	return &Traverser{
		tree:   tree,
		hooks:  hooks,
		root:   root,
		queued: make(map[ast.NodeID]struct{}),
		kept:   make(map[ast.NodeID]struct{}),
	}
}

func (t *Traverser) Tree() *ast.Tree  { return t.tree }
func (t *Traverser) Root() ast.NodeID { return t.root }
func (t *Traverser) State() State     { return t.state }
func (t *Traverser) Pending() int     { return len(t.edits) + len(t.inserts) }

// Traverse walks the tree from the root. It may run only once.
func (t *Traverser) Traverse() {
	if t.state != StateIdle {
		contract("Traverse", t.root, "traverser is %s", t.state)
	}
	t.state = StateTraversing
	t.visit(t.root)
}

// TraverseSubtree walks a freshly built subtree from inside a hook, so that
// nodes the hook just synthesized get the same treatment as the original
// tree. The enclosing path is hidden while the subtree is walked.
func (t *Traverser) TraverseSubtree(id ast.NodeID) {
	if t.state != StateTraversing {
		contract("TraverseSubtree", id, "traverser is %s", t.state)
	}
	path, blocks := t.path, t.blocks
	t.path, t.blocks = nil, nil
	t.visit(id)
	t.path, t.blocks = path, blocks
}

func (t *Traverser) visit(id ast.NodeID) {
	if !id.IsValid() {
		return
	}
	n := t.tree.Node(id)
	kind := n.Kind
	t.path = append(t.path, id)
	defer func() { t.path = t.path[:len(t.path)-1] }()

	descend := true
	if fn := t.hooks.pre[kind]; fn != nil {
		descend = fn(t, id)
	}
	if !descend {
		return
	}

	kids := slices.Clone(t.tree.Node(id).Kids)
	if kind == ast.KindBlock {
		t.blocks = append(t.blocks, blockPos{block: id})
		for i, k := range kids {
			t.blocks[len(t.blocks)-1].pos = i
			t.visit(k)
		}
		t.blocks = t.blocks[:len(t.blocks)-1]
	} else {
		for _, k := range kids {
			t.visit(k)
		}
	}

	if fn := t.hooks.post[kind]; fn != nil {
		fn(t, id)
	}
}

// Path returns the ancestors of the current node, root first, ending with
// the current node itself.
func (t *Traverser) Path() []ast.NodeID {
	return t.path
}

// Depth is the number of ancestors of the current node.
func (t *Traverser) Depth() int {
	return max(len(t.path)-1, 0)
}

// Parent returns the parent of the current node on the traversal path.
func (t *Traverser) Parent() ast.NodeID {
	return t.Ancestor(1)
}

// Ancestor returns the n-th ancestor of the current node; 0 is the node.
func (t *Traverser) Ancestor(n int) ast.NodeID {
	i := len(t.path) - 1 - n
	if i < 0 {
		return ast.NoNodeID
	}
	return t.path[i]
}

// ParentBlock returns the innermost block enclosing the current node and the
// index of the statement that contains it.
func (t *Traverser) ParentBlock() (ast.NodeID, int) {
	if len(t.blocks) == 0 {
		return ast.NoNodeID, -1
	}
	b := t.blocks[len(t.blocks)-1]
	return b.block, b.pos
}

// lineage returns id followed by its ancestors, nearest first. The
// traversal path wins over parent links, which a hook may already have
// moved while building a replacement.
func (t *Traverser) lineage(id ast.NodeID) []ast.NodeID {
	for i := len(t.path) - 1; i >= 0; i-- {
		if t.path[i] == id {
			out := slices.Clone(t.path[:i+1])
			slices.Reverse(out)
			return out
		}
	}
	out := []ast.NodeID{id}
	for p := t.tree.Node(id).Parent; p.IsValid(); p = t.tree.Node(p).Parent {
		out = append(out, p)
	}
	return out
}

// parentOf finds the node that owns target in the tree being walked.
func (t *Traverser) parentOf(target ast.NodeID) ast.NodeID {
	for i := len(t.path) - 1; i > 0; i-- {
		if t.path[i] == target {
			return t.path[i-1]
		}
	}
	if cur := t.Ancestor(0); cur.IsValid() && t.tree.SlotOf(cur, target) >= 0 {
		return cur
	}
	return t.tree.Node(target).Parent
}

func (t *Traverser) mustTraverse(op string, id ast.NodeID) {
	if t.state != StateTraversing {
		contract(op, id, "traverser is %s", t.state)
	}
	if t.tree.Node(id) == nil {
		contract(op, id, "no such node")
	}
}

func (t *Traverser) claim(op string, target ast.NodeID) {
	if _, dup := t.queued[target]; dup {
		contract(op, target, "node already has a queued edit")
	}
	t.queued[target] = struct{}{}
}

// QueueReplacement schedules target to be replaced by repl in its current
// parent. repl must be a new subtree that no other node owns. repl may wrap
// target itself; target is then moved into repl whatever disp says.
func (t *Traverser) QueueReplacement(target, repl ast.NodeID, disp Disposition) {
	t.mustTraverse("QueueReplacement", target)
	parent := t.parentOf(target)
	if !parent.IsValid() {
		contract("QueueReplacement", target, "node has no parent")
	}
	t.QueueReplacementWithParent(parent, target, repl, disp)
}

// QueueReplacementWithParent is QueueReplacement with an explicit parent.
func (t *Traverser) QueueReplacementWithParent(parent, target, repl ast.NodeID, disp Disposition) {
	const op = "QueueReplacement"
	t.mustTraverse(op, target)
	if !repl.IsValid() {
		contract(op, target, "replacement is empty; use QueueRemoval")
	}
	if repl == parent {
		contract(op, target, "replacement %d is the parent of its target", repl)
	}
	slot := t.tree.SlotOf(parent, target)
	if slot < 0 {
		contract(op, target, "node %d is not a child of %d", target, parent)
	}
	t.claim(op, target)
	t.edits = append(t.edits, edit{
		parent:    parent,
		target:    target,
		slot:      slot,
		repl:      repl,
		disp:      disp,
		ancestors: t.lineage(parent),
	})
}

// QueueRemoval schedules a statement to be dropped from its block.
func (t *Traverser) QueueRemoval(target ast.NodeID) {
	const op = "QueueRemoval"
	t.mustTraverse(op, target)
	parent := t.parentOf(target)
	if pn := t.tree.Node(parent); pn == nil || pn.Kind != ast.KindBlock {
		contract(op, target, "only block statements can be removed")
	}
	t.claim(op, target)
	t.edits = append(t.edits, edit{
		parent:    parent,
		target:    target,
		slot:      t.tree.SlotOf(parent, target),
		disp:      Dropped,
		removal:   true,
		ancestors: t.lineage(parent),
	})
}

// InsertStatementsInParentBlock inserts statements around the statement of
// the innermost enclosing block that contains the current node.
func (t *Traverser) InsertStatementsInParentBlock(before, after []ast.NodeID) {
	block, pos := t.ParentBlock()
	if !block.IsValid() {
		contract("InsertStatementsInParentBlock", t.Ancestor(0), "no enclosing block")
	}
	t.InsertStatementsInBlock(block, pos, before, after)
}

// InsertStatementsInBlock inserts statements around position pos of block.
// pos equal to the number of statements appends.
func (t *Traverser) InsertStatementsInBlock(block ast.NodeID, pos int, before, after []ast.NodeID) {
	const op = "InsertStatements"
	t.mustTraverse(op, block)
	bn := t.tree.Node(block)
	if bn.Kind != ast.KindBlock {
		contract(op, block, "%s is not a block", bn.Kind)
	}
	if pos < 0 || pos > len(bn.Kids) {
		contract(op, block, "position %d out of range [0,%d]", pos, len(bn.Kids))
	}
	if len(before) == 0 && len(after) == 0 {
		return
	}
	t.inserts = append(t.inserts, insertion{
		block:     block,
		pos:       pos,
		before:    slices.Clone(before),
		after:     slices.Clone(after),
		ancestors: t.lineage(block),
	})
}

// Detached reports whether target was replaced with disposition Kept. Its
// subtree is then unowned and may be linked in again.
func (t *Traverser) Detached(target ast.NodeID) bool {
	_, ok := t.kept[target]
	return ok
}
