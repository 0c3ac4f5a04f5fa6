package rewrite

import (
	"fmt"
	"slices"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/trace"
)

// Handle is the compilation a pass runs against.
type Handle interface {
	Tree() *ast.Tree
	Diagnostics() *diag.Sink
	Tracer() trace.Tracer
	// ValidateAST checks the tree under root and reports problems; it returns
	// true when validation is disabled.
	ValidateAST(root ast.NodeID) bool
}

// CommitStats counts what Commit applied.
type CommitStats struct {
	Replaced int
	Removed  int
	Inserted int
	Shadowed int
	Released int
}

func (s CommitStats) String() string {
	return fmt.Sprintf("replaced=%d removed=%d inserted=%d shadowed=%d released=%d",
		s.Replaced, s.Removed, s.Inserted, s.Shadowed, s.Released)
}

// Commit applies the queued edits. Edits below a node that is itself
// replaced or removed are skipped, unless that node was moved into a
// replacement or an inserted statement. If any remaining edit is stale the
// tree is left untouched and the error wraps ErrStaleEdit. The queue is
// cleared either way.
func (t *Traverser) Commit(h Handle) (CommitStats, error) {
	if t.state != StateTraversing {
		contract("Commit", t.root, "traverser is %s", t.state)
	}
	t.state = StateCommitting
	defer func() {
		t.edits, t.inserts = nil, nil
		t.state = StateDone
	}()

	var stats CommitStats
	targets := make(map[ast.NodeID]struct{}, len(t.edits))
	for _, e := range t.edits {
		targets[e.target] = struct{}{}
	}
	// Shadowing depends on which targets are moved and the reverse, so
	// shrink both until they agree.
	moved := t.reusedTargets(t.edits, t.inserts, targets)
	var (
		live    []edit
		liveIns []insertion
	)
	for {
		live, liveIns, stats.Shadowed = t.partition(targets, moved)
		next := t.reusedTargets(live, liveIns, targets)
		if len(next) == len(moved) {
			break
		}
		moved = next
	}

	if err := t.preflight(live, liveIns, targets); err != nil {
		t.emit(h, "commit aborted", err.Error())
		return CommitStats{}, err
	}

	type parentEdits struct {
		slots   map[int]edit
		inserts []insertion
	}
	order := make([]ast.NodeID, 0, len(live)+len(liveIns))
	byParent := make(map[ast.NodeID]*parentEdits)
	get := func(p ast.NodeID) *parentEdits {
		pe, ok := byParent[p]
		if !ok {
			pe = &parentEdits{slots: make(map[int]edit)}
			byParent[p] = pe
			order = append(order, p)
		}
		return pe
	}
	for _, e := range live {
		get(e.parent).slots[e.slot] = e
	}
	for _, in := range liveIns {
		pe := get(in.block)
		pe.inserts = append(pe.inserts, in)
	}

	// Moved targets stay attached; adopt links them to their new owner.
	for id := range moved {
		t.tree.Node(id).Parent = ast.NoNodeID
	}
	for _, e := range live {
		if e.removal {
			stats.Removed++
		} else {
			stats.Replaced++
		}
		if _, ok := moved[e.target]; ok {
			continue
		}
		released := t.tree.Detach(e.target, e.disp == Dropped)
		if e.disp == Dropped {
			stats.Released += released
		} else {
			t.kept[e.target] = struct{}{}
		}
	}

	for _, p := range order {
		pe := byParent[p]
		old := t.tree.Node(p).Kids
		kids := make([]ast.NodeID, 0, len(old))
		for i := 0; i <= len(old); i++ {
			for _, in := range pe.inserts {
				if in.pos == i {
					kids = append(kids, in.before...)
					stats.Inserted += len(in.before)
				}
			}
			if i == len(old) {
				for _, in := range pe.inserts {
					if in.pos == i {
						kids = append(kids, in.after...)
						stats.Inserted += len(in.after)
					}
				}
				break
			}
			if e, ok := pe.slots[i]; ok {
				if !e.removal {
					kids = append(kids, e.repl)
				}
			} else {
				kids = append(kids, old[i])
			}
			for _, in := range pe.inserts {
				if in.pos == i {
					kids = append(kids, in.after...)
					stats.Inserted += len(in.after)
				}
			}
		}
		t.tree.SetKids(p, kids)
	}
	for _, root := range t.newRoots(live, liveIns) {
		t.adopt(root, moved)
	}

	t.emit(h, "commit", stats.String())
	return stats, nil
}

// partition splits the queue into live edits and the number of edits
// shadowed by a replaced or removed ancestor that was not moved.
func (t *Traverser) partition(targets, moved map[ast.NodeID]struct{}) ([]edit, []insertion, int) {
	shadowed := func(ancestors []ast.NodeID) bool {
		for _, a := range ancestors {
			_, edited := targets[a]
			_, kept := moved[a]
			if edited && !kept {
				return true
			}
		}
		return false
	}
	n := 0
	live := make([]edit, 0, len(t.edits))
	for _, e := range t.edits {
		if shadowed(e.ancestors) {
			n++
			continue
		}
		live = append(live, e)
	}
	liveIns := make([]insertion, 0, len(t.inserts))
	for _, in := range t.inserts {
		if shadowed(in.ancestors) {
			n++
			continue
		}
		liveIns = append(liveIns, in)
	}
	return live, liveIns, n
}

// reusedTargets collects the queued targets that the given edits link in
// again inside a replacement or an inserted statement.
func (t *Traverser) reusedTargets(edits []edit, ins []insertion, targets map[ast.NodeID]struct{}) map[ast.NodeID]struct{} {
	out := make(map[ast.NodeID]struct{})
	for _, root := range t.newRoots(edits, ins) {
		_, reused := t.scan(root, targets)
		for _, id := range reused {
			out[id] = struct{}{}
		}
	}
	return out
}

// newRoots lists the subtrees the edits link into the tree.
func (t *Traverser) newRoots(edits []edit, ins []insertion) []ast.NodeID {
	var out []ast.NodeID
	for _, e := range edits {
		if !e.removal {
			out = append(out, e.repl)
		}
	}
	for _, in := range ins {
		out = append(out, in.before...)
		out = append(out, in.after...)
	}
	return out
}

// scan walks a subtree about to be linked in. Queued targets found in it
// are returned as reused and not descended into.
func (t *Traverser) scan(root ast.NodeID, targets map[ast.NodeID]struct{}) (nodes, reused []ast.NodeID) {
	seen := make(map[ast.NodeID]struct{})
	stack := []ast.NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := seen[id]; dup || !id.IsValid() {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := targets[id]; ok {
			reused = append(reused, id)
			continue
		}
		nodes = append(nodes, id)
		if n := t.tree.Node(id); n != nil {
			stack = append(stack, n.Kids...)
		}
	}
	return nodes, reused
}

// adopt fixes the parent links of a subtree that was just linked in and
// revives subtrees handed back by an earlier commit.
func (t *Traverser) adopt(id ast.NodeID, moved map[ast.NodeID]struct{}) {
	n := t.tree.Node(id)
	if n == nil {
		return
	}
	if n.Has(ast.FlagDetached) {
		t.tree.Reattach(id)
		delete(t.kept, id)
	}
	if _, ok := moved[id]; ok {
		return
	}
	for _, k := range n.Kids {
		if kn := t.tree.Node(k); kn != nil {
			kn.Parent = id
			t.adopt(k, moved)
		}
	}
}

func (t *Traverser) preflight(live []edit, ins []insertion, targets map[ast.NodeID]struct{}) error {
	stale := func(id ast.NodeID, format string, args ...any) error {
		return fmt.Errorf("node %d: %s: %w", id, fmt.Sprintf(format, args...), ErrStaleEdit)
	}
	usable := func(id ast.NodeID) error {
		n := t.tree.Node(id)
		switch {
		case n == nil:
			return stale(id, "missing node")
		case n.Has(ast.FlagReleased):
			return stale(id, "node was released")
		case n.Parent.IsValid():
			if _, moving := targets[id]; !moving {
				return stale(id, "node is owned by %d", n.Parent)
			}
		}
		return nil
	}
	seen := make(map[ast.NodeID]struct{})
	placed := make(map[ast.NodeID]struct{})
	fresh := func(id ast.NodeID, ancestors []ast.NodeID) error {
		if _, dup := seen[id]; dup {
			return stale(id, "node inserted twice")
		}
		seen[id] = struct{}{}
		if err := usable(id); err != nil {
			return err
		}
		nodes, reused := t.scan(id, targets)
		for _, n := range nodes {
			if t.tree.Node(n).Has(ast.FlagReleased) {
				return stale(n, "subtree of %d holds a released node", id)
			}
			if slices.Contains(ancestors, n) {
				return stale(n, "subtree of %d contains its own ancestor", id)
			}
		}
		for _, r := range reused {
			if _, dup := placed[r]; dup {
				return stale(r, "node reused twice")
			}
			placed[r] = struct{}{}
		}
		return nil
	}

	for _, e := range live {
		pn := t.tree.Node(e.parent)
		if pn == nil || pn.Has(ast.FlagReleased) {
			return stale(e.parent, "parent is gone")
		}
		if e.slot < 0 || e.slot >= len(pn.Kids) || pn.Kids[e.slot] != e.target {
			return stale(e.target, "parent %d no longer holds it at slot %d", e.parent, e.slot)
		}
		if e.removal {
			continue
		}
		if err := fresh(e.repl, e.ancestors); err != nil {
			return err
		}
	}
	for _, in := range ins {
		bn := t.tree.Node(in.block)
		if bn == nil || bn.Has(ast.FlagReleased) {
			return stale(in.block, "block is gone")
		}
		if in.pos > len(bn.Kids) {
			return stale(in.block, "position %d beyond %d statements", in.pos, len(bn.Kids))
		}
		for _, s := range slices.Concat(in.before, in.after) {
			if err := fresh(s, in.ancestors); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Traverser) emit(h Handle, name, detail string) {
	if h == nil {
		return
	}
	trace.Point(h.Tracer(), trace.ScopeNode, name, detail, 0)
}

// Run traverses and commits. Commit failures are reported to the handle's
// diagnostics. The result is false when the commit failed or the tree does
// not validate afterwards.
func Run(t *Traverser, h Handle) bool {
	return RunWith(t, h, nil)
}

// RunWith is Run with a finish step between commit and validation, for
// passes that add declarations once their edits are in place.
func RunWith(t *Traverser, h Handle, finish func()) bool {
	if !TraverseAndCommit(t, h) {
		return false
	}
	if finish != nil {
		finish()
	}
	return h.ValidateAST(t.root)
}

// TraverseAndCommit is Run without validation, for passes that rewrite one
// function at a time and validate the whole tree once at the end.
func TraverseAndCommit(t *Traverser, h Handle) bool {
	t.Traverse()
	if _, err := t.Commit(h); err != nil {
		h.Diagnostics().Error(source.NoSpan, diag.PasStaleEdit, "", err.Error())
		return false
	}
	return true
}
