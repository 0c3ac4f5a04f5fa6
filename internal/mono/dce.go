package mono

import "prism/internal/ast"

// removeGeneric drops the definitions of functions with unsupported
// parameters. Every call to them was specialized, so they are dead.
func (b *monoBuilder) removeGeneric() int {
	root := b.tree.Node(b.root)
	kids := make([]ast.NodeID, 0, len(root.Kids))
	var dead []ast.NodeID
	for _, k := range root.Kids {
		n := b.tree.Node(k)
		if _, ok := b.generic[n.Func]; ok && n.Kind == ast.KindFunction {
			dead = append(dead, k)
			continue
		}
		kids = append(kids, k)
	}
	if len(dead) == 0 {
		return 0
	}
	for _, k := range dead {
		b.tree.Detach(k, true)
	}
	b.tree.SetKids(b.root, kids)
	return len(dead)
}
