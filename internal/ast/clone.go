package ast

import "slices"

// Clone deep-copies the subtree at id. The copy is unowned.
func (t *Tree) Clone(id NodeID) NodeID {
	return t.CloneWith(id, nil)
}

// CloneWith deep-copies the subtree at id, substituting variable references
// found in subst.
func (t *Tree) CloneWith(id NodeID, subst map[VarID]VarID) NodeID {
	if !id.IsValid() {
		return NoNodeID
	}
	src := *t.Node(id)
	kids := make([]NodeID, len(src.Kids))
	for i, k := range src.Kids {
		kids[i] = t.CloneWith(k, subst)
	}
	n := src
	n.Kids = kids
	n.Consts = slices.Clone(src.Consts)
	n.Swizzle = slices.Clone(src.Swizzle)
	n.Flags = src.Flags &^ (FlagDetached | FlagReleased)
	if n.Kind == KindSymbol {
		if repl, ok := subst[n.Var]; ok {
			n.Var = repl
			n.Type = t.Syms.Var(repl).Type
		}
	}
	return t.Add(n)
}
