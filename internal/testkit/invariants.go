package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/ast"
	"prism/internal/source"
)

// CheckSpanInvariants verifies the spans of a loaded tree:
// 1) every non-empty span points into sf and ends within its content
// 2) a node's non-empty span contains the non-empty spans of its children
func CheckSpanInvariants(t *ast.Tree, root ast.NodeID, sf *source.File) error {
	if t == nil || sf == nil {
		return fmt.Errorf("nil tree or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	var firstErr error
	t.Walk(root, func(id ast.NodeID, _ int) bool {
		if firstErr != nil {
			return false
		}
		n := t.Node(id)
		sp := n.Span
		if sp.Empty() {
			return true
		}
		if sp.File != sf.ID {
			firstErr = fmt.Errorf("node %d: span file mismatch: got=%d want=%d", id, sp.File, sf.ID)
			return false
		}
		if sp.End > lenContent || sp.End < sp.Start {
			firstErr = fmt.Errorf("node %d: span %v outside content of %d bytes", id, sp, lenContent)
			return false
		}
		for _, k := range n.Kids {
			kn := t.Node(k)
			if kn == nil || kn.Span.Empty() {
				continue
			}
			if !sp.Contains(kn.Span) {
				firstErr = fmt.Errorf("node %d: child %d span %v is outside %v", id, k, kn.Span, sp)
				return false
			}
		}
		return true
	})
	return firstErr
}
