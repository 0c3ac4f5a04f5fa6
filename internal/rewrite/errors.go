package rewrite

import (
	"errors"
	"fmt"

	"prism/internal/ast"
)

// ErrStaleEdit is returned by Commit when a queued edit no longer matches
// the tree. No edit is applied in that case.
var ErrStaleEdit = errors.New("stale edit")

// ContractError is the panic value for misuse of the traverser API, such as
// queueing two edits for one node or removing a non-statement.
type ContractError struct {
	Op     string
	Node   ast.NodeID
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("rewrite: %s on node %d: %s", e.Op, e.Node, e.Reason)
}

func contract(op string, id ast.NodeID, format string, args ...any) {
	panic(&ContractError{Op: op, Node: id, Reason: fmt.Sprintf(format, args...)})
}
