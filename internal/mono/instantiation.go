package mono

import (
	"strconv"
	"strings"

	"prism/internal/ast"
	"prism/internal/source"
)

// InstantiationKey identifies one specialization: a generic function and
// the global variables bound to its opaque parameters.
//
// Go maps cannot use slices as keys, so the bound variables are folded into
// a stable ArgsKey string.
type InstantiationKey struct {
	Func    ast.FuncID
	ArgsKey string
}

func argsKey(args []ast.VarID) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}

// UseSite records a call that needed an instantiation.
type UseSite struct {
	Span   source.Span
	Caller ast.FuncID
}

// InstEntry is one specialized function.
type InstEntry struct {
	Key      InstantiationKey
	Instance ast.FuncID
	Def      ast.NodeID
	// Bound maps each opaque parameter index to the global passed for it.
	Bound    map[int]ast.VarID
	Depth    int
	UseSites []UseSite
}

// InstantiationMap tracks specializations in creation order.
type InstantiationMap struct {
	entries map[InstantiationKey]*InstEntry
	order   []*InstEntry
}

func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{entries: make(map[InstantiationKey]*InstEntry)}
}

func (m *InstantiationMap) Lookup(key InstantiationKey) *InstEntry {
	return m.entries[key]
}

func (m *InstantiationMap) add(e *InstEntry) {
	m.entries[e.Key] = e
	m.order = append(m.order, e)
}

// Entries returns the instantiations in creation order.
func (m *InstantiationMap) Entries() []*InstEntry {
	return m.order
}

func (m *InstantiationMap) Len() int {
	return len(m.order)
}
