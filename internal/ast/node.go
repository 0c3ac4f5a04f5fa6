package ast

import (
	"fmt"
	"math"

	"prism/internal/source"
	"prism/internal/types"
)

// Flags annotate a node's lifecycle and pass-specific marks.
type Flags uint8

const (
	// FlagDetached: no longer reachable from the root; may be reinserted.
	FlagDetached Flags = 1 << iota
	// FlagReleased: dropped by a rewrite; must never be reachable again.
	FlagReleased
	// FlagViewportCorrected marks derivatives already adjusted for flip/rotation.
	FlagViewportCorrected
)

// Node is one AST node. Children layout per kind:
//
//	Block        statements...
//	Function     body (Func names the signature)
//	Declaration  Symbol | Binary(Initialize, Symbol, init)
//	Unary        operand
//	Binary       left, right
//	Aggregate    arguments...
//	Swizzle      operand
//	Ternary      cond, then, else
//	IfElse       cond, then block [, else block]
//	Loop         init, cond, step, body (absent slots are NoNodeID)
//	Branch       [value]
type Node struct {
	Kind    Kind
	Op      Op
	Type    *types.Type
	Span    source.Span
	Parent  NodeID
	Kids    []NodeID
	Var     VarID
	Func    FuncID
	Consts  []Const
	Swizzle []uint8
	Array   int // element count of array-valued nodes; Type is the element type
	Flags   Flags
}

func (n *Node) Has(f Flags) bool {
	return n.Flags&f != 0
}

// Const is one scalar constant. Bits holds the value in the encoding of Kind.
type Const struct {
	Kind types.BasicKind
	Bits uint64
}

func FloatConst(f float64) Const { return Const{Kind: types.BasicFloat, Bits: math.Float64bits(f)} }
func IntConst(i int64) Const     { return Const{Kind: types.BasicInt, Bits: uint64(i)} } // #nosec G115
func UIntConst(u uint64) Const   { return Const{Kind: types.BasicUInt, Bits: u} }

func BoolConst(b bool) Const {
	c := Const{Kind: types.BasicBool}
	if b {
		c.Bits = 1
	}
	return c
}

// Float converts any scalar constant to float64.
func (c Const) Float() float64 {
	switch c.Kind {
	case types.BasicFloat:
		return math.Float64frombits(c.Bits)
	case types.BasicInt:
		return float64(int64(c.Bits)) // #nosec G115
	case types.BasicBool:
		if c.Bits != 0 {
			return 1
		}
		return 0
	default:
		return float64(c.Bits)
	}
}

func (c Const) Int() int64 {
	if c.Kind == types.BasicFloat {
		return int64(math.Float64frombits(c.Bits))
	}
	return int64(c.Bits) // #nosec G115
}

func (c Const) String() string {
	switch c.Kind {
	case types.BasicFloat:
		return fmt.Sprintf("%g", c.Float())
	case types.BasicInt:
		return fmt.Sprintf("%d", c.Int())
	case types.BasicUInt:
		return fmt.Sprintf("%du", c.Bits)
	case types.BasicBool:
		if c.Bits != 0 {
			return "true"
		}
		return "false"
	}
	return "?"
}
