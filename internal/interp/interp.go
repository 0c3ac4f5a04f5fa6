// Package interp evaluates side-effect free float expressions of a shader
// tree. Tests use it to check rewritten arithmetic against reference values.
package interp

import (
	"errors"
	"fmt"
	"math"

	"prism/internal/ast"
	"prism/internal/types"
)

var ErrUnsupported = errors.New("unsupported expression")

// Value is a scalar, vector or column-major matrix in Comps, or an array
// in Elems.
type Value struct {
	Comps []float64
	Elems []Value
}

func Scalar(f float64) Value     { return Value{Comps: []float64{f}} }
func Vector(fs ...float64) Value { return Value{Comps: fs} }
func (v Value) IsArray() bool    { return v.Elems != nil }
func (v Value) Float() float64   { return v.Comps[0] }

func (v Value) String() string {
	if v.IsArray() {
		return fmt.Sprint(v.Elems)
	}
	if len(v.Comps) == 1 {
		return fmt.Sprintf("%g", v.Comps[0])
	}
	return fmt.Sprint(v.Comps)
}

// DerivativeFunc returns the value of op (dFdx, dFdy or fwidth) applied to
// operand.
type DerivativeFunc func(op ast.Op, operand Value) Value

// Env binds symbols and derivatives for evaluation.
type Env struct {
	Vars       map[ast.VarID]Value
	Derivative DerivativeFunc
}

// ConstantDerivatives makes every dFdx component dx and every dFdy
// component dy; fwidth is |dx|+|dy|.
func ConstantDerivatives(dx, dy float64) DerivativeFunc {
	return func(op ast.Op, operand Value) Value {
		d := dx
		switch op {
		case ast.OpDFdy:
			d = dy
		case ast.OpFwidth:
			d = math.Abs(dx) + math.Abs(dy)
		}
		out := make([]float64, len(operand.Comps))
		for i := range out {
			out[i] = d
		}
		return Value{Comps: out}
	}
}

// Eval evaluates the expression at id.
func Eval(t *ast.Tree, id ast.NodeID, env *Env) (Value, error) {
	e := &evaluator{tree: t, env: env}
	return e.eval(id)
}

type evaluator struct {
	tree *ast.Tree
	env  *Env
}

func (e *evaluator) unsupported(id ast.NodeID, what string) error {
	return fmt.Errorf("node %d: %s: %w", id, what, ErrUnsupported)
}

func (e *evaluator) eval(id ast.NodeID) (Value, error) {
	n := e.tree.Node(id)
	if n == nil {
		return Value{}, e.unsupported(id, "missing node")
	}
	switch n.Kind {
	case ast.KindConstant:
		out := make([]float64, len(n.Consts))
		for i, c := range n.Consts {
			out[i] = c.Float()
		}
		return Value{Comps: out}, nil
	case ast.KindSymbol:
		if e.env != nil {
			if v, ok := e.env.Vars[n.Var]; ok {
				return v, nil
			}
		}
		return Value{}, e.unsupported(id, "unbound symbol "+e.tree.Syms.VarName(n.Var))
	case ast.KindSwizzle:
		x, err := e.eval(n.Kids[0])
		if err != nil {
			return Value{}, err
		}
		out := make([]float64, len(n.Swizzle))
		for i, o := range n.Swizzle {
			if int(o) >= len(x.Comps) {
				return Value{}, e.unsupported(id, "swizzle out of range")
			}
			out[i] = x.Comps[o]
		}
		return Value{Comps: out}, nil
	case ast.KindUnary:
		return e.unary(id, n)
	case ast.KindBinary:
		return e.binary(id, n)
	case ast.KindAggregate:
		return e.aggregate(id, n)
	case ast.KindTernary:
		c, err := e.eval(n.Kids[0])
		if err != nil {
			return Value{}, err
		}
		if c.Float() != 0 {
			return e.eval(n.Kids[1])
		}
		return e.eval(n.Kids[2])
	}
	return Value{}, e.unsupported(id, n.Kind.String())
}

func (e *evaluator) unary(id ast.NodeID, n *ast.Node) (Value, error) {
	op := n.Op
	x, err := e.eval(n.Kids[0])
	if err != nil {
		return Value{}, err
	}
	if op.IsDerivative() {
		if e.env == nil || e.env.Derivative == nil {
			return Value{}, e.unsupported(id, "no derivative callback")
		}
		return e.env.Derivative(op, x), nil
	}
	var f func(float64) float64
	switch op {
	case ast.OpNegative:
		f = func(v float64) float64 { return -v }
	case ast.OpPositive:
		f = func(v float64) float64 { return v }
	case ast.OpFloor:
		f = math.Floor
	case ast.OpAbs:
		f = math.Abs
	case ast.OpSqrt:
		f = math.Sqrt
	default:
		return Value{}, e.unsupported(id, "unary "+op.Ident())
	}
	out := make([]float64, len(x.Comps))
	for i, v := range x.Comps {
		out[i] = f(v)
	}
	return Value{Comps: out}, nil
}

func (e *evaluator) binary(id ast.NodeID, n *ast.Node) (Value, error) {
	l, err := e.eval(n.Kids[0])
	if err != nil {
		return Value{}, err
	}
	r, err := e.eval(n.Kids[1])
	if err != nil {
		return Value{}, err
	}
	if n.Op == ast.OpIndexDirect || n.Op == ast.OpIndexIndirect {
		return e.index(id, n, l, int(r.Float()))
	}
	var f func(a, b float64) float64
	switch n.Op {
	case ast.OpAdd:
		f = func(a, b float64) float64 { return a + b }
	case ast.OpSub:
		f = func(a, b float64) float64 { return a - b }
	case ast.OpMul:
		f = func(a, b float64) float64 { return a * b }
	case ast.OpDiv:
		f = func(a, b float64) float64 { return a / b }
	default:
		return Value{}, e.unsupported(id, "binary "+n.Op.Ident())
	}
	if n.Op == ast.OpMul && e.isMatrix(n.Kids[0]) && !e.isScalar(n.Kids[1]) {
		if e.isMatrix(n.Kids[1]) {
			return Value{}, e.unsupported(id, "matrix product")
		}
		return e.transform(id, e.tree.Node(n.Kids[0]).Type, l, r)
	}
	switch {
	case len(l.Comps) == len(r.Comps):
	case len(l.Comps) == 1:
		l = splat(l.Comps[0], len(r.Comps))
	case len(r.Comps) == 1:
		r = splat(r.Comps[0], len(l.Comps))
	default:
		return Value{}, e.unsupported(id, "operand size mismatch")
	}
	out := make([]float64, len(l.Comps))
	for i := range out {
		out[i] = f(l.Comps[i], r.Comps[i])
	}
	return Value{Comps: out}, nil
}

// transform multiplies column-major m by the column vector v.
func (e *evaluator) transform(id ast.NodeID, mt *types.Type, m, v Value) (Value, error) {
	cols, rows := int(mt.Primary), int(mt.Secondary)
	if len(v.Comps) != cols || len(m.Comps) != cols*rows {
		return Value{}, e.unsupported(id, "operand size mismatch")
	}
	out := make([]float64, rows)
	for c := range cols {
		for r := range rows {
			out[r] += m.Comps[c*rows+r] * v.Comps[c]
		}
	}
	return Value{Comps: out}, nil
}

func (e *evaluator) isMatrix(id ast.NodeID) bool {
	n := e.tree.Node(id)
	return n.Array == 0 && n.Type != nil && n.Type.IsMatrix()
}

func (e *evaluator) isScalar(id ast.NodeID) bool {
	n := e.tree.Node(id)
	return n.Type != nil && n.Type.IsScalar()
}

func (e *evaluator) index(id ast.NodeID, n *ast.Node, base Value, i int) (Value, error) {
	switch {
	case base.IsArray():
		if i < 0 || i >= len(base.Elems) {
			return Value{}, e.unsupported(id, fmt.Sprintf("array index %d out of range", i))
		}
		return base.Elems[i], nil
	case e.isMatrix(n.Kids[0]):
		rows := int(e.tree.Node(n.Kids[0]).Type.Secondary)
		if i < 0 || (i+1)*rows > len(base.Comps) {
			return Value{}, e.unsupported(id, "matrix column out of range")
		}
		return Value{Comps: base.Comps[i*rows : (i+1)*rows]}, nil
	default:
		if i < 0 || i >= len(base.Comps) {
			return Value{}, e.unsupported(id, "component out of range")
		}
		return Scalar(base.Comps[i]), nil
	}
}

func (e *evaluator) aggregate(id ast.NodeID, n *ast.Node) (Value, error) {
	args := make([]Value, len(n.Kids))
	for i, k := range n.Kids {
		v, err := e.eval(k)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch n.Op {
	case ast.OpConstructArray:
		return Value{Elems: args}, nil
	case ast.OpConstruct:
		want := n.Type.Components()
		var flat []float64
		for _, a := range args {
			flat = append(flat, a.Comps...)
		}
		if len(flat) == 1 && want > 1 {
			if n.Type.IsMatrix() {
				return diagonal(flat[0], int(n.Type.Primary), int(n.Type.Secondary)), nil
			}
			return splat(flat[0], want), nil
		}
		if len(flat) < want {
			return Value{}, e.unsupported(id, "short constructor")
		}
		return Value{Comps: flat[:want]}, nil
	case ast.OpMin, ast.OpMax:
		if len(args) != 2 || len(args[0].Comps) != len(args[1].Comps) {
			return Value{}, e.unsupported(id, n.Op.Ident())
		}
		out := make([]float64, len(args[0].Comps))
		for i := range out {
			if n.Op == ast.OpMin {
				out[i] = math.Min(args[0].Comps[i], args[1].Comps[i])
			} else {
				out[i] = math.Max(args[0].Comps[i], args[1].Comps[i])
			}
		}
		return Value{Comps: out}, nil
	}
	return Value{}, e.unsupported(id, "aggregate "+n.Op.Ident())
}

func splat(f float64, n int) Value {
	out := make([]float64, n)
	for i := range out {
		out[i] = f
	}
	return Value{Comps: out}
}

func diagonal(f float64, cols, rows int) Value {
	out := make([]float64, cols*rows)
	for c := 0; c < cols && c < rows; c++ {
		out[c*rows+c] = f
	}
	return Value{Comps: out}
}
