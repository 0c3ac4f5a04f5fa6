package ast

import (
	"fmt"

	"prism/internal/source"
	"prism/internal/types"
)

// Constructors. Every constructor adopts its children, so callers must pass
// nodes that are not owned elsewhere (clone first).

func (t *Tree) Block(stmts ...NodeID) NodeID {
	return t.Add(Node{Kind: KindBlock, Kids: stmts})
}

func (t *Tree) Symbol(v VarID) NodeID {
	return t.Add(Node{Kind: KindSymbol, Var: v, Type: t.Syms.Var(v).Type})
}

func (t *Tree) Constant(typ *types.Type, values ...Const) NodeID {
	return t.Add(Node{Kind: KindConstant, Type: typ, Consts: values})
}

// Float builds a float constant of the given precision.
func (t *Tree) Float(f float64, prec types.Precision) NodeID {
	return t.Constant(t.Types.Scalar(types.BasicFloat, prec), FloatConst(f))
}

func (t *Tree) Int(i int64) NodeID {
	return t.Constant(t.Types.Scalar(types.BasicInt, types.PrecisionHigh), IntConst(i))
}

func (t *Tree) UInt(u uint64) NodeID {
	return t.Constant(t.Types.Scalar(types.BasicUInt, types.PrecisionHigh), UIntConst(u))
}

func (t *Tree) Bool(b bool) NodeID {
	return t.Constant(t.Types.Bool(), BoolConst(b))
}

// Unary builds a unary operator or single-argument built-in.
func (t *Tree) Unary(op Op, x NodeID) NodeID {
	xt := t.Node(x).Type
	var rt *types.Type
	switch op {
	case OpLogicalNot:
		rt = t.Types.Bool()
	case OpLength:
		rt = t.Types.Component(xt)
	default:
		rt = t.Types.WithQualifier(xt, types.QualTemporary)
	}
	return t.Add(Node{Kind: KindUnary, Op: op, Type: rt, Kids: []NodeID{x}})
}

// Binary builds a binary operator and derives its result type.
func (t *Tree) Binary(op Op, l, r NodeID) NodeID {
	ln, rn := t.Node(l), t.Node(r)
	rt := t.binaryType(op, ln, rn)
	return t.Add(Node{Kind: KindBinary, Op: op, Type: rt, Kids: []NodeID{l, r}})
}

func (t *Tree) binaryType(op Op, ln, rn *Node) *types.Type {
	lt, rtp := ln.Type, rn.Type
	switch {
	case op.IsAssignment():
		return lt
	case op.IsComparison():
		return t.Types.Bool()
	case op == OpIndexDirect || op == OpIndexIndirect:
		switch {
		case ln.Array > 0:
			return lt
		case lt.IsMatrix():
			return t.Types.Intern(lt.Basic, lt.Precision, types.QualTemporary, lt.Secondary, 1)
		default:
			return t.Types.Component(lt)
		}
	}
	prec := max(lt.Precision, rtp.Precision)
	switch {
	case lt.IsScalar() && !rtp.IsScalar():
		return t.Types.Intern(rtp.Basic, prec, types.QualTemporary, rtp.Primary, rtp.Secondary)
	case op == OpMul && lt.IsMatrix() && rtp.IsVector():
		return t.Types.Intern(rtp.Basic, prec, types.QualTemporary, lt.Secondary, 1)
	case op == OpMul && lt.IsVector() && rtp.IsMatrix():
		return t.Types.Intern(lt.Basic, prec, types.QualTemporary, rtp.Primary, 1)
	}
	return t.Types.Intern(lt.Basic, prec, types.QualTemporary, lt.Primary, lt.Secondary)
}

// Aggregate builds a built-in call or constructor with an explicit result type.
func (t *Tree) Aggregate(op Op, typ *types.Type, args ...NodeID) NodeID {
	return t.Add(Node{Kind: KindAggregate, Op: op, Type: typ, Kids: args})
}

// Call builds a user function call.
func (t *Tree) Call(fn FuncID, args ...NodeID) NodeID {
	f := t.Syms.Func(fn)
	if f == nil {
		panic(fmt.Sprintf("ast: call to unknown function %d", fn))
	}
	return t.Add(Node{Kind: KindAggregate, Op: OpCallFunction, Func: fn, Type: f.Return, Kids: args})
}

func (t *Tree) Construct(typ *types.Type, args ...NodeID) NodeID {
	return t.Aggregate(OpConstruct, t.Types.WithQualifier(typ, types.QualTemporary), args...)
}

// ConstructArray builds elem[len(args)](args...).
func (t *Tree) ConstructArray(elem *types.Type, args ...NodeID) NodeID {
	return t.Add(Node{
		Kind:  KindAggregate,
		Op:    OpConstructArray,
		Type:  t.Types.WithQualifier(elem, types.QualTemporary),
		Kids:  args,
		Array: len(args),
	})
}

// FloatArray builds a constant float array constructor.
func (t *Tree) FloatArray(prec types.Precision, values ...float64) NodeID {
	args := make([]NodeID, len(values))
	for i, v := range values {
		args[i] = t.Float(v, prec)
	}
	return t.ConstructArray(t.Types.Scalar(types.BasicFloat, prec), args...)
}

// Index builds base[i] with a constant index.
func (t *Tree) Index(base NodeID, i int64) NodeID {
	return t.Binary(OpIndexDirect, base, t.Int(i))
}

// IndexBy builds base[expr].
func (t *Tree) IndexBy(base, index NodeID) NodeID {
	op := OpIndexIndirect
	if t.Node(index).Kind == KindConstant {
		op = OpIndexDirect
	}
	return t.Binary(op, base, index)
}

// Swizzle builds x.xyzw selections from component offsets.
func (t *Tree) Swizzle(x NodeID, offsets ...uint8) NodeID {
	xt := t.Node(x).Type
	n := len(offsets)
	if n == 0 || n > 4 {
		panic(fmt.Sprintf("ast: swizzle with %d components", n))
	}
	rt := t.Types.Intern(xt.Basic, xt.Precision, types.QualTemporary, uint8(n), 1) // #nosec G115
	return t.Add(Node{Kind: KindSwizzle, Type: rt, Swizzle: offsets, Kids: []NodeID{x}})
}

// Declare builds a declaration, with an initializer when init is valid.
func (t *Tree) Declare(v VarID, init NodeID) NodeID {
	sym := t.Symbol(v)
	if !init.IsValid() {
		return t.Add(Node{Kind: KindDeclaration, Kids: []NodeID{sym}})
	}
	return t.Add(Node{Kind: KindDeclaration, Kids: []NodeID{t.Binary(OpInitialize, sym, init)}})
}

// TempDeclaration declares a fresh temporary initialized with init.
func (t *Tree) TempDeclaration(init NodeID) (VarID, NodeID) {
	it := t.Node(init).Type
	v := t.Syms.NewTemp(t.Types.WithQualifier(it, types.QualTemporary))
	t.Syms.Var(v).Quals.Precision = it.Precision
	return v, t.Declare(v, init)
}

func (t *Tree) Assign(l, r NodeID) NodeID {
	return t.Binary(OpAssign, l, r)
}

// FunctionDef builds a function definition node.
func (t *Tree) FunctionDef(fn FuncID, body NodeID) NodeID {
	return t.Add(Node{Kind: KindFunction, Func: fn, Type: t.Syms.Func(fn).Return, Kids: []NodeID{body}})
}

func (t *Tree) Branch(op Op, value NodeID) NodeID {
	n := Node{Kind: KindBranch, Op: op}
	if value.IsValid() {
		n.Kids = []NodeID{value}
		n.Type = t.Node(value).Type
	}
	return t.Add(n)
}

func (t *Tree) If(cond, then, els NodeID) NodeID {
	kids := []NodeID{cond, then}
	if els.IsValid() {
		kids = append(kids, els)
	}
	return t.Add(Node{Kind: KindIfElse, Kids: kids})
}

func (t *Tree) Ternary(cond, a, b NodeID) NodeID {
	return t.Add(Node{Kind: KindTernary, Type: t.Node(a).Type, Kids: []NodeID{cond, a, b}})
}

// Loop builds a loop; init, cond and step may be NoNodeID.
func (t *Tree) Loop(op Op, init, cond, step, body NodeID) NodeID {
	return t.Add(Node{Kind: KindLoop, Op: op, Kids: []NodeID{init, cond, step, body}})
}

// MemoryBarrier builds memoryBarrier().
func (t *Tree) MemoryBarrier() NodeID {
	return t.Aggregate(OpMemoryBarrier, t.Types.Void())
}

// ImageLoad builds imageLoad(image, coord); the result is the 4-component
// texel of the image's scalar kind.
func (t *Tree) ImageLoad(image, coord NodeID) NodeID {
	it := t.Node(image).Type
	texel := types.BasicFloat
	switch it.Basic {
	case types.BasicIImage2D:
		texel = types.BasicInt
	case types.BasicUImage2D:
		texel = types.BasicUInt
	}
	rt := t.Types.Vec(texel, max(it.Precision, types.PrecisionMedium), 4)
	return t.Aggregate(OpImageLoad, rt, image, coord)
}

// ImageStore builds imageStore(image, coord, value).
func (t *Tree) ImageStore(image, coord, value NodeID) NodeID {
	return t.Aggregate(OpImageStore, t.Types.Void(), image, coord, value)
}

// WithSpan sets the span of id and returns it, for chaining in constructors.
func (t *Tree) WithSpan(id NodeID, sp source.Span) NodeID {
	t.Node(id).Span = sp
	return id
}
