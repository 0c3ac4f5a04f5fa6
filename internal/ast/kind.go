package ast

import "fmt"

// Kind is the structural category of a node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBlock
	KindFunction
	KindDeclaration
	KindSymbol
	KindConstant
	KindUnary
	KindBinary
	KindAggregate
	KindSwizzle
	KindTernary
	KindIfElse
	KindLoop
	KindBranch

	NumKinds
)

var kindNames = [...]string{
	KindInvalid:     "Invalid",
	KindBlock:       "Block",
	KindFunction:    "Function",
	KindDeclaration: "Declaration",
	KindSymbol:      "Symbol",
	KindConstant:    "Constant",
	KindUnary:       "Unary",
	KindBinary:      "Binary",
	KindAggregate:   "Aggregate",
	KindSwizzle:     "Swizzle",
	KindTernary:     "Ternary",
	KindIfElse:      "IfElse",
	KindLoop:        "Loop",
	KindBranch:      "Branch",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// KindByName is the inverse of String.
func KindByName(s string) (Kind, bool) {
	for k := KindBlock; k < NumKinds; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return KindInvalid, false
}

// Op refines a Kind: the operator of unary and binary nodes, the built-in or
// call of aggregates, the loop form and the branch keyword.
type Op uint8

const (
	OpNone Op = iota

	// unary
	OpNegative
	OpPositive
	OpLogicalNot
	OpBitwiseNot
	OpPostIncrement
	OpPostDecrement
	OpPreIncrement
	OpPreDecrement
	OpDFdx
	OpDFdy
	OpFwidth
	OpFloor
	OpAbs
	OpSign
	OpSqrt
	OpLength
	OpNormalize

	// binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAssign
	OpInitialize
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpIndexDirect
	OpIndexIndirect
	OpEqual
	OpNotEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpLogicalAnd
	OpLogicalOr

	// aggregate
	OpCallFunction
	OpConstruct
	OpConstructArray
	OpTexture
	OpImageLoad
	OpImageStore
	OpMemoryBarrier
	OpPixelLocalLoad
	OpPixelLocalStore
	OpMin
	OpMax
	OpClamp
	OpMix
	OpDot

	// loop
	OpFor
	OpWhile
	OpDoWhile

	// branch
	OpReturn
	OpBreak
	OpContinue
	OpDiscard

	numOps
)

var opNames = [...]string{
	OpNone:            "",
	OpNegative:        "-",
	OpPositive:        "+",
	OpLogicalNot:      "!",
	OpBitwiseNot:      "~",
	OpPostIncrement:   "post++",
	OpPostDecrement:   "post--",
	OpPreIncrement:    "++",
	OpPreDecrement:    "--",
	OpDFdx:            "dFdx",
	OpDFdy:            "dFdy",
	OpFwidth:          "fwidth",
	OpFloor:           "floor",
	OpAbs:             "abs",
	OpSign:            "sign",
	OpSqrt:            "sqrt",
	OpLength:          "length",
	OpNormalize:       "normalize",
	OpAdd:             "+",
	OpSub:             "-",
	OpMul:             "*",
	OpDiv:             "/",
	OpMod:             "%",
	OpAssign:          "=",
	OpInitialize:      "init",
	OpAddAssign:       "+=",
	OpSubAssign:       "-=",
	OpMulAssign:       "*=",
	OpDivAssign:       "/=",
	OpIndexDirect:     "[]",
	OpIndexIndirect:   "[expr]",
	OpEqual:           "==",
	OpNotEqual:        "!=",
	OpLess:            "<",
	OpGreater:         ">",
	OpLessEqual:       "<=",
	OpGreaterEqual:    ">=",
	OpLogicalAnd:      "&&",
	OpLogicalOr:       "||",
	OpCallFunction:    "call",
	OpConstruct:       "construct",
	OpConstructArray:  "array",
	OpTexture:         "texture",
	OpImageLoad:       "imageLoad",
	OpImageStore:      "imageStore",
	OpMemoryBarrier:   "memoryBarrier",
	OpPixelLocalLoad:  "pixelLocalLoad",
	OpPixelLocalStore: "pixelLocalStore",
	OpMin:             "min",
	OpMax:             "max",
	OpClamp:           "clamp",
	OpMix:             "mix",
	OpDot:             "dot",
	OpFor:             "for",
	OpWhile:           "while",
	OpDoWhile:         "do-while",
	OpReturn:          "return",
	OpBreak:           "break",
	OpContinue:        "continue",
	OpDiscard:         "discard",
}

var opIdents = [...]string{
	OpNone: "None", OpNegative: "Negative", OpPositive: "Positive", OpLogicalNot: "LogicalNot",
	OpBitwiseNot: "BitwiseNot", OpPostIncrement: "PostIncrement", OpPostDecrement: "PostDecrement",
	OpPreIncrement: "PreIncrement", OpPreDecrement: "PreDecrement", OpDFdx: "DFdx", OpDFdy: "DFdy",
	OpFwidth: "Fwidth", OpFloor: "Floor", OpAbs: "Abs", OpSign: "Sign", OpSqrt: "Sqrt",
	OpLength: "Length", OpNormalize: "Normalize", OpAdd: "Add", OpSub: "Sub", OpMul: "Mul",
	OpDiv: "Div", OpMod: "Mod", OpAssign: "Assign", OpInitialize: "Initialize",
	OpAddAssign: "AddAssign", OpSubAssign: "SubAssign", OpMulAssign: "MulAssign",
	OpDivAssign: "DivAssign", OpIndexDirect: "IndexDirect", OpIndexIndirect: "IndexIndirect",
	OpEqual: "Equal", OpNotEqual: "NotEqual", OpLess: "Less", OpGreater: "Greater",
	OpLessEqual: "LessEqual", OpGreaterEqual: "GreaterEqual", OpLogicalAnd: "LogicalAnd",
	OpLogicalOr: "LogicalOr", OpCallFunction: "CallFunction", OpConstruct: "Construct",
	OpConstructArray: "ConstructArray", OpTexture: "Texture", OpImageLoad: "ImageLoad",
	OpImageStore: "ImageStore", OpMemoryBarrier: "MemoryBarrier", OpPixelLocalLoad: "PixelLocalLoad",
	OpPixelLocalStore: "PixelLocalStore", OpMin: "Min", OpMax: "Max", OpClamp: "Clamp",
	OpMix: "Mix", OpDot: "Dot", OpFor: "For", OpWhile: "While", OpDoWhile: "DoWhile",
	OpReturn: "Return", OpBreak: "Break", OpContinue: "Continue", OpDiscard: "Discard",
}

// String renders the operator as it appears in shader text.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Ident is a unique name, used by the interchange formats.
func (op Op) Ident() string {
	if int(op) < len(opIdents) {
		return opIdents[op]
	}
	return op.String()
}

func OpByIdent(s string) (Op, bool) {
	for op := OpNone; op < numOps; op++ {
		if opIdents[op] == s {
			return op, true
		}
	}
	return OpNone, false
}

func (op Op) IsDerivative() bool {
	return op == OpDFdx || op == OpDFdy
}

func (op Op) IsAssignment() bool {
	switch op {
	case OpAssign, OpInitialize, OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign:
		return true
	}
	return false
}

func (op Op) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual, OpLogicalAnd, OpLogicalOr:
		return true
	}
	return false
}

// IsBuiltInCall reports aggregate ops rendered as a function call.
func (op Op) IsBuiltInCall() bool {
	return op >= OpTexture && op <= OpDot
}
