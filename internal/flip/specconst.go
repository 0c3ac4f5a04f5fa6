package flip

import (
	"fmt"

	"prism/internal/ast"
	"prism/internal/types"
)

// SpecConstName is the specialization constant selecting the rotation.
const SpecConstName = "prismSurfaceRotation"

// SurfaceRotationConstantID is the constant_id of SpecConstName.
const SurfaceRotationConstantID = 0

// SpecConst indexes constant tables of all eight rotations with a uint
// specialization constant, so one compiled module serves every orientation.
type SpecConst struct {
	tree       *ast.Tree
	sym        ast.VarID
	referenced bool
	declared   bool
}

func NewSpecConst(t *ast.Tree) *SpecConst {
	return &SpecConst{tree: t}
}

func (s *SpecConst) Var() ast.VarID {
	if !s.sym.IsValid() {
		typ := s.tree.Types.Scalar(types.BasicUInt, types.PrecisionHigh)
		s.sym = internalVar(s.tree, SpecConstName, typ, types.QualSpecConst)
	}
	return s.sym
}

// Referenced reports whether any generated expression uses the constant.
func (s *SpecConst) Referenced() bool {
	return s.referenced
}

func (s *SpecConst) index() ast.NodeID {
	s.referenced = true
	return s.tree.Symbol(s.Var())
}

func (s *SpecConst) floats(pick func(Rotation) float64) ast.NodeID {
	vals := make([]float64, NumRotations)
	for r := range NumRotations {
		vals[r] = pick(r)
	}
	return s.tree.IndexBy(s.tree.FloatArray(types.PrecisionHigh, vals...), s.index())
}

func (s *SpecConst) vec2s(pick func(Rotation) [2]float64) ast.NodeID {
	t := s.tree
	elems := make([]ast.NodeID, NumRotations)
	vt := t.Types.Vec(types.BasicFloat, types.PrecisionHigh, 2)
	for r := range NumRotations {
		v := pick(r)
		elems[r] = t.Construct(vt, t.Float(v[0], types.PrecisionHigh), t.Float(v[1], types.PrecisionHigh))
	}
	return t.IndexBy(t.ConstructArray(vt, elems...), s.index())
}

func (s *SpecConst) mat2s(table *[NumRotations]mat2) ast.NodeID {
	t := s.tree
	mt := t.Types.Mat(types.PrecisionHigh, 2, 2)
	elems := make([]ast.NodeID, NumRotations)
	for r := range NumRotations {
		m := table[r]
		args := make([]ast.NodeID, 4)
		for i := range m {
			args[i] = t.Float(m[i], types.PrecisionHigh)
		}
		elems[r] = t.Construct(mt, args...)
	}
	return t.IndexBy(t.ConstructArray(mt, elems...), s.index())
}

func (s *SpecConst) FlipXY() ast.NodeID       { return s.vec2s(FlipXY) }
func (s *SpecConst) FragRotation() ast.NodeID { return s.mat2s(&fragRotation) }

func (s *SpecConst) Multiplier(dfdy bool, axis int) ast.NodeID {
	return s.floats(func(r Rotation) float64 { return Multipliers(r, dfdy)[axis] })
}

// Finish declares the specialization constant when it was referenced.
func (s *SpecConst) Finish(root ast.NodeID) {
	if !s.referenced || s.declared {
		return
	}
	s.declared = true
	declareGlobal(s.tree, root, s.tree.Declare(s.Var(), s.tree.UInt(0)))
}

// LayoutString is the declaration a GLSL code generator emits, or "" when
// the constant is unused.
func (s *SpecConst) LayoutString() string {
	if !s.referenced {
		return ""
	}
	return fmt.Sprintf("layout(constant_id=%d) const uint %s = 0;\n\n", SurfaceRotationConstantID, SpecConstName)
}
