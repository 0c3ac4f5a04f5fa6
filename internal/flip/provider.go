package flip

import (
	"prism/internal/ast"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// Provider builds expressions that evaluate to orientation constants.
// Every call returns a fresh unowned subtree.
type Provider interface {
	// FlipXY is a vec2 of the x and y flip signs.
	FlipXY() ast.NodeID
	// Multiplier is one weight of the pre-rotated derivative: axis 0 scales
	// dFdx(x), axis 1 scales dFdy(x), in the correction of the derivative
	// selected by dfdy.
	Multiplier(dfdy bool, axis int) ast.NodeID
	// FragRotation is the mat2 that maps gl_FragCoord.xy of a pre-rotated
	// surface to the orientation the shader was written for.
	FragRotation() ast.NodeID
	// Finish declares whatever the generated expressions reference. It runs
	// after the pass committed its edits.
	Finish(root ast.NodeID)
}

func highp(in *types.Interner) *types.Type {
	return in.Scalar(types.BasicFloat, types.PrecisionHigh)
}

func declareGlobal(t *ast.Tree, root ast.NodeID, decls ...ast.NodeID) {
	t.InsertKids(root, 0, decls...)
}

func internalVar(t *ast.Tree, name string, typ *types.Type, storage types.Qualifier) ast.VarID {
	q := qualifier.Default(storage, source.NoSpan)
	q.Precision = typ.Precision
	return t.Syms.NewInternal(name, t.Types.WithQualifier(typ, storage), q)
}
