package flip

import (
	"prism/internal/ast"
	"prism/internal/types"
)

// Driver uniform names.
const (
	UniformFlipXY  = "prismFlipXY"
	UniformDFdxMul = "prismDFdxMul"
	UniformDFdyMul = "prismDFdyMul"
	// UniformFragRotation is a mat2.
	UniformFragRotation = "prismFragRotation"
)

// DriverUniforms reads the constants from uniforms the host updates when
// the surface rotates. Uniforms are declared only when referenced.
type DriverUniforms struct {
	tree  *ast.Tree
	vars  map[string]ast.VarID
	order []string
	done  int
}

func NewDriverUniforms(t *ast.Tree) *DriverUniforms {
	return &DriverUniforms{tree: t, vars: make(map[string]ast.VarID)}
}

func (d *DriverUniforms) uniform(name string, typ *types.Type) ast.NodeID {
	v, ok := d.vars[name]
	if !ok {
		v = internalVar(d.tree, name, typ, types.QualUniform)
		d.vars[name] = v
		d.order = append(d.order, name)
	}
	return d.tree.Symbol(v)
}

func (d *DriverUniforms) vec2(name string) ast.NodeID {
	return d.uniform(name, d.tree.Types.Vec(types.BasicFloat, types.PrecisionHigh, 2))
}

func (d *DriverUniforms) FlipXY() ast.NodeID {
	return d.vec2(UniformFlipXY)
}

func (d *DriverUniforms) FragRotation() ast.NodeID {
	return d.uniform(UniformFragRotation, d.tree.Types.Mat(types.PrecisionHigh, 2, 2))
}

func (d *DriverUniforms) Multiplier(dfdy bool, axis int) ast.NodeID {
	name := UniformDFdxMul
	if dfdy {
		name = UniformDFdyMul
	}
	return d.tree.Swizzle(d.vec2(name), uint8(axis)) // #nosec G115
}

// Referenced lists the declared uniforms in first-use order.
func (d *DriverUniforms) Referenced() []string {
	return d.order
}

func (d *DriverUniforms) Finish(root ast.NodeID) {
	decls := make([]ast.NodeID, 0, len(d.order)-d.done)
	for _, name := range d.order[d.done:] {
		decls = append(decls, d.tree.Declare(d.vars[name], ast.NoNodeID))
	}
	d.done = len(d.order)
	if len(decls) > 0 {
		declareGlobal(d.tree, root, decls...)
	}
}

// Values returns the uniform contents the host uploads for r. Matrices
// are column major.
func Values(r Rotation) map[string][]float64 {
	flip, dx, dy, rot := FlipXY(r), RotatedFlipXYForDFdx(r), RotatedFlipXYForDFdy(r), FragRotationMatrix(r)
	return map[string][]float64{
		UniformFlipXY:       flip[:],
		UniformDFdxMul:      dx[:],
		UniformDFdyMul:      dy[:],
		UniformFragRotation: rot[:],
	}
}
