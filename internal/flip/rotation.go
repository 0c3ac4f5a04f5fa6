// Package flip supplies the per-orientation constants that viewport
// correction passes multiply into screen-space derivatives.
package flip

import (
	"fmt"
	"strings"
)

// Rotation is the orientation of the presentation surface.
type Rotation uint8

const (
	Identity Rotation = iota
	Rotated90
	Rotated180
	Rotated270
	FlippedIdentity
	FlippedRotated90
	FlippedRotated180
	FlippedRotated270

	NumRotations
)

var rotationNames = [NumRotations]string{
	"identity", "rot90", "rot180", "rot270",
	"flipped", "flipped-rot90", "flipped-rot180", "flipped-rot270",
}

func (r Rotation) String() string {
	if r < NumRotations {
		return rotationNames[r]
	}
	return fmt.Sprintf("Rotation(%d)", r)
}

// ParseRotation accepts the names printed by String and the plain degree
// values 0, 90, 180 and 270.
func ParseRotation(s string) (Rotation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0":
		return Identity, nil
	case "90":
		return Rotated90, nil
	case "180":
		return Rotated180, nil
	case "270":
		return Rotated270, nil
	}
	for i, n := range rotationNames {
		if n == s {
			return Rotation(i), nil
		}
	}
	return Identity, fmt.Errorf("unknown surface rotation %q", s)
}

type (
	mat2 [4]float64 // column major
	vec2 [2]float64
)

var fragRotation = [NumRotations]mat2{
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{1, 0, 0, 1},
	{0, 1, 1, 0},
}

var flipXY = [NumRotations]vec2{
	{1, 1},
	{1, 1},
	{-1, 1},
	{-1, -1},
	{1, -1},
	{1, 1},
	{1, 1},
	{-1, -1},
}

// FragRotationMatrix returns the column-major matrix applied to
// gl_FragCoord for r.
func FragRotationMatrix(r Rotation) [4]float64 { return fragRotation[r] }

func FlipXY(r Rotation) [2]float64 { return flipXY[r] }

// RotatedFlipXYForDFdx returns the weights of dFdx and dFdy in the corrected
// value of dFdx.
func RotatedFlipXYForDFdx(r Rotation) [2]float64 {
	return [2]float64{flipXY[r][0] * fragRotation[r][0], flipXY[r][1] * fragRotation[r][1]}
}

// RotatedFlipXYForDFdy is RotatedFlipXYForDFdx for dFdy.
func RotatedFlipXYForDFdy(r Rotation) [2]float64 {
	return [2]float64{flipXY[r][0] * fragRotation[r][2], flipXY[r][1] * fragRotation[r][3]}
}

// Multipliers returns the weights for the derivative selected by dfdy
// (false: dFdx) as (weight of dFdx, weight of dFdy).
func Multipliers(r Rotation, dfdy bool) [2]float64 {
	if dfdy {
		return RotatedFlipXYForDFdy(r)
	}
	return RotatedFlipXYForDFdx(r)
}
