package types

import "fmt"

// Qualifier is the storage qualifier carried by a type. Interpolation and
// auxiliary qualifiers fold into the in/out variants (SmoothOut, CentroidIn...).
type Qualifier uint8

const (
	QualTemporary Qualifier = iota
	QualGlobal
	QualConst
	QualAttribute
	QualVaryingIn
	QualVaryingOut
	QualUniform
	QualBuffer
	QualShared
	QualVertexIn
	QualVertexOut
	QualFragmentIn
	QualFragmentOut
	QualFragmentInOut
	QualIn
	QualOut
	QualInOut
	QualConstReadOnly
	QualSmooth
	QualFlat
	QualNoPerspective
	QualCentroid
	QualSample
	QualSmoothOut
	QualFlatOut
	QualNoPerspectiveOut
	QualCentroidOut
	QualSampleOut
	QualSmoothIn
	QualFlatIn
	QualNoPerspectiveIn
	QualCentroidIn
	QualSampleIn
	QualSpecConst
	QualVertexID
	QualInstanceID
	QualPosition
	QualPointSize
	QualFragCoord
	QualFrontFacing
	QualPointCoord
	QualFragColor
	QualFragData
	QualFragDepth

	qualifierCount
)

var qualifierNames = [...]string{
	QualTemporary:        "Temporary",
	QualGlobal:           "Global",
	QualConst:            "const",
	QualAttribute:        "attribute",
	QualVaryingIn:        "varying",
	QualVaryingOut:       "varying",
	QualUniform:          "uniform",
	QualBuffer:           "buffer",
	QualShared:           "shared",
	QualVertexIn:         "in",
	QualVertexOut:        "out",
	QualFragmentIn:       "in",
	QualFragmentOut:      "out",
	QualFragmentInOut:    "inout",
	QualIn:               "in",
	QualOut:              "out",
	QualInOut:            "inout",
	QualConstReadOnly:    "const",
	QualSmooth:           "smooth",
	QualFlat:             "flat",
	QualNoPerspective:    "noperspective",
	QualCentroid:         "centroid",
	QualSample:           "sample",
	QualSmoothOut:        "smooth out",
	QualFlatOut:          "flat out",
	QualNoPerspectiveOut: "noperspective out",
	QualCentroidOut:      "centroid out",
	QualSampleOut:        "sample out",
	QualSmoothIn:         "smooth in",
	QualFlatIn:           "flat in",
	QualNoPerspectiveIn:  "noperspective in",
	QualCentroidIn:       "centroid in",
	QualSampleIn:         "sample in",
	QualSpecConst:        "const",
	QualVertexID:         "VertexID",
	QualInstanceID:       "InstanceID",
	QualPosition:         "Position",
	QualPointSize:        "PointSize",
	QualFragCoord:        "FragCoord",
	QualFrontFacing:      "FrontFacing",
	QualPointCoord:       "PointCoord",
	QualFragColor:        "FragColor",
	QualFragData:         "FragData",
	QualFragDepth:        "FragDepth",
}

func (q Qualifier) String() string {
	if int(q) < len(qualifierNames) {
		return qualifierNames[q]
	}
	return fmt.Sprintf("Qualifier(%d)", q)
}

// IsInterpolation reports smooth, flat and noperspective.
func (q Qualifier) IsInterpolation() bool {
	return q == QualSmooth || q == QualFlat || q == QualNoPerspective
}

// IsShaderIO reports varyings of either direction, including folded forms.
func (q Qualifier) IsShaderIO() bool {
	switch q {
	case QualVaryingIn, QualVaryingOut, QualVertexIn, QualVertexOut,
		QualFragmentIn, QualFragmentOut, QualFragmentInOut,
		QualSmoothOut, QualFlatOut, QualNoPerspectiveOut, QualCentroidOut, QualSampleOut,
		QualSmoothIn, QualFlatIn, QualNoPerspectiveIn, QualCentroidIn, QualSampleIn:
		return true
	}
	return false
}

// IsBuiltIn reports qualifiers reserved for gl_* variables.
func (q Qualifier) IsBuiltIn() bool {
	return q >= QualVertexID && q < qualifierCount
}

// IsParameter reports the four legal resolved parameter qualifiers.
func (q Qualifier) IsParameter() bool {
	switch q {
	case QualIn, QualOut, QualInOut, QualConstReadOnly:
		return true
	}
	return false
}

// ParseQualifier maps a qualifier keyword to its variable-context storage
// value for the given stage direction. "in"/"out" depend on the stage, so
// callers pass the values to use for them.
func ParseQualifier(word string, in, out Qualifier) (Qualifier, bool) {
	switch word {
	case "const":
		return QualConst, true
	case "attribute":
		return QualAttribute, true
	case "varying":
		return QualVaryingIn, true
	case "uniform":
		return QualUniform, true
	case "buffer":
		return QualBuffer, true
	case "shared":
		return QualShared, true
	case "in":
		return in, true
	case "out":
		return out, true
	case "inout":
		return QualInOut, true
	case "centroid":
		return QualCentroid, true
	case "sample":
		return QualSample, true
	case "smooth":
		return QualSmooth, true
	case "flat":
		return QualFlat, true
	case "noperspective":
		return QualNoPerspective, true
	}
	return QualifierByIdent(word)
}

var qualifierIdents = [...]string{
	QualTemporary: "Temporary", QualGlobal: "Global", QualConst: "Const",
	QualAttribute: "Attribute", QualVaryingIn: "VaryingIn", QualVaryingOut: "VaryingOut",
	QualUniform: "Uniform", QualBuffer: "Buffer", QualShared: "Shared",
	QualVertexIn: "VertexIn", QualVertexOut: "VertexOut", QualFragmentIn: "FragmentIn",
	QualFragmentOut: "FragmentOut", QualFragmentInOut: "FragmentInOut",
	QualIn: "In", QualOut: "Out", QualInOut: "InOut", QualConstReadOnly: "ConstReadOnly",
	QualSmooth: "Smooth", QualFlat: "Flat", QualNoPerspective: "NoPerspective",
	QualCentroid: "Centroid", QualSample: "Sample",
	QualSmoothOut: "SmoothOut", QualFlatOut: "FlatOut", QualNoPerspectiveOut: "NoPerspectiveOut",
	QualCentroidOut: "CentroidOut", QualSampleOut: "SampleOut",
	QualSmoothIn: "SmoothIn", QualFlatIn: "FlatIn", QualNoPerspectiveIn: "NoPerspectiveIn",
	QualCentroidIn: "CentroidIn", QualSampleIn: "SampleIn", QualSpecConst: "SpecConst",
	QualVertexID: "VertexID", QualInstanceID: "InstanceID", QualPosition: "Position",
	QualPointSize: "PointSize", QualFragCoord: "FragCoord", QualFrontFacing: "FrontFacing",
	QualPointCoord: "PointCoord", QualFragColor: "FragColor", QualFragData: "FragData",
	QualFragDepth: "FragDepth",
}

// Ident is a unique identifier for q, unlike String which renders GLSL text.
func (q Qualifier) Ident() string {
	if int(q) < len(qualifierIdents) {
		return qualifierIdents[q]
	}
	return q.String()
}

// QualifierByIdent is the inverse of Ident.
func QualifierByIdent(s string) (Qualifier, bool) {
	for q := Qualifier(0); q < qualifierCount; q++ {
		if qualifierIdents[q] == s {
			return q, true
		}
	}
	return QualTemporary, false
}
