package types

import "fmt"

// Precision is the GLSL ES precision qualifier of a type.
type Precision uint8

const (
	PrecisionUndefined Precision = iota
	PrecisionLow
	PrecisionMedium
	PrecisionHigh

	precisionCount
)

func (p Precision) String() string {
	switch p {
	case PrecisionUndefined:
		return ""
	case PrecisionLow:
		return "lowp"
	case PrecisionMedium:
		return "mediump"
	case PrecisionHigh:
		return "highp"
	}
	return fmt.Sprintf("Precision(%d)", p)
}

// ParsePrecision accepts lowp, mediump, highp and the empty string.
func ParsePrecision(s string) (Precision, bool) {
	switch s {
	case "":
		return PrecisionUndefined, true
	case "lowp":
		return PrecisionLow, true
	case "mediump":
		return PrecisionMedium, true
	case "highp":
		return PrecisionHigh, true
	}
	return PrecisionUndefined, false
}
