package types

import (
	"fmt"
	"strings"
)

// Type is an interned shader type. Values are owned by an Arena and shared;
// compare by pointer.
type Type struct {
	Basic     BasicKind
	Precision Precision
	Qualifier Qualifier
	Primary   uint8 // vector size or matrix columns
	Secondary uint8 // matrix rows, 1 for vectors and scalars

	components uint8
	mangled    string
}

// Components is the number of scalar components, 1 for opaque handles.
func (t *Type) Components() int {
	return int(t.components)
}

func (t *Type) IsScalar() bool {
	return t.Primary == 1 && t.Secondary == 1
}

func (t *Type) IsVector() bool {
	return t.Primary > 1 && t.Secondary == 1
}

func (t *Type) IsMatrix() bool {
	return t.Secondary > 1
}

func (t *Type) IsOpaque() bool {
	return t.Basic.IsOpaque()
}

// Shape renders the type name without qualifiers (vec4, mat2x3, image2D).
func (t *Type) Shape() string {
	return t.mangled
}

// String renders precision and shape, e.g. "highp vec4".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Precision == PrecisionUndefined {
		return t.mangled
	}
	return t.Precision.String() + " " + t.mangled
}

func (t *Type) realize() {
	t.components = 1
	if t.Basic.IsNumeric() {
		t.components = t.Primary * t.Secondary
	}
	t.mangled = shapeName(t.Basic, t.Primary, t.Secondary)
}

func shapeName(b BasicKind, primary, secondary uint8) string {
	if !b.IsNumeric() || (primary == 1 && secondary == 1) {
		return b.String()
	}
	if secondary > 1 {
		if primary == secondary {
			return fmt.Sprintf("mat%d", primary)
		}
		return fmt.Sprintf("mat%dx%d", primary, secondary)
	}
	prefix := ""
	switch b {
	case BasicInt:
		prefix = "i"
	case BasicUInt:
		prefix = "u"
	case BasicBool:
		prefix = "b"
	}
	return fmt.Sprintf("%svec%d", prefix, primary)
}

// ParseShape parses names such as float, ivec3, mat2x4 or uimage2D.
func ParseShape(name string) (BasicKind, uint8, uint8, bool) {
	for k := BasicVoid; k < basicKindCount; k++ {
		if basicNames[k] == name {
			return k, 1, 1, true
		}
	}
	if rest, ok := strings.CutPrefix(name, "mat"); ok {
		switch len(rest) {
		case 1:
			n := rest[0] - '0'
			if n >= 2 && n <= 4 {
				return BasicFloat, n, n, true
			}
		case 3:
			c, r := rest[0]-'0', rest[2]-'0'
			if rest[1] == 'x' && c >= 2 && c <= 4 && r >= 2 && r <= 4 {
				return BasicFloat, c, r, true
			}
		}
		return BasicInvalid, 0, 0, false
	}
	kind := BasicFloat
	switch {
	case strings.HasPrefix(name, "ivec"):
		kind, name = BasicInt, name[1:]
	case strings.HasPrefix(name, "uvec"):
		kind, name = BasicUInt, name[1:]
	case strings.HasPrefix(name, "bvec"):
		kind, name = BasicBool, name[1:]
	}
	if rest, ok := strings.CutPrefix(name, "vec"); ok && len(rest) == 1 {
		n := rest[0] - '0'
		if n >= 2 && n <= 4 {
			return kind, n, 1, true
		}
	}
	return BasicInvalid, 0, 0, false
}
