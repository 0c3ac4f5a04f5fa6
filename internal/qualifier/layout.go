package qualifier

import (
	"fmt"
	"strings"
)

type MatrixPacking uint8

const (
	PackingUnspecified MatrixPacking = iota
	PackingRowMajor
	PackingColumnMajor
)

type BlockStorage uint8

const (
	BlockUnspecified BlockStorage = iota
	BlockShared
	BlockPacked
	BlockStd140
	BlockStd430
)

// ImageFormat is the texel format named in an image or pixel-local layout.
type ImageFormat uint8

const (
	FormatUnspecified ImageFormat = iota
	FormatRGBA32F
	FormatRGBA16F
	FormatR32F
	FormatRGBA8
	FormatRGBA8I
	FormatRGBA8UI
	FormatR32I
	FormatR32UI
)

var formatNames = [...]string{
	FormatUnspecified: "",
	FormatRGBA32F:     "rgba32f",
	FormatRGBA16F:     "rgba16f",
	FormatR32F:        "r32f",
	FormatRGBA8:       "rgba8",
	FormatRGBA8I:      "rgba8i",
	FormatRGBA8UI:     "rgba8ui",
	FormatR32I:        "r32i",
	FormatR32UI:       "r32ui",
}

func (f ImageFormat) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("ImageFormat(%d)", f)
}

// ParseImageFormat accepts the GLSL layout spelling (r32f, rgba8ui, ...).
func ParseImageFormat(s string) (ImageFormat, bool) {
	for i, n := range formatNames {
		if n == s {
			return ImageFormat(i), true
		}
	}
	return FormatUnspecified, false
}

// Layout is the content of one layout(...) qualifier. -1 means unset.
type Layout struct {
	Location      int
	Binding       int
	MatrixPacking MatrixPacking
	BlockStorage  BlockStorage
	Format        ImageFormat
}

// NoLayout is the empty layout.
func NoLayout() Layout {
	return Layout{Location: -1, Binding: -1}
}

func (l Layout) IsEmpty() bool {
	return l.Location < 0 && l.Binding < 0 && l.MatrixPacking == PackingUnspecified &&
		l.BlockStorage == BlockUnspecified && l.Format == FormatUnspecified
}

// Merge overlays the fields set in other onto l.
func (l Layout) Merge(other Layout) Layout {
	if other.Location >= 0 {
		l.Location = other.Location
	}
	if other.Binding >= 0 {
		l.Binding = other.Binding
	}
	if other.MatrixPacking != PackingUnspecified {
		l.MatrixPacking = other.MatrixPacking
	}
	if other.BlockStorage != BlockUnspecified {
		l.BlockStorage = other.BlockStorage
	}
	if other.Format != FormatUnspecified {
		l.Format = other.Format
	}
	return l
}

func (l Layout) String() string {
	var parts []string
	if l.Location >= 0 {
		parts = append(parts, fmt.Sprintf("location=%d", l.Location))
	}
	if l.Binding >= 0 {
		parts = append(parts, fmt.Sprintf("binding=%d", l.Binding))
	}
	switch l.MatrixPacking {
	case PackingRowMajor:
		parts = append(parts, "row_major")
	case PackingColumnMajor:
		parts = append(parts, "column_major")
	}
	switch l.BlockStorage {
	case BlockShared:
		parts = append(parts, "shared")
	case BlockPacked:
		parts = append(parts, "packed")
	case BlockStd140:
		parts = append(parts, "std140")
	case BlockStd430:
		parts = append(parts, "std430")
	}
	if l.Format != FormatUnspecified {
		parts = append(parts, l.Format.String())
	}
	return "layout(" + strings.Join(parts, ", ") + ")"
}
