package types

import "fmt"

// BasicKind is the scalar or opaque category of a shader type.
type BasicKind uint8

const (
	BasicInvalid BasicKind = iota
	BasicVoid
	BasicFloat
	BasicInt
	BasicUInt
	BasicBool
	BasicSampler2D
	BasicSampler3D
	BasicSamplerCube
	BasicSampler2DArray
	BasicISampler2D
	BasicUSampler2D
	BasicSamplerExternalOES
	BasicImage2D
	BasicIImage2D
	BasicUImage2D
	BasicPixelLocal
	BasicIPixelLocal
	BasicUPixelLocal
	BasicStruct
	BasicInterfaceBlock

	basicKindCount
)

var basicNames = [...]string{
	BasicInvalid:            "<invalid>",
	BasicVoid:               "void",
	BasicFloat:              "float",
	BasicInt:                "int",
	BasicUInt:               "uint",
	BasicBool:               "bool",
	BasicSampler2D:          "sampler2D",
	BasicSampler3D:          "sampler3D",
	BasicSamplerCube:        "samplerCube",
	BasicSampler2DArray:     "sampler2DArray",
	BasicISampler2D:         "isampler2D",
	BasicUSampler2D:         "usampler2D",
	BasicSamplerExternalOES: "samplerExternalOES",
	BasicImage2D:            "image2D",
	BasicIImage2D:           "iimage2D",
	BasicUImage2D:           "uimage2D",
	BasicPixelLocal:         "pixelLocal",
	BasicIPixelLocal:        "ipixelLocal",
	BasicUPixelLocal:        "upixelLocal",
	BasicStruct:             "struct",
	BasicInterfaceBlock:     "block",
}

func (k BasicKind) String() string {
	if int(k) < len(basicNames) {
		return basicNames[k]
	}
	return fmt.Sprintf("BasicKind(%d)", k)
}

func (k BasicKind) IsNumeric() bool {
	switch k {
	case BasicFloat, BasicInt, BasicUInt, BasicBool:
		return true
	}
	return false
}

func (k BasicKind) IsSampler() bool {
	return k >= BasicSampler2D && k <= BasicSamplerExternalOES
}

func (k BasicKind) IsImage() bool {
	return k >= BasicImage2D && k <= BasicUImage2D
}

func (k BasicKind) IsPixelLocal() bool {
	return k >= BasicPixelLocal && k <= BasicUPixelLocal
}

// IsOpaque reports handles that cannot be copied into temporaries.
func (k BasicKind) IsOpaque() bool {
	return k.IsSampler() || k.IsImage() || k.IsPixelLocal()
}

// PixelLocalImage returns the image kind backing a pixel-local plane and the
// scalar kind its texels load as.
func PixelLocalImage(k BasicKind) (image, texel BasicKind, ok bool) {
	switch k {
	case BasicPixelLocal:
		return BasicImage2D, BasicFloat, true
	case BasicIPixelLocal:
		return BasicIImage2D, BasicInt, true
	case BasicUPixelLocal:
		return BasicUImage2D, BasicUInt, true
	}
	return BasicInvalid, BasicInvalid, false
}
