package qualifier

import (
	"prism/internal/source"
	"prism/internal/types"
)

// Category groups tokens for ordering and repeat checks.
type Category uint8

const (
	CatInvariant Category = iota
	CatInterpolation
	CatLayout
	CatStorage
	CatPrecision
)

func (c Category) String() string {
	switch c {
	case CatInvariant:
		return "invariant"
	case CatInterpolation:
		return "interpolation"
	case CatLayout:
		return "layout"
	case CatStorage:
		return "storage"
	case CatPrecision:
		return "precision"
	}
	return "unknown"
}

// Token is one written declaration modifier. The set of implementations is closed.
type Token interface {
	Category() Category
	Span() source.Span
	String() string
	token()
}

type InvariantToken struct {
	At source.Span
}

type InterpolationToken struct {
	Qualifier types.Qualifier // QualSmooth, QualFlat or QualNoPerspective
	At        source.Span
}

type LayoutToken struct {
	Layout Layout
	At     source.Span
}

type StorageToken struct {
	Qualifier types.Qualifier
	At        source.Span
}

type PrecisionToken struct {
	Precision types.Precision
	At        source.Span
}

func (InvariantToken) Category() Category     { return CatInvariant }
func (InterpolationToken) Category() Category { return CatInterpolation }
func (LayoutToken) Category() Category        { return CatLayout }
func (StorageToken) Category() Category       { return CatStorage }
func (PrecisionToken) Category() Category     { return CatPrecision }

func (t InvariantToken) Span() source.Span     { return t.At }
func (t InterpolationToken) Span() source.Span { return t.At }
func (t LayoutToken) Span() source.Span        { return t.At }
func (t StorageToken) Span() source.Span       { return t.At }
func (t PrecisionToken) Span() source.Span     { return t.At }

func (InvariantToken) String() string       { return "invariant" }
func (t InterpolationToken) String() string { return t.Qualifier.String() }
func (t LayoutToken) String() string        { return t.Layout.String() }
func (t StorageToken) String() string       { return t.Qualifier.String() }
func (t PrecisionToken) String() string     { return t.Precision.String() }

func (InvariantToken) token()     {}
func (InterpolationToken) token() {}
func (LayoutToken) token()        {}
func (StorageToken) token()       {}
func (PrecisionToken) token()     {}
