// Package astio reads and writes shader trees as interchange documents.
//
// A Document is what an upstream parser hands over: the stage and
// version, the variables and functions, and the tree of the translation
// unit. Variables either carry a resolved qualifier record or the raw
// modifier sequence as written in the source; raw sequences are resolved
// while loading, with the same diagnostics a parser would report.
package astio

// Document is the serialized form of one compilation unit. Variable and
// function IDs are document-local and only need to be unique.
type Document struct {
	Stage     string     `json:"stage"`
	Version   int        `json:"version"`
	Path      string     `json:"path,omitempty"`
	Source    string     `json:"source,omitempty"`
	Variables []Variable `json:"variables,omitempty"`
	Functions []Function `json:"functions,omitempty"`
	Root      *Node      `json:"root"`
}

// TypeRef names an interned type. An empty Qualifier means the storage
// qualifier of the owning variable, or Temporary for expressions.
type TypeRef struct {
	Shape     string `json:"shape"`
	Precision string `json:"precision,omitempty"`
	Qualifier string `json:"qualifier,omitempty"`
}

type Variable struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
	// Param selects parameter resolution for Modifiers.
	Param     bool        `json:"param,omitempty"`
	Modifiers []Modifier  `json:"modifiers,omitempty"`
	Quals     *Qualifiers `json:"quals,omitempty"`
	Memory    []string    `json:"memory,omitempty"`
	Origin    string      `json:"origin,omitempty"`
	Span      *Span       `json:"span,omitempty"`
}

// Modifier is one declaration modifier as written. Kind is one of
// invariant, interpolation, layout, storage or precision.
type Modifier struct {
	Kind     string `json:"kind"`
	Value    string `json:"value,omitempty"`
	Location *int   `json:"location,omitempty"`
	Binding  *int   `json:"binding,omitempty"`
	Format   string `json:"format,omitempty"`
	Span     *Span  `json:"span,omitempty"`
}

// Qualifiers is a resolved qualifier record.
type Qualifiers struct {
	Storage   string `json:"storage"`
	Precision string `json:"precision,omitempty"`
	Location  *int   `json:"location,omitempty"`
	Binding   *int   `json:"binding,omitempty"`
	Format    string `json:"format,omitempty"`
	Invariant bool   `json:"invariant,omitempty"`
}

type Function struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Return TypeRef `json:"return"`
	Params []int   `json:"params,omitempty"`
	Origin string  `json:"origin,omitempty"`
}

// Node is one tree node. Kids may hold nil for absent loop slots.
type Node struct {
	Kind      string   `json:"kind"`
	Op        string   `json:"op,omitempty"`
	Type      *TypeRef `json:"type,omitempty"`
	Var       int      `json:"var,omitempty"`
	Func      int      `json:"func,omitempty"`
	Consts    []Const  `json:"consts,omitempty"`
	Swizzle   []int    `json:"swizzle,omitempty"`
	Array     int      `json:"array,omitempty"`
	Corrected bool     `json:"corrected,omitempty"`
	Span      *Span    `json:"span,omitempty"`
	Kids      []*Node  `json:"kids,omitempty"`
}

// Const is a scalar constant; Value is its GLSL spelling.
type Const struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Span is a byte range of Document.Source.
type Span struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

const (
	originBuiltIn  = "builtin"
	originInternal = "internal"
)
