package ast

import (
	"fmt"
	"strconv"
	"strings"

	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// MemoryQualifier is the set of image memory qualifiers.
type MemoryQualifier uint8

const (
	MemCoherent MemoryQualifier = 1 << iota
	MemVolatile
	MemRestrict
	MemReadOnly
	MemWriteOnly
)

func (m MemoryQualifier) String() string {
	s := ""
	for _, e := range []struct {
		bit  MemoryQualifier
		name string
	}{{MemCoherent, "coherent"}, {MemVolatile, "volatile"}, {MemRestrict, "restrict"}, {MemReadOnly, "readonly"}, {MemWriteOnly, "writeonly"}} {
		if m&e.bit != 0 {
			if s != "" {
				s += " "
			}
			s += e.name
		}
	}
	return s
}

// Origin tells where a symbol came from.
type Origin uint8

const (
	OriginUser Origin = iota
	OriginInternal
	OriginBuiltIn
)

type Variable struct {
	Name   source.StringID
	Type   *types.Type
	Quals  qualifier.Qualifiers
	Memory MemoryQualifier
	Origin Origin
	Span   source.Span
}

type Function struct {
	Name   source.StringID
	Return *types.Type
	Params []VarID
	Origin Origin
	Span   source.Span
}

// Symbols owns the variables and functions referenced by a Tree.
type Symbols struct {
	Names    *source.Interner
	vars     *Arena[Variable]
	funcs    *Arena[Function]
	builtins map[string]VarID
	temps    int
}

func NewSymbols(names *source.Interner) *Symbols {
	if names == nil {
		names = source.NewInterner()
	}
	return &Symbols{
		Names:    names,
		vars:     NewArena[Variable](64),
		funcs:    NewArena[Function](16),
		builtins: make(map[string]VarID),
	}
}

// NewVariable registers a variable. The type's qualifier should match Quals.Storage.
func (s *Symbols) NewVariable(name string, t *types.Type, quals qualifier.Qualifiers) VarID {
	return VarID(s.vars.Allocate(Variable{
		Name:  s.Names.Intern(name),
		Type:  t,
		Quals: quals,
		Span:  quals.Span,
	}))
}

// NewInternal registers a compiler-generated variable.
func (s *Symbols) NewInternal(name string, t *types.Type, quals qualifier.Qualifiers) VarID {
	id := s.NewVariable(name, t, quals)
	s.Var(id).Origin = OriginInternal
	return id
}

// NewTemp creates a function-local temporary named _t<N>.
func (s *Symbols) NewTemp(t *types.Type) VarID {
	name := fmt.Sprintf("_t%d", s.temps)
	s.temps++
	return s.NewInternal(name, t, qualifier.Default(types.QualTemporary, source.NoSpan))
}

// NoteTemp keeps NewTemp from reusing name when it was loaded from elsewhere.
func (s *Symbols) NoteTemp(name string) {
	rest, ok := strings.CutPrefix(name, "_t")
	if !ok {
		return
	}
	if n, err := strconv.Atoi(rest); err == nil && n >= s.temps {
		s.temps = n + 1
	}
}

func (s *Symbols) Var(id VarID) *Variable {
	return s.vars.Get(uint32(id))
}

func (s *Symbols) VarName(id VarID) string {
	v := s.Var(id)
	if v == nil {
		return fmt.Sprintf("<var %d>", id)
	}
	return s.Names.MustLookup(v.Name)
}

// NumVars counts registered variables; valid IDs are 1..NumVars.
func (s *Symbols) NumVars() int {
	return int(s.vars.Len())
}

func (s *Symbols) NewFunction(name string, ret *types.Type, params ...VarID) FuncID {
	return FuncID(s.funcs.Allocate(Function{
		Name:   s.Names.Intern(name),
		Return: ret,
		Params: params,
	}))
}

func (s *Symbols) Func(id FuncID) *Function {
	return s.funcs.Get(uint32(id))
}

func (s *Symbols) FuncName(id FuncID) string {
	f := s.Func(id)
	if f == nil {
		return fmt.Sprintf("<func %d>", id)
	}
	return s.Names.MustLookup(f.Name)
}

func (s *Symbols) NumFuncs() int {
	return int(s.funcs.Len())
}

var builtinVars = map[string]struct {
	basic   types.BasicKind
	prec    types.Precision
	qual    types.Qualifier
	primary uint8
}{
	"gl_FragCoord":   {types.BasicFloat, types.PrecisionMedium, types.QualFragCoord, 4},
	"gl_Position":    {types.BasicFloat, types.PrecisionHigh, types.QualPosition, 4},
	"gl_PointCoord":  {types.BasicFloat, types.PrecisionMedium, types.QualPointCoord, 2},
	"gl_FrontFacing": {types.BasicBool, types.PrecisionUndefined, types.QualFrontFacing, 1},
	"gl_PointSize":   {types.BasicFloat, types.PrecisionMedium, types.QualPointSize, 1},
	"gl_FragDepth":   {types.BasicFloat, types.PrecisionHigh, types.QualFragDepth, 1},
}

// BuiltIn returns the gl_* variable with the given name, creating it on first use.
func (s *Symbols) BuiltIn(name string, in *types.Interner) (VarID, bool) {
	if id, ok := s.builtins[name]; ok {
		return id, true
	}
	spec, ok := builtinVars[name]
	if !ok {
		return NoVarID, false
	}
	t := in.Intern(spec.basic, spec.prec, spec.qual, spec.primary, 1)
	q := qualifier.Default(spec.qual, source.NoSpan)
	q.Precision = spec.prec
	id := s.NewVariable(name, t, q)
	s.Var(id).Origin = OriginBuiltIn
	s.builtins[name] = id
	return id, true
}

// IsBuiltInName reports the gl_* names BuiltIn knows about.
func IsBuiltInName(name string) bool {
	_, ok := builtinVars[name]
	return ok
}
