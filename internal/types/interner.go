package types

import "fmt"

// typeKey packs the five descriptor fields into one word.
type typeKey uint32

const (
	basicBits     = 5
	precisionBits = 2
	qualifierBits = 6
	sizeBits      = 3

	precisionShift = basicBits
	qualifierShift = precisionShift + precisionBits
	primaryShift   = qualifierShift + qualifierBits
	secondaryShift = primaryShift + sizeBits
)

// Each enum must fit its field; an overflow turns the constant negative and
// fails to compile.
const (
	_ uint = 1<<basicBits - uint(basicKindCount)
	_ uint = 1<<precisionBits - uint(precisionCount)
	_ uint = 1<<qualifierBits - uint(qualifierCount)
	_ uint = 1<<sizeBits - 5
	_ uint = 32 - (secondaryShift + sizeBits)
)

func packKey(b BasicKind, p Precision, q Qualifier, primary, secondary uint8) typeKey {
	return typeKey(uint32(b) |
		uint32(p)<<precisionShift |
		uint32(q)<<qualifierShift |
		uint32(primary)<<primaryShift |
		uint32(secondary)<<secondaryShift)
}

// Interner hands out one *Type per distinct descriptor. New types are
// allocated in the currently active arena, see UseArena.
type Interner struct {
	index  map[typeKey]*Type
	base   *Arena
	active *Arena
	scopes []*Arena
}

// NewInterner returns an interner allocating from its own unbounded arena.
func NewInterner() *Interner {
	return NewInternerWithArena(NewArena("types", 0))
}

// NewInternerWithArena uses a as the base arena.
func NewInternerWithArena(a *Arena) *Interner {
	return &Interner{
		index:  make(map[typeKey]*Type, 64),
		base:   a,
		active: a,
	}
}

// Intern returns the canonical type for the descriptor. Primary and secondary
// sizes must be within 1..4.
func (in *Interner) Intern(b BasicKind, p Precision, q Qualifier, primary, secondary uint8) *Type {
	if b >= basicKindCount || p >= precisionCount || q >= qualifierCount {
		panic(fmt.Sprintf("types: descriptor out of range (%d,%d,%d)", b, p, q))
	}
	if primary < 1 || primary > 4 || secondary < 1 || secondary > 4 {
		panic(fmt.Sprintf("types: bad size %dx%d", primary, secondary))
	}
	key := packKey(b, p, q, primary, secondary)
	if t, ok := in.index[key]; ok {
		return t
	}
	t := in.active.alloc(Type{Basic: b, Precision: p, Qualifier: q, Primary: primary, Secondary: secondary})
	t.realize()
	in.index[key] = t
	return t
}

// Owns reports whether t was produced by this interner.
func (in *Interner) Owns(t *Type) bool {
	if t == nil {
		return false
	}
	got, ok := in.index[packKey(t.Basic, t.Precision, t.Qualifier, t.Primary, t.Secondary)]
	return ok && got == t
}

// Len is the number of distinct types interned so far.
func (in *Interner) Len() int {
	return len(in.index)
}

// Active returns the arena new types are allocated in.
func (in *Interner) Active() *Arena {
	return in.active
}

// ArenaScope restores the previous arena when released.
type ArenaScope struct {
	in    *Interner
	prev  *Arena
	depth int
}

// UseArena makes a the allocation arena until the returned scope is released:
//
//	scope := in.UseArena(a)
//	defer scope.Release()
//
// Scopes nest and must be released in reverse order.
func (in *Interner) UseArena(a *Arena) ArenaScope {
	if a == nil {
		panic("types: UseArena(nil)")
	}
	in.scopes = append(in.scopes, in.active)
	in.active = a
	return ArenaScope{in: in, prev: in.scopes[len(in.scopes)-1], depth: len(in.scopes)}
}

// Release restores the arena active before UseArena. Releasing twice is a no-op.
func (s *ArenaScope) Release() {
	if s.in == nil {
		return
	}
	if len(s.in.scopes) != s.depth {
		panic(fmt.Sprintf("types: arena scope released out of order (depth %d, open %d)", s.depth, len(s.in.scopes)))
	}
	s.in.scopes = s.in.scopes[:s.depth-1]
	s.in.active = s.prev
	s.in = nil
}

// Shorthands.

func (in *Interner) Scalar(b BasicKind, p Precision) *Type {
	return in.Intern(b, p, QualTemporary, 1, 1)
}

func (in *Interner) Vec(b BasicKind, p Precision, n uint8) *Type {
	return in.Intern(b, p, QualTemporary, n, 1)
}

func (in *Interner) Mat(p Precision, cols, rows uint8) *Type {
	return in.Intern(BasicFloat, p, QualTemporary, cols, rows)
}

func (in *Interner) Void() *Type {
	return in.Intern(BasicVoid, PrecisionUndefined, QualTemporary, 1, 1)
}

func (in *Interner) Bool() *Type {
	return in.Intern(BasicBool, PrecisionUndefined, QualTemporary, 1, 1)
}

func (in *Interner) WithQualifier(t *Type, q Qualifier) *Type {
	return in.Intern(t.Basic, t.Precision, q, t.Primary, t.Secondary)
}

func (in *Interner) WithPrecision(t *Type, p Precision) *Type {
	return in.Intern(t.Basic, p, t.Qualifier, t.Primary, t.Secondary)
}

// Component returns the scalar type of one component of t.
func (in *Interner) Component(t *Type) *Type {
	return in.Intern(t.Basic, t.Precision, QualTemporary, 1, 1)
}
