package types

import (
	"errors"
	"testing"
)

func TestInternIdempotent(t *testing.T) {
	in := NewInterner()
	a := in.Intern(BasicFloat, PrecisionHigh, QualTemporary, 4, 1)
	b := in.Intern(BasicFloat, PrecisionHigh, QualTemporary, 4, 1)
	if a != b {
		t.Fatalf("same descriptor returned different pointers")
	}
	if a.String() != "highp vec4" {
		t.Fatalf("String() = %q", a.String())
	}
	if a.Components() != 4 {
		t.Fatalf("Components() = %d", a.Components())
	}
}

func TestInternDistinguishesEveryField(t *testing.T) {
	in := NewInterner()
	base := in.Intern(BasicFloat, PrecisionHigh, QualTemporary, 2, 2)
	variants := []*Type{
		in.Intern(BasicInt, PrecisionHigh, QualTemporary, 2, 2),
		in.Intern(BasicFloat, PrecisionMedium, QualTemporary, 2, 2),
		in.Intern(BasicFloat, PrecisionHigh, QualUniform, 2, 2),
		in.Intern(BasicFloat, PrecisionHigh, QualTemporary, 3, 2),
		in.Intern(BasicFloat, PrecisionHigh, QualTemporary, 2, 3),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d aliased the base type", i)
		}
	}
	if in.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", in.Len())
	}
}

func TestArenaScopeRestores(t *testing.T) {
	in := NewInterner()
	base := in.Active()
	scratch := NewArena("scratch", 0)
	func() {
		scope := in.UseArena(scratch)
		defer scope.Release()
		in.Vec(BasicUInt, PrecisionLow, 3)
		if in.Active() != scratch {
			t.Fatalf("scratch arena not active inside scope")
		}
	}()
	if in.Active() != base {
		t.Fatalf("arena not restored after scope")
	}
	if scratch.Len() != 1 || base.Len() != 0 {
		t.Fatalf("allocation landed in the wrong arena: scratch=%d base=%d", scratch.Len(), base.Len())
	}
	// hits never allocate, whichever arena is active
	scope := in.UseArena(NewArena("other", 0))
	in.Vec(BasicUInt, PrecisionLow, 3)
	if in.Active().Len() != 0 {
		t.Fatalf("cache hit allocated")
	}
	scope.Release()
	scope.Release()
}

func TestArenaScopeOutOfOrderPanics(t *testing.T) {
	in := NewInterner()
	outer := in.UseArena(NewArena("a", 0))
	inner := in.UseArena(NewArena("b", 0))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-order release")
		}
		inner.Release()
		outer.Release()
	}()
	outer.Release()
}

func TestArenaExhaustion(t *testing.T) {
	in := NewInternerWithArena(NewArena("tiny", 1))
	in.Scalar(BasicFloat, PrecisionHigh)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrArenaExhausted) {
			t.Fatalf("expected ErrArenaExhausted panic, got %v", r)
		}
	}()
	in.Scalar(BasicInt, PrecisionHigh)
}

func TestOwns(t *testing.T) {
	a, b := NewInterner(), NewInterner()
	ta := a.Scalar(BasicFloat, PrecisionMedium)
	tb := b.Scalar(BasicFloat, PrecisionMedium)
	if !a.Owns(ta) || a.Owns(tb) {
		t.Fatalf("Owns must compare identity, not structure")
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		name      string
		kind      BasicKind
		prim, sec uint8
	}{
		{"float", BasicFloat, 1, 1},
		{"ivec2", BasicInt, 2, 1},
		{"uvec4", BasicUInt, 4, 1},
		{"mat3", BasicFloat, 3, 3},
		{"mat2x4", BasicFloat, 2, 4},
		{"uimage2D", BasicUImage2D, 1, 1},
		{"pixelLocal", BasicPixelLocal, 1, 1},
	}
	in := NewInterner()
	for _, tt := range tests {
		k, p, s, ok := ParseShape(tt.name)
		if !ok || k != tt.kind || p != tt.prim || s != tt.sec {
			t.Fatalf("ParseShape(%q) = %v %d %d %v", tt.name, k, p, s, ok)
		}
		if got := in.Intern(k, PrecisionUndefined, QualTemporary, p, s).Shape(); got != tt.name {
			t.Fatalf("round trip %q -> %q", tt.name, got)
		}
	}
	for _, bad := range []string{"vec5", "mat1", "dvec2", ""} {
		if _, _, _, ok := ParseShape(bad); ok {
			t.Fatalf("ParseShape(%q) accepted", bad)
		}
	}
}
