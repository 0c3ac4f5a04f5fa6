package types

import (
	"errors"
	"fmt"
)

// ErrArenaExhausted is the panic value (wrapped) raised when an arena with a
// capacity limit cannot hold another type. It is fatal for the compilation.
var ErrArenaExhausted = errors.New("type arena exhausted")

const arenaChunk = 64

// Arena is a bump allocator for Type records. Records never move, so pointers
// handed out stay valid for the arena's lifetime.
type Arena struct {
	name   string
	chunks [][]Type
	n      int
	limit  int
}

// NewArena returns an arena; limit <= 0 means unbounded.
func NewArena(name string, limit int) *Arena {
	return &Arena{name: name, limit: limit}
}

func (a *Arena) Name() string {
	return a.name
}

// Len reports how many types were allocated.
func (a *Arena) Len() int {
	return a.n
}

func (a *Arena) alloc(t Type) *Type {
	if a.limit > 0 && a.n >= a.limit {
		panic(fmt.Errorf("arena %q (limit %d): %w", a.name, a.limit, ErrArenaExhausted))
	}
	last := len(a.chunks) - 1
	if last < 0 || len(a.chunks[last]) == cap(a.chunks[last]) {
		a.chunks = append(a.chunks, make([]Type, 0, arenaChunk))
		last++
	}
	a.chunks[last] = append(a.chunks[last], t)
	a.n++
	return &a.chunks[last][len(a.chunks[last])-1]
}
