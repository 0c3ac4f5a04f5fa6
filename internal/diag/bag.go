package diag

// Bag keeps the first diagnostics of a compilation. It stops storing at
// its limit; the Sink still counts what it dropped.
type Bag struct {
	items []Diagnostic
	limit int
}

// NewBag returns a bag holding at most limit diagnostics; limit <= 0
// means effectively unbounded.
func NewBag(limit int) *Bag {
	if limit <= 0 {
		limit = 1 << 16
	}
	return &Bag{items: make([]Diagnostic, 0, min(limit, 32)), limit: limit}
}

// Add returns false when d was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.limit {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int { return len(b.items) }

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// Reset drops stored diagnostics and keeps the limit.
func (b *Bag) Reset() { b.items = b.items[:0] }
