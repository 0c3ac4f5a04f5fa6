package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file of a FileSet.
type Span struct {
	File       FileID
	Start, End uint32
}

// NoSpan marks synthesized nodes that have no source text.
var NoSpan = Span{}

func (s Span) Empty() bool { return s.End <= s.Start }

// Contains reports whether inner lies within s. Spans of different files
// never contain each other.
func (s Span) Contains(inner Span) bool {
	return s.File == inner.File && s.Start <= inner.Start && inner.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("file%d[%d:%d]", s.File, s.Start, s.End)
}
