package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point"}

func (k Kind) String() string { return nameOf(kindNames[:], int(k)) }

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // CLI and batch orchestration
	ScopePass                    // one lowering pass or pipeline stage
	ScopeUnit                    // one compilation unit
	ScopeNode                    // individual tree edits
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopeUnit: "unit", ScopeNode: "node"}

func (s Scope) String() string { return nameOf(scopeNames[:], int(s)) }

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string // e.g. "dfdy", "lower"
	Detail   string
	// Elapsed is set on span end events.
	Elapsed time.Duration
	Extra   map[string]string
}
