package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // crash dumps only
	LevelPhase        // driver and pass boundaries
	LevelDetail       // per-unit events
	LevelDebug        // everything including node edits
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// levelDepth is the finest scope recorded at each level. Off and error
// record no spans.
var levelDepth = [...]Scope{LevelPhase: ScopePass, LevelDetail: ScopeUnit, LevelDebug: ScopeNode}

func (l Level) String() string { return nameOf(levelNames[:], int(l)) }

// ParseLevel is case-insensitive.
func ParseLevel(s string) (Level, error) {
	i, ok := indexOf(levelNames[:], s)
	if !ok {
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
	}
	return Level(i), nil
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levelDepth) && scope != 0 && scope <= levelDepth[l]
}

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) || names[i] == "" {
		return "unknown"
	}
	return names[i]
}

func indexOf(names []string, s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n != "" && n == s {
			return i, true
		}
	}
	return 0, false
}
