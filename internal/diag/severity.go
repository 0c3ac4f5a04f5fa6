package diag

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic. Only errors block code generation.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", s)
}

// Label is the lower-case form used by one-line output.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// Blocking reports whether the diagnostic prevents code generation.
func (s Severity) Blocking() bool {
	return s >= SevError
}
