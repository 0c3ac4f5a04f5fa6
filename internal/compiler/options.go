package compiler

import (
	"fmt"
	"strings"
)

// Options is the bitset of feature flags callers use to opt into passes.
type Options uint32

const (
	// OptPreRotation mixes derivative axes for pre-rotated surfaces and
	// rotates the pixel-local storage coordinate back.
	OptPreRotation Options = 1 << iota
	// OptFlipDerivatives enables viewport-derivative correction.
	OptFlipDerivatives
	// OptPixelLocalStorage lowers pixel-local storage to images.
	OptPixelLocalStorage
	// OptValidateAST checks tree invariants after every pass.
	OptValidateAST
	// OptRotationUniforms takes flip/rotation constants from driver
	// uniforms instead of a specialization constant.
	OptRotationUniforms
)

var optionNames = []struct {
	opt  Options
	name string
}{
	{OptPreRotation, "pre-rotation"},
	{OptFlipDerivatives, "flip-derivatives"},
	{OptPixelLocalStorage, "pixel-local-storage"},
	{OptValidateAST, "validate-ast"},
	{OptRotationUniforms, "rotation-uniforms"},
}

func (o Options) Has(flag Options) bool {
	return o&flag == flag
}

func (o Options) String() string {
	var parts []string
	for _, e := range optionNames {
		if o.Has(e.opt) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseOptions reads a comma-separated list of option names.
func ParseOptions(s string) (Options, error) {
	var o Options
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "none" {
			continue
		}
		opt, ok := OptionByName(part)
		if !ok {
			return 0, fmt.Errorf("unknown option %q", part)
		}
		o |= opt
	}
	return o, nil
}

func OptionByName(name string) (Options, bool) {
	for _, e := range optionNames {
		if e.name == name {
			return e.opt, true
		}
	}
	return 0, false
}

// Stage is the shader stage of a compilation unit.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

var stageNames = [...]string{"vertex", "fragment", "compute"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}

func ParseStage(s string) (Stage, error) {
	for i, n := range stageNames {
		if n == s {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shader stage %q", s)
}
