package qualifier

import (
	"fmt"

	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/types"
)

// Qualifiers is the resolved modifier record of one declaration.
type Qualifiers struct {
	Storage   types.Qualifier
	Precision types.Precision
	Layout    Layout
	Invariant bool
	Span      source.Span
}

// Default returns the record a declaration gets when nothing was resolved.
func Default(scope types.Qualifier, at source.Span) Qualifiers {
	return Qualifiers{Storage: scope, Layout: NoLayout(), Span: at}
}

// Problem is the first fault found by a sequence check.
type Problem struct {
	Code   diag.Code
	Token  string
	Reason string
	At     source.Span
}

func (p *Problem) Error() string {
	if p.Token == "" {
		return p.Reason
	}
	return fmt.Sprintf("'%s' : %s", p.Token, p.Reason)
}

func (p *Problem) report(r diag.Reporter) {
	if r == nil {
		return
	}
	diag.ReportError(r, p.Code, p.At, p.Reason).WithToken(p.Token).Emit()
}

// Sequence accumulates the modifiers written on one declaration. The first
// token is the scope (Global for variables, Temporary for parameters and
// locals) and is never checked against the ordering rules.
type Sequence struct {
	tokens []Token

	// AnyOrder skips ValidateOrder. GLSL ES 3.10 dropped the fixed
	// qualifier order of earlier versions, so callers set it for
	// #version 310 es and later.
	AnyOrder bool
}

// NewSequence starts a sequence with its scope token.
func NewSequence(scope StorageToken) *Sequence {
	if scope.Qualifier != types.QualGlobal && scope.Qualifier != types.QualTemporary {
		panic(fmt.Sprintf("qualifier: %s is not a scope qualifier", scope.Qualifier.Ident()))
	}
	return &Sequence{tokens: []Token{scope}}
}

func (s *Sequence) Append(t Token) {
	s.tokens = append(s.tokens, t)
}

func (s *Sequence) Len() int {
	return len(s.tokens)
}

func (s *Sequence) scope() StorageToken {
	return s.tokens[0].(StorageToken)
}

// ValidateOrder checks invariant, interpolation, storage, precision order,
// with layout anywhere before storage and precision.
func (s *Sequence) ValidateOrder() *Problem {
	if s.AnyOrder {
		return nil
	}
	var foundInterpolation, foundStorage, foundPrecision bool
	for i := 1; i < len(s.tokens); i++ {
		reason := ""
		switch s.tokens[i].Category() {
		case CatInvariant:
			if foundInterpolation || foundStorage || foundPrecision {
				reason = "The invariant qualifier has to be first in the expression."
			}
		case CatInterpolation:
			switch {
			case foundStorage:
				reason = "Storage qualifiers have to be after interpolation qualifiers."
			case foundPrecision:
				reason = "Precision qualifiers have to be after interpolation qualifiers."
			}
			foundInterpolation = true
		case CatLayout:
			switch {
			case foundStorage:
				reason = "Storage qualifiers have to be after layout qualifiers."
			case foundPrecision:
				reason = "Precision qualifiers have to be after layout qualifiers."
			}
		case CatStorage:
			if foundPrecision {
				reason = "Precision qualifiers have to be after storage qualifiers."
			}
			foundStorage = true
		case CatPrecision:
			foundPrecision = true
		}
		if reason != "" {
			return &Problem{
				Code:   diag.QuaOrder,
				Token:  s.tokens[i-1].String(),
				Reason: reason,
				At:     s.tokens[i].Span(),
			}
		}
	}
	return nil
}

// ValidateNoRepeats allows one token per category, except storage where each
// distinct value may appear once. Storage repeats are found by a left to right
// pairwise scan so the first repeated pair is the one reported.
func (s *Sequence) ValidateNoRepeats() *Problem {
	var seen [CatPrecision + 1]bool
	for i := 1; i < len(s.tokens); i++ {
		tok := s.tokens[i]
		cat := tok.Category()
		if cat != CatStorage {
			if seen[cat] {
				return &Problem{
					Code:   diag.QuaRepeated,
					Token:  tok.String(),
					Reason: fmt.Sprintf("The %s qualifier specified multiple times.", cat),
					At:     tok.Span(),
				}
			}
			seen[cat] = true
			continue
		}
		cur := tok.(StorageToken).Qualifier
		for j := 1; j < i; j++ {
			prev, ok := s.tokens[j].(StorageToken)
			if ok && prev.Qualifier == cur {
				return &Problem{
					Code:   diag.QuaRepeated,
					Token:  prev.String(),
					Reason: prev.String() + " specified multiple times",
					At:     tok.Span(),
				}
			}
		}
	}
	return nil
}

func (s *Sequence) validate(r diag.Reporter) bool {
	if p := s.ValidateOrder(); p != nil {
		p.report(r)
		return false
	}
	if p := s.ValidateNoRepeats(); p != nil {
		p.report(r)
		return false
	}
	return true
}

// ResolveParameter folds the sequence of a function parameter. Invariant,
// interpolation and layout tokens are ignored. A parameter without storage
// resolves to in.
func (s *Sequence) ResolveParameter(r diag.Reporter) Qualifiers {
	scope := s.scope()
	if scope.Qualifier != types.QualTemporary {
		panic("qualifier: parameter sequence must start with Temporary")
	}
	q := Default(types.QualTemporary, scope.At)
	if !s.validate(r) {
		return q
	}
	for _, tok := range s.tokens[1:] {
		ok := true
		switch t := tok.(type) {
		case InvariantToken, InterpolationToken, LayoutToken:
		case StorageToken:
			q.Storage, ok = joinParameterStorage(q.Storage, t.Qualifier)
		case PrecisionToken:
			q.Precision = t.Precision
		}
		if !ok {
			diag.ReportError(r, diag.QuaInvalidParameter, tok.Span(), "invalid parameter qualifier").
				WithToken(tok.String()).Emit()
			break
		}
	}
	switch q.Storage {
	case types.QualIn, types.QualConstReadOnly, types.QualOut, types.QualInOut:
	case types.QualConst:
		q.Storage = types.QualConstReadOnly
	case types.QualTemporary:
		q.Storage = types.QualIn
	default:
		diag.ReportError(r, diag.QuaInvalidParameter, scope.At, "Invalid parameter qualifier").
			WithToken(q.Storage.String()).Emit()
	}
	return q
}

func joinParameterStorage(cur, next types.Qualifier) (types.Qualifier, bool) {
	switch {
	case cur == types.QualTemporary:
		return next, true
	case cur == types.QualConst && next == types.QualIn:
		return types.QualConstReadOnly, true
	}
	return cur, false
}

// ResolveVariable folds the sequence of a variable declaration.
func (s *Sequence) ResolveVariable(r diag.Reporter) Qualifiers {
	scope := s.scope()
	q := Default(scope.Qualifier, scope.At)
	if !s.validate(r) {
		return q
	}
	for _, tok := range s.tokens[1:] {
		ok := true
		switch t := tok.(type) {
		case InvariantToken:
			q.Invariant = true
		case InterpolationToken:
			ok = q.Storage == types.QualGlobal
			if ok {
				q.Storage = t.Qualifier
			}
		case LayoutToken:
			q.Layout = q.Layout.Merge(t.Layout)
		case StorageToken:
			q.Storage, ok = joinVariableStorage(q.Storage, t.Qualifier)
		case PrecisionToken:
			q.Precision = t.Precision
		}
		if !ok {
			diag.ReportError(r, diag.QuaInvalidCombination, tok.Span(), "invalid qualifier combination").
				WithToken(tok.String()).Emit()
			break
		}
	}
	return q
}

type storagePair struct {
	cur, next types.Qualifier
}

// interpolation or auxiliary storage folded with a direction
var variableJoins = map[storagePair]types.Qualifier{
	{types.QualTemporary, types.QualConst}: types.QualConst,

	{types.QualSmooth, types.QualCentroid}:   types.QualCentroid,
	{types.QualSmooth, types.QualVertexOut}:  types.QualSmoothOut,
	{types.QualSmooth, types.QualFragmentIn}: types.QualSmoothIn,

	{types.QualFlat, types.QualCentroid}:   types.QualFlat,
	{types.QualFlat, types.QualVertexOut}:  types.QualFlatOut,
	{types.QualFlat, types.QualFragmentIn}: types.QualFlatIn,

	{types.QualNoPerspective, types.QualCentroid}:   types.QualNoPerspective,
	{types.QualNoPerspective, types.QualVertexOut}:  types.QualNoPerspectiveOut,
	{types.QualNoPerspective, types.QualFragmentIn}: types.QualNoPerspectiveIn,

	{types.QualCentroid, types.QualVertexOut}:  types.QualCentroidOut,
	{types.QualCentroid, types.QualFragmentIn}: types.QualCentroidIn,

	{types.QualSample, types.QualVertexOut}:  types.QualSampleOut,
	{types.QualSample, types.QualFragmentIn}: types.QualSampleIn,
}

func joinVariableStorage(cur, next types.Qualifier) (types.Qualifier, bool) {
	if cur == types.QualGlobal {
		return next, true
	}
	if q, ok := variableJoins[storagePair{cur, next}]; ok {
		return q, true
	}
	return cur, false
}
