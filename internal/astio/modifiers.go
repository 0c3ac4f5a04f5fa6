package astio

import (
	"fmt"
	"strconv"
	"strings"

	"prism/internal/compiler"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// directions returns the storage values "in" and "out" stand for.
func directions(stage compiler.Stage, param bool) (in, out types.Qualifier) {
	switch {
	case param:
		return types.QualIn, types.QualOut
	case stage == compiler.StageVertex:
		return types.QualVertexIn, types.QualVertexOut
	default:
		return types.QualFragmentIn, types.QualFragmentOut
	}
}

// Token converts m into a qualifier token of the given stage.
func (m Modifier) Token(stage compiler.Stage, param bool, at source.Span) (qualifier.Token, error) {
	switch m.Kind {
	case "invariant":
		return qualifier.InvariantToken{At: at}, nil
	case "interpolation":
		q, ok := types.ParseQualifier(m.Value, types.QualTemporary, types.QualTemporary)
		if !ok || !q.IsInterpolation() {
			return nil, fmt.Errorf("%q is not an interpolation qualifier", m.Value)
		}
		return qualifier.InterpolationToken{Qualifier: q, At: at}, nil
	case "layout":
		lay, err := layoutOf(m.Location, m.Binding, m.Format)
		if err != nil {
			return nil, err
		}
		return qualifier.LayoutToken{Layout: lay, At: at}, nil
	case "storage":
		in, out := directions(stage, param)
		q, ok := types.ParseQualifier(m.Value, in, out)
		if !ok {
			return nil, fmt.Errorf("unknown storage qualifier %q", m.Value)
		}
		return qualifier.StorageToken{Qualifier: q, At: at}, nil
	case "precision":
		p, ok := types.ParsePrecision(m.Value)
		if !ok || p == types.PrecisionUndefined {
			return nil, fmt.Errorf("unknown precision %q", m.Value)
		}
		return qualifier.PrecisionToken{Precision: p, At: at}, nil
	}
	return nil, fmt.Errorf("unknown modifier kind %q", m.Kind)
}

func layoutOf(location, binding *int, format string) (qualifier.Layout, error) {
	lay := qualifier.NoLayout()
	if location != nil {
		lay.Location = *location
	}
	if binding != nil {
		lay.Binding = *binding
	}
	if format != "" {
		f, ok := qualifier.ParseImageFormat(format)
		if !ok {
			return lay, fmt.Errorf("unknown image format %q", format)
		}
		lay.Format = f
	}
	return lay, nil
}

// ModifiersFromWords reads modifiers written as GLSL keywords, for example
//
//	smooth out highp
//	layout(binding=1,rgba8) uniform
//
// Each word becomes one modifier in order.
func ModifiersFromWords(words []string) ([]Modifier, error) {
	var out []Modifier
	for _, w := range words {
		w = strings.TrimSpace(w)
		switch {
		case w == "":
			continue
		case w == "invariant":
			out = append(out, Modifier{Kind: "invariant"})
		case w == "smooth" || w == "flat" || w == "noperspective":
			out = append(out, Modifier{Kind: "interpolation", Value: w})
		case w == "lowp" || w == "mediump" || w == "highp":
			out = append(out, Modifier{Kind: "precision", Value: w})
		case strings.HasPrefix(w, "layout(") && strings.HasSuffix(w, ")"):
			m, err := layoutWord(strings.TrimSuffix(strings.TrimPrefix(w, "layout("), ")"))
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		default:
			out = append(out, Modifier{Kind: "storage", Value: w})
		}
	}
	return out, nil
}

func layoutWord(body string) (Modifier, error) {
	m := Modifier{Kind: "layout"}
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasVal := strings.Cut(part, "=")
		if !hasVal {
			if _, ok := qualifier.ParseImageFormat(key); !ok {
				return m, fmt.Errorf("unknown layout qualifier %q", key)
			}
			m.Format = key
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return m, fmt.Errorf("layout %s: %w", key, err)
		}
		switch strings.TrimSpace(key) {
		case "location":
			m.Location = &n
		case "binding":
			m.Binding = &n
		default:
			return m, fmt.Errorf("unknown layout qualifier %q", key)
		}
	}
	return m, nil
}

// Resolve folds modifiers into a qualifier record, reporting problems to
// the compiler's sink. Locals and parameters start from the Temporary
// scope, everything else from Global.
func Resolve(c *compiler.Compiler, mods []Modifier, param, local bool, span func(*Span) source.Span) (qualifier.Qualifiers, error) {
	scope := types.QualGlobal
	if param || local {
		scope = types.QualTemporary
	}
	seq := qualifier.NewSequence(qualifier.StorageToken{Qualifier: scope})
	// GLSL ES 3.10 relaxed qualifier ordering.
	seq.AnyOrder = c.Version() >= 310
	for _, m := range mods {
		tok, err := m.Token(c.Stage(), param, span(m.Span))
		if err != nil {
			return qualifier.Default(scope, source.NoSpan), err
		}
		seq.Append(tok)
	}
	if param {
		return seq.ResolveParameter(c.Diagnostics()), nil
	}
	return seq.ResolveVariable(c.Diagnostics()), nil
}
