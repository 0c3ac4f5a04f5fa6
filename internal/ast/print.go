package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer dumps a tree as indented text, one node per line.
type Printer struct {
	w      io.Writer
	t      *Tree
	indent int
	err    error
}

func NewPrinter(w io.Writer, t *Tree) *Printer {
	return &Printer{w: w, t: t}
}

// Dump writes the subtree rooted at id.
func Dump(w io.Writer, t *Tree, id NodeID) error {
	p := NewPrinter(w, t)
	p.Print(id)
	return p.err
}

// String renders the subtree rooted at id.
func (t *Tree) String(id NodeID) string {
	var b strings.Builder
	_ = Dump(&b, t, id)
	return b.String()
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) Print(id NodeID) {
	p.printf("%s", strings.Repeat("  ", p.indent))
	if !id.IsValid() {
		p.printf("<none>\n")
		return
	}
	n := p.t.Node(id)
	p.printf("%s", n.Kind)
	switch n.Kind {
	case KindFunction:
		f := p.t.Syms.Func(n.Func)
		params := make([]string, len(f.Params))
		for i, v := range f.Params {
			params[i] = p.varString(v)
		}
		p.printf(" %s(%s): %s", p.t.Syms.FuncName(n.Func), strings.Join(params, ", "), f.Return)
	case KindSymbol:
		p.printf(" %s", p.varString(n.Var))
	case KindConstant:
		vals := make([]string, len(n.Consts))
		for i, c := range n.Consts {
			vals[i] = c.String()
		}
		p.printf(" %s", strings.Join(vals, ", "))
	case KindSwizzle:
		p.printf(" .%s", swizzleText(n.Swizzle))
	case KindUnary, KindBinary, KindLoop, KindBranch:
		p.printf(" %s", n.Op)
	case KindAggregate:
		if n.Op == OpCallFunction {
			p.printf(" call %s", p.t.Syms.FuncName(n.Func))
		} else {
			p.printf(" %s", n.Op)
		}
	}
	if n.Type != nil && n.Kind != KindFunction && n.Kind != KindSymbol {
		if n.Array > 0 {
			p.printf(" (%s[%d])", n.Type, n.Array)
		} else {
			p.printf(" (%s)", n.Type)
		}
	}
	p.printf("\n")
	p.indent++
	for _, k := range n.Kids {
		p.Print(k)
	}
	p.indent--
}

func (p *Printer) varString(v VarID) string {
	vr := p.t.Syms.Var(v)
	if vr == nil {
		return fmt.Sprintf("<var %d>", v)
	}
	var parts []string
	if !vr.Quals.Layout.IsEmpty() {
		parts = append(parts, vr.Quals.Layout.String())
	}
	if vr.Memory != 0 {
		parts = append(parts, vr.Memory.String())
	}
	if q := vr.Type.Qualifier.Ident(); q != "Temporary" {
		parts = append(parts, q)
	}
	parts = append(parts, vr.Type.String())
	return fmt.Sprintf("'%s' (%s)", p.t.Syms.VarName(v), strings.Join(parts, " "))
}

func swizzleText(offsets []uint8) string {
	const comps = "xyzw"
	b := make([]byte, len(offsets))
	for i, o := range offsets {
		if int(o) < len(comps) {
			b[i] = comps[o]
		} else {
			b[i] = '?'
		}
	}
	return string(b)
}
