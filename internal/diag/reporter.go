package diag

import "prism/internal/source"

// Reporter is the minimal contract for producing diagnostics.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, token, msg string, notes []Note)
}

// ReportBuilder accumulates details before emitting to a Reporter.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

// ReportError starts an error about primary. Nothing is reported until
// Emit.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{reporter: r, diag: New(SevError, code, primary, msg)}
}

// WithToken sets the quoted source text the message refers to.
func (b *ReportBuilder) WithToken(tok string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag.Token = tok
	return b
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithNote(sp, msg)
	return b
}

// Emit sends the diagnostic exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	if b.reporter == nil {
		return
	}
	d := b.diag
	b.reporter.Report(d.Code, d.Severity, d.Primary, d.Token, d.Message, d.Notes)
}

// BagReporter writes into a Bag. Qualifier checks use it when no
// compilation is around.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, token, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Token: token, Message: msg,
		Primary: primary, Notes: notes,
	})
}
