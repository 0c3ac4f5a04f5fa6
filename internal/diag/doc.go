// Package diag defines the diagnostic model shared by every stage of the
// shader middle-end.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error.
//   - Code – compact numeric identifier with a stable string form (QUA1001).
//   - Token – the offending source text, rendered in quotes by the sink.
//   - Message – short human oriented reason.
//   - Primary span and optional Notes.
//
// # Producers and sinks
//
// Producers talk to the Reporter interface only. BagReporter stores into a
// Bag and Sink is the per-compilation collector: it counts errors and warnings, keeps the formatted message
// stream and calls the halt callback on every error so that the pipeline can
// stop after the current stage.
//
// Package diag does no terminal rendering; see internal/diagfmt.
package diag
