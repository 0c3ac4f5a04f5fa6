// Package trace records what the shader pipeline is doing.
//
// Tracing is off unless requested:
//
//	prism lower --trace=- --trace-level=phase shader.json
//
// Implementations:
//
//   - Nop: zero-overhead default
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: last N events kept in memory, dumped on panic
//   - MultiTracer: fan-out
//
// Levels select how much is recorded: phase covers the driver and every
// pass, detail adds per-unit events (one interchange document), debug adds
// individual tree edits.
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "dfdy", parentID)
//	defer span.End("")
package trace
