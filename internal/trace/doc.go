// Package trace records what a link session does: spans for header
// deserialization, work-queue passes, on-demand reconstruction and
// post-processing, plus instant events for individual symbols.
//
// Enable tracing from the command line:
//
//	irlink link --trace=- --trace-level=detail irlink.toml
//
// Tracers:
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans events out to several tracers
//
// Levels gate scopes: LevelPhase shows session spans, LevelDetail adds
// modules and files, LevelDebug adds per-symbol events.
//
// The tracer travels in context.Context for CLI code and in linker.Config
// for the session. Each link session wraps it in a Session, which numbers
// its own spans; every tracer numbers the events it stores:
//
//	ts := trace.NewSession(trace.FromContext(ctx))
//	span := ts.Begin(trace.ScopeSession, "link", 0)
//	defer span.End("")
package trace
