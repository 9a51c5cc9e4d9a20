// Package trace provides structured tracing for the resolution pipeline.
//
// Tracing is how the engine logs: the driver opens pass spans (load, resolve,
// lower, finish), the monomorphization engine opens one span per materialized
// instance and emits point events for cache hits, deferred recursion and
// speculative rollbacks.
//
// # Usage
//
//	monogen resolve --trace=- --trace-level=detail prog.yaml
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelProgram: one driver span per program
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: per-item events
//   - LevelDebug: everything including per-instance events
//
// Every event produced while resolving a program carries its name (see
// Labeled); programs resolved concurrently interleave in one stream.
//
// With --trace-mode=ring events stay in memory and are dumped when the
// command exits.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "resolve", 0)
//	defer span.End("")
package trace
