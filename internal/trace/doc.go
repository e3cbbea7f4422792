// Package trace provides the tracing subsystem for memlayout.
//
// Tracers record spans for CLI commands, layout queries and individual type
// resolutions so that slow or pathological descriptor graphs can be inspected.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	memlayout layout --trace=- --trace-level=type types.toml
//
// # Architecture
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer dumped on panic
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelQuery: command and query boundaries
//   - LevelType: one span per resolved type
//   - LevelDebug: everything including member placement
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeQuery, "layout", parentID)
//	defer span.End("")
package trace
