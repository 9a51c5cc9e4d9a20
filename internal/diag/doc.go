// Package diag defines the diagnostic model shared by every resolution phase.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error, defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing to the issue.
//   - Notes – optional secondary spans/messages for additional context.
//
// # Emitting diagnostics
//
// Phases report through a Reporter. ReportError returns a builder that chains
// WithNote before Emit. A Bag is itself a Reporter; DedupReporter in front of
// it drops repeated reports of the same problem.
//
// Speculative work never writes to the shared Bag directly: the session opens
// an overlay Bag for the attempt and merges it into the parent only when the
// attempt is committed (see internal/session).
//
// Internal-consistency failures are not diagnostics produced by phases: they
// abort resolution and are converted into a single InternalError record at the
// driver boundary.
package diag
