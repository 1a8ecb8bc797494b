// Package errors provides structured error types for irflow.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: scope path, IR node kind, value type and cause chain.
//
// The phases mirror the error taxonomy of the builder:
//
//   - construct: misuse of the builder API, raised synchronously to the caller
//   - lower: structural contradictions found by asynchronous lowering
//   - compile: IR that cannot be materialized into a procedure
//   - runtime: faults raised by the engine while a produced procedure executes
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindDuplicateName).
//		Path("sum", "loop").
//		Detail("variable %q already declared", "i").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UseAfterClose("jump context")
//	err := errors.VoidResultAccess("countdown")
//
// Phase-level matching works with the standard library:
//
//	if errors.Is(err, irerrors.ConstructionError) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
