// Package engine compiles IR procedure literals into invocable procedures
// and runs the state machines produced by lowering.
//
// # Architecture
//
// Compile turns an *ir.Lambda into a Procedure. Each node becomes a Go
// closure evaluated against a frame of variable bindings; frames chain to
// their parent, so nested procedure literals capture the frame they were
// evaluated in.
//
// Jumps and returns travel up the evaluator as control signals. Blocks
// resolve jumps to their own labels, loops resolve their break and continue
// targets, and protected constructs run their handlers as signals and faults
// pass through them.
//
// # State Machines
//
// A lowered asynchronous procedure evaluates to a Task produced by a machine
// instance:
//
//	start --> run states --> Suspend --(awaitable completes)--> run states --> Done
//	                 \--> fault --> catch / fault / finally handlers --> Fail
//
// The instance keeps a stack of pending actions for the finally and fault
// handlers it is running. EndFinally pops the action and either continues
// the interrupted transfer or propagates the pending fault. A fault raised
// inside a handler while another is pending combines both with multierr.
//
// Machines built with the pooled hint recycle their instances through a
// sync.Pool.
//
// # Error Classification
//
// ClassifyError maps faults to coarse categories (canceled, timeout,
// invalid input, internal) for callers that integrate with external error
// handling.
//
// # Thread Safety
//
// Procedures are safe for concurrent use. A machine instance runs on one
// goroutine at a time: the goroutine that started it, then whichever
// goroutine completes the value it awaits.
package engine
