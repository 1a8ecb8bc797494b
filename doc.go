// Package irflow builds procedures from structured control flow and runs
// them, including asynchronous procedures that suspend on awaited handles.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	irflow/              Root package: Compile, Run and the common type aliases
//	├── builder/         Scopes, jump contexts, construct assemblers, templates
//	├── ir/              Immutable typed IR nodes and the state-machine shape
//	├── asyncify/        Lowering of asynchronous procedures to state machines
//	├── engine/          Materializes IR into invocable procedures
//	├── task/            Asynchronous result handles and the suspension-aware mutex
//	├── errors/          Structured error types for construction, lowering and runtime
//	├── internal/cli/    Cobra commands and the interactive browser
//	├── internal/catalog/ Sample procedures served by the CLI
//	└── cmd/irflow/      CLI for listing, dumping, running and browsing procedures
//
// # Quick Start
//
// Build and run a procedure:
//
//	proc, err := irflow.Compile(irflow.Signature{
//	    Name:   "answer",
//	    Result: ir.Int,
//	    Async:  true,
//	}, func(s *irflow.Scope) error {
//	    v, err := s.Await(fetch, ir.Int)
//	    if err != nil {
//	        return err
//	    }
//	    return s.Return(ir.Add(v, ir.IntLit(1)))
//	})
//	if err != nil {
//	    return err
//	}
//	value, err := irflow.Run(ctx, proc)
//
// # Error Handling
//
// Construction and lowering errors are returned synchronously by Compile and
// never produce a partial procedure. Faults raised while an asynchronous
// procedure runs complete its handle; Run reports them as unhandled faults
// wrapping the original error:
//
//	if errors.Is(err, irerrors.ConstructionError) {
//	    // builder misuse
//	}
//
// # Logging
//
// Building, lowering and execution log through zap at debug level. Logging is disabled
// until SetLogger is called.
package irflow
