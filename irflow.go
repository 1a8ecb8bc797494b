package irflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/irflow/asyncify"
	"github.com/wippyai/irflow/builder"
	"github.com/wippyai/irflow/engine"
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/task"
)

type (
	// Signature describes a procedure to build.
	Signature = builder.Signature
	// Parameter is one declared parameter of a Signature.
	Parameter = builder.Parameter
	// Scope is the statement list a body callback fills.
	Scope = builder.Scope
	// BodyFunc fills the root scope of a procedure.
	BodyFunc = builder.BodyFunc
	// Option adjusts a signature derived from a Go function type.
	Option = builder.Option
	// Procedure is a compiled, invocable procedure.
	Procedure = engine.Procedure
)

// Compile builds sig with fn and materializes the result.
func Compile(sig Signature, fn BodyFunc) (*Procedure, error) {
	return builder.Compile(sig, fn)
}

// CompileFunc builds a procedure shaped like the Go function type F and binds
// it back to F.
func CompileFunc[F any](fn BodyFunc, opts ...Option) (F, error) {
	return builder.CompileFunc[F](fn, opts...)
}

// Run invokes p and waits for its result. A fault of an asynchronous
// procedure is returned as an unhandled-fault error wrapping the original, so
// errors.Is still matches it.
func Run(ctx context.Context, p *Procedure, args ...any) (any, error) {
	if !p.Async() {
		return p.Invoke(ctx, args...)
	}
	h, err := p.Start(ctx, args...)
	if err != nil {
		return nil, err
	}
	return Await(ctx, p.Name(), h)
}

// Await waits for h. Cancellation of ctx is returned as is; a failed handle
// yields an unhandled-fault error naming the procedure.
func Await(ctx context.Context, name string, h *task.Task) (any, error) {
	v, err := h.Wait(ctx)
	if err == nil {
		return v, nil
	}
	if !h.IsCompleted() {
		return nil, err
	}
	return nil, errors.UnhandledFault(name, err)
}

// SetLogger routes lowering and execution logs to l.
func SetLogger(l *zap.Logger) {
	builder.SetLogger(l)
	asyncify.SetLogger(l)
	engine.SetLogger(l)
}
