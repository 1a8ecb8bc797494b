// Package builder assembles procedures from structured control flow.
//
// A [Signature] opens a [Template]; the body callback receives the template's
// root [Scope] and adds statements and nested constructs to it. Every
// construct follows the same shape: a body scope is opened under the parent,
// the caller's callback fills it exactly once, the construct turns the built
// body into its node and appends that node to the parent. The body scope is
// disposed on every exit path, so a scope retained past its callback fails
// with a use-after-close error.
//
// Loops hand their body a [JumpContext] whose break and continue targets are
// minted before the loop node exists and bound into it when the loop is
// finished.
//
// Templates belong to the goroutine that opened them. Using a scope from any
// other goroutine fails.
//
// # Usage
//
// Building and running a procedure:
//
//	proc, err := builder.Compile(builder.Signature{
//	    Name:   "sum",
//	    Params: []builder.Parameter{{Name: "n", Type: ir.Int}},
//	    Result: ir.Int,
//	}, func(s *builder.Scope) error {
//	    n, _ := s.Param(0)
//	    acc, _ := s.Declare("acc", ir.Int)
//	    err := s.Range("i", ir.IntLit(0), n, func(b *builder.Scope, i *ir.Variable, _ *builder.JumpContext) error {
//	        return b.Set(acc, ir.Add(acc, i))
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    return s.Return(acc)
//	})
//
// Binding a procedure to a Go function type:
//
//	fetch, err := builder.CompileFunc[func(context.Context, string) *task.Task](body,
//	    builder.WithResult(ir.String),
//	    builder.WithAsyncCalls("net.*"),
//	)
//
// Asynchronous signatures are lowered to state machines before they are
// compiled; see package asyncify. Draft returns the tree before lowering.
package builder
