package engine

import (
	"context"

	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

// epilogue makes the body end in a completion. A value-bearing body completes
// with the result slot when one exists, else with its last value when that
// value fits the result type, else with the result type's default.
func epilogue(body ir.Node, rt ir.Type, result *ir.Variable) ir.Node {
	var (
		vars  []*ir.Variable
		stmts []ir.Node
	)
	switch b := body.(type) {
	case *ir.Block:
		vars = b.Vars
		stmts = append(stmts, b.Body...)
	case *ir.Nop:
	default:
		stmts = []ir.Node{body}
	}

	var last ir.Node
	if len(stmts) > 0 {
		last = stmts[len(stmts)-1]
	}
	if last != nil && terminal(last) {
		return body
	}

	switch {
	case rt == ir.Void:
		stmts = append(stmts, ir.Complete(nil))
	case result != nil:
		stmts = append(stmts, ir.Complete(result))
	case last != nil && producesValue(last) && rt.Assignable(last.Type()):
		stmts[len(stmts)-1] = ir.Complete(last)
	default:
		stmts = append(stmts, ir.Complete(ir.Zero(rt)))
	}
	return ir.NewBlock(vars, stmts...)
}

func terminal(n ir.Node) bool {
	switch n.(type) {
	case *ir.AsyncResult, *ir.Return, *ir.Throw, *ir.Goto:
		return true
	}
	return false
}

func producesValue(n ir.Node) bool {
	t := n.Type()
	return t != ir.Void && t != ir.Task
}

// direct lowers a body without suspension points. Each completion returns an
// already-completed handle; completions whose value may fault, and the body as
// a whole, run inside a fault boundary that returns a failed handle.
func direct(l *ir.Lambda, body ir.Node, result *ir.Variable) *ir.Lambda {
	done := completedAs(l.Result)
	handle := func(v ir.Node) ir.Node {
		if l.Result == ir.Void {
			if v == nil {
				return ir.CallFunc("completed", ir.Task, done)
			}
			return guard(ir.Seq(v, ir.CallFunc("completed", ir.Task, done)))
		}
		if v == nil {
			if result != nil {
				v = result
			} else {
				v = ir.Zero(l.Result)
			}
		}
		switch v.(type) {
		case *ir.Const, *ir.Default:
			return ir.CallFunc("completed", ir.Task, done, v)
		}
		return guard(ir.CallFunc("completed", ir.Task, done, v))
	}

	rewritten := ir.Rewrite(body, func(n ir.Node) ir.Node {
		switch n := n.(type) {
		case *ir.AsyncResult:
			return &ir.Return{Value: handle(n.Value)}
		case *ir.Return:
			return &ir.Return{Value: handle(n.Value)}
		}
		return n
	})

	var vars []*ir.Variable
	if result != nil {
		vars = append(vars, result)
	}
	return &ir.Lambda{
		Name:   l.Name,
		Params: l.Params,
		Result: l.Result,
		Async:  true,
		Body:   ir.NewBlock(vars, guard(rewritten)),
	}
}

// guard evaluates n and yields a failed handle when it faults.
func guard(n ir.Node) *ir.Try {
	fault := ir.NewVariable("fault", ir.Error)
	return &ir.Try{
		Body: n,
		Catches: []ir.Catch{{
			Var:  fault,
			Body: ir.CallFunc("failed", ir.Task, failed, fault),
		}},
		T: ir.Task,
	}
}

// completedAs returns a Go call producing a completed handle whose value is
// converted to t. Without arguments the handle completes without a value.
func completedAs(t ir.Type) ir.GoFunc {
	return func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			h := task.New()
			h.MarkComplete()
			return h, nil
		}
		v := args[0]
		if i, ok := v.(int64); ok && t == ir.Float {
			v = float64(i)
		}
		return task.Completed(v), nil
	}
}

func failed(_ context.Context, args []any) (any, error) {
	err, _ := args[0].(error)
	return task.Failed(err), nil
}
