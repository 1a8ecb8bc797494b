package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// CallMatcher decides which Go calls produce an awaitable that the procedure
// waits on implicitly.
type CallMatcher interface {
	Match(name string) bool
}

// Config configures the lowering engine.
type Config struct {
	Matcher CallMatcher
	// Result is the slot holding the final value. It is created on demand
	// for value-bearing procedures when nil.
	Result *ir.Variable
	Pooled bool
}

// Engine lowers asynchronous procedure literals.
//
// The engine is stateless between Transform calls.
type Engine struct {
	matcher CallMatcher
	result  *ir.Variable
	pooled  bool
}

// New creates a lowering engine with the given config.
func New(cfg Config) *Engine {
	return &Engine{
		matcher: cfg.Matcher,
		result:  cfg.Result,
		pooled:  cfg.Pooled,
	}
}

// Transform lowers an asynchronous procedure.
//
// The pipeline:
//  1. Wraps matched calls in suspension points
//  2. Rejects suspension points inside catch filters
//  3. Appends the completion epilogue
//  4. Rewrites completions directly when the body never suspends,
//     otherwise partitions the body into a state machine
func (e *Engine) Transform(l *ir.Lambda) (*ir.Lambda, error) {
	if l == nil || l.Body == nil {
		return nil, errors.InvalidInput(errors.PhaseLower, "nil procedure")
	}
	if !l.Async {
		if ir.ContainsAwait(l.Body) {
			return nil, errors.SuspendOutsideAsync(l.Name)
		}
		return l, nil
	}
	if !l.Result.Valid() {
		return nil, errors.AbstractSignature(l.Name, "unknown result type "+l.Result.String())
	}

	result := e.result
	if result != nil && l.Result == ir.Void {
		return nil, errors.VoidResultAccess(l.Name)
	}

	body := e.markAsyncCalls(l.Body)
	if err := checkFilters(body); err != nil {
		return nil, err
	}
	body = epilogue(body, l.Result, result)

	an := ir.NewAnalysis()
	if !an.HasAwait(body) {
		out := direct(l, body, result)
		Logger().Debug("lowered without suspension points", zap.String("procedure", l.Name))
		return out, nil
	}

	if result == nil && l.Result != ir.Void {
		result = ir.NewVariable("result", l.Result)
	}
	m, locals, err := flatten(l.Name, body, result, an)
	if err != nil {
		return nil, err
	}
	m.Pooled = e.pooled

	reach := BuildStateGraph(m).Reachable(0, len(m.States))
	Logger().Debug("lowered to state machine",
		zap.String("procedure", l.Name),
		zap.Int("states", len(m.States)),
		zap.Int("regions", len(m.Regions)),
		zap.Int("unreachable", len(m.States)-reach.Count()),
		zap.Bool("pooled", m.Pooled),
	)

	return &ir.Lambda{
		Name:   l.Name,
		Params: l.Params,
		Result: l.Result,
		Async:  true,
		Body:   ir.NewBlock(locals, m),
	}, nil
}

// markAsyncCalls wraps calls accepted by the matcher in suspension points.
// A call that is already the operand of an Await is awaited once.
func (e *Engine) markAsyncCalls(body ir.Node) ir.Node {
	if e.matcher == nil {
		return body
	}
	wrapped := make(map[*ir.Await]bool)
	return ir.Rewrite(body, func(n ir.Node) ir.Node {
		switch n := n.(type) {
		case *ir.Call:
			if e.matcher.Match(n.Name) {
				w := ir.AwaitOf(&ir.Call{Name: n.Name, Fn: n.Fn, Args: n.Args, T: ir.Task}, n.T)
				wrapped[w] = true
				return w
			}
		case *ir.Await:
			if inner, ok := n.Value.(*ir.Await); ok && wrapped[inner] {
				return &ir.Await{Value: inner.Value, T: n.T}
			}
		}
		return n
	})
}

func checkFilters(body ir.Node) error {
	var err error
	ir.Walk(body, func(n ir.Node) bool {
		if err != nil {
			return false
		}
		if t, ok := n.(*ir.Try); ok {
			for _, c := range t.Catches {
				if ir.ContainsAwait(c.Filter) {
					err = errors.SuspendInFilter(errors.PhaseLower)
					return false
				}
			}
		}
		return true
	})
	return err
}
