package engine

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

// evalFn evaluates one compiled node in a frame.
type evalFn func(ctx context.Context, fr *frame) (any, error)

// Procedure is a compiled procedure literal, ready to be invoked.
//
// Procedures are immutable and safe for concurrent use; every invocation
// gets its own frame.
type Procedure struct {
	lambda *ir.Lambda
	code   *procedure
}

// Compile materializes l into an invocable procedure.
//
// Compilation rejects trees that cannot run: unlowered suspension points,
// jumps to targets placed nowhere in the same procedure, and calls without a
// Go function.
func Compile(l *ir.Lambda) (*Procedure, error) {
	if l == nil || l.Body == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "nil procedure")
	}
	c := &compiler{}
	code, err := c.lambda(l)
	if err != nil {
		return nil, err
	}
	Logger().Debug("compiled procedure",
		zap.String("procedure", l.Name),
		zap.Bool("async", l.Async),
		zap.Int("machines", c.machines),
	)
	return &Procedure{lambda: l, code: code}, nil
}

// Name returns the procedure's name.
func (p *Procedure) Name() string { return p.lambda.Name }

// Async reports whether invoking the procedure yields a *task.Task.
func (p *Procedure) Async() bool { return p.lambda.Async }

// Lambda returns the tree the procedure was compiled from.
func (p *Procedure) Lambda() *ir.Lambda { return p.lambda }

// Invoke runs the procedure. A synchronous procedure returns its value or
// fault; an asynchronous one always returns a *task.Task carrying either.
func (p *Procedure) Invoke(ctx context.Context, args ...any) (any, error) {
	return p.code.call(ctx, nil, args)
}

// Start invokes an asynchronous procedure and returns its handle.
func (p *Procedure) Start(ctx context.Context, args ...any) (*task.Task, error) {
	if !p.lambda.Async {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Node(p.lambda.Name).
			Detail("procedure is not asynchronous").
			Build()
	}
	out, err := p.Invoke(ctx, args...)
	if err != nil {
		return nil, err
	}
	return out.(*task.Task), nil
}

// Run invokes the procedure and, when it is asynchronous, waits for its
// result.
func (p *Procedure) Run(ctx context.Context, args ...any) (any, error) {
	if !p.lambda.Async {
		return p.Invoke(ctx, args...)
	}
	t, err := p.Start(ctx, args...)
	if err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}

type procedure struct {
	name   string
	params []*ir.Variable
	result ir.Type
	async  bool
	body   evalFn
}

func (p *procedure) call(ctx context.Context, env *frame, args []any) (any, error) {
	if len(args) != len(p.params) {
		return p.settle(nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Node(p.name).
			Detail("expected %d arguments, got %d", len(p.params), len(args)).
			Build())
	}
	fr := newFrame(env, p.params)
	for i, v := range p.params {
		fr.vars[v] = coerce(v.T, args[i])
	}
	v, err := p.body(ctx, fr)
	return p.settle(v, err)
}

func (p *procedure) settle(v any, err error) (any, error) {
	switch s := err.(type) {
	case *returnSignal:
		v, err = s.value, nil
	case *jumpSignal:
		err = errors.UnresolvedLabel(errors.PhaseRuntime, s.target.String())
	}
	if p.async {
		if err != nil {
			return task.Failed(err), nil
		}
		if t, ok := v.(*task.Task); ok {
			return t, nil
		}
		return task.Failed(errors.TypeMismatch(errors.PhaseRuntime, []string{p.name}, "result", "task", typeName(v))), nil
	}
	if err != nil {
		return nil, err
	}
	if p.result == ir.Void {
		return nil, nil
	}
	return coerce(p.result, v), nil
}

// closure is a procedure value bound to the frame it was evaluated in.
type closure struct {
	code *procedure
	env  *frame
}

func (c *closure) Invoke(ctx context.Context, args ...any) (any, error) {
	return c.code.call(ctx, c.env, args)
}

type labelScope struct {
	placed map[*ir.Target]bool
	jumps  []*ir.Target
}

type compiler struct {
	labels    *labelScope
	inMachine bool
	machines  int
}

func (c *compiler) lambda(l *ir.Lambda) (*procedure, error) {
	savedLabels, savedMachine := c.labels, c.inMachine
	c.labels = &labelScope{placed: make(map[*ir.Target]bool)}
	c.inMachine = false
	defer func() { c.labels, c.inMachine = savedLabels, savedMachine }()

	body, err := c.node(l.Body)
	if err != nil {
		return nil, err
	}
	for _, t := range c.labels.jumps {
		if !c.labels.placed[t] {
			return nil, errors.UnresolvedLabel(errors.PhaseCompile, t.String())
		}
	}
	return &procedure{
		name:   l.Name,
		params: l.Params,
		result: l.Result,
		async:  l.Async,
		body:   body,
	}, nil
}

func (c *compiler) nodes(ns []ir.Node) ([]evalFn, error) {
	out := make([]evalFn, len(ns))
	for i, n := range ns {
		fn, err := c.node(n)
		if err != nil {
			return nil, err
		}
		out[i] = fn
	}
	return out, nil
}

func (c *compiler) optional(n ir.Node) (evalFn, error) {
	if n == nil {
		return nil, nil
	}
	return c.node(n)
}

func (c *compiler) node(n ir.Node) (evalFn, error) {
	switch n := n.(type) {
	case *ir.Const:
		v := ir.NormalizeConst(n.Value)
		return func(context.Context, *frame) (any, error) { return v, nil }, nil

	case *ir.Default:
		z := n.T.Zero()
		return func(context.Context, *frame) (any, error) { return z, nil }, nil

	case *ir.Nop, *ir.Label:
		return func(context.Context, *frame) (any, error) { return nil, nil }, nil

	case *ir.Variable:
		return func(_ context.Context, fr *frame) (any, error) { return fr.get(n) }, nil

	case *ir.Assign:
		value, err := c.node(n.Value)
		if err != nil {
			return nil, err
		}
		target := n.Target
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := value(ctx, fr)
			if err != nil {
				return nil, err
			}
			if err := fr.set(target, v); err != nil {
				return nil, err
			}
			return coerce(target.T, v), nil
		}, nil

	case *ir.Block:
		return c.block(n)

	case *ir.Cond:
		return c.cond(n)

	case *ir.Loop:
		return c.loop(n)

	case *ir.Goto:
		c.labels.jumps = append(c.labels.jumps, n.Target)
		sig := &jumpSignal{target: n.Target}
		return func(context.Context, *frame) (any, error) { return nil, sig }, nil

	case *ir.Return:
		value, err := c.optional(n.Value)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			var v any
			if value != nil {
				var err error
				if v, err = value(ctx, fr); err != nil {
					return nil, err
				}
			}
			return nil, &returnSignal{value: v}
		}, nil

	case *ir.Switch:
		return c.switchOn(n)

	case *ir.Try:
		return c.try(n)

	case *ir.Throw:
		value, err := c.node(n.Value)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := value(ctx, fr)
			if err != nil {
				return nil, err
			}
			return nil, thrown(v)
		}, nil

	case *ir.Call:
		return c.call(n)

	case *ir.Invoke:
		return c.invoke(n)

	case *ir.Lambda:
		code, err := c.lambda(n)
		if err != nil {
			return nil, err
		}
		return func(_ context.Context, fr *frame) (any, error) {
			return &closure{code: code, env: fr}, nil
		}, nil

	case *ir.Binary:
		return c.binary(n)

	case *ir.Unary:
		x, err := c.node(n.X)
		if err != nil {
			return nil, err
		}
		op := n.Op
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			return unary(op, v)
		}, nil

	case *ir.StateMachine:
		mc, err := c.machine(n)
		if err != nil {
			return nil, err
		}
		c.machines++
		return func(ctx context.Context, fr *frame) (any, error) {
			return mc.start(ctx, fr), nil
		}, nil

	case *ir.AwaitResult:
		if !c.inMachine {
			return nil, errors.Unsupported(errors.PhaseCompile, "await result outside a state machine")
		}
		awaiter, t := n.Awaiter, n.T
		return func(_ context.Context, fr *frame) (any, error) {
			v, err := fr.get(awaiter)
			if err != nil {
				return nil, err
			}
			aw, ok := v.(task.Awaitable)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseRuntime, nil, "await", "awaitable", typeName(v))
			}
			res, err := aw.Result()
			if err != nil {
				return nil, err
			}
			if t == ir.Void {
				return nil, nil
			}
			return coerce(t, res), nil
		}, nil

	case *ir.MarkComplete:
		if !c.inMachine {
			return nil, errors.Unsupported(errors.PhaseCompile, "completion mark outside a state machine")
		}
		return func(_ context.Context, fr *frame) (any, error) {
			if m := fr.running(); m != nil {
				m.marked = true
			}
			return nil, nil
		}, nil

	case *ir.Await:
		return nil, errors.Unsupported(errors.PhaseCompile, "suspension point in an unlowered procedure")

	case *ir.AsyncResult:
		return nil, errors.Unsupported(errors.PhaseCompile, "completion in an unlowered procedure")

	case nil:
		return nil, errors.InvalidInput(errors.PhaseCompile, "nil node")

	default:
		return nil, errors.Unsupported(errors.PhaseCompile, "node "+n.Kind().String())
	}
}

func (c *compiler) block(n *ir.Block) (evalFn, error) {
	stmts, err := c.nodes(n.Body)
	if err != nil {
		return nil, err
	}
	var labels map[*ir.Target]int
	for i, s := range n.Body {
		if l, ok := s.(*ir.Label); ok {
			if labels == nil {
				labels = make(map[*ir.Target]int)
			}
			labels[l.Target] = i
			c.labels.placed[l.Target] = true
		}
	}
	vars := n.Vars
	return func(ctx context.Context, fr *frame) (any, error) {
		if len(vars) > 0 {
			fr = newFrame(fr, vars)
		}
		var last any
		for i := 0; i < len(stmts); i++ {
			v, err := stmts[i](ctx, fr)
			if err != nil {
				j, ok := err.(*jumpSignal)
				if !ok {
					return nil, err
				}
				at, ok := labels[j.target]
				if !ok {
					return nil, err
				}
				if at < i {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
				}
				i, last = at, nil
				continue
			}
			last = v
		}
		return last, nil
	}, nil
}

func (c *compiler) cond(n *ir.Cond) (evalFn, error) {
	test, err := c.node(n.Test)
	if err != nil {
		return nil, err
	}
	then, err := c.node(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := c.optional(n.Else)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (any, error) {
		v, err := test(ctx, fr)
		if err != nil {
			return nil, err
		}
		b, err := asBool("if", v)
		if err != nil {
			return nil, err
		}
		if b {
			return then(ctx, fr)
		}
		if els != nil {
			return els(ctx, fr)
		}
		return nil, nil
	}, nil
}

func (c *compiler) loop(n *ir.Loop) (evalFn, error) {
	if n.Break != nil {
		c.labels.placed[n.Break] = true
	}
	if n.Continue != nil {
		c.labels.placed[n.Continue] = true
	}
	body, err := c.node(n.Body)
	if err != nil {
		return nil, err
	}
	brk, cont := n.Break, n.Continue
	return func(ctx context.Context, fr *frame) (any, error) {
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			_, err := body(ctx, fr)
			if err == nil {
				continue
			}
			j, ok := err.(*jumpSignal)
			switch {
			case ok && brk != nil && j.target == brk:
				return nil, nil
			case ok && cont != nil && j.target == cont:
				continue
			default:
				return nil, err
			}
		}
	}, nil
}

func (c *compiler) switchOn(n *ir.Switch) (evalFn, error) {
	value, err := c.node(n.Value)
	if err != nil {
		return nil, err
	}
	type arm struct {
		tests []evalFn
		body  evalFn
	}
	arms := make([]arm, len(n.Cases))
	for i, cs := range n.Cases {
		tests, err := c.nodes(cs.Tests)
		if err != nil {
			return nil, err
		}
		body, err := c.node(cs.Body)
		if err != nil {
			return nil, err
		}
		arms[i] = arm{tests: tests, body: body}
	}
	def, err := c.optional(n.Default)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (any, error) {
		v, err := value(ctx, fr)
		if err != nil {
			return nil, err
		}
		for _, a := range arms {
			for _, test := range a.tests {
				tv, err := test(ctx, fr)
				if err != nil {
					return nil, err
				}
				if equal(v, tv) {
					return a.body(ctx, fr)
				}
			}
		}
		if def != nil {
			return def(ctx, fr)
		}
		return nil, nil
	}, nil
}

type catchCode struct {
	v      *ir.Variable
	match  ir.Matcher
	filter evalFn
	body   evalFn
	// entry is the handler's first state when the clause belongs to a machine.
	entry int
}

// accepts reports whether the clause handles fault. A filter that faults
// counts as a rejection.
func (cc *catchCode) accepts(ctx context.Context, fr *frame, fault error) bool {
	if cc.match != nil && !cc.match(fault) {
		return false
	}
	if cc.filter == nil {
		return true
	}
	v, err := cc.filter(ctx, fr)
	b, _ := v.(bool)
	return err == nil && b
}

func (c *compiler) catches(cs []ir.Catch) ([]*catchCode, error) {
	out := make([]*catchCode, len(cs))
	for i, cl := range cs {
		filter, err := c.optional(cl.Filter)
		if err != nil {
			return nil, err
		}
		body, err := c.node(cl.Body)
		if err != nil {
			return nil, err
		}
		out[i] = &catchCode{v: cl.Var, match: cl.Match, filter: filter, body: body}
	}
	return out, nil
}

func (c *compiler) try(n *ir.Try) (evalFn, error) {
	body, err := c.node(n.Body)
	if err != nil {
		return nil, err
	}
	catches, err := c.catches(n.Catches)
	if err != nil {
		return nil, err
	}
	finally, err := c.optional(n.Finally)
	if err != nil {
		return nil, err
	}
	fault, err := c.optional(n.Fault)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (any, error) {
		v, err := body(ctx, fr)
		if isFault(err) {
			for _, cc := range catches {
				cf := newFrame(fr, nil)
				cf.vars[cc.v] = err
				if cc.accepts(ctx, cf, err) {
					v, err = cc.body(ctx, cf)
					break
				}
			}
		}
		if isFault(err) && fault != nil {
			if _, ferr := fault(ctx, fr); ferr != nil {
				err = merge(err, ferr)
			}
		}
		if finally != nil {
			if _, ferr := finally(ctx, fr); ferr != nil {
				err = merge(err, ferr)
			}
		}
		return v, err
	}, nil
}

// merge resolves err, raised by a handler that ran because of pending.
// Two faults combine; any other outcome of the handler replaces pending.
func merge(pending, err error) error {
	if isFault(pending) && isFault(err) {
		return multierr.Append(pending, err)
	}
	return err
}

func thrown(v any) error {
	switch e := v.(type) {
	case error:
		return e
	case nil:
		return errors.InvalidInput(errors.PhaseRuntime, "throw of a nil error")
	default:
		return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Node("throw").
			Type(typeName(v)).
			Value(v).
			Detail("thrown value is not an error").
			Build()
	}
}

func (c *compiler) args(ns []ir.Node) (func(ctx context.Context, fr *frame) ([]any, error), error) {
	fns, err := c.nodes(ns)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) ([]any, error) {
		vals := make([]any, len(fns))
		for i, fn := range fns {
			v, err := fn(ctx, fr)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	}, nil
}

func (c *compiler) call(n *ir.Call) (evalFn, error) {
	if n.Fn == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "call "+n.Name+" has no function")
	}
	args, err := c.args(n.Args)
	if err != nil {
		return nil, err
	}
	fn, name, t := n.Fn, n.Name, n.T
	return func(ctx context.Context, fr *frame) (any, error) {
		vals, err := args(ctx, fr)
		if err != nil {
			return nil, err
		}
		out, err := protect(name, func() (any, error) { return fn(ctx, vals) })
		if err != nil {
			return nil, err
		}
		if t == ir.Void {
			return nil, nil
		}
		return coerce(t, out), nil
	}, nil
}

func (c *compiler) invoke(n *ir.Invoke) (evalFn, error) {
	proc, err := c.node(n.Proc)
	if err != nil {
		return nil, err
	}
	args, err := c.args(n.Args)
	if err != nil {
		return nil, err
	}
	t := n.T
	return func(ctx context.Context, fr *frame) (any, error) {
		p, err := proc(ctx, fr)
		if err != nil {
			return nil, err
		}
		callable, ok := p.(ir.Callable)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseRuntime, nil, "invoke", "func", typeName(p))
		}
		vals, err := args(ctx, fr)
		if err != nil {
			return nil, err
		}
		out, err := protect("invoke", func() (any, error) { return callable.Invoke(ctx, vals...) })
		if err != nil {
			return nil, err
		}
		if t == ir.Void {
			return nil, nil
		}
		return coerce(t, out), nil
	}, nil
}

// protect runs fn, turning a panic into a fault.
func protect(where string, fn func() (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.Panic(where, r)
		}
	}()
	return fn()
}

func (c *compiler) binary(n *ir.Binary) (evalFn, error) {
	l, err := c.node(n.L)
	if err != nil {
		return nil, err
	}
	r, err := c.node(n.R)
	if err != nil {
		return nil, err
	}
	op := n.Op
	if op.Logical() {
		return func(ctx context.Context, fr *frame) (any, error) {
			lv, err := l(ctx, fr)
			if err != nil {
				return nil, err
			}
			b, err := asBool(op.String(), lv)
			if err != nil {
				return nil, err
			}
			if b == (op == ir.OpOr) {
				return b, nil
			}
			rv, err := r(ctx, fr)
			if err != nil {
				return nil, err
			}
			return asBool(op.String(), rv)
		}, nil
	}
	return func(ctx context.Context, fr *frame) (any, error) {
		lv, err := l(ctx, fr)
		if err != nil {
			return nil, err
		}
		rv, err := r(ctx, fr)
		if err != nil {
			return nil, err
		}
		return binary(op, lv, rv)
	}, nil
}
