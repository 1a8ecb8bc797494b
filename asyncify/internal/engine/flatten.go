package engine

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// flattener partitions a body into the states of a machine. Subtrees that
// neither suspend nor receive jumps from outside are kept as single
// statements; everything else is split at suspension points and at the
// edges of control constructs.
type flattener struct {
	an *ir.Analysis
	m  *ir.StateMachine

	cur    *ir.State
	region int

	labels map[*ir.Target]int
	placed map[*ir.Target]bool
	// gotos counts the jumps to each target across the whole body.
	gotos     map[*ir.Target]int
	contained map[ir.Node]bool

	locals []*ir.Variable
	seen   map[*ir.Variable]bool
	isTemp map[*ir.Variable]bool

	endTarget *ir.Target
	result    *ir.Variable
}

func flatten(name string, body ir.Node, result *ir.Variable, an *ir.Analysis) (*ir.StateMachine, []*ir.Variable, error) {
	f := &flattener{
		an:        an,
		m:         &ir.StateMachine{Name: name, Result: result},
		region:    ir.NoRegion,
		labels:    make(map[*ir.Target]int),
		placed:    make(map[*ir.Target]bool),
		gotos:     make(map[*ir.Target]int),
		contained: make(map[ir.Node]bool),
		seen:      make(map[*ir.Variable]bool),
		isTemp:    make(map[*ir.Variable]bool),
		endTarget: ir.NewTarget("end"),
		result:    result,
	}
	if err := f.countJumps(body); err != nil {
		return nil, nil, err
	}

	entry := f.newState()
	f.m.End = f.newState()
	end := f.m.States[f.m.End]
	end.Term = &ir.Done{}
	end.Region = ir.NoRegion
	f.enter(entry)

	if err := f.into(body, nil); err != nil {
		return nil, nil, err
	}
	f.jump(f.m.End)

	for _, s := range f.m.States {
		if s.Term == nil {
			s.Term = &ir.JumpTo{To: f.m.End}
		}
	}
	for t := range f.labels {
		if !f.placed[t] {
			return nil, nil, errors.UnresolvedLabel(errors.PhaseLower, t.String())
		}
	}

	f.m.Labels = make(map[*ir.Target]int, len(f.labels)+1)
	for t, id := range f.labels {
		f.m.Labels[t] = id
	}
	f.m.Labels[f.endTarget] = f.m.End

	f.m.StateVar = ir.NewVariable("state", ir.Int)
	f.hoist(f.m.StateVar)
	if result != nil {
		f.hoist(result)
	}
	return f.m, f.locals, nil
}

// countJumps records how often each target is jumped to and rejects jumps to
// targets placed nowhere in the body.
func (f *flattener) countJumps(body ir.Node) error {
	defined := make(map[*ir.Target]bool)
	ir.Walk(body, func(n ir.Node) bool {
		switch n := n.(type) {
		case *ir.Goto:
			f.gotos[n.Target]++
		case *ir.Label:
			defined[n.Target] = true
		case *ir.Loop:
			if n.Break != nil {
				defined[n.Break] = true
			}
			if n.Continue != nil {
				defined[n.Continue] = true
			}
		case *ir.Lambda:
			return false
		}
		return true
	})
	for t := range f.gotos {
		if !defined[t] {
			return errors.UnresolvedLabel(errors.PhaseLower, t.String())
		}
	}
	return nil
}

func (f *flattener) newState() int {
	id := len(f.m.States)
	f.m.States = append(f.m.States, &ir.State{ID: id, Region: f.region})
	return id
}

func (f *flattener) newRegion(kind ir.RegionKind, parent int) *ir.Region {
	r := &ir.Region{
		ID:      len(f.m.Regions),
		Kind:    kind,
		Parent:  parent,
		Finally: -1,
		Fault:   -1,
		Owner:   -1,
	}
	f.m.Regions = append(f.m.Regions, r)
	return r
}

// enter makes state id current, falling through from an open state.
func (f *flattener) enter(id int) {
	if f.cur != nil && f.cur.Term == nil {
		f.cur.Term = &ir.JumpTo{To: id}
	}
	f.cur = f.m.States[id]
	f.cur.Region = f.region
}

// state returns the current state, opening an unreachable one after a jump.
func (f *flattener) state() *ir.State {
	if f.cur == nil {
		f.enter(f.newState())
	}
	return f.cur
}

func (f *flattener) emit(n ir.Node) {
	if _, ok := n.(*ir.Nop); ok || n == nil {
		return
	}
	s := f.state()
	s.Body = append(s.Body, n)
}

func (f *flattener) emitValue(n ir.Node, sink *ir.Variable) {
	if sink != nil && n.Type() != ir.Void {
		f.emit(ir.Set(sink, n))
		return
	}
	f.emit(n)
}

func (f *flattener) terminate(t ir.Terminator) {
	f.state().Term = t
	f.cur = nil
}

func (f *flattener) jump(to int) {
	if f.cur == nil {
		return
	}
	f.terminate(&ir.JumpTo{To: to})
}

func (f *flattener) target(t *ir.Target) int {
	if id, ok := f.labels[t]; ok {
		return id
	}
	id := f.newState()
	f.labels[t] = id
	return id
}

func (f *flattener) place(t *ir.Target) int {
	id := f.target(t)
	f.placed[t] = true
	return id
}

func (f *flattener) hoist(v *ir.Variable) {
	if f.seen[v] {
		return
	}
	f.seen[v] = true
	f.locals = append(f.locals, v)
}

func (f *flattener) temp(name string, t ir.Type) *ir.Variable {
	v := ir.NewVariable(name, t)
	f.hoist(v)
	f.isTemp[v] = true
	return v
}

// needsFlatten reports whether n must be split: it suspends, or it places a
// target that is jumped to from outside it.
func (f *flattener) needsFlatten(n ir.Node) bool {
	return f.an.HasAwait(n) || !f.selfContained(n)
}

func (f *flattener) selfContained(n ir.Node) bool {
	if v, ok := f.contained[n]; ok {
		return v
	}
	placed := make(map[*ir.Target]bool)
	gotos := make(map[*ir.Target]int)
	ir.Walk(n, func(c ir.Node) bool {
		switch c := c.(type) {
		case *ir.Label:
			placed[c.Target] = true
		case *ir.Loop:
			if c.Break != nil {
				placed[c.Break] = true
			}
			if c.Continue != nil {
				placed[c.Continue] = true
			}
		case *ir.Goto:
			gotos[c.Target]++
		case *ir.Lambda:
			return false
		}
		return true
	})
	ok := true
	for t := range placed {
		if gotos[t] != f.gotos[t] {
			ok = false
			break
		}
	}
	f.contained[n] = ok
	return ok
}

func sinkFor(n ir.Node, sink *ir.Variable) *ir.Variable {
	if n.Type() == ir.Void {
		return nil
	}
	return sink
}

// into lowers statement n into the current state, storing its value in sink
// when both are present.
func (f *flattener) into(n ir.Node, sink *ir.Variable) error {
	switch n := n.(type) {
	case *ir.Goto:
		f.terminate(&ir.JumpTo{To: f.target(n.Target)})
		return nil
	case *ir.Label:
		f.enter(f.place(n.Target))
		return nil
	}
	if !f.needsFlatten(n) {
		f.emitValue(f.intact(n), sink)
		return nil
	}

	switch n := n.(type) {
	case *ir.Block:
		sink = sinkFor(n, sink)
		for _, v := range n.Vars {
			f.hoist(v)
			f.emit(ir.Set(v, ir.Zero(v.T)))
		}
		for i, c := range n.Body {
			var s *ir.Variable
			if i == len(n.Body)-1 {
				s = sink
			}
			if err := f.into(c, s); err != nil {
				return err
			}
		}
		return nil

	case *ir.Cond:
		return f.cond(n, sinkFor(n, sink))

	case *ir.Loop:
		var head, brk int
		if n.Continue != nil {
			head = f.place(n.Continue)
		} else {
			head = f.newState()
		}
		if n.Break != nil {
			brk = f.place(n.Break)
		} else {
			brk = f.newState()
		}
		f.enter(head)
		if err := f.into(n.Body, nil); err != nil {
			return err
		}
		f.jump(head)
		f.enter(brk)
		return nil

	case *ir.Switch:
		return f.switchOn(n, sinkFor(n, sink))

	case *ir.Try:
		return f.try(n, sinkFor(n, sink))

	case *ir.AsyncResult:
		return f.complete(n.Value)

	case *ir.Return:
		return f.complete(n.Value)

	case *ir.Throw:
		v, err := f.expr(n.Value)
		if err != nil {
			return err
		}
		f.emit(ir.Raise(v))
		return nil

	default:
		v, err := f.expr(n)
		if err != nil {
			return err
		}
		f.emitValue(v, sink)
		return nil
	}
}

func (f *flattener) cond(n *ir.Cond, sink *ir.Variable) error {
	test, err := f.expr(n.Test)
	if err != nil {
		return err
	}
	then, join := f.newState(), f.newState()
	els := join
	if n.Else != nil {
		els = f.newState()
	}
	f.terminate(&ir.Branch{Test: test, Then: then, Else: els})

	f.enter(then)
	if err := f.into(n.Then, sink); err != nil {
		return err
	}
	f.jump(join)
	if n.Else != nil {
		f.enter(els)
		if err := f.into(n.Else, sink); err != nil {
			return err
		}
		f.jump(join)
	}
	f.enter(join)
	return nil
}

func (f *flattener) switchOn(n *ir.Switch, sink *ir.Variable) error {
	for _, c := range n.Cases {
		for _, t := range c.Tests {
			if f.an.HasAwait(t) {
				return errors.Unsupported(errors.PhaseLower, "suspension point in a case test")
			}
		}
	}
	v, err := f.expr(n.Value)
	if err != nil {
		return err
	}
	if !f.stable(v) {
		tmp := f.temp("switch", n.Value.Type())
		f.emit(ir.Set(tmp, v))
		v = tmp
	}

	join := f.newState()
	cases := make([]ir.JumpCase, len(n.Cases))
	for i, c := range n.Cases {
		cases[i] = ir.JumpCase{Tests: c.Tests, To: f.newState()}
	}
	def := join
	if n.Default != nil {
		def = f.newState()
	}
	f.terminate(&ir.SwitchTo{Value: v, Cases: cases, Default: def})

	for i, c := range n.Cases {
		f.enter(cases[i].To)
		if err := f.into(c.Body, sink); err != nil {
			return err
		}
		f.jump(join)
	}
	if n.Default != nil {
		f.enter(def)
		if err := f.into(n.Default, sink); err != nil {
			return err
		}
		f.jump(join)
	}
	f.enter(join)
	return nil
}

// try lowers a protected construct into nested regions, innermost first:
// catches, then the fault handler, then the finally handler.
func (f *flattener) try(n *ir.Try, sink *ir.Variable) error {
	outer := f.region
	parent := outer
	var finReg, faultReg, catchReg *ir.Region
	if n.Finally != nil {
		finReg = f.newRegion(ir.RegionProtected, parent)
		parent = finReg.ID
	}
	if n.Fault != nil {
		faultReg = f.newRegion(ir.RegionProtected, parent)
		parent = faultReg.ID
	}
	if len(n.Catches) > 0 {
		catchReg = f.newRegion(ir.RegionProtected, parent)
		parent = catchReg.ID
	}
	around := parent
	if catchReg != nil {
		around = catchReg.Parent
	}

	join := f.newState()
	body := f.newState()
	f.region = parent
	f.enter(body)
	if err := f.into(n.Body, sink); err != nil {
		return err
	}
	f.jump(join)

	f.region = around
	for _, c := range n.Catches {
		f.hoist(c.Var)
		entry := f.newState()
		catchReg.Catches = append(catchReg.Catches, ir.Handler{
			Var:    c.Var,
			Match:  c.Match,
			Filter: c.Filter,
			Entry:  entry,
		})
		f.enter(entry)
		if err := f.into(c.Body, sink); err != nil {
			return err
		}
		f.jump(join)
	}
	f.enter(join)

	if finReg == nil && faultReg == nil {
		return nil
	}
	after := f.newState()
	f.jump(after)
	if faultReg != nil {
		if err := f.handler(faultReg, n.Fault, &faultReg.Fault); err != nil {
			return err
		}
	}
	if finReg != nil {
		if err := f.handler(finReg, n.Finally, &finReg.Finally); err != nil {
			return err
		}
	}
	f.region = outer
	f.enter(after)
	return nil
}

// handler lowers a finally or fault body into its own region. The body ends
// by resuming whatever action was pending when owner was left.
func (f *flattener) handler(owner *ir.Region, body ir.Node, slot *int) error {
	h := f.newRegion(ir.RegionHandler, owner.Parent)
	h.Owner = owner.ID
	f.region = h.ID
	f.cur = nil
	entry := f.newState()
	*slot = entry
	f.enter(entry)
	if err := f.into(body, nil); err != nil {
		return err
	}
	f.terminate(&ir.EndFinally{Region: owner.ID})
	return nil
}

// complete stores the completion value and transfers to the end state,
// leaving every enclosing region on the way.
func (f *flattener) complete(v ir.Node) error {
	if v != nil {
		x, err := f.expr(v)
		if err != nil {
			return err
		}
		if f.result != nil && x.Type() != ir.Void {
			f.emit(ir.Set(f.result, x))
		} else {
			f.emit(x)
		}
	}
	if f.result == nil {
		f.emit(&ir.MarkComplete{})
	}
	f.jump(f.m.End)
	return nil
}

// intact rewrites completions inside a kept subtree into stores followed by
// a jump to the end state.
func (f *flattener) intact(n ir.Node) ir.Node {
	return ir.Rewrite(n, func(c ir.Node) ir.Node {
		var v ir.Node
		switch c := c.(type) {
		case *ir.AsyncResult:
			v = c.Value
		case *ir.Return:
			v = c.Value
		default:
			return c
		}
		end := ir.Jump(f.endTarget)
		switch {
		case f.result != nil && v != nil:
			return ir.Seq(ir.Set(f.result, v), end)
		case f.result != nil:
			return end
		case v != nil:
			return ir.Seq(v, &ir.MarkComplete{}, end)
		default:
			return ir.Seq(&ir.MarkComplete{}, end)
		}
	})
}

// expr lowers n so that its value can be computed in the current state, and
// returns the node computing it.
func (f *flattener) expr(n ir.Node) (ir.Node, error) {
	if n == nil {
		return nil, nil
	}
	if !f.needsFlatten(n) {
		return f.intact(n), nil
	}

	switch n := n.(type) {
	case *ir.Await:
		v, err := f.expr(n.Value)
		if err != nil {
			return nil, err
		}
		aw := f.temp("awaiter", ir.Any)
		f.emit(ir.Set(aw, v))
		resume := f.newState()
		f.terminate(&ir.Suspend{Awaiter: aw, Resume: resume})
		f.enter(resume)
		res := &ir.AwaitResult{Awaiter: aw, T: n.T}
		if n.T == ir.Void {
			f.emit(res)
			return ir.Empty(), nil
		}
		out := f.temp("awaited", n.T)
		f.emit(ir.Set(out, res))
		return out, nil

	case *ir.Assign:
		v, err := f.expr(n.Value)
		if err != nil {
			return nil, err
		}
		return ir.Set(n.Target, v), nil

	case *ir.Binary:
		if n.Op.Logical() {
			return f.logical(n)
		}
		args, err := f.exprs([]ir.Node{n.L, n.R})
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: n.Op, L: args[0], R: args[1]}, nil

	case *ir.Unary:
		x, err := f.expr(n.X)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: n.Op, X: x}, nil

	case *ir.Call:
		args, err := f.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Name: n.Name, Fn: n.Fn, Args: args, T: n.T}, nil

	case *ir.Invoke:
		all, err := f.exprs(append([]ir.Node{n.Proc}, n.Args...))
		if err != nil {
			return nil, err
		}
		return &ir.Invoke{Proc: all[0], Args: all[1:], T: n.T}, nil

	default:
		var sink *ir.Variable
		if n.Type() != ir.Void {
			sink = f.temp("value", n.Type())
		}
		if err := f.into(n, sink); err != nil {
			return nil, err
		}
		if sink == nil {
			return ir.Empty(), nil
		}
		return sink, nil
	}
}

// exprs lowers operands left to right. Operands evaluated before the last
// one that suspends are spilled to temporaries so that their values are
// fixed before the suspension.
func (f *flattener) exprs(nodes []ir.Node) ([]ir.Node, error) {
	last := -1
	for i, n := range nodes {
		if f.needsFlatten(n) {
			last = i
		}
	}
	out := make([]ir.Node, len(nodes))
	for i, n := range nodes {
		if i > last {
			out[i] = f.intact(n)
			continue
		}
		x, err := f.expr(n)
		if err != nil {
			return nil, err
		}
		if i < last && !f.stable(x) {
			if x.Type() == ir.Void {
				f.emit(x)
				x = ir.Empty()
			} else {
				tmp := f.temp("arg", x.Type())
				f.emit(ir.Set(tmp, x))
				x = tmp
			}
		}
		out[i] = x
	}
	return out, nil
}

func (f *flattener) stable(n ir.Node) bool {
	switch n := n.(type) {
	case *ir.Const, *ir.Default, *ir.Nop:
		return true
	case *ir.Variable:
		return f.isTemp[n]
	}
	return false
}

// logical lowers a short-circuit operator whose right operand suspends into
// a branch over a boolean temporary.
func (f *flattener) logical(n *ir.Binary) (ir.Node, error) {
	l, err := f.expr(n.L)
	if err != nil {
		return nil, err
	}
	if !f.needsFlatten(n.R) {
		return &ir.Binary{Op: n.Op, L: l, R: f.intact(n.R)}, nil
	}
	t := f.temp("cond", ir.Bool)
	f.emit(ir.Set(t, l))
	rhs, join := f.newState(), f.newState()
	if n.Op == ir.OpAnd {
		f.terminate(&ir.Branch{Test: t, Then: rhs, Else: join})
	} else {
		f.terminate(&ir.Branch{Test: t, Then: join, Else: rhs})
	}
	f.enter(rhs)
	r, err := f.expr(n.R)
	if err != nil {
		return nil, err
	}
	f.emit(ir.Set(t, r))
	f.jump(join)
	f.enter(join)
	return t, nil
}
