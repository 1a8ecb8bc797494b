package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

// machineCode is the compiled form of a state machine, shared by every
// instance started from it.
type machineCode struct {
	sm      *ir.StateMachine
	states  []stateCode
	catches [][]*catchCode
	pool    *sync.Pool
}

type stateCode struct {
	body   []evalFn
	term   ir.Terminator
	region int
	// test is the branch condition or the switch value.
	test  evalFn
	tests [][]evalFn
}

func (c *compiler) machine(sm *ir.StateMachine) (*machineCode, error) {
	if err := validate(sm); err != nil {
		return nil, err
	}
	saved := c.inMachine
	c.inMachine = true
	defer func() { c.inMachine = saved }()

	for t := range sm.Labels {
		c.labels.placed[t] = true
	}

	mc := &machineCode{sm: sm, states: make([]stateCode, len(sm.States))}
	for i, s := range sm.States {
		body, err := c.nodes(s.Body)
		if err != nil {
			return nil, err
		}
		sc := stateCode{body: body, term: s.Term, region: s.Region}
		switch t := s.Term.(type) {
		case *ir.Branch:
			if sc.test, err = c.node(t.Test); err != nil {
				return nil, err
			}
		case *ir.SwitchTo:
			if sc.test, err = c.node(t.Value); err != nil {
				return nil, err
			}
			sc.tests = make([][]evalFn, len(t.Cases))
			for j, cs := range t.Cases {
				if sc.tests[j], err = c.nodes(cs.Tests); err != nil {
					return nil, err
				}
			}
		}
		mc.states[i] = sc
	}

	mc.catches = make([][]*catchCode, len(sm.Regions))
	for i, r := range sm.Regions {
		for _, h := range r.Catches {
			filter, err := c.optional(h.Filter)
			if err != nil {
				return nil, err
			}
			mc.catches[i] = append(mc.catches[i], &catchCode{
				v:      h.Var,
				match:  h.Match,
				filter: filter,
				entry:  h.Entry,
			})
		}
	}

	if sm.Pooled {
		mc.pool = &sync.Pool{New: func() any { return &machine{code: mc} }}
	}
	return mc, nil
}

// validate checks that every state and region reference of sm is in range.
func validate(sm *ir.StateMachine) error {
	bad := func(format string, args ...any) error {
		return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Node(sm.Name).
			Detail(format, args...).
			Build()
	}
	nStates, nRegions := len(sm.States), len(sm.Regions)
	state := func(id int) bool { return id >= 0 && id < nStates }
	region := func(id int) bool { return id == ir.NoRegion || (id >= 0 && id < nRegions) }

	if nStates == 0 || !state(sm.End) {
		return bad("machine has no end state")
	}
	for i, s := range sm.States {
		if s.ID != i {
			return bad("state %d is stored at index %d", s.ID, i)
		}
		if !region(s.Region) {
			return bad("state %d is in unknown region %d", i, s.Region)
		}
		var targets []int
		switch t := s.Term.(type) {
		case *ir.JumpTo:
			targets = []int{t.To}
		case *ir.Branch:
			targets = []int{t.Then, t.Else}
		case *ir.SwitchTo:
			targets = []int{t.Default}
			for _, c := range t.Cases {
				targets = append(targets, c.To)
			}
		case *ir.Suspend:
			targets = []int{t.Resume}
		case *ir.EndFinally:
			if t.Region < 0 || t.Region >= nRegions {
				return bad("state %d ends the handler of unknown region %d", i, t.Region)
			}
		case *ir.Done:
		default:
			return bad("state %d has terminator %T", i, s.Term)
		}
		for _, to := range targets {
			if !state(to) {
				return bad("state %d transfers to unknown state %d", i, to)
			}
		}
	}
	for i, r := range sm.Regions {
		if r.ID != i || !region(r.Parent) || r.Parent >= i {
			return bad("region %d has invalid parent %d", i, r.Parent)
		}
		if r.Kind == ir.RegionHandler && (r.Owner < 0 || r.Owner >= nRegions) {
			return bad("handler region %d has unknown owner %d", i, r.Owner)
		}
		for _, h := range []int{r.Finally, r.Fault} {
			if h != -1 && !state(h) {
				return bad("region %d has unknown handler state %d", i, h)
			}
		}
		for _, h := range r.Catches {
			if !state(h.Entry) {
				return bad("region %d has unknown catch entry %d", i, h.Entry)
			}
		}
	}
	for t, id := range sm.Labels {
		if !state(id) {
			return bad("target %s maps to unknown state %d", t, id)
		}
	}
	return nil
}

// pending is the action resumed when a finally or fault handler ends: either
// the propagation of fault or a transfer to dest.
type pending struct {
	owner int
	fault error
	dest  int
}

// machine is one running instance of a state machine.
type machine struct {
	code    *machineCode
	id      uuid.UUID
	ctx     context.Context
	frame   *frame
	task    *task.Task
	pending []pending
	state   int
	marked  bool
}

func (mc *machineCode) acquire() *machine {
	if mc.pool != nil {
		return mc.pool.Get().(*machine)
	}
	return &machine{code: mc}
}

// start runs a fresh instance in fr until it first suspends or finishes.
func (mc *machineCode) start(ctx context.Context, fr *frame) *task.Task {
	m := mc.acquire()
	m.id = uuid.New()
	m.ctx = ctx
	m.task = task.New()
	m.frame = &frame{parent: fr, machine: m}
	m.state = 0

	t := m.task
	Logger().Debug("machine started",
		zap.String("machine", mc.sm.Name),
		zap.Stringer("id", m.id),
		zap.Bool("pooled", mc.pool != nil),
	)
	m.moveNext()
	return t
}

// moveNext runs states until the machine suspends or finishes. It is also
// the continuation registered with awaited values.
func (m *machine) moveNext() {
	defer func() {
		if r := recover(); r != nil && m.task != nil {
			m.fail(errors.UnhandledFault(m.code.sm.Name, errors.Panic("machine", r)))
		}
	}()
	if err := m.ctx.Err(); err != nil {
		if !m.raise(m.code.states[m.state].region, err) {
			return
		}
	}
	for m.step() {
	}
}

// step runs the current state and performs its terminator. It reports
// whether the machine keeps running on this goroutine.
func (m *machine) step() bool {
	sc := &m.code.states[m.state]
	if sv := m.code.sm.StateVar; sv != nil {
		_ = m.frame.set(sv, int64(m.state))
	}
	for _, fn := range sc.body {
		if _, err := fn(m.ctx, m.frame); err != nil {
			return m.escape(sc.region, err)
		}
	}

	switch t := sc.term.(type) {
	case *ir.JumpTo:
		m.leave(sc.region, t.To)
		return true

	case *ir.Branch:
		v, err := sc.test(m.ctx, m.frame)
		if err != nil {
			return m.escape(sc.region, err)
		}
		b, err := asBool("branch", v)
		if err != nil {
			return m.raise(sc.region, err)
		}
		to := t.Else
		if b {
			to = t.Then
		}
		m.leave(sc.region, to)
		return true

	case *ir.SwitchTo:
		v, err := sc.test(m.ctx, m.frame)
		if err != nil {
			return m.escape(sc.region, err)
		}
		to := t.Default
	cases:
		for i, cs := range t.Cases {
			for _, test := range sc.tests[i] {
				tv, err := test(m.ctx, m.frame)
				if err != nil {
					return m.escape(sc.region, err)
				}
				if equal(v, tv) {
					to = cs.To
					break cases
				}
			}
		}
		m.leave(sc.region, to)
		return true

	case *ir.Suspend:
		v, err := m.frame.get(t.Awaiter)
		if err != nil {
			return m.raise(sc.region, err)
		}
		aw, ok := v.(task.Awaitable)
		if !ok {
			return m.raise(sc.region, errors.TypeMismatch(errors.PhaseRuntime, nil, "await", "awaitable", typeName(v)))
		}
		m.state = t.Resume
		if aw.IsCompleted() {
			return true
		}
		if sv := m.code.sm.StateVar; sv != nil {
			_ = m.frame.set(sv, int64(t.Resume))
		}
		Logger().Debug("machine suspended",
			zap.String("machine", m.code.sm.Name),
			zap.Stringer("id", m.id),
			zap.Int("resume", t.Resume),
		)
		aw.OnCompleted(m.moveNext)
		return false

	case *ir.EndFinally:
		return m.endFinally(t.Region)

	case *ir.Done:
		m.finish()
		return false
	}
	return m.raise(sc.region, errors.Unsupported(errors.PhaseRuntime, fmt.Sprintf("terminator %T", sc.term)))
}

func (m *machine) region(r int) *ir.Region { return m.code.sm.Regions[r] }

// within reports whether region r is outer or nested inside it.
func (m *machine) within(r, outer int) bool {
	for ; r != ir.NoRegion; r = m.region(r).Parent {
		if r == outer {
			return true
		}
	}
	return false
}

// escape handles an error leaving a state body: jumps resolve through the
// machine's labels, everything else is raised.
func (m *machine) escape(r int, err error) bool {
	switch s := err.(type) {
	case *jumpSignal:
		if to, ok := m.code.sm.Labels[s.target]; ok {
			m.leave(r, to)
			return true
		}
		err = errors.UnresolvedLabel(errors.PhaseRuntime, s.target.String())
	case *returnSignal:
		err = errors.Unsupported(errors.PhaseRuntime, "return from a state machine body")
	}
	return m.raise(r, err)
}

// leave transfers from region r to state to, entering the finally handler of
// the first region left on the way. The transfer resumes when that handler
// ends.
func (m *machine) leave(r, to int) {
	target := m.code.states[to].region
	for ; r != ir.NoRegion && !m.within(target, r); r = m.region(r).Parent {
		reg := m.region(r)
		if reg.Kind == ir.RegionHandler {
			m.abandon(reg.Owner)
			continue
		}
		if reg.Finally >= 0 {
			m.pending = append(m.pending, pending{owner: r, dest: to})
			m.state = reg.Finally
			return
		}
	}
	m.state = to
}

// raise propagates err outward from region r to the first clause that
// accepts it or the first handler that must observe it. It reports false
// when the fault escaped and the machine failed.
func (m *machine) raise(r int, err error) bool {
	for ; r != ir.NoRegion; r = m.region(r).Parent {
		reg := m.region(r)
		switch {
		case reg.Kind == ir.RegionHandler:
			if p, ok := m.abandon(reg.Owner); ok && p.fault != nil {
				err = multierr.Append(p.fault, err)
			}
		case len(reg.Catches) > 0:
			for _, cc := range m.code.catches[r] {
				if cc.match != nil && !cc.match(err) {
					continue
				}
				_ = m.frame.set(cc.v, err)
				if cc.accepts(m.ctx, m.frame, err) {
					m.state = cc.entry
					return true
				}
			}
		case reg.Fault >= 0:
			m.pending = append(m.pending, pending{owner: r, fault: err})
			m.state = reg.Fault
			return true
		case reg.Finally >= 0:
			m.pending = append(m.pending, pending{owner: r, fault: err})
			m.state = reg.Finally
			return true
		}
	}
	m.fail(err)
	return false
}

// abandon drops the pending action of owner's handler, and any pushed after it.
func (m *machine) abandon(owner int) (pending, bool) {
	for i := len(m.pending) - 1; i >= 0; i-- {
		if m.pending[i].owner == owner {
			p := m.pending[i]
			m.pending = m.pending[:i]
			return p, true
		}
	}
	return pending{}, false
}

func (m *machine) endFinally(owner int) bool {
	parent := m.region(owner).Parent
	p, ok := m.abandon(owner)
	if !ok {
		return m.raise(parent, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Node(m.code.sm.Name).
			Detail("handler of region %d ended without a pending action", owner).
			Build())
	}
	if p.fault != nil {
		return m.raise(parent, p.fault)
	}
	m.leave(parent, p.dest)
	return true
}

func (m *machine) finish() {
	t := m.task
	var v any
	if r := m.code.sm.Result; r != nil {
		var err error
		if v, err = m.frame.get(r); err != nil {
			m.fail(err)
			return
		}
	}
	Logger().Debug("machine completed",
		zap.String("machine", m.code.sm.Name),
		zap.Stringer("id", m.id),
		zap.Bool("marked", m.marked),
	)
	void := m.code.sm.Result == nil
	m.release()
	if void {
		t.MarkComplete()
		return
	}
	t.Complete(v)
}

func (m *machine) fail(err error) {
	t := m.task
	Logger().Debug("machine faulted",
		zap.String("machine", m.code.sm.Name),
		zap.Stringer("id", m.id),
		zap.Error(err),
	)
	m.release()
	t.Fail(err)
}

// release detaches the instance from its run and returns it to the pool.
func (m *machine) release() {
	m.ctx = nil
	m.frame = nil
	m.task = nil
	m.pending = m.pending[:0]
	m.state = 0
	m.marked = false
	if m.code.pool != nil {
		m.code.pool.Put(m)
	}
}
