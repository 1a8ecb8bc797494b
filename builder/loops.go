package builder

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

type loopConstruct struct {
	jc   *JumpContext
	wrap func(body ir.Node, brk, cont *ir.Target) ir.Node
}

func (c *loopConstruct) Run(body *Scope, fn LoopFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body, c.jc)
}

func (c *loopConstruct) Finish(body ir.Node) (ir.Node, error) {
	brk, cont := c.jc.Targets()
	if c.wrap != nil {
		return c.wrap(body, brk, cont), nil
	}
	return &ir.Loop{Body: body, Break: brk, Continue: cont}, nil
}

func (c *loopConstruct) close() { c.jc.Close() }

// Loop appends an indefinite loop. The body leaves it through its jump
// context.
func (s *Scope) Loop(fn LoopFunc) error {
	c := &loopConstruct{jc: newJumpContext("loop")}
	_, err := assemble[ir.Node, LoopFunc](s, "loop", c, fn)
	return err
}

// While appends a loop that tests before each iteration.
func (s *Scope) While(test ir.Node, fn LoopFunc) error {
	if err := s.condition("while", test); err != nil {
		return err
	}
	c := &loopConstruct{
		jc: newJumpContext("while"),
		wrap: func(body ir.Node, brk, cont *ir.Target) ir.Node {
			return &ir.Loop{
				Body:     ir.Seq(ir.If(ir.Not(test), ir.Jump(brk), nil), body),
				Break:    brk,
				Continue: cont,
			}
		},
	}
	_, err := assemble[ir.Node, LoopFunc](s, "while", c, fn)
	return err
}

// DoWhile appends a loop that tests after each iteration. Continue jumps to
// the test.
func (s *Scope) DoWhile(test ir.Node, fn LoopFunc) error {
	if err := s.condition("do-while", test); err != nil {
		return err
	}
	c := &loopConstruct{
		jc: newJumpContext("do"),
		wrap: func(body ir.Node, brk, cont *ir.Target) ir.Node {
			return &ir.Loop{
				Body:  ir.Seq(body, ir.Mark(cont), ir.If(ir.Not(test), ir.Jump(brk), nil)),
				Break: brk,
			}
		},
	}
	_, err := assemble[ir.Node, LoopFunc](s, "do-while", c, fn)
	return err
}

// For appends a C-style loop. Init and step may be nil. Continue runs the
// step before the next test.
func (s *Scope) For(init, test, step ir.Node, fn LoopFunc) error {
	if err := s.condition("for", test); err != nil {
		return err
	}
	c := &loopConstruct{
		jc: newJumpContext("for"),
		wrap: func(body ir.Node, brk, cont *ir.Target) ir.Node {
			iter := []ir.Node{ir.If(ir.Not(test), ir.Jump(brk), nil), body, ir.Mark(cont)}
			if step != nil {
				iter = append(iter, step)
			}
			loop := &ir.Loop{Body: ir.Seq(iter...), Break: brk}
			if init == nil {
				return loop
			}
			return ir.Seq(init, loop)
		},
	}
	_, err := assemble[ir.Node, LoopFunc](s, "for", c, fn)
	return err
}

type rangeConstruct struct {
	jc       *JumpContext
	counter  *ir.Variable
	limit    *ir.Variable
	from, to ir.Node
}

func (c *rangeConstruct) Run(body *Scope, fn IterFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body, c.counter, c.jc)
}

func (c *rangeConstruct) Finish(body ir.Node) (*ir.Block, error) {
	brk, cont := c.jc.Targets()
	loop := &ir.Loop{
		Body: ir.Seq(
			ir.If(ir.Ge(c.counter, c.limit), ir.Jump(brk), nil),
			body,
			ir.Mark(cont),
			ir.Set(c.counter, ir.Add(c.counter, ir.IntLit(1))),
		),
		Break: brk,
	}
	return ir.NewBlock([]*ir.Variable{c.counter, c.limit},
		ir.Set(c.counter, c.from),
		ir.Set(c.limit, c.to),
		loop,
	), nil
}

func (c *rangeConstruct) close() { c.jc.Close() }

// Range appends a counted loop binding name to from, from+1, ... up to but
// excluding to. Both bounds are evaluated once.
func (s *Scope) Range(name string, from, to ir.Node, fn IterFunc) error {
	for _, b := range []ir.Node{from, to} {
		if b == nil || b.Type() != ir.Int {
			got := "nil"
			if b != nil {
				got = b.Type().String()
			}
			return errors.TypeMismatch(errors.PhaseConstruct, s.path(), "range bound", ir.Int.String(), got)
		}
	}
	c := &rangeConstruct{
		jc:      newJumpContext("range"),
		counter: ir.NewVariable(name, ir.Int),
		limit:   ir.NewVariable(name+".limit", ir.Int),
		from:    from,
		to:      to,
	}
	_, err := assemble[*ir.Block, IterFunc](s, "range", c, fn)
	return err
}

type foreachConstruct struct {
	jc     *JumpContext
	item   *ir.Variable
	enum   *ir.Variable
	source ir.Node
}

func (c *foreachConstruct) Run(body *Scope, fn IterFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body, c.item, c.jc)
}

func (c *foreachConstruct) Finish(body ir.Node) (*ir.Block, error) {
	brk, cont := c.jc.Targets()
	loop := &ir.Loop{
		Body: ir.Seq(
			ir.If(ir.Not(ir.CallFunc("next", ir.Bool, enumNext, c.enum)), ir.Jump(brk), nil),
			ir.Set(c.item, ir.CallFunc("current", c.item.T, enumCurrent, c.enum)),
			body,
		),
		Break:    brk,
		Continue: cont,
	}
	guarded := ir.NewTry(loop, nil, ir.CallFunc("release", ir.Void, enumRelease, c.enum), nil)
	return ir.NewBlock([]*ir.Variable{c.enum, c.item},
		ir.Set(c.enum, ir.CallFunc("enumerate", ir.Any, enumerate, c.source)),
		guarded,
	), nil
}

func (c *foreachConstruct) close() { c.jc.Close() }

// ForEach appends an iterator-driven loop over source, which must evaluate to
// a slice, an iter.Seq[any] or an Enumerable. The enumerator is released on
// every exit path.
func (s *Scope) ForEach(name string, source ir.Node, elem ir.Type, fn IterFunc) error {
	if source == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "foreach needs a source")
	}
	if elem == ir.Void || !elem.Valid() {
		return errors.InvalidInput(errors.PhaseConstruct, "foreach element type "+elem.String())
	}
	c := &foreachConstruct{
		jc:     newJumpContext("foreach"),
		item:   ir.NewVariable(name, elem),
		enum:   ir.NewVariable(name+".enum", ir.Any),
		source: source,
	}
	_, err := assemble[*ir.Block, IterFunc](s, "foreach", c, fn)
	return err
}

func (s *Scope) condition(construct string, test ir.Node) error {
	if err := s.check(construct); err != nil {
		return err
	}
	if test == nil || test.Type() != ir.Bool {
		got := "nil"
		if test != nil {
			got = test.Type().String()
		}
		return errors.TypeMismatch(errors.PhaseConstruct, s.path(), construct, ir.Bool.String(), got)
	}
	return nil
}
