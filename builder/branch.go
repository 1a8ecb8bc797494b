package builder

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

type condConstruct struct {
	parent *Scope
	test   ir.Node
	els    BodyFunc
}

func (c *condConstruct) Run(body *Scope, fn BodyFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body)
}

func (c *condConstruct) Finish(then ir.Node) (*ir.Cond, error) {
	if c.els == nil {
		return ir.If(c.test, then, nil), nil
	}
	els, err := buildChild(c.parent, c.els)
	if err != nil {
		return nil, err
	}
	return ir.If(c.test, then, els), nil
}

// If appends a conditional without an else branch.
func (s *Scope) If(test ir.Node, then BodyFunc) error {
	return s.IfElse(test, then, nil)
}

// IfElse appends a two-way conditional.
func (s *Scope) IfElse(test ir.Node, then, els BodyFunc) error {
	if err := s.condition("if", test); err != nil {
		return err
	}
	c := &condConstruct{parent: s, test: test, els: els}
	_, err := assemble[*ir.Cond, BodyFunc](s, "if", c, then)
	return err
}

// SwitchFunc declares the arms of a switch.
type SwitchFunc func(sw *SwitchBuilder) error

// SwitchBuilder accumulates switch arms in declaration order.
type SwitchBuilder struct {
	scope      *Scope
	cases      []ir.Case
	def        ir.Node
	hasDefault bool
}

// Case adds an arm taken when the switch value equals any of tests.
func (sw *SwitchBuilder) Case(fn BodyFunc, tests ...ir.Node) error {
	if err := sw.scope.check("case"); err != nil {
		return err
	}
	if len(tests) == 0 {
		return errors.InvalidInput(errors.PhaseConstruct, "case needs at least one test value")
	}
	for _, t := range tests {
		if t == nil {
			return errors.InvalidInput(errors.PhaseConstruct, "nil case test")
		}
		if ir.ContainsAwait(t) {
			return errors.Unsupported(errors.PhaseConstruct, "suspension point in a case test")
		}
	}
	body, err := buildChild(sw.scope, fn)
	if err != nil {
		return err
	}
	sw.cases = append(sw.cases, ir.Case{Tests: tests, Body: body})
	return nil
}

// Default sets the arm taken when no case matches.
func (sw *SwitchBuilder) Default(fn BodyFunc) error {
	if err := sw.scope.check("default"); err != nil {
		return err
	}
	if sw.hasDefault {
		return errors.InvalidInput(errors.PhaseConstruct, "switch already has a default arm")
	}
	body, err := buildChild(sw.scope, fn)
	if err != nil {
		return err
	}
	sw.def, sw.hasDefault = body, true
	return nil
}

type switchConstruct struct {
	value ir.Node
	sw    *SwitchBuilder
}

func (c *switchConstruct) Run(body *Scope, fn SwitchFunc) error {
	c.sw = &SwitchBuilder{scope: body}
	if fn == nil {
		return nil
	}
	return fn(c.sw)
}

func (c *switchConstruct) Finish(ir.Node) (*ir.Switch, error) {
	return ir.NewSwitch(c.value, c.sw.cases, c.sw.def), nil
}

// Switch appends a multi-way branch on value. The first matching case wins;
// without a match the default arm runs, or nothing.
func (s *Scope) Switch(value ir.Node, fn SwitchFunc) error {
	if err := s.check("switch"); err != nil {
		return err
	}
	if value == nil || value.Type() == ir.Void {
		return errors.InvalidInput(errors.PhaseConstruct, "switch needs a value")
	}
	_, err := assemble[*ir.Switch, SwitchFunc](s, "switch", &switchConstruct{value: value}, fn)
	return err
}
