package engine

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// frame is one level of variable bindings. Lookups walk the parent chain, so
// procedure literals see the frame they were evaluated in.
type frame struct {
	vars   map[*ir.Variable]any
	parent *frame
	// machine is set on the frame a state machine instance runs in.
	machine *machine
}

func newFrame(parent *frame, vars []*ir.Variable) *frame {
	f := &frame{parent: parent, vars: make(map[*ir.Variable]any, len(vars))}
	for _, v := range vars {
		f.vars[v] = v.T.Zero()
	}
	return f
}

func (f *frame) lookup(v *ir.Variable) *frame {
	for ; f != nil; f = f.parent {
		if _, ok := f.vars[v]; ok {
			return f
		}
	}
	return nil
}

func (f *frame) get(v *ir.Variable) (any, error) {
	owner := f.lookup(v)
	if owner == nil {
		return nil, errors.UnboundVariable(v.Name)
	}
	return owner.vars[v], nil
}

func (f *frame) set(v *ir.Variable, x any) error {
	owner := f.lookup(v)
	if owner == nil {
		return errors.UnboundVariable(v.Name)
	}
	owner.vars[v] = coerce(v.T, x)
	return nil
}

// running returns the machine instance executing in f or an enclosing frame.
func (f *frame) running() *machine {
	for ; f != nil; f = f.parent {
		if f.machine != nil {
			return f.machine
		}
	}
	return nil
}
