package builder

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// JumpContext names the exit and continue edges of a loop before the loop
// node exists. Its targets are bound into the loop when the loop is finished.
type JumpContext struct {
	brk    *ir.Target
	cont   *ir.Target
	closed bool
}

func newJumpContext(name string) *JumpContext {
	return &JumpContext{
		brk:  ir.NewTarget(name + ".break"),
		cont: ir.NewTarget(name + ".continue"),
	}
}

// Break returns a jump out of the owning loop.
func (jc *JumpContext) Break() (*ir.Goto, error) {
	if jc == nil || jc.closed {
		return nil, errors.UseAfterClose("jump context")
	}
	return ir.Jump(jc.brk), nil
}

// Continue returns a jump to the owning loop's next iteration.
func (jc *JumpContext) Continue() (*ir.Goto, error) {
	if jc == nil || jc.closed {
		return nil, errors.UseAfterClose("jump context")
	}
	return ir.Jump(jc.cont), nil
}

// Targets returns the exit and continue targets.
func (jc *JumpContext) Targets() (brk, cont *ir.Target) {
	return jc.brk, jc.cont
}

// Close invalidates the context.
func (jc *JumpContext) Close() {
	if jc != nil {
		jc.closed = true
	}
}
