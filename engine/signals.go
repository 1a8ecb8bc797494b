package engine

import "github.com/wippyai/irflow/ir"

// Control transfers travel up the evaluator as error values so that every
// construct between the origin and the destination observes them. They are
// never wrapped and never reach callers of a procedure.

// jumpSignal transfers control to a target placed by an enclosing construct.
type jumpSignal struct {
	target *ir.Target
}

func (s *jumpSignal) Error() string { return "jump to " + s.target.String() }

// returnSignal leaves the enclosing synchronous procedure.
type returnSignal struct {
	value any
}

func (s *returnSignal) Error() string { return "return" }

// isFault reports whether err is a raised fault rather than a control transfer.
func isFault(err error) bool {
	switch err.(type) {
	case nil, *jumpSignal, *returnSignal:
		return false
	}
	return true
}
