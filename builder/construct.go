package builder

import (
	"github.com/wippyai/irflow/ir"
)

// Buildable is a structured construct that owns a body scope. Run invokes the
// caller's body callback of shape D exactly once; Finish turns the completed
// body into the construct node E.
type Buildable[E ir.Node, D any] interface {
	Run(body *Scope, fn D) error
	Finish(body ir.Node) (E, error)
}

// closer is implemented by constructs holding state that must be invalidated
// once the construct is finished or abandoned.
type closer interface {
	close()
}

// assemble drives one construct: it opens a body scope under parent, runs the
// callback, finishes the construct and appends it to parent. The body scope is
// disposed on every path.
func assemble[E ir.Node, D any](parent *Scope, name string, c Buildable[E, D], fn D) (E, error) {
	var zero E
	if err := parent.check(name); err != nil {
		return zero, err
	}
	if cl, ok := c.(closer); ok {
		defer cl.close()
	}

	body := parent.child()
	defer body.Dispose()

	if err := c.Run(body, fn); err != nil {
		return zero, err
	}
	built, err := body.Build()
	if err != nil {
		return zero, err
	}
	out, err := c.Finish(built)
	if err != nil {
		return zero, err
	}
	if err := parent.Add(out); err != nil {
		return zero, err
	}
	return out, nil
}

// buildChild builds a nested body that is not the construct's primary body,
// such as an else branch or a catch handler.
func buildChild(parent *Scope, fn func(*Scope) error) (ir.Node, error) {
	s := parent.child()
	defer s.Dispose()
	if fn != nil {
		if err := fn(s); err != nil {
			return nil, err
		}
	}
	return s.Build()
}

// BodyFunc fills a plain body.
type BodyFunc func(body *Scope) error

// LoopFunc fills a loop body that may break or continue.
type LoopFunc func(body *Scope, jc *JumpContext) error

// IterFunc fills the body of a counted or iterator-driven loop.
type IterFunc func(body *Scope, item *ir.Variable, jc *JumpContext) error

// ResourceFunc fills a body that uses a bound resource.
type ResourceFunc func(body *Scope, res *ir.Variable) error
