package builder

import (
	stderrors "errors"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

type handlerKind uint8

const (
	handlerCatch handlerKind = iota
	handlerFinally
	handlerFault
)

// CatchFunc fills a catch body. fault is bound to the caught error.
type CatchFunc func(body *Scope, fault *ir.Variable) error

// FilterFunc returns a boolean expression over the caught error that gates a
// catch clause. It must not contain suspension points.
type FilterFunc func(fault *ir.Variable) ir.Node

// Handler is one clause of a Try.
type Handler struct {
	kind   handlerKind
	name   string
	match  ir.Matcher
	filter FilterFunc
	catch  CatchFunc
	body   BodyFunc
}

// Catch handles faults accepted by match (nil accepts all).
func Catch(name string, match ir.Matcher, fn CatchFunc) Handler {
	return Handler{kind: handlerCatch, name: name, match: match, catch: fn}
}

// CatchWhen handles faults accepted by match for which filter evaluates true.
func CatchWhen(name string, match ir.Matcher, filter FilterFunc, fn CatchFunc) Handler {
	return Handler{kind: handlerCatch, name: name, match: match, filter: filter, catch: fn}
}

// Finally runs on every exit from the guarded body.
func Finally(fn BodyFunc) Handler {
	return Handler{kind: handlerFinally, body: fn}
}

// Fault runs only when a fault leaves the guarded body.
func Fault(fn BodyFunc) Handler {
	return Handler{kind: handlerFault, body: fn}
}

// MatchError accepts faults that wrap target.
func MatchError(target error) ir.Matcher {
	return func(err error) bool { return stderrors.Is(err, target) }
}

// MatchAs accepts faults that wrap an error of type T.
func MatchAs[T error]() ir.Matcher {
	return func(err error) bool {
		var t T
		return stderrors.As(err, &t)
	}
}

type tryConstruct struct {
	parent   *Scope
	handlers []Handler
}

func (c *tryConstruct) Run(body *Scope, fn BodyFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body)
}

func (c *tryConstruct) Finish(body ir.Node) (*ir.Try, error) {
	var (
		catches        []ir.Catch
		finally, fault ir.Node
	)
	for _, h := range c.handlers {
		switch h.kind {
		case handlerCatch:
			cc, err := c.buildCatch(h)
			if err != nil {
				return nil, err
			}
			catches = append(catches, cc)
		case handlerFinally:
			if finally != nil {
				return nil, errors.InvalidInput(errors.PhaseConstruct, "try has more than one finally")
			}
			n, err := buildChild(c.parent, h.body)
			if err != nil {
				return nil, err
			}
			finally = n
		case handlerFault:
			if fault != nil {
				return nil, errors.InvalidInput(errors.PhaseConstruct, "try has more than one fault handler")
			}
			n, err := buildChild(c.parent, h.body)
			if err != nil {
				return nil, err
			}
			fault = n
		}
	}
	return ir.NewTry(body, catches, finally, fault), nil
}

func (c *tryConstruct) buildCatch(h Handler) (ir.Catch, error) {
	name := h.name
	if name == "" {
		name = "fault"
	}
	v := ir.NewVariable(name, ir.Error)

	var filter ir.Node
	if h.filter != nil {
		filter = h.filter(v)
		if filter == nil || filter.Type() != ir.Bool {
			return ir.Catch{}, errors.TypeMismatch(errors.PhaseConstruct, c.parent.path(), "catch filter", ir.Bool.String(), typeName(filter))
		}
		if ir.ContainsAwait(filter) {
			return ir.Catch{}, errors.SuspendInFilter(errors.PhaseLower)
		}
	}

	s := c.parent.child()
	defer s.Dispose()
	s.caught = v
	s.names[name] = v
	if h.catch != nil {
		if err := h.catch(s, v); err != nil {
			return ir.Catch{}, err
		}
	}
	body, err := s.Build()
	if err != nil {
		return ir.Catch{}, err
	}
	return ir.Catch{Var: v, Match: h.match, Filter: filter, Body: body}, nil
}

// Try appends a guarded body with its handlers. Catches are tried in the
// order given.
func (s *Scope) Try(body BodyFunc, handlers ...Handler) error {
	if err := s.check("try"); err != nil {
		return err
	}
	if len(handlers) == 0 {
		return errors.InvalidInput(errors.PhaseConstruct, "try needs at least one handler")
	}
	_, err := assemble[*ir.Try, BodyFunc](s, "try", &tryConstruct{parent: s, handlers: handlers}, body)
	return err
}

func typeName(n ir.Node) string {
	if n == nil {
		return "nil"
	}
	return n.Type().String()
}
