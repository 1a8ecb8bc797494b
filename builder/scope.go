package builder

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// Scope collects the statements and locals of one lexical block.
//
// A scope is owned by the callback it was handed to and must not be retained
// after that callback returns: the assembler that opened it disposes it, and
// any later use fails.
type Scope struct {
	tmpl   *Template
	parent *Scope
	stmts  []ir.Node
	locals []*ir.Variable
	names  map[string]*ir.Variable
	// caught is the fault variable of the innermost enclosing catch body.
	caught   *ir.Variable
	disposed bool
}

func (t *Template) newScope(parent *Scope) *Scope {
	s := &Scope{tmpl: t, parent: parent, names: make(map[string]*ir.Variable)}
	if parent != nil {
		s.caught = parent.caught
	}
	return s
}

// child opens a nested scope.
func (s *Scope) child() *Scope {
	return s.tmpl.newScope(s)
}

// check validates that s may be used by the calling goroutine.
func (s *Scope) check(construct string) error {
	if s == nil || s.tmpl == nil {
		return errors.NoEnclosingScope(construct)
	}
	if err := s.tmpl.check(construct); err != nil {
		return err
	}
	if s.disposed {
		return errors.UseAfterClose("scope")
	}
	return nil
}

// Add appends statements in evaluation order.
func (s *Scope) Add(nodes ...ir.Node) error {
	if err := s.check("statement"); err != nil {
		return err
	}
	for _, n := range nodes {
		if n == nil {
			return errors.InvalidInput(errors.PhaseConstruct, "nil statement")
		}
		s.stmts = append(s.stmts, n)
	}
	return nil
}

// Declare adds a local variable. Names are unique within one scope; a nested
// scope may shadow a name from an enclosing one.
func (s *Scope) Declare(name string, t ir.Type) (*ir.Variable, error) {
	if err := s.check("declare"); err != nil {
		return nil, err
	}
	if !t.Valid() || t == ir.Void {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "variable "+name+" has no storable type")
	}
	if _, ok := s.names[name]; ok {
		return nil, errors.DuplicateName(s.path(), name)
	}
	v := ir.NewVariable(name, t)
	s.names[name] = v
	s.locals = append(s.locals, v)
	return v, nil
}

// Lookup resolves name through this scope, its parents and the template's
// parameters.
func (s *Scope) Lookup(name string) (*ir.Variable, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.names[name]; ok {
			return v, true
		}
	}
	if s != nil && s.tmpl != nil {
		for _, p := range s.tmpl.params {
			if p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

// Len returns the number of statements added so far.
func (s *Scope) Len() int { return len(s.stmts) }

// Build collapses the scope: no statements yield the empty statement, a single
// statement without locals yields that statement, anything else a block.
// A scope is built once.
func (s *Scope) Build() (ir.Node, error) {
	if err := s.check("build"); err != nil {
		return nil, err
	}
	switch {
	case len(s.stmts) == 0:
		return ir.Empty(), nil
	case len(s.stmts) == 1 && len(s.locals) == 0:
		return s.stmts[0], nil
	default:
		body := make([]ir.Node, len(s.stmts))
		copy(body, s.stmts)
		vars := make([]*ir.Variable, len(s.locals))
		copy(vars, s.locals)
		return ir.NewBlock(vars, body...), nil
	}
}

// Dispose clears the scope. It is safe to call more than once.
func (s *Scope) Dispose() {
	if s == nil {
		return
	}
	s.stmts = nil
	s.locals = nil
	s.names = nil
	s.disposed = true
}

func (s *Scope) path() []string {
	depth := 0
	for cur := s.parent; cur != nil; cur = cur.parent {
		depth++
	}
	name := "root"
	if s.tmpl != nil {
		name = s.tmpl.sig.Name
	}
	path := []string{name}
	for i := 0; i < depth; i++ {
		path = append(path, "scope")
	}
	return path
}

// Set appends an assignment.
func (s *Scope) Set(v *ir.Variable, value ir.Node) error {
	if v == nil || value == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "assignment needs a variable and a value")
	}
	if !v.T.Assignable(value.Type()) {
		return errors.TypeMismatch(errors.PhaseConstruct, s.path(), v.Name, v.T.String(), value.Type().String())
	}
	return s.Add(ir.Set(v, value))
}

// Break appends a jump out of the loop that owns jc.
func (s *Scope) Break(jc *JumpContext) error {
	n, err := jc.Break()
	if err != nil {
		return err
	}
	return s.Add(n)
}

// Continue appends a jump to the next iteration of the loop that owns jc.
func (s *Scope) Continue(jc *JumpContext) error {
	n, err := jc.Continue()
	if err != nil {
		return err
	}
	return s.Add(n)
}

// Throw appends a statement raising the error produced by v.
func (s *Scope) Throw(v ir.Node) error {
	if v == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "throw needs a value")
	}
	if t := v.Type(); t != ir.Error && t != ir.Any {
		return errors.TypeMismatch(errors.PhaseConstruct, s.path(), "throw", ir.Error.String(), t.String())
	}
	return s.Add(ir.Raise(v))
}

// Rethrow raises the fault caught by the innermost enclosing catch body.
func (s *Scope) Rethrow() error {
	if err := s.check("rethrow"); err != nil {
		return err
	}
	if s.caught == nil {
		return errors.New(errors.PhaseConstruct, errors.KindNoEnclosingScope).
			Node("rethrow").
			Detail("rethrow outside a catch body").
			Build()
	}
	return s.Add(ir.Raise(s.caught))
}

// Await returns a suspension point waiting on the awaitable produced by v.
// The node is an expression; place it with Add or inside another node.
func (s *Scope) Await(v ir.Node, t ir.Type) (*ir.Await, error) {
	if err := s.check("await"); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "await needs a value")
	}
	return ir.AwaitOf(v, t), nil
}

// Return completes the procedure with v, or without a value when v is nil.
// In asynchronous templates this is a suspension-result node.
func (s *Scope) Return(v ir.Node) error {
	if err := s.check("return"); err != nil {
		return err
	}
	sig := s.tmpl.sig
	if v != nil && v.Type() != ir.Void && sig.Result != ir.Void && !sig.Result.Assignable(v.Type()) {
		return errors.TypeMismatch(errors.PhaseConstruct, s.path(), "return", sig.Result.String(), v.Type().String())
	}
	if sig.Async {
		return s.Add(ir.Complete(v))
	}
	return s.Add(&ir.Return{Value: v})
}

// Param returns the i-th declared parameter.
func (s *Scope) Param(i int) (*ir.Variable, error) {
	if err := s.check("param"); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.tmpl.params) {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(i).
			Detail("parameter index %d out of range [0,%d)", i, len(s.tmpl.params)).
			Build()
	}
	return s.tmpl.params[i], nil
}

// Self returns the binding through which the body may call the procedure
// being built. It exists only for recursive signatures.
func (s *Scope) Self() (*ir.Variable, error) {
	if err := s.check("self"); err != nil {
		return nil, err
	}
	if s.tmpl.self == nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Node("self").
			Detail("signature %s is not recursive", s.tmpl.sig.Name).
			Build()
	}
	return s.tmpl.self, nil
}

// Result returns the variable holding the procedure's final value, creating
// it on first use.
func (s *Scope) Result() (*ir.Variable, error) {
	if err := s.check("result"); err != nil {
		return nil, err
	}
	return s.tmpl.resultVar()
}
