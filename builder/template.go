package builder

import (
	"fmt"

	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/wippyai/irflow/asyncify"
	"github.com/wippyai/irflow/engine"
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// Parameter is one declared procedure parameter.
type Parameter struct {
	Name string
	Type ir.Type
}

// Signature describes the procedure a template produces.
type Signature struct {
	Name   string
	Params []Parameter
	// Result is the value type; for asynchronous procedures it is the type of
	// the value the handle completes with.
	Result ir.Type
	Async  bool
	// Pooled reuses state-machine instances between invocations.
	Pooled bool
	// Recursive pre-declares the binding returned by Scope.Self.
	Recursive bool
	// AsyncCalls names Go calls whose result is awaited implicitly.
	AsyncCalls []string
	// Matcher selects further implicitly awaited calls.
	Matcher asyncify.CallMatcher
}

func (s Signature) validate() error {
	if !s.Result.Valid() {
		return errors.AbstractSignature(s.Name, fmt.Sprintf("unknown result type %s", s.Result))
	}
	seen := make(map[string]bool, len(s.Params))
	for i, p := range s.Params {
		if !p.Type.Valid() || p.Type == ir.Void {
			return errors.AbstractSignature(s.Name, fmt.Sprintf("parameter %d has no storable type", i))
		}
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			return errors.DuplicateName([]string{s.Name}, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Template is the open construction state of one procedure. It is bound to
// the goroutine that opened it.
type Template struct {
	sig    Signature
	owner  int64
	open   bool
	params []*ir.Variable
	self   *ir.Variable
	result *ir.Variable
}

// goroutineID reports the caller's goroutine id. Zero means unknown.
var goroutineID = goid.Get

func (t *Template) check(construct string) error {
	if t == nil || !t.open {
		return errors.NoEnclosingScope(construct)
	}
	if id := goroutineID(); id == 0 || id != t.owner {
		return errors.CrossThread(t.owner, id)
	}
	return nil
}

func (t *Template) resultVar() (*ir.Variable, error) {
	if t.sig.Result == ir.Void {
		return nil, errors.VoidResultAccess(t.sig.Name)
	}
	if t.result == nil {
		t.result = ir.NewVariable("result", t.sig.Result)
	}
	return t.result, nil
}

// Build opens a template for sig, runs fn once on its root scope and returns
// the finished procedure literal. Asynchronous bodies are lowered to a state
// machine.
func Build(sig Signature, fn BodyFunc) (*ir.Lambda, error) {
	return build(sig, fn, true)
}

// Draft is Build without asynchronous lowering. The result is meant for
// inspection; only Build output of asynchronous signatures can be compiled.
func Draft(sig Signature, fn BodyFunc) (*ir.Lambda, error) {
	return build(sig, fn, false)
}

func build(sig Signature, fn BodyFunc, lower bool) (*ir.Lambda, error) {
	if err := sig.validate(); err != nil {
		return nil, err
	}
	if sig.Name == "" {
		sig.Name = "proc"
	}

	owner := goroutineID()
	if owner == 0 {
		return nil, errors.CrossThread(0, 0)
	}
	t := &Template{sig: sig, owner: owner, open: true}
	for i, p := range sig.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("p%d", i)
		}
		t.params = append(t.params, ir.NewVariable(name, p.Type))
	}
	if sig.Recursive {
		t.self = ir.NewVariable(sig.Name, ir.Func)
	}

	root := t.newScope(nil)
	defer func() {
		root.Dispose()
		t.open = false
	}()

	if fn != nil {
		if err := fn(root); err != nil {
			return nil, err
		}
	}
	body, err := root.Build()
	if err != nil {
		return nil, err
	}

	lam := &ir.Lambda{
		Name:   sig.Name,
		Params: t.params,
		Body:   body,
		Result: sig.Result,
		Async:  sig.Async,
	}
	switch {
	case sig.Async && lower:
		lam, err = asyncify.Transform(lam, asyncify.Config{
			Matcher:    sig.Matcher,
			Pooled:     sig.Pooled,
			Result:     t.result,
			AsyncCalls: sig.AsyncCalls,
		})
		if err != nil {
			return nil, err
		}
	case sig.Async:
		if t.result != nil {
			lam.Body = ir.NewBlock([]*ir.Variable{t.result}, body)
		}
	default:
		if ir.ContainsAwait(body) {
			return nil, errors.SuspendOutsideAsync(sig.Name)
		}
		if t.result != nil {
			lam.Body = ir.NewBlock([]*ir.Variable{t.result}, body, t.result)
		}
	}

	if t.self != nil {
		lam = bindSelf(lam, t.self)
	}
	Logger().Debug("built procedure",
		zap.String("procedure", sig.Name),
		zap.Bool("async", sig.Async),
		zap.Bool("lowered", sig.Async && lower),
		zap.Int("params", len(t.params)),
	)
	return lam, nil
}

// bindSelf routes the initial call through a local slot holding the
// procedure itself, so calls through that slot inside the body resolve.
func bindSelf(inner *ir.Lambda, self *ir.Variable) *ir.Lambda {
	params := make([]*ir.Variable, len(inner.Params))
	args := make([]ir.Node, len(inner.Params))
	for i, p := range inner.Params {
		params[i] = ir.NewVariable(p.Name, p.T)
		args[i] = params[i]
	}
	rt := inner.Result
	if inner.Async {
		rt = ir.Task
	}
	return &ir.Lambda{
		Name:   inner.Name,
		Params: params,
		Result: inner.Result,
		Async:  inner.Async,
		Body: ir.NewBlock([]*ir.Variable{self},
			ir.Set(self, inner),
			ir.InvokeProc(self, rt, args...),
		),
	}
}

// Compile builds sig and materializes it into an executable procedure.
func Compile(sig Signature, fn BodyFunc) (*engine.Procedure, error) {
	lam, err := Build(sig, fn)
	if err != nil {
		return nil, err
	}
	return engine.Compile(lam)
}
