// Package catalog holds the named sample procedures served by the irflow
// command.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wippyai/irflow/asyncify"
	"github.com/wippyai/irflow/builder"
	"github.com/wippyai/irflow/engine"
	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

var (
	// ErrNotFound is returned by Lookup for unknown names.
	ErrNotFound = stderrors.New("procedure not found")
	// ErrMissingKey is the fault raised by the store used in "lookup".
	ErrMissingKey = stderrors.New("missing key")
)

// Entry is one sample procedure.
type Entry struct {
	Signature builder.Signature
	Summary   string
	Body      builder.BodyFunc
}

func (e Entry) Name() string { return e.Signature.Name }

// Build returns the finished procedure literal, lowered when asynchronous.
func (e Entry) Build() (*ir.Lambda, error) {
	return builder.Build(e.Signature, e.Body)
}

// Draft returns the procedure literal before lowering.
func (e Entry) Draft() (*ir.Lambda, error) {
	return builder.Draft(e.Signature, e.Body)
}

// Compile materializes the entry. pooled only affects asynchronous entries.
func (e Entry) Compile(pooled bool) (*engine.Procedure, error) {
	sig := e.Signature
	sig.Pooled = pooled && sig.Async
	return builder.Compile(sig, e.Body)
}

// ParseArgs converts command-line text to argument values of the declared
// parameter types.
func (e Entry) ParseArgs(raw []string) ([]any, error) {
	params := e.Signature.Params
	if len(raw) != len(params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", e.Name(), len(params), len(raw))
	}
	args := make([]any, len(raw))
	for i, p := range params {
		v, err := parse(p.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func parse(t ir.Type, s string) (any, error) {
	switch t {
	case ir.Int:
		return strconv.ParseInt(s, 10, 64)
	case ir.Float:
		return strconv.ParseFloat(s, 64)
	case ir.Bool:
		return strconv.ParseBool(s)
	case ir.String, ir.Any:
		return s, nil
	}
	return nil, fmt.Errorf("type %s cannot be parsed from text", t)
}

var entries = map[string]Entry{}

func register(e Entry) {
	entries[e.Name()] = e
}

// All returns every entry ordered by name.
func All() []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Lookup returns the entry called name.
func Lookup(name string) (Entry, error) {
	e, ok := entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

func init() {
	register(Entry{
		Signature: builder.Signature{
			Name:   "sum",
			Params: []builder.Parameter{{Name: "n", Type: ir.Int}},
			Result: ir.Int,
		},
		Summary: "sum of 0..n-1",
		Body:    sum,
	})
	register(Entry{
		Signature: builder.Signature{
			Name:      "fib",
			Params:    []builder.Parameter{{Name: "n", Type: ir.Int}},
			Result:    ir.Int,
			Recursive: true,
		},
		Summary: "recursive fibonacci",
		Body:    fib,
	})
	register(Entry{
		Signature: builder.Signature{
			Name:   "collatz",
			Params: []builder.Parameter{{Name: "n", Type: ir.Int}},
			Result: ir.Int,
		},
		Summary: "steps for n to reach 1",
		Body:    collatz,
	})
	register(Entry{
		Signature: builder.Signature{
			Name:   "quotient",
			Params: []builder.Parameter{{Name: "a", Type: ir.Int}, {Name: "b", Type: ir.Int}},
			Result: ir.Int,
		},
		Summary: "a/b, or 0 when b is zero",
		Body:    quotient,
	})
	register(Entry{
		Signature: builder.Signature{
			Name:    "ticks",
			Params:  []builder.Parameter{{Name: "n", Type: ir.Int}},
			Result:  ir.Int,
			Async:   true,
			Matcher: asyncify.NewCompositeMatcher(
				asyncify.NewPrefixMatcher([]string{"timer."}),
				asyncify.MatcherFunc(func(name string) bool { return name == "sched.yield" }),
			),
		},
		Summary: "awaits n timer ticks, yielding between them, and sums their values",
		Body:    ticks,
	})
	register(Entry{
		Signature: builder.Signature{
			Name:   "lookup",
			Params: []builder.Parameter{{Name: "key", Type: ir.String}},
			Result: ir.String,
			Async:  true,
		},
		Summary: "fetches key from a slow store",
		Body:    lookup,
	})
}

func sum(s *builder.Scope) error {
	n, err := s.Param(0)
	if err != nil {
		return err
	}
	acc, err := s.Declare("acc", ir.Int)
	if err != nil {
		return err
	}
	err = s.Range("i", ir.IntLit(0), n, func(b *builder.Scope, i *ir.Variable, _ *builder.JumpContext) error {
		return b.Set(acc, ir.Add(acc, i))
	})
	if err != nil {
		return err
	}
	return s.Return(acc)
}

func fib(s *builder.Scope) error {
	self, err := s.Self()
	if err != nil {
		return err
	}
	n, _ := s.Param(0)
	return s.IfElse(ir.Lt(n, ir.IntLit(2)),
		func(b *builder.Scope) error { return b.Return(n) },
		func(b *builder.Scope) error {
			return b.Return(ir.Add(
				ir.InvokeProc(self, ir.Int, ir.Sub(n, ir.IntLit(1))),
				ir.InvokeProc(self, ir.Int, ir.Sub(n, ir.IntLit(2))),
			))
		})
}

func collatz(s *builder.Scope) error {
	n, _ := s.Param(0)
	err := s.If(ir.Lt(n, ir.IntLit(1)), func(b *builder.Scope) error {
		return b.Throw(ir.Value(stderrors.New("collatz: n must be positive"), ir.Error))
	})
	if err != nil {
		return err
	}
	steps, err := s.Declare("steps", ir.Int)
	if err != nil {
		return err
	}
	err = s.While(ir.Ne(n, ir.IntLit(1)), func(b *builder.Scope, _ *builder.JumpContext) error {
		err := b.IfElse(ir.Eq(ir.Mod(n, ir.IntLit(2)), ir.IntLit(0)),
			func(even *builder.Scope) error { return even.Set(n, ir.Div(n, ir.IntLit(2))) },
			func(odd *builder.Scope) error {
				return odd.Set(n, ir.Add(ir.Mul(n, ir.IntLit(3)), ir.IntLit(1)))
			})
		if err != nil {
			return err
		}
		return b.Set(steps, ir.Add(steps, ir.IntLit(1)))
	})
	if err != nil {
		return err
	}
	return s.Return(steps)
}

func quotient(s *builder.Scope) error {
	a, _ := s.Param(0)
	b, _ := s.Param(1)
	out, err := s.Declare("out", ir.Int)
	if err != nil {
		return err
	}
	err = s.Try(func(body *builder.Scope) error {
		return body.Set(out, ir.Div(a, b))
	}, builder.Catch("e", nil, func(body *builder.Scope, _ *ir.Variable) error {
		return body.Set(out, ir.IntLit(0))
	}))
	if err != nil {
		return err
	}
	return s.Return(out)
}

// tick completes after a short delay with its argument.
func tick(ctx context.Context, args []any) (any, error) {
	v := args[0]
	return task.Go(ctx, func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Millisecond):
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}), nil
}

// yieldNow gives up the goroutine once before the loop continues.
func yieldNow(context.Context, []any) (any, error) {
	return task.Yield(), nil
}

func ticks(s *builder.Scope) error {
	n, _ := s.Param(0)
	acc, err := s.Declare("acc", ir.Int)
	if err != nil {
		return err
	}
	err = s.While(ir.Gt(n, ir.IntLit(0)), func(b *builder.Scope, _ *builder.JumpContext) error {
		if err := b.Set(acc, ir.Add(acc, ir.CallFunc("timer.tick", ir.Int, tick, n))); err != nil {
			return err
		}
		if err := b.Add(ir.CallFunc("sched.yield", ir.Void, yieldNow)); err != nil {
			return err
		}
		return b.Set(n, ir.Sub(n, ir.IntLit(1)))
	})
	if err != nil {
		return err
	}
	return s.Return(acc)
}

var store = map[string]string{
	"alpha": "first",
	"beta":  "second",
}

func get(ctx context.Context, args []any) (any, error) {
	key, _ := args[0].(string)
	return task.Go(ctx, func(context.Context) (any, error) {
		v, ok := store[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
		}
		return v, nil
	}), nil
}

func lookup(s *builder.Scope) error {
	key, _ := s.Param(0)
	out, err := s.Declare("out", ir.String)
	if err != nil {
		return err
	}
	err = s.Try(func(b *builder.Scope) error {
		v, err := b.Await(ir.CallFunc("store.get", ir.Task, get, key), ir.String)
		if err != nil {
			return err
		}
		return b.Set(out, v)
	}, builder.Catch("e", builder.MatchError(ErrMissingKey), func(b *builder.Scope, _ *ir.Variable) error {
		return b.Set(out, ir.StrLit("<missing>"))
	}))
	if err != nil {
		return err
	}
	return s.Return(out)
}
