package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/multierr"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// recorder collects the arguments of "log" calls in order.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) call(msg string) *ir.Call {
	return ir.CallFunc("log", ir.Void, func(_ context.Context, _ []any) (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lines = append(r.lines, msg)
		return nil, nil
	})
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprint(r.lines)
}

func raise(err error) *ir.Call {
	return ir.CallFunc("raise", ir.Void, func(context.Context, []any) (any, error) { return nil, err })
}

func mustCompile(t *testing.T, l *ir.Lambda) *Procedure {
	t.Helper()
	p, err := Compile(l)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return p
}

func TestCompile_Arithmetic(t *testing.T) {
	a := ir.NewVariable("a", ir.Int)
	b := ir.NewVariable("b", ir.Float)

	tests := []struct {
		name string
		body ir.Node
		args []any
		want any
	}{
		{"int add", ir.Add(a, ir.IntLit(2)), []any{int64(3), 0.0}, int64(5)},
		{"mixed mul", ir.Mul(a, b), []any{int64(2), 1.5}, 3.0},
		{"int div", ir.Div(a, ir.IntLit(2)), []any{int64(7), 0.0}, int64(3)},
		{"float mod", ir.Mod(b, ir.FloatLit(2)), []any{int64(0), 5.5}, 1.5},
		{"compare", ir.Lt(a, b), []any{int64(1), 1.5}, true},
		{"negate", ir.Neg(a), []any{int64(4), 0.0}, int64(-4)},
		{"concat", ir.Add(ir.StrLit("a"), ir.StrLit("b")), []any{int64(0), 0.0}, "ab"},
		{"equal across kinds", ir.Eq(a, b), []any{int64(2), 2.0}, true},
		{"short circuit", ir.Or(ir.BoolLit(true), ir.Div(a, ir.IntLit(0))), []any{int64(1), 0.0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, &ir.Lambda{Name: tt.name, Params: []*ir.Variable{a, b}, Result: tt.body.Type(), Body: tt.body})
			got, err := p.Invoke(context.Background(), tt.args...)
			if err != nil {
				t.Fatalf("Invoke failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestCompile_DivisionByZero(t *testing.T) {
	p := mustCompile(t, &ir.Lambda{Name: "div", Result: ir.Int, Body: ir.Div(ir.IntLit(1), ir.IntLit(0))})
	_, err := p.Invoke(context.Background())
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("error = %v, want invalid input", err)
	}
	if ClassifyError(err) != KindInvalid {
		t.Errorf("ClassifyError = %v, want %v", ClassifyError(err), KindInvalid)
	}
}

func TestCompile_LoopBreak(t *testing.T) {
	i := ir.NewVariable("i", ir.Int)
	sum := ir.NewVariable("sum", ir.Int)
	brk, cont := ir.NewTarget("brk"), ir.NewTarget("cont")
	body := ir.NewBlock([]*ir.Variable{i, sum},
		&ir.Loop{
			Break:    brk,
			Continue: cont,
			Body: ir.Seq(
				ir.Set(i, ir.Add(i, ir.IntLit(1))),
				ir.If(ir.Gt(i, ir.IntLit(10)), ir.Jump(brk), nil),
				ir.If(ir.Eq(ir.Mod(i, ir.IntLit(2)), ir.IntLit(0)), ir.Jump(cont), nil),
				ir.Set(sum, ir.Add(sum, i)),
			),
		},
		sum,
	)
	p := mustCompile(t, &ir.Lambda{Name: "odd", Result: ir.Int, Body: body})
	got, err := p.Invoke(context.Background())
	if err != nil || got != int64(25) {
		t.Fatalf("got %v, %v, want 25", got, err)
	}
}

func TestCompile_BackwardGoto(t *testing.T) {
	n := ir.NewVariable("n", ir.Int)
	top := ir.NewTarget("top")
	body := ir.NewBlock([]*ir.Variable{n},
		ir.Mark(top),
		ir.Set(n, ir.Add(n, ir.IntLit(1))),
		ir.If(ir.Lt(n, ir.IntLit(5)), ir.Jump(top), nil),
		n,
	)
	p := mustCompile(t, &ir.Lambda{Name: "goto", Result: ir.Int, Body: body})
	if got, err := p.Invoke(context.Background()); err != nil || got != int64(5) {
		t.Fatalf("got %v, %v, want 5", got, err)
	}
}

func TestCompile_Switch(t *testing.T) {
	v := ir.NewVariable("v", ir.Int)
	sw := ir.NewSwitch(v, []ir.Case{
		{Tests: []ir.Node{ir.IntLit(1)}, Body: ir.StrLit("one")},
		{Tests: []ir.Node{ir.IntLit(2), ir.IntLit(3)}, Body: ir.StrLit("few")},
	}, ir.StrLit("many"))
	p := mustCompile(t, &ir.Lambda{Name: "sw", Params: []*ir.Variable{v}, Result: ir.String, Body: sw})

	for in, want := range map[int64]string{1: "one", 2: "few", 3: "few", 9: "many"} {
		if got, err := p.Invoke(context.Background(), in); err != nil || got != want {
			t.Errorf("switch(%d) = %v, %v, want %q", in, got, err, want)
		}
	}
}

func TestCompile_TryOrdering(t *testing.T) {
	boom := stderrors.New("boom")
	e := ir.NewVariable("e", ir.Error)

	tests := []struct {
		name    string
		try     *ir.Try
		want    string
		wantErr bool
	}{
		{
			name: "caught",
			try: ir.NewTry(ir.Seq(r0.call("body"), raise(boom), r0.call("unreached")),
				[]ir.Catch{{Var: e, Body: r0.call("catch")}},
				r0.call("finally"), r0.call("fault")),
			want: "[body catch finally]",
		},
		{
			name: "uncaught runs fault then finally",
			try: ir.NewTry(ir.Seq(r0.call("body"), raise(boom)),
				[]ir.Catch{{Var: e, Match: func(error) bool { return false }, Body: r0.call("catch")}},
				r0.call("finally"), r0.call("fault")),
			want:    "[body fault finally]",
			wantErr: true,
		},
		{
			name:    "clean exit skips fault",
			try:     ir.NewTry(r0.call("body"), nil, r0.call("finally"), r0.call("fault")),
			want:    "[body finally]",
			wantErr: false,
		},
		{
			name: "filter rejects",
			try: ir.NewTry(raise(boom),
				[]ir.Catch{
					{Var: e, Filter: ir.BoolLit(false), Body: r0.call("first")},
					{Var: e, Body: r0.call("second")},
				}, nil, nil),
			want: "[second]",
		},
		{
			name: "faulting filter rejects",
			try: ir.NewTry(raise(boom),
				[]ir.Catch{
					{Var: e, Filter: ir.Div(ir.IntLit(1), ir.IntLit(0)), Body: r0.call("first")},
					{Var: e, Body: r0.call("second")},
				}, nil, nil),
			want: "[second]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r0.lines = nil
			p := mustCompile(t, &ir.Lambda{Name: tt.name, Result: ir.Void, Body: tt.try})
			_, err := p.Invoke(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := r0.String(); got != tt.want {
				t.Errorf("order = %s, want %s", got, tt.want)
			}
		})
	}
}

var r0 = &recorder{}

func TestCompile_CatchBindsFault(t *testing.T) {
	boom := stderrors.New("boom")
	e := ir.NewVariable("e", ir.Error)
	msg := ir.CallFunc("msg", ir.String, func(_ context.Context, args []any) (any, error) {
		return args[0].(error).Error(), nil
	}, e)
	try := ir.NewTry(ir.Seq(raise(boom), ir.StrLit("no")), []ir.Catch{{Var: e, Body: msg}}, nil, nil)
	p := mustCompile(t, &ir.Lambda{Name: "bind", Result: ir.String, Body: try})
	if got, err := p.Invoke(context.Background()); err != nil || got != "boom" {
		t.Fatalf("got %v, %v, want boom", got, err)
	}
}

func TestCompile_FinallyFaultCombines(t *testing.T) {
	first, second := stderrors.New("first"), stderrors.New("second")
	try := ir.NewTry(raise(first), nil, raise(second), nil)
	p := mustCompile(t, &ir.Lambda{Name: "combine", Result: ir.Void, Body: try})
	_, err := p.Invoke(context.Background())
	errs := multierr.Errors(err)
	if len(errs) != 2 || errs[0] != first || errs[1] != second {
		t.Fatalf("errors = %v, want [first second]", errs)
	}
}

func TestCompile_ReturnRunsFinally(t *testing.T) {
	r := &recorder{}
	body := ir.Seq(
		ir.NewTry(&ir.Return{Value: ir.IntLit(1)}, nil, r.call("finally"), nil),
		ir.IntLit(2),
	)
	p := mustCompile(t, &ir.Lambda{Name: "ret", Result: ir.Int, Body: body})
	got, err := p.Invoke(context.Background())
	if err != nil || got != int64(1) {
		t.Fatalf("got %v, %v, want 1", got, err)
	}
	if r.String() != "[finally]" {
		t.Errorf("order = %s", r)
	}
}

func TestCompile_PanicBecomesFault(t *testing.T) {
	bad := ir.CallFunc("bad", ir.Int, func(context.Context, []any) (any, error) { panic("kaboom") })
	p := mustCompile(t, &ir.Lambda{Name: "panics", Result: ir.Int, Body: bad})
	_, err := p.Invoke(context.Background())
	if errors.KindOf(err) != errors.KindPanic {
		t.Fatalf("error = %v, want panic fault", err)
	}
	if ClassifyError(err) != KindPanic {
		t.Errorf("ClassifyError = %v", ClassifyError(err))
	}
}

func TestCompile_ClosureCapturesFrame(t *testing.T) {
	count := ir.NewVariable("count", ir.Int)
	inc := ir.NewVariable("inc", ir.Func)
	body := ir.NewBlock([]*ir.Variable{count, inc},
		ir.Set(inc, &ir.Lambda{Name: "inc", Result: ir.Int, Body: ir.Set(count, ir.Add(count, ir.IntLit(1)))}),
		ir.InvokeProc(inc, ir.Int),
		ir.InvokeProc(inc, ir.Int),
		count,
	)
	p := mustCompile(t, &ir.Lambda{Name: "closure", Result: ir.Int, Body: body})
	if got, err := p.Invoke(context.Background()); err != nil || got != int64(2) {
		t.Fatalf("got %v, %v, want 2", got, err)
	}
}

func TestCompile_AssignCoercesToFloat(t *testing.T) {
	f := ir.NewVariable("f", ir.Float)
	p := mustCompile(t, &ir.Lambda{Name: "coerce", Result: ir.Float, Body: ir.NewBlock([]*ir.Variable{f}, ir.Set(f, ir.IntLit(3)), f)})
	if got, err := p.Invoke(context.Background()); err != nil || got != 3.0 {
		t.Fatalf("got %v (%T), %v, want 3.0", got, got, err)
	}
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body ir.Node
		kind errors.Kind
	}{
		{"raw await", ir.AwaitOf(ir.CallFunc("f", ir.Task, func(context.Context, []any) (any, error) { return nil, nil }), ir.Int), errors.KindUnsupported},
		{"raw completion", ir.Complete(ir.IntLit(1)), errors.KindUnsupported},
		{"unresolved jump", ir.Jump(ir.NewTarget("nowhere")), errors.KindUnresolvedLabel},
		{"call without function", ir.CallFunc("nil", ir.Int, nil), errors.KindInvalidInput},
		{"await result outside machine", &ir.AwaitResult{Awaiter: ir.NewVariable("aw", ir.Any), T: ir.Int}, errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(&ir.Lambda{Name: tt.name, Result: ir.Void, Body: tt.body})
			if errors.KindOf(err) != tt.kind {
				t.Fatalf("error = %v, want kind %q", err, tt.kind)
			}
		})
	}
	if _, err := Compile(nil); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("Compile(nil) error = %v", err)
	}
}

func TestCompile_JumpAcrossProcedureRejected(t *testing.T) {
	outer := ir.NewTarget("outer")
	body := ir.Seq(
		ir.Mark(outer),
		&ir.Lambda{Name: "inner", Result: ir.Void, Body: ir.Jump(outer)},
	)
	_, err := Compile(&ir.Lambda{Name: "cross", Result: ir.Void, Body: body})
	if errors.KindOf(err) != errors.KindUnresolvedLabel {
		t.Fatalf("error = %v, want unresolved label", err)
	}
}

func TestProcedure_ArgumentCount(t *testing.T) {
	x := ir.NewVariable("x", ir.Int)
	p := mustCompile(t, &ir.Lambda{Name: "id", Params: []*ir.Variable{x}, Result: ir.Int, Body: x})
	if _, err := p.Invoke(context.Background()); errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("error = %v, want invalid input", err)
	}
	if _, err := p.Start(context.Background(), int64(1)); err == nil {
		t.Error("Start on a synchronous procedure should fail")
	}
	if got, err := p.Run(context.Background(), 4); err != nil || got != int64(4) {
		t.Errorf("Run = %v, %v, want 4", got, err)
	}
}

func TestCompile_ThrowNonError(t *testing.T) {
	p := mustCompile(t, &ir.Lambda{Name: "throw", Result: ir.Void, Body: ir.Raise(ir.IntLit(3))})
	_, err := p.Invoke(context.Background())
	if errors.KindOf(err) != errors.KindTypeMismatch {
		t.Fatalf("error = %v, want type mismatch", err)
	}
}
