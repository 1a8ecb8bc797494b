package ir

import (
	"context"
	"sync"
	"testing"
)

func TestType_Zero(t *testing.T) {
	tests := []struct {
		t    Type
		want any
	}{
		{Bool, false},
		{Int, int64(0)},
		{Float, float64(0)},
		{String, ""},
		{Any, nil},
		{Task, nil},
	}
	for _, tt := range tests {
		if got := tt.t.Zero(); got != tt.want {
			t.Errorf("%s.Zero() = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestType_Assignable(t *testing.T) {
	if !Float.Assignable(Int) {
		t.Error("int should widen to float")
	}
	if Int.Assignable(Float) {
		t.Error("float must not narrow to int")
	}
	if !Any.Assignable(Task) {
		t.Error("any accepts every type")
	}
	if String.Assignable(Bool) {
		t.Error("bool is not a string")
	}
}

type proc struct{}

func (proc) Invoke(context.Context, ...any) (any, error) { return nil, nil }

func TestTypeOf(t *testing.T) {
	tests := []struct {
		v    any
		want Type
	}{
		{nil, Any},
		{true, Bool},
		{3, Int},
		{uint8(3), Int},
		{2.5, Float},
		{"x", String},
		{context.Canceled, Error},
		{proc{}, Func},
		{&sync.Mutex{}, Locker},
		{struct{}{}, Any},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.v); got != tt.want {
			t.Errorf("TypeOf(%T) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestConst_Normalized(t *testing.T) {
	c := Constant(7)
	if c.Value != int64(7) || c.T != Int {
		t.Fatalf("got %#v", c)
	}
	f := Constant(float32(1.5))
	if f.Value != float64(1.5) || f.T != Float {
		t.Fatalf("got %#v", f)
	}
}

func TestStaticTypes(t *testing.T) {
	x := NewVariable("x", Int)

	if got := Seq().Type(); got != Void {
		t.Errorf("empty block: %s", got)
	}
	if got := Seq(Set(x, IntLit(1)), StrLit("a")).Type(); got != String {
		t.Errorf("block types as its last statement, got %s", got)
	}
	if got := If(BoolLit(true), IntLit(1), IntLit(2)).Type(); got != Int {
		t.Errorf("agreeing cond: %s", got)
	}
	if got := If(BoolLit(true), IntLit(1), StrLit("a")).Type(); got != Void {
		t.Errorf("disagreeing cond: %s", got)
	}
	if got := If(BoolLit(true), IntLit(1), nil).Type(); got != Void {
		t.Errorf("cond without else: %s", got)
	}
	if got := (&Loop{Body: IntLit(1)}).Type(); got != Void {
		t.Errorf("loop: %s", got)
	}
	if got := Add(IntLit(1), FloatLit(2)).Type(); got != Float {
		t.Errorf("int+float: %s", got)
	}
	if got := Lt(IntLit(1), IntLit(2)).Type(); got != Bool {
		t.Errorf("comparison: %s", got)
	}
	if got := Complete(IntLit(1)).Type(); got != Task {
		t.Errorf("async result: %s", got)
	}
}

func TestNewSwitch_Type(t *testing.T) {
	cases := []Case{{Tests: []Node{IntLit(1)}, Body: StrLit("one")}}
	if got := NewSwitch(IntLit(1), cases, StrLit("other")).Type(); got != String {
		t.Errorf("switch with default: %s", got)
	}
	if got := NewSwitch(IntLit(1), cases, nil).Type(); got != Void {
		t.Errorf("switch without default: %s", got)
	}
}

func TestNewTry_Type(t *testing.T) {
	ok := NewTry(IntLit(1), []Catch{{Body: IntLit(2)}}, nil, nil)
	if ok.Type() != Int {
		t.Errorf("got %s", ok.Type())
	}
	mixed := NewTry(IntLit(1), []Catch{{Body: StrLit("x")}}, nil, nil)
	if mixed.Type() != Void {
		t.Errorf("got %s", mixed.Type())
	}
}

func TestAnalysis_HasAwait(t *testing.T) {
	aw := AwaitOf(NewVariable("t", Task), Int)
	inLambda := &Lambda{Name: "inner", Body: aw, Async: true}

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"const", IntLit(1), false},
		{"await", aw, true},
		{"nested", Seq(IntLit(1), If(BoolLit(true), Seq(aw), nil)), true},
		{"try finally", NewTry(IntLit(1), nil, Seq(aw), nil), true},
		{"lambda", Seq(inLambda), false},
		{"switch test", NewSwitch(IntLit(1), []Case{{Tests: []Node{aw}, Body: Empty()}}, nil), true},
	}
	a := NewAnalysis()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.HasAwait(tt.node); got != tt.want {
				t.Fatalf("HasAwait = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewrite_PreservesUnchanged(t *testing.T) {
	x := NewVariable("x", Int)
	tree := Seq(Set(x, IntLit(1)), If(Lt(x, IntLit(3)), Set(x, IntLit(2)), nil))

	same := Rewrite(tree, func(n Node) Node { return n })
	if same != tree {
		t.Fatal("identity rewrite must return the original tree")
	}
}

func TestRewrite_Replaces(t *testing.T) {
	x := NewVariable("x", Int)
	tree := Seq(Set(x, Add(IntLit(1), IntLit(2))), x)

	out := Rewrite(tree, func(n Node) Node {
		if c, ok := n.(*Const); ok && c.Value == int64(2) {
			return IntLit(40)
		}
		return n
	})
	if out == Node(tree) {
		t.Fatal("expected a new tree")
	}
	blk := out.(*Block)
	add := blk.Body[0].(*Assign).Value.(*Binary)
	if add.R.(*Const).Value != int64(40) {
		t.Fatalf("replacement not applied: %s", Dump(out))
	}
	if blk.Body[1] != Node(x) {
		t.Fatal("untouched sibling must be shared")
	}
	if tree.Body[0].(*Assign).Value.(*Binary).R.(*Const).Value != int64(2) {
		t.Fatal("original tree was mutated")
	}
}

func TestChildren_TryOrder(t *testing.T) {
	body, filter, cbody, fin := IntLit(1), BoolLit(true), IntLit(2), IntLit(3)
	try := NewTry(body, []Catch{{Filter: filter, Body: cbody}}, fin, nil)

	got := Children(try)
	want := []Node{body, filter, cbody, fin}
	if len(got) != len(want) {
		t.Fatalf("got %d children, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("child %d: got %s", i, got[i].Kind())
		}
	}
}

func TestTargets(t *testing.T) {
	a, b := NewTarget("a"), NewTarget("b")
	inner := &Lambda{Body: Jump(b)}
	got := Targets(Seq(Jump(a), inner))
	if !got[a] || got[b] {
		t.Fatalf("got %v", got)
	}
}

func TestNewTarget_Unique(t *testing.T) {
	a, b := NewTarget("x"), NewTarget("x")
	if a.ID == b.ID {
		t.Fatal("targets must have distinct ids")
	}
}

func TestCallFunc_GoFuncAndProcedureType(t *testing.T) {
	var fn GoFunc = func(_ context.Context, args []any) (any, error) { return args[0], nil }
	c := CallFunc("echo", String, fn, StrLit("x"))
	if c.Type() != String || c.Fn == nil {
		t.Fatalf("got %#v", c)
	}
	v, err := c.Fn(context.Background(), []any{"x"})
	if err != nil || v != "x" {
		t.Fatalf("Fn() = %v, %v", v, err)
	}

	l := &Lambda{Name: "f", Body: c, Result: String}
	if l.Type() != Func {
		t.Errorf("lambda type = %s, want %s", l.Type(), Func)
	}
}
