package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

func TestEqual(t *testing.T) {
	type pair struct{ a, b int }
	tests := []struct {
		a, b any
		want bool
	}{
		{int64(1), int64(1), true},
		{int64(1), 1.0, true},
		{1.5, int64(1), false},
		{"a", "a", true},
		{"a", int64(1), false},
		{nil, nil, true},
		{nil, int64(0), false},
		{pair{1, 2}, pair{1, 2}, true},
		{[]int{1}, []int{1}, false},
		{int64(1) << 62, int64(1)<<62 + 1, false},
	}
	for _, tt := range tests {
		if got := equal(tt.a, tt.b); got != tt.want {
			t.Errorf("equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBinary_Mismatch(t *testing.T) {
	tests := []struct {
		op   ir.BinaryOp
		a, b any
	}{
		{ir.OpAdd, "a", int64(1)},
		{ir.OpLt, true, false},
		{ir.OpMul, nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			_, err := binary(tt.op, tt.a, tt.b)
			if errors.KindOf(err) != errors.KindTypeMismatch {
				t.Fatalf("binary(%v, %v) error = %v, want type mismatch", tt.a, tt.b, err)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	if got := coerce(ir.Float, 3); got != 3.0 {
		t.Errorf("coerce(float, 3) = %v (%T)", got, got)
	}
	if got := coerce(ir.Int, int32(3)); got != int64(3) {
		t.Errorf("coerce(int, int32) = %v (%T)", got, got)
	}
	if got := coerce(ir.Any, "x"); got != "x" {
		t.Errorf("coerce(any, x) = %v", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"user", stderrors.New("user"), KindUnknown},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"panic", errors.Panic("call", "boom"), KindPanic},
		{"unhandled", errors.UnhandledFault("m", stderrors.New("x")), KindInternal},
		{"unbound", errors.UnboundVariable("x"), KindInternal},
		{"invalid", errors.InvalidInput(errors.PhaseRuntime, "bad"), KindInvalid},
		{"mismatch", errors.TypeMismatch(errors.PhaseRuntime, nil, "n", "int", "string"), KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}
