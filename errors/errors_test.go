package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseConstruct,
				Kind:   KindTypeMismatch,
				Path:   []string{"sum", "loop", "body"},
				Node:   "cond",
				Type:   "int",
				Detail: "expected bool",
			},
			contains: []string{"[construct]", "type_mismatch", "sum/loop/body", "node cond", "type int", "expected bool"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLower,
				Kind:  KindSuspendInFilter,
			},
			contains: []string{"[lower]", "suspend_in_filter"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindUnhandledFault,
				Detail: "fault escaped",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "unhandled_fault", "fault escaped", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseRuntime,
		Kind:  KindPanic,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not walk to cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConstruct,
		Kind:  KindDuplicateName,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseConstruct, Kind: KindDuplicateName}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLower, Kind: KindDuplicateName}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConstruct, Kind: KindUseAfterClose}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ConstructionError) {
		t.Error("errors.Is should match phase-level target")
	}
	if errors.Is(err, LoweringError) {
		t.Error("errors.Is should not match other phase-level target")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("compile: %w", VoidResultAccess("p"))
	if got := KindOf(wrapped); got != KindVoidResultAccess {
		t.Errorf("KindOf = %q, want %q", got, KindVoidResultAccess)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLower, KindTypeMismatch).
		Path("proc", "try").
		Node("await").
		Type("int").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "task", "int").
		Build()

	if err.Phase != PhaseLower {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLower)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "proc" || err.Path[1] != "try" {
		t.Errorf("Path = %v, want [proc try]", err.Path)
	}
	if err.Node != "await" {
		t.Errorf("Node = %v, want 'await'", err.Node)
	}
	if err.Type != "int" {
		t.Errorf("Type = %v, want 'int'", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected task, got int" {
		t.Errorf("Detail = %v, want 'expected task, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"DuplicateName", DuplicateName([]string{"root"}, "x"), PhaseConstruct, KindDuplicateName},
		{"UseAfterClose", UseAfterClose("scope"), PhaseConstruct, KindUseAfterClose},
		{"CrossThread", CrossThread(1, 2), PhaseConstruct, KindCrossThread},
		{"NoEnclosingScope", NoEnclosingScope("loop"), PhaseConstruct, KindNoEnclosingScope},
		{"SuspendInLock", SuspendInLock(), PhaseConstruct, KindSuspendInLock},
		{"SuspendInFilter", SuspendInFilter(PhaseLower), PhaseLower, KindSuspendInFilter},
		{"SuspendOutsideAsync", SuspendOutsideAsync("p"), PhaseLower, KindSuspendOutsideAsync},
		{"AbstractSignature", AbstractSignature("io.Reader", "not a func"), PhaseLower, KindAbstractSignature},
		{"VoidResultAccess", VoidResultAccess("p"), PhaseLower, KindVoidResultAccess},
		{"UnresolvedLabel", UnresolvedLabel(PhaseCompile, "L1"), PhaseCompile, KindUnresolvedLabel},
		{"UnboundVariable", UnboundVariable("x"), PhaseRuntime, KindUnboundVariable},
		{"Panic", Panic("call", "boom"), PhaseRuntime, KindPanic},
		{"UnhandledFault", UnhandledFault("m", errors.New("x")), PhaseRuntime, KindUnhandledFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestPanic_KeepsErrorCause(t *testing.T) {
	cause := errors.New("inner")
	err := Panic("call", cause)
	if !errors.Is(err, cause) {
		t.Error("panic with error value should unwrap to it")
	}
	if Panic("call", 7).Cause != nil {
		t.Error("non-error panic value should not set a cause")
	}
}
