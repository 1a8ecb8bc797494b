package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConstruct Phase = "construct" // builder API misuse
	PhaseLower     Phase = "lower"     // asynchronous procedure lowering
	PhaseCompile   Phase = "compile"   // IR materialization
	PhaseRuntime   Phase = "runtime"   // produced procedure execution
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateName       Kind = "duplicate_name"
	KindUseAfterClose       Kind = "use_after_close"
	KindCrossThread         Kind = "cross_thread"
	KindNoEnclosingScope    Kind = "no_enclosing_scope"
	KindSuspendInFilter     Kind = "suspend_in_filter"
	KindSuspendInLock       Kind = "suspend_in_lock"
	KindSuspendOutsideAsync Kind = "suspend_outside_async"
	KindAbstractSignature   Kind = "abstract_signature"
	KindVoidResultAccess    Kind = "void_result_access"
	KindTypeMismatch        Kind = "type_mismatch"
	KindInvalidInput        Kind = "invalid_input"
	KindUnboundVariable     Kind = "unbound_variable"
	KindUnresolvedLabel     Kind = "unresolved_label"
	KindUnsupported         Kind = "unsupported"
	KindPanic               Kind = "panic"
	KindUnhandledFault      Kind = "unhandled_fault"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Node   string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "/"))
	}

	if e.Node != "" || e.Type != "" {
		b.WriteString(": ")
		if e.Node != "" && e.Type != "" {
			b.WriteString("node ")
			b.WriteString(e.Node)
			b.WriteString(", type ")
			b.WriteString(e.Type)
		} else if e.Node != "" {
			b.WriteString("node ")
			b.WriteString(e.Node)
		} else {
			b.WriteString("type ")
			b.WriteString(e.Type)
		}
	}

	if e.Detail != "" {
		if e.Node != "" || e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Kind matches every error of the same phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Kind == "" {
			return e.Phase == t.Phase
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Phase-level targets for errors.Is.
var (
	// ConstructionError matches every builder misuse error.
	ConstructionError = &Error{Phase: PhaseConstruct}
	// LoweringError matches every structural error found by lowering.
	LoweringError = &Error{Phase: PhaseLower}
	// RuntimeFault matches faults raised by the engine itself.
	RuntimeFault = &Error{Phase: PhaseRuntime}
)

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the scope path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Node sets the IR node kind
func (b *Builder) Node(n string) *Builder {
	b.err.Node = n
	return b
}

// Type sets the IR value type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Construction errors

// DuplicateName creates a duplicate variable name error
func DuplicateName(path []string, name string) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindDuplicateName,
		Path:   path,
		Detail: fmt.Sprintf("variable %q already declared in this scope", name),
		Value:  name,
	}
}

// UseAfterClose creates an error for reuse of a disposed scope or closed jump context
func UseAfterClose(what string) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindUseAfterClose,
		Detail: fmt.Sprintf("%s used after close", what),
	}
}

// CrossThread creates a caller-identity error
func CrossThread(owner, caller int64) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindCrossThread,
		Detail: fmt.Sprintf("template owned by goroutine %d, called from goroutine %d", owner, caller),
		Value:  caller,
	}
}

// NoEnclosingScope creates an error for assemblers invoked outside an open template
func NoEnclosingScope(construct string) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindNoEnclosingScope,
		Node:   construct,
		Detail: "no open procedure template",
	}
}

// SuspendInLock creates an error for a suspension point inside a non suspension-aware lock
func SuspendInLock() *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindSuspendInLock,
		Node:   "lock",
		Detail: "lock body contains a suspension point; use AsyncLock",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, node, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Node:   node,
		Type:   got,
		Detail: fmt.Sprintf("expected %s", want),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Lowering errors

// SuspendInFilter creates an error for a suspension point inside a catch filter
func SuspendInFilter(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSuspendInFilter,
		Node:   "catch",
		Detail: "exception filters cannot contain suspension points",
	}
}

// SuspendOutsideAsync creates an error for a suspension point in a synchronous procedure
func SuspendOutsideAsync(name string) *Error {
	return &Error{
		Phase:  PhaseLower,
		Kind:   KindSuspendOutsideAsync,
		Path:   []string{name},
		Detail: "suspension point in a procedure not declared asynchronous",
	}
}

// AbstractSignature creates an error for a signature that has no concrete callable form
func AbstractSignature(target, detail string) *Error {
	return &Error{
		Phase:  PhaseLower,
		Kind:   KindAbstractSignature,
		Type:   target,
		Detail: detail,
	}
}

// VoidResultAccess creates an error for reading the result of a void procedure
func VoidResultAccess(name string) *Error {
	return &Error{
		Phase:  PhaseLower,
		Kind:   KindVoidResultAccess,
		Path:   []string{name},
		Detail: "procedure declared without a result value",
	}
}

// UnresolvedLabel creates an error for a jump whose target is never placed
func UnresolvedLabel(phase Phase, label string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedLabel,
		Detail: fmt.Sprintf("jump target %s is not placed", label),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Runtime faults

// UnboundVariable creates an error for a read of an undeclared variable
func UnboundVariable(name string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindUnboundVariable,
		Detail: fmt.Sprintf("variable %q is not bound", name),
		Value:  name,
	}
}

// Panic creates a fault from a recovered panic
func Panic(where string, v any) *Error {
	e := &Error{
		Phase:  PhaseRuntime,
		Kind:   KindPanic,
		Node:   where,
		Detail: fmt.Sprintf("panic: %v", v),
		Value:  v,
	}
	if err, ok := v.(error); ok {
		e.Cause = err
	}
	return e
}

// UnhandledFault wraps a fault that escaped a state machine dispatch
func UnhandledFault(machine string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindUnhandledFault,
		Path:   []string{machine},
		Detail: "fault escaped state machine",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
