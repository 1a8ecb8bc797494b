package builder

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/irflow/asyncify"
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

var (
	ctxType      = reflect.TypeFor[context.Context]()
	errType      = reflect.TypeFor[error]()
	taskType     = reflect.TypeFor[*task.Task]()
	mutexType    = reflect.TypeFor[*task.Mutex]()
	lockerType   = reflect.TypeFor[sync.Locker]()
	callableType = reflect.TypeFor[ir.Callable]()
)

// Option adjusts a signature derived from a Go function type.
type Option func(*Signature)

// WithName names the procedure.
func WithName(name string) Option {
	return func(s *Signature) { s.Name = name }
}

// WithParamNames names parameters in order.
func WithParamNames(names ...string) Option {
	return func(s *Signature) {
		for i := range s.Params {
			if i < len(names) {
				s.Params[i].Name = names[i]
			}
		}
	}
}

// WithResult sets the value type an asynchronous procedure completes with.
// Go's *task.Task does not carry it.
func WithResult(t ir.Type) Option {
	return func(s *Signature) { s.Result = t }
}

// AsVoid declares an asynchronous procedure that completes without a value.
func AsVoid() Option { return WithResult(ir.Void) }

// Recursive pre-declares the self binding.
func Recursive() Option {
	return func(s *Signature) { s.Recursive = true }
}

// Pooled reuses state-machine instances.
func Pooled() Option {
	return func(s *Signature) { s.Pooled = true }
}

// WithAsyncCalls marks Go calls whose results are awaited implicitly.
func WithAsyncCalls(names ...string) Option {
	return func(s *Signature) { s.AsyncCalls = append(s.AsyncCalls, names...) }
}

// WithMatcher awaits every call m accepts, in addition to WithAsyncCalls.
func WithMatcher(m asyncify.CallMatcher) Option {
	return func(s *Signature) { s.Matcher = m }
}

// SignatureOf derives a signature from the Go function fn. The function may
// take a leading context.Context and must return (T, error), error or
// *task.Task; the latter declares an asynchronous procedure.
func SignatureOf(fn any, opts ...Option) (Signature, error) {
	return signatureOf(reflect.TypeOf(fn), opts)
}

func signatureOf(typ reflect.Type, opts []Option) (Signature, error) {
	if typ == nil || typ.Kind() != reflect.Func {
		return Signature{}, errors.AbstractSignature(fmt.Sprint(typ), "not a function type")
	}
	if typ.IsVariadic() {
		return Signature{}, errors.AbstractSignature(typ.String(), "variadic functions have no fixed parameter list")
	}

	sig := Signature{Name: "proc"}
	start := 0
	if typ.NumIn() > 0 && typ.In(0) == ctxType {
		start = 1
	}
	for i := start; i < typ.NumIn(); i++ {
		t, ok := typeFor(typ.In(i))
		if !ok {
			return Signature{}, errors.AbstractSignature(typ.String(),
				fmt.Sprintf("parameter %d has unsupported type %s", i, typ.In(i)))
		}
		sig.Params = append(sig.Params, Parameter{Type: t})
	}

	switch {
	case typ.NumOut() == 1 && typ.Out(0) == taskType:
		sig.Async = true
		sig.Result = ir.Any
	case typ.NumOut() == 1 && typ.Out(0) == errType:
		sig.Result = ir.Void
	case typ.NumOut() == 2 && typ.Out(1) == errType:
		t, ok := typeFor(typ.Out(0))
		if !ok {
			return Signature{}, errors.AbstractSignature(typ.String(),
				fmt.Sprintf("result has unsupported type %s", typ.Out(0)))
		}
		sig.Result = t
	default:
		return Signature{}, errors.AbstractSignature(typ.String(),
			"results must be (T, error), (error) or (*task.Task)")
	}

	for _, opt := range opts {
		opt(&sig)
	}
	return sig, nil
}

func typeFor(rt reflect.Type) (ir.Type, bool) {
	switch rt {
	case errType:
		return ir.Error, true
	case taskType:
		return ir.Task, true
	case mutexType:
		return ir.AsyncLocker, true
	case callableType:
		return ir.Func, true
	}
	switch rt.Kind() {
	case reflect.Bool:
		return ir.Bool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return ir.Int, true
	case reflect.Float32, reflect.Float64:
		return ir.Float, true
	case reflect.String:
		return ir.String, true
	case reflect.Interface, reflect.Pointer:
		if rt.Implements(lockerType) {
			return ir.Locker, true
		}
		return ir.Any, true
	case reflect.Slice, reflect.Map, reflect.Func, reflect.Struct, reflect.Array:
		return ir.Any, true
	default:
		return ir.Void, false
	}
}

// CompileFunc builds a procedure whose signature is derived from F and binds
// it back to F. Faults of synchronous procedures are returned as F's error
// result; asynchronous procedures report them through the returned handle.
func CompileFunc[F any](fn BodyFunc, opts ...Option) (F, error) {
	var zero F
	typ := reflect.TypeFor[F]()
	sig, err := signatureOf(typ, opts)
	if err != nil {
		return zero, err
	}
	proc, err := Compile(sig, fn)
	if err != nil {
		return zero, err
	}

	hasCtx := typ.NumIn() > 0 && typ.In(0) == ctxType
	impl := reflect.MakeFunc(typ, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if hasCtx {
			if c, ok := in[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
			in = in[1:]
		}
		args := make([]any, len(in))
		for i, a := range in {
			args[i] = ir.NormalizeConst(a.Interface())
		}
		out, err := proc.Invoke(ctx, args...)
		return results(typ, out, err)
	})
	return impl.Interface().(F), nil
}

func results(typ reflect.Type, out any, err error) []reflect.Value {
	switch typ.NumOut() {
	case 1:
		if typ.Out(0) == taskType {
			t, ok := out.(*task.Task)
			switch {
			case err != nil:
				t = task.Failed(err)
			case !ok:
				t = task.Failed(errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
					Type(fmt.Sprintf("%T", out)).
					Detail("asynchronous procedure did not produce a task").
					Build())
			}
			return []reflect.Value{reflect.ValueOf(t)}
		}
		return []reflect.Value{errValue(err)}
	default:
		rt := typ.Out(0)
		if err != nil || out == nil {
			return []reflect.Value{reflect.Zero(rt), errValue(err)}
		}
		rv := reflect.ValueOf(out)
		switch {
		case rv.Type().AssignableTo(rt):
		case rv.Type().ConvertibleTo(rt):
			rv = rv.Convert(rt)
		default:
			return []reflect.Value{reflect.Zero(rt), errValue(errors.TypeMismatch(errors.PhaseRuntime, nil, "result", rt.String(), rv.Type().String()))}
		}
		return []reflect.Value{rv, errValue(nil)}
	}
}

func errValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errType)
	}
	return reflect.ValueOf(&err).Elem()
}
