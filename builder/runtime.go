package builder

import (
	"context"
	"fmt"
	"io"
	"iter"
	"reflect"
	"sync"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
	"github.com/wippyai/irflow/task"
)

// Enumerator walks a sequence. Enumerators that also implement io.Closer are
// closed exactly once when the loop that owns them exits.
type Enumerator interface {
	Next() bool
	Current() any
}

// Enumerable produces a fresh enumerator per loop.
type Enumerable interface {
	Enumerate() Enumerator
}

// AsyncCloser is a resource whose release may suspend.
type AsyncCloser interface {
	CloseAsync() task.Awaitable
}

type sliceEnum struct {
	v reflect.Value
	i int
}

func (e *sliceEnum) Next() bool {
	if e.i+1 >= e.v.Len() {
		return false
	}
	e.i++
	return true
}

func (e *sliceEnum) Current() any { return ir.NormalizeConst(e.v.Index(e.i).Interface()) }

type pullEnum struct {
	next   func() (any, bool)
	stop   func()
	cur    any
	closed bool
}

func (e *pullEnum) Next() bool {
	v, ok := e.next()
	if ok {
		e.cur = ir.NormalizeConst(v)
	}
	return ok
}

func (e *pullEnum) Current() any { return e.cur }

func (e *pullEnum) Close() error {
	if !e.closed {
		e.closed = true
		e.stop()
	}
	return nil
}

type emptyEnum struct{}

func (emptyEnum) Next() bool   { return false }
func (emptyEnum) Current() any { return nil }

func enumerate(_ context.Context, args []any) (any, error) {
	switch src := args[0].(type) {
	case nil:
		return emptyEnum{}, nil
	case Enumerable:
		return src.Enumerate(), nil
	case Enumerator:
		return src, nil
	case iter.Seq[any]:
		next, stop := iter.Pull(src)
		return &pullEnum{next: next, stop: stop}, nil
	case func(func(any) bool):
		next, stop := iter.Pull(iter.Seq[any](src))
		return &pullEnum{next: next, stop: stop}, nil
	}
	rv := reflect.ValueOf(args[0])
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return &sliceEnum{v: rv, i: -1}, nil
	}
	return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Node("foreach").
		Type(fmt.Sprintf("%T", args[0])).
		Detail("value is not enumerable").
		Build()
}

func asEnumerator(v any) (Enumerator, error) {
	e, ok := v.(Enumerator)
	if !ok {
		return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Node("foreach").
			Type(fmt.Sprintf("%T", v)).
			Detail("expected an enumerator").
			Build()
	}
	return e, nil
}

func enumNext(_ context.Context, args []any) (any, error) {
	e, err := asEnumerator(args[0])
	if err != nil {
		return nil, err
	}
	return e.Next(), nil
}

func enumCurrent(_ context.Context, args []any) (any, error) {
	e, err := asEnumerator(args[0])
	if err != nil {
		return nil, err
	}
	return e.Current(), nil
}

func enumRelease(_ context.Context, args []any) (any, error) {
	if c, ok := args[0].(io.Closer); ok {
		return nil, c.Close()
	}
	return nil, nil
}

// release disposes a resource synchronously. A suspension-aware resource is
// waited for on the calling goroutine.
func release(ctx context.Context, args []any) (any, error) {
	switch r := args[0].(type) {
	case nil:
		return nil, nil
	case io.Closer:
		return nil, r.Close()
	case AsyncCloser:
		_, err := wait(ctx, r.CloseAsync())
		return nil, err
	default:
		return nil, notReleasable(r)
	}
}

// releaseAsync starts disposing a resource and returns the awaitable that
// completes when it is released.
func releaseAsync(_ context.Context, args []any) (any, error) {
	switch r := args[0].(type) {
	case nil:
		return task.Completed(nil), nil
	case AsyncCloser:
		return r.CloseAsync(), nil
	case io.Closer:
		if err := r.Close(); err != nil {
			return task.Failed(err), nil
		}
		return task.Completed(nil), nil
	default:
		return nil, notReleasable(r)
	}
}

func notReleasable(v any) error {
	return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Node("using").
		Type(fmt.Sprintf("%T", v)).
		Detail("resource implements neither io.Closer nor AsyncCloser").
		Build()
}

func lock(ctx context.Context, args []any) (any, error) {
	switch l := args[0].(type) {
	case *task.Mutex:
		_, err := wait(ctx, l.Acquire())
		return nil, err
	case sync.Locker:
		l.Lock()
		return nil, nil
	default:
		return nil, notLocker(args[0])
	}
}

func unlock(_ context.Context, args []any) (any, error) {
	switch l := args[0].(type) {
	case *task.Mutex:
		l.Release()
	case sync.Locker:
		l.Unlock()
	default:
		return nil, notLocker(args[0])
	}
	return nil, nil
}

func acquire(_ context.Context, args []any) (any, error) {
	m, ok := args[0].(*task.Mutex)
	if !ok {
		return nil, notLocker(args[0])
	}
	return m.Acquire(), nil
}

func notLocker(v any) error {
	return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Node("lock").
		Type(fmt.Sprintf("%T", v)).
		Detail("value is not a lock").
		Build()
}

func wait(ctx context.Context, a task.Awaitable) (any, error) {
	if !a.IsCompleted() {
		done := make(chan struct{})
		a.OnCompleted(func() { close(done) })
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.Result()
}
