package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Status is the completion state of a Task.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrPending is returned by Result while the task has not completed.
var ErrPending = errors.New("task: result read before completion")

// errNilFault replaces a nil error passed to Fail.
var errNilFault = errors.New("task: failed with nil error")

// Awaitable is anything a suspension point can wait on.
//
// OnCompleted must invoke cb exactly once, immediately if the awaitable has
// already completed. Result is only meaningful once IsCompleted reports true.
type Awaitable interface {
	IsCompleted() bool
	OnCompleted(cb func())
	Result() (any, error)
}

// Task is an asynchronous result handle: a value or a fault, delivered now or later.
//
// All completion methods are idempotent; the first call wins and later calls
// report false. Awaiter callbacks run on the completing goroutine, outside the
// task's lock.
type Task struct {
	mu       sync.Mutex
	status   Status
	value    any
	err      error
	done     chan struct{}
	awaiters []func()
}

// New returns a pending task.
func New() *Task {
	return &Task{done: make(chan struct{})}
}

// Completed returns a task that already succeeded with v.
func Completed(v any) *Task {
	t := New()
	t.Complete(v)
	return t
}

// Failed returns a task that already failed with err.
func Failed(err error) *Task {
	t := New()
	t.Fail(err)
	return t
}

// Complete resolves the task with v.
func (t *Task) Complete(v any) bool {
	return t.finish(StatusSucceeded, v, nil)
}

// MarkComplete resolves a task that carries no value.
func (t *Task) MarkComplete() bool {
	return t.finish(StatusSucceeded, nil, nil)
}

// Fail resolves the task with err.
func (t *Task) Fail(err error) bool {
	if err == nil {
		err = errNilFault
	}
	return t.finish(StatusFailed, nil, err)
}

// Cancel fails the task with context.Canceled.
func (t *Task) Cancel() bool {
	return t.Fail(context.Canceled)
}

func (t *Task) finish(status Status, v any, err error) bool {
	var awaiters []func()
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return false
	}
	t.status = status
	t.value = v
	t.err = err
	awaiters = t.awaiters
	t.awaiters = nil
	close(t.done)
	t.mu.Unlock()

	for _, cb := range awaiters {
		cb()
	}
	return true
}

// IsCompleted reports whether the task succeeded or failed.
func (t *Task) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status != StatusPending
}

// Status returns the current completion state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// OnCompleted registers cb to run once the task completes.
func (t *Task) OnCompleted(cb func()) {
	if cb == nil {
		return
	}
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		cb()
		return
	}
	t.awaiters = append(t.awaiters, cb)
	t.mu.Unlock()
}

// Result returns the outcome without blocking.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusPending {
		return nil, ErrPending
	}
	return t.value, t.err
}

// Done returns a channel closed on completion.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn on a new goroutine and completes the returned task with its
// outcome. A panic in fn fails the task.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Task {
	t := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					t.Fail(fmt.Errorf("panic: %w", err))
					return
				}
				t.Fail(fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			t.Fail(err)
			return
		}
		t.Complete(v)
	}()
	return t
}

// Yield returns an awaitable that is never complete when first observed and
// completes on another goroutine, forcing a real suspension.
func Yield() Awaitable {
	t := New()
	go t.MarkComplete()
	return &yield{t: t}
}

type yield struct {
	t *Task
}

// IsCompleted reports false even after completion so the awaiting code suspends.
func (y *yield) IsCompleted() bool     { return false }
func (y *yield) OnCompleted(cb func()) { y.t.OnCompleted(cb) }
func (y *yield) Result() (any, error)  { return y.t.Result() }
