// Package task provides the asynchronous result handle produced by lowered
// procedures and consumed by their suspension points.
//
// A Task is constructible as already-completed (Completed, Failed) or as a
// handle that completes later (New followed by Complete, MarkComplete or Fail).
// Cancellation is a fault: Cancel fails the handle with context.Canceled.
//
//	t := task.New()
//	go func() { t.Complete(42) }()
//	v, err := t.Wait(ctx)
//
// Anything implementing Awaitable can be awaited by a lowered procedure.
package task
