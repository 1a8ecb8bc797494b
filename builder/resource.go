package builder

import (
	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

type usingConstruct struct {
	res    *ir.Variable
	source ir.Node
	async  bool
}

func (c *usingConstruct) Run(body *Scope, fn ResourceFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body, c.res)
}

func (c *usingConstruct) Finish(body ir.Node) (*ir.Block, error) {
	var dispose ir.Node = ir.CallFunc("release", ir.Void, release, c.res)
	if c.async && ir.ContainsAwait(body) {
		dispose = ir.AwaitOf(ir.CallFunc("release", ir.Any, releaseAsync, c.res), ir.Void)
	}
	return ir.NewBlock([]*ir.Variable{c.res},
		ir.Set(c.res, c.source),
		ir.NewTry(body, nil, dispose, nil),
	), nil
}

// Using binds name to the value of resource and releases it when the body
// exits by any path. The value must implement io.Closer or AsyncCloser; a nil
// value is ignored. When the body of an asynchronous procedure suspends, an
// AsyncCloser is released by awaiting CloseAsync.
func (s *Scope) Using(name string, resource ir.Node, fn ResourceFunc) error {
	if err := s.check("using"); err != nil {
		return err
	}
	if resource == nil || resource.Type() == ir.Void {
		return errors.InvalidInput(errors.PhaseConstruct, "using needs a resource value")
	}
	c := &usingConstruct{
		res:    ir.NewVariable(name, resource.Type()),
		source: resource,
		async:  s.tmpl.sig.Async,
	}
	_, err := assemble[*ir.Block, ResourceFunc](s, "using", c, fn)
	return err
}

type lockConstruct struct {
	lock   *ir.Variable
	source ir.Node
	// await acquires and releases through task.Mutex with a suspension point.
	await bool
}

func (c *lockConstruct) Run(body *Scope, fn BodyFunc) error {
	if fn == nil {
		return nil
	}
	return fn(body)
}

func (c *lockConstruct) Finish(body ir.Node) (*ir.Block, error) {
	enter := ir.Node(ir.CallFunc("lock", ir.Void, lock, c.lock))
	if c.await {
		enter = ir.AwaitOf(ir.CallFunc("acquire", ir.Task, acquire, c.lock), ir.Void)
	} else if ir.ContainsAwait(body) {
		return nil, errors.SuspendInLock()
	}
	return ir.NewBlock([]*ir.Variable{c.lock},
		ir.Set(c.lock, c.source),
		enter,
		ir.NewTry(body, nil, ir.CallFunc("unlock", ir.Void, unlock, c.lock), nil),
	), nil
}

// Lock holds locker for the duration of the body. A sync.Locker body must not
// suspend; a locker typed AsyncLocker is handled as AsyncLock.
func (s *Scope) Lock(locker ir.Node, fn BodyFunc) error {
	if locker != nil && locker.Type() == ir.AsyncLocker {
		return s.AsyncLock(locker, fn)
	}
	if err := s.check("lock"); err != nil {
		return err
	}
	if locker == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "lock needs a locker")
	}
	c := &lockConstruct{lock: ir.NewVariable("lock", locker.Type()), source: locker}
	_, err := assemble[*ir.Block, BodyFunc](s, "lock", c, fn)
	return err
}

// AsyncLock holds a *task.Mutex for the duration of the body, which may
// suspend. In asynchronous procedures acquisition is itself a suspension
// point; synchronous procedures block until the mutex is acquired.
func (s *Scope) AsyncLock(mutex ir.Node, fn BodyFunc) error {
	if err := s.check("async lock"); err != nil {
		return err
	}
	if mutex == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "async lock needs a mutex")
	}
	c := &lockConstruct{
		lock:   ir.NewVariable("mutex", mutex.Type()),
		source: mutex,
		await:  s.tmpl.sig.Async,
	}
	_, err := assemble[*ir.Block, BodyFunc](s, "async lock", c, fn)
	return err
}
