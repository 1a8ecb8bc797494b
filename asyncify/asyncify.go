package asyncify

import (
	"go.uber.org/zap"

	"github.com/wippyai/irflow/asyncify/internal/engine"
	"github.com/wippyai/irflow/ir"
)

// CallMatcher determines if a Go call produces an awaitable.
//
// When a call matches, the procedure waits on the call's result as if the
// call were wrapped in an explicit suspension point.
type CallMatcher = engine.CallMatcher

// Config configures the lowering of asynchronous procedures.
type Config struct {
	Matcher CallMatcher
	// Result is the variable that holds the procedure's value. When nil a
	// fresh slot is created for value-bearing procedures that suspend.
	Result     *ir.Variable
	AsyncCalls []string
	Pooled     bool
}

// Transform lowers an asynchronous procedure literal.
//
// A body without suspension points keeps its shape; each completion returns
// an already-completed Task and faults produce a failed Task. A body that
// suspends is rewritten into a state machine whose states run between
// suspension points.
//
// Synchronous procedures are returned unchanged after verifying that they
// never suspend.
func Transform(l *ir.Lambda, cfg Config) (*ir.Lambda, error) {
	matcher := cfg.Matcher
	if len(cfg.AsyncCalls) > 0 {
		matcher = &asyncCallMatcher{
			patterns: NewWildcardMatcher(cfg.AsyncCalls),
			fallback: cfg.Matcher,
		}
	}

	eng := engine.New(engine.Config{
		Matcher: matcher,
		Result:  cfg.Result,
		Pooled:  cfg.Pooled,
	})
	return eng.Transform(l)
}

// IsAsyncified reports whether l is the lowered form of an asynchronous
// procedure.
func IsAsyncified(l *ir.Lambda) bool {
	if l == nil || !l.Async {
		return false
	}
	b, ok := l.Body.(*ir.Block)
	if !ok || len(b.Body) != 1 {
		return false
	}
	switch n := b.Body[0].(type) {
	case *ir.StateMachine:
		return true
	case *ir.Try:
		return n.T == ir.Task && !ir.ContainsAwait(n)
	}
	return false
}

// SetLogger configures the logger used while lowering.
func SetLogger(l *zap.Logger) {
	engine.SetLogger(l)
}

// asyncCallMatcher matches calls against configured patterns, then the
// fallback matcher.
type asyncCallMatcher struct {
	fallback CallMatcher
	patterns *WildcardMatcher
}

func (m *asyncCallMatcher) Match(name string) bool {
	if m.patterns.Match(name) {
		return true
	}
	if m.fallback != nil {
		return m.fallback.Match(name)
	}
	return false
}
