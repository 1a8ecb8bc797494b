// Package asyncify lowers asynchronous procedure literals.
//
// # Overview
//
// An asynchronous procedure returns a [task.Task] and may suspend at await
// points. Lowering rewrites the procedure so that it can be executed by an
// evaluator that knows nothing about suspension: every await becomes a
// Suspend terminator of a state machine, and the code between two
// suspension points becomes one state.
//
// # How It Works
//
// The pass runs in four steps:
//
//  1. Calls accepted by the configured CallMatcher are wrapped in awaits
//  2. Catch filters are checked for suspension points, which are rejected
//  3. The body gets a completion epilogue so every path produces a result
//  4. Bodies that never suspend keep their shape and return completed or
//     failed tasks; all others are partitioned into a state machine
//
// Protected regions of the machine form an exception table. Each try lowers
// into up to three nested regions (catches, fault handler, finally handler),
// and finally or fault bodies live in handler regions that end with an
// EndFinally terminator resuming the pending jump or fault.
//
// State machine (per instance):
//
//	entry (0) --suspend--> waiting --resumed--> state N ... --> end --> done
//
// # Usage
//
// Lowering with explicit call patterns:
//
//	lowered, err := asyncify.Transform(lambda, asyncify.Config{
//	    AsyncCalls: []string{"net.fetch", "timer.*"},
//	    Pooled:     true,
//	})
//
// Combining matchers:
//
//	matcher := asyncify.NewCompositeMatcher(
//	    asyncify.NewExactMatcher([]string{"db.query"}),
//	    asyncify.NewPrefixMatcher([]string{"rpc."}),
//	)
//	lowered, err := asyncify.Transform(lambda, asyncify.Config{Matcher: matcher})
package asyncify
