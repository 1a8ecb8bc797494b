// Package engine implements the lowering of asynchronous procedures.
//
// Lowering pipeline:
//  1. Wrap matched calls in suspension points
//  2. Append the completion epilogue
//  3. Rewrite completions in place, or flatten the body into states
//  4. Compute the state graph for diagnostics
package engine
