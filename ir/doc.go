// Package ir defines the typed, immutable tree that procedures are built into.
//
// Every node reports a NodeKind and a static result Type. Statements type as
// Void; a Block types as its last statement. Jump targets are minted before
// the construct that owns them exists and are bound into it when the
// construct is finished.
//
// # Suspension
//
// Await marks a suspension point and AsyncResult completes an asynchronous
// procedure. Lowering replaces both with a StateMachine: states ended by
// terminators, a region table for catch/finally/fault handling, and a single
// end state that completes the procedure's handle.
//
// # Utilities
//
//   - Children, Walk and Rewrite traverse a tree without entering lambdas
//   - Analysis memoises which subtrees contain a suspension point
//   - Dump prints a tree deterministically for diffs and golden files
package ir
