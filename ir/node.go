package ir

import (
	"context"
	"fmt"
	"sync/atomic"
)

// NodeKind tags the shape of a node.
type NodeKind uint8

const (
	KindConst NodeKind = iota
	KindDefault
	KindVariable
	KindAssign
	KindBlock
	KindNop
	KindCond
	KindLoop
	KindLabel
	KindGoto
	KindReturn
	KindSwitch
	KindTry
	KindThrow
	KindCall
	KindInvoke
	KindLambda
	KindBinary
	KindUnary
	KindAwait
	KindAsyncResult
	KindStateMachine
	KindAwaitResult
	KindMarkComplete
)

var kindNames = [...]string{
	KindConst:        "const",
	KindDefault:      "default",
	KindVariable:     "var",
	KindAssign:       "assign",
	KindBlock:        "block",
	KindNop:          "nop",
	KindCond:         "cond",
	KindLoop:         "loop",
	KindLabel:        "label",
	KindGoto:         "goto",
	KindReturn:       "return",
	KindSwitch:       "switch",
	KindTry:          "try",
	KindThrow:        "throw",
	KindCall:         "call",
	KindInvoke:       "invoke",
	KindLambda:       "lambda",
	KindBinary:       "binary",
	KindUnary:        "unary",
	KindAwait:        "await",
	KindAsyncResult:  "async-result",
	KindStateMachine: "state-machine",
	KindAwaitResult:  "await-result",
	KindMarkComplete: "mark-complete",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Node is an immutable IR node.
type Node interface {
	// Kind returns the node's shape tag.
	Kind() NodeKind
	// Type returns the static result type, Void for statements.
	Type() Type
}

// Callable is a materialized procedure value.
type Callable interface {
	Invoke(ctx context.Context, args ...any) (any, error)
}

// GoFunc is a Go function reachable from IR through Call.
// Returning an error raises a fault at the call site.
type GoFunc func(ctx context.Context, args []any) (any, error)

// Const is a literal value.
type Const struct {
	Value any
	T     Type
}

func (n *Const) Kind() NodeKind { return KindConst }
func (n *Const) Type() Type     { return n.T }

// Value returns a constant of type t.
func Value(v any, t Type) *Const { return &Const{Value: NormalizeConst(v), T: t} }

// Constant returns a constant whose type is inferred from v.
func Constant(v any) *Const { return Value(v, TypeOf(v)) }

// IntLit, FloatLit, BoolLit and StrLit return typed literal constants.
func IntLit(v int64) *Const     { return &Const{Value: v, T: Int} }
func FloatLit(v float64) *Const { return &Const{Value: v, T: Float} }
func BoolLit(v bool) *Const     { return &Const{Value: v, T: Bool} }
func StrLit(v string) *Const    { return &Const{Value: v, T: String} }

// Default is the zero value of a type.
type Default struct {
	T Type
}

func (n *Default) Kind() NodeKind { return KindDefault }
func (n *Default) Type() Type     { return n.T }

// Zero returns the default value node for t.
func Zero(t Type) *Default { return &Default{T: t} }

// Variable is a named storage slot. Identity is the pointer; names are for
// humans and need not be unique.
type Variable struct {
	Name string
	T    Type
}

func (n *Variable) Kind() NodeKind { return KindVariable }
func (n *Variable) Type() Type     { return n.T }

// NewVariable declares a variable node.
func NewVariable(name string, t Type) *Variable { return &Variable{Name: name, T: t} }

// Assign stores Value into Target and yields the stored value.
type Assign struct {
	Target *Variable
	Value  Node
}

func (n *Assign) Kind() NodeKind { return KindAssign }
func (n *Assign) Type() Type     { return n.Target.T }

// Set returns an assignment node.
func Set(v *Variable, value Node) *Assign { return &Assign{Target: v, Value: value} }

// Block evaluates Body in order with Vars freshly bound to their zero values.
// Its value is the value of the last statement.
type Block struct {
	Vars []*Variable
	Body []Node
}

func (n *Block) Kind() NodeKind { return KindBlock }
func (n *Block) Type() Type {
	if len(n.Body) == 0 {
		return Void
	}
	return n.Body[len(n.Body)-1].Type()
}

// NewBlock returns a block with the given locals and statements.
func NewBlock(vars []*Variable, body ...Node) *Block { return &Block{Vars: vars, Body: body} }

// Seq returns a block without locals.
func Seq(body ...Node) *Block { return &Block{Body: body} }

// Nop is the empty statement.
type Nop struct{}

func (n *Nop) Kind() NodeKind { return KindNop }
func (n *Nop) Type() Type     { return Void }

var empty = &Nop{}

// Empty returns the empty statement.
func Empty() *Nop { return empty }

// Call invokes a Go function.
type Call struct {
	Name string
	Fn   GoFunc
	Args []Node
	T    Type
}

func (n *Call) Kind() NodeKind { return KindCall }
func (n *Call) Type() Type     { return n.T }

// CallFunc returns a call node with result type t.
func CallFunc(name string, t Type, fn GoFunc, args ...Node) *Call {
	return &Call{Name: name, Fn: fn, Args: args, T: t}
}

// Invoke calls a procedure value produced by Proc.
type Invoke struct {
	Proc Node
	Args []Node
	T    Type
}

func (n *Invoke) Kind() NodeKind { return KindInvoke }
func (n *Invoke) Type() Type     { return n.T }

// InvokeProc returns an invocation node with result type t.
func InvokeProc(proc Node, t Type, args ...Node) *Invoke {
	return &Invoke{Proc: proc, Args: args, T: t}
}

// Lambda is a procedure literal. Evaluating it captures the defining frame.
// An asynchronous lambda's body produces a Task.
type Lambda struct {
	Name   string
	Params []*Variable
	Body   Node
	Result Type
	Async  bool
}

func (n *Lambda) Kind() NodeKind { return KindLambda }
func (n *Lambda) Type() Type     { return Func }

// BinaryOp is a binary operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Comparison reports whether op yields a bool from ordered or equal operands.
func (op BinaryOp) Comparison() bool { return op >= OpEq && op <= OpGe }

// Logical reports whether op is a short-circuit operator.
func (op BinaryOp) Logical() bool { return op == OpAnd || op == OpOr }

// Binary applies Op to L and R. OpAnd and OpOr short-circuit.
type Binary struct {
	Op BinaryOp
	L  Node
	R  Node
}

func (n *Binary) Kind() NodeKind { return KindBinary }
func (n *Binary) Type() Type {
	switch {
	case n.Op.Comparison(), n.Op.Logical():
		return Bool
	case n.L.Type() == Float || n.R.Type() == Float:
		return Float
	default:
		return n.L.Type()
	}
}

func Add(l, r Node) *Binary { return &Binary{Op: OpAdd, L: l, R: r} }
func Sub(l, r Node) *Binary { return &Binary{Op: OpSub, L: l, R: r} }
func Mul(l, r Node) *Binary { return &Binary{Op: OpMul, L: l, R: r} }
func Div(l, r Node) *Binary { return &Binary{Op: OpDiv, L: l, R: r} }
func Mod(l, r Node) *Binary { return &Binary{Op: OpMod, L: l, R: r} }
func Eq(l, r Node) *Binary  { return &Binary{Op: OpEq, L: l, R: r} }
func Ne(l, r Node) *Binary  { return &Binary{Op: OpNe, L: l, R: r} }
func Lt(l, r Node) *Binary  { return &Binary{Op: OpLt, L: l, R: r} }
func Le(l, r Node) *Binary  { return &Binary{Op: OpLe, L: l, R: r} }
func Gt(l, r Node) *Binary  { return &Binary{Op: OpGt, L: l, R: r} }
func Ge(l, r Node) *Binary  { return &Binary{Op: OpGe, L: l, R: r} }
func And(l, r Node) *Binary { return &Binary{Op: OpAnd, L: l, R: r} }
func Or(l, r Node) *Binary  { return &Binary{Op: OpOr, L: l, R: r} }

// UnaryOp is a unary operator.
type UnaryOp uint8

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "!"
	}
	return "-"
}

// Unary applies Op to X.
type Unary struct {
	Op UnaryOp
	X  Node
}

func (n *Unary) Kind() NodeKind { return KindUnary }
func (n *Unary) Type() Type {
	if n.Op == OpNot {
		return Bool
	}
	return n.X.Type()
}

func Not(x Node) *Unary { return &Unary{Op: OpNot, X: x} }
func Neg(x Node) *Unary { return &Unary{Op: OpNeg, X: x} }

// Target is an opaque jump target identifier. It is minted before the node
// that owns it exists and bound into that node when it is finalized.
type Target struct {
	Name string
	ID   uint64
}

var targetSeq atomic.Uint64

// NewTarget mints a fresh jump target.
func NewTarget(name string) *Target {
	return &Target{Name: name, ID: targetSeq.Add(1)}
}

func (t *Target) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", t.Name, t.ID)
}
