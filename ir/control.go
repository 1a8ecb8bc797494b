package ir

// Cond evaluates Then when Test is true, otherwise Else (which may be nil).
type Cond struct {
	Test Node
	Then Node
	Else Node
	T    Type
}

func (n *Cond) Kind() NodeKind { return KindCond }
func (n *Cond) Type() Type     { return n.T }

// If returns a conditional. It is value-producing only when both branches
// exist and agree on their type.
func If(test, then, els Node) *Cond {
	t := Void
	if els != nil && then.Type() == els.Type() {
		t = then.Type()
	}
	return &Cond{Test: test, Then: then, Else: els, T: t}
}

// Loop repeats Body until a jump to Break. A jump to Continue restarts the
// body. Either target may be nil when the body never references it.
type Loop struct {
	Body     Node
	Break    *Target
	Continue *Target
}

func (n *Loop) Kind() NodeKind { return KindLoop }
func (n *Loop) Type() Type     { return Void }

// Label places Target at this position of the enclosing block.
type Label struct {
	Target *Target
}

func (n *Label) Kind() NodeKind { return KindLabel }
func (n *Label) Type() Type     { return Void }

// Mark returns a label statement for t.
func Mark(t *Target) *Label { return &Label{Target: t} }

// Goto transfers control to Target.
type Goto struct {
	Target *Target
}

func (n *Goto) Kind() NodeKind { return KindGoto }
func (n *Goto) Type() Type     { return Void }

// Jump returns a goto node.
func Jump(t *Target) *Goto { return &Goto{Target: t} }

// Return leaves the enclosing synchronous procedure with Value (nil for none).
type Return struct {
	Value Node
}

func (n *Return) Kind() NodeKind { return KindReturn }
func (n *Return) Type() Type     { return Void }

// Case is one arm of a Switch.
type Case struct {
	Tests []Node
	Body  Node
}

// Switch compares Value against each case's tests in declaration order; the
// first match wins. Without a match Default runs, or nothing.
type Switch struct {
	Value   Node
	Cases   []Case
	Default Node
	T       Type
}

func (n *Switch) Kind() NodeKind { return KindSwitch }
func (n *Switch) Type() Type     { return n.T }

// NewSwitch returns a switch. It is value-producing only when a default exists
// and every arm agrees on the type.
func NewSwitch(value Node, cases []Case, def Node) *Switch {
	t := Void
	if def != nil {
		t = def.Type()
		for _, c := range cases {
			if c.Body.Type() != t {
				t = Void
				break
			}
		}
	}
	return &Switch{Value: value, Cases: cases, Default: def, T: t}
}

// Matcher decides whether a catch clause applies to a fault. A nil Matcher
// catches everything.
type Matcher func(err error) bool

// Catch is one handler of a Try.
type Catch struct {
	Var    *Variable
	Match  Matcher
	Filter Node
	Body   Node
}

// Try guards Body. Catches are tried in order; Filter gates a catch that
// matched. Finally runs on every exit path. Fault runs only when a fault
// leaves the guarded region.
type Try struct {
	Body    Node
	Catches []Catch
	Finally Node
	Fault   Node
	T       Type
}

func (n *Try) Kind() NodeKind { return KindTry }
func (n *Try) Type() Type     { return n.T }

// NewTry returns a try node. It is value-producing when every catch body
// agrees with the body's type.
func NewTry(body Node, catches []Catch, finally, fault Node) *Try {
	t := body.Type()
	for _, c := range catches {
		if c.Body.Type() != t {
			t = Void
			break
		}
	}
	return &Try{Body: body, Catches: catches, Finally: finally, Fault: fault, T: t}
}

// Throw raises the error produced by Value.
type Throw struct {
	Value Node
}

func (n *Throw) Kind() NodeKind { return KindThrow }
func (n *Throw) Type() Type     { return Void }

// Raise returns a throw node.
func Raise(v Node) *Throw { return &Throw{Value: v} }

// Await is a suspension point: it waits for the awaitable produced by Value
// and yields its result of type T.
type Await struct {
	Value Node
	T     Type
}

func (n *Await) Kind() NodeKind { return KindAwait }
func (n *Await) Type() Type     { return n.T }

// AwaitOf returns a suspension point.
func AwaitOf(v Node, t Type) *Await { return &Await{Value: v, T: t} }

// AsyncResult completes the enclosing asynchronous procedure now with Value,
// or without a value when Value is nil.
type AsyncResult struct {
	Value Node
}

func (n *AsyncResult) Kind() NodeKind { return KindAsyncResult }
func (n *AsyncResult) Type() Type     { return Task }

// Complete returns a suspension-result node.
func Complete(v Node) *AsyncResult { return &AsyncResult{Value: v} }
