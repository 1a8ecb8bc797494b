package ir

// StateMachine is the lowered form of an asynchronous procedure body.
//
// Evaluating it starts a fresh machine instance in the current frame and
// yields the instance's Task. The instance dispatches on the value stored in
// StateVar; state 0 is the entry state and End completes the handle.
type StateMachine struct {
	Name     string
	States   []*State
	Regions  []*Region
	Labels   map[*Target]int
	StateVar *Variable
	Result   *Variable
	End      int
	Pooled   bool
}

func (n *StateMachine) Kind() NodeKind { return KindStateMachine }
func (n *StateMachine) Type() Type     { return Task }

// NoRegion marks a state outside every protected region.
const NoRegion = -1

// State is a contiguous run of statements that never suspend, ended by a
// terminator.
type State struct {
	ID     int
	Body   []Node
	Term   Terminator
	Region int
}

// RegionKind distinguishes guarded code from handler bodies.
type RegionKind uint8

const (
	// RegionProtected guards its states with Catches or with a Finally/Fault handler.
	RegionProtected RegionKind = iota
	// RegionHandler contains the states of a finally or fault handler body.
	RegionHandler
)

func (k RegionKind) String() string {
	if k == RegionHandler {
		return "handler"
	}
	return "protected"
}

// Region is one entry of the machine's exception table. A protected region
// has either catches or a finally/fault handler, never both; a try with both
// lowers to two nested regions.
type Region struct {
	ID      int
	Kind    RegionKind
	Parent  int
	Catches []Handler
	Finally int
	Fault   int
	// Owner is the protected region whose handler body this is.
	Owner int
}

// Handler is a catch clause whose body starts at state Entry.
type Handler struct {
	Var    *Variable
	Match  Matcher
	Filter Node
	Entry  int
}

// Terminator ends a state.
type Terminator interface {
	terminator()
}

// JumpTo transfers to state To, running finally handlers of every region left.
type JumpTo struct {
	To int
}

// Branch transfers to Then or Else depending on Test.
type Branch struct {
	Test Node
	Then int
	Else int
}

// JumpCase is one arm of a SwitchTo.
type JumpCase struct {
	Tests []Node
	To    int
}

// SwitchTo compares Value with each case's tests in order.
type SwitchTo struct {
	Value   Node
	Cases   []JumpCase
	Default int
}

// Suspend waits on the awaitable held in Awaiter and resumes at Resume. When
// the awaitable has already completed the machine continues without
// suspending.
type Suspend struct {
	Awaiter *Variable
	Resume  int
}

// EndFinally closes the handler body of region Region and resumes the pending
// action: a jump, or the propagation of a fault.
type EndFinally struct {
	Region int
}

// Done completes the machine's handle.
type Done struct{}

func (*JumpTo) terminator()     {}
func (*Branch) terminator()     {}
func (*SwitchTo) terminator()   {}
func (*Suspend) terminator()    {}
func (*EndFinally) terminator() {}
func (*Done) terminator()       {}

// AwaitResult reads the outcome of the awaitable stored in Awaiter after the
// machine resumed. A faulted awaitable raises its fault here.
type AwaitResult struct {
	Awaiter *Variable
	T       Type
}

func (n *AwaitResult) Kind() NodeKind { return KindAwaitResult }
func (n *AwaitResult) Type() Type     { return n.T }

// MarkComplete records that a void machine has produced its result.
type MarkComplete struct{}

func (n *MarkComplete) Kind() NodeKind { return KindMarkComplete }
func (n *MarkComplete) Type() Type     { return Void }
