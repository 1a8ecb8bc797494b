package ir

// Analysis answers suspension queries about a tree. Results are memoised per
// node, so asking about every subtree of a body costs one traversal.
type Analysis struct {
	await map[Node]bool
}

// NewAnalysis returns an empty analysis cache.
func NewAnalysis() *Analysis {
	return &Analysis{await: make(map[Node]bool)}
}

// HasAwait reports whether n contains a suspension point outside nested
// procedure literals.
func (a *Analysis) HasAwait(n Node) bool {
	if n == nil {
		return false
	}
	if v, ok := a.await[n]; ok {
		return v
	}
	found := false
	switch n.(type) {
	case *Await:
		found = true
	case *Lambda, *StateMachine:
	default:
		for _, c := range Children(n) {
			if a.HasAwait(c) {
				found = true
				// keep going so siblings are memoised too
			}
		}
	}
	a.await[n] = found
	return found
}

// ContainsAwait reports whether n contains a suspension point.
func ContainsAwait(n Node) bool {
	return NewAnalysis().HasAwait(n)
}

// Targets returns every jump target referenced by a Goto in n.
func Targets(n Node) map[*Target]bool {
	out := make(map[*Target]bool)
	Walk(n, func(c Node) bool {
		if g, ok := c.(*Goto); ok {
			out[g.Target] = true
		}
		_, lambda := c.(*Lambda)
		return !lambda
	})
	return out
}
