package engine

import (
	"github.com/wippyai/irflow/ir"
)

// StateGraph maps each state to the states control may transfer to next,
// including handler entries reached by faults and jumps resolved at run time.
type StateGraph map[int][]int

// BuildStateGraph computes the transfer edges of a lowered machine.
func BuildStateGraph(m *ir.StateMachine) StateGraph {
	g := make(StateGraph)
	// exits collects, per region, the destinations of transfers leaving it.
	// EndFinally resumes one of them.
	exits := make(map[int][]int)

	regionOf := func(id int) int { return m.States[id].Region }
	add := func(from, to int) {
		g[from] = appendUnique(g[from], to)
		target := regionOf(to)
		for r := regionOf(from); r != ir.NoRegion && !within(m, target, r); r = m.Regions[r].Parent {
			exits[r] = appendUnique(exits[r], to)
		}
	}

	for _, s := range m.States {
		for _, to := range successors(s.Term) {
			add(s.ID, to)
		}
		for _, n := range s.Body {
			for t := range ir.Targets(n) {
				if to, ok := m.Labels[t]; ok {
					add(s.ID, to)
				}
			}
		}
		for r := s.Region; r != ir.NoRegion; r = m.Regions[r].Parent {
			reg := m.Regions[r]
			for _, h := range reg.Catches {
				g[s.ID] = appendUnique(g[s.ID], h.Entry)
			}
			if reg.Finally >= 0 {
				g[s.ID] = appendUnique(g[s.ID], reg.Finally)
			}
			if reg.Fault >= 0 {
				g[s.ID] = appendUnique(g[s.ID], reg.Fault)
			}
		}
	}

	// Fixed-point: a finally body resumes an exit of its owner, which may in
	// turn leave enclosing regions.
	changed := true
	for changed {
		changed = false
		for _, s := range m.States {
			ef, ok := s.Term.(*ir.EndFinally)
			if !ok {
				continue
			}
			for _, to := range exits[ef.Region] {
				before := len(g[s.ID])
				add(s.ID, to)
				if len(g[s.ID]) != before {
					changed = true
				}
			}
		}
	}
	return g
}

// Reachable returns the states reachable from entry.
func (g StateGraph) Reachable(entry, size int) *BitSet {
	seen := NewBitSet(size)
	work := []int{entry}
	seen.Set(entry)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		for _, next := range g[id] {
			if !seen.Has(next) {
				seen.Set(next)
				work = append(work, next)
			}
		}
	}
	return seen
}

func successors(t ir.Terminator) []int {
	switch t := t.(type) {
	case *ir.JumpTo:
		return []int{t.To}
	case *ir.Branch:
		return []int{t.Then, t.Else}
	case *ir.SwitchTo:
		out := []int{t.Default}
		for _, c := range t.Cases {
			out = append(out, c.To)
		}
		return out
	case *ir.Suspend:
		return []int{t.Resume}
	default:
		return nil
	}
}

// within reports whether region r is outer or nested inside it.
func within(m *ir.StateMachine, r, outer int) bool {
	for ; r != ir.NoRegion; r = m.Regions[r].Parent {
		if r == outer {
			return true
		}
	}
	return false
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
