package engine

import (
	"reflect"
	"sort"
	"testing"

	"github.com/wippyai/irflow/ir"
)

func TestBuildStateGraph_Terminators(t *testing.T) {
	aw := ir.NewVariable("aw", ir.Any)
	m := &ir.StateMachine{
		States: []*ir.State{
			{ID: 0, Region: ir.NoRegion, Term: &ir.Branch{Test: ir.BoolLit(true), Then: 2, Else: 3}},
			{ID: 1, Region: ir.NoRegion, Term: &ir.Done{}},
			{ID: 2, Region: ir.NoRegion, Term: &ir.Suspend{Awaiter: aw, Resume: 4}},
			{ID: 3, Region: ir.NoRegion, Term: &ir.SwitchTo{Value: ir.IntLit(1), Cases: []ir.JumpCase{{To: 4}}, Default: 1}},
			{ID: 4, Region: ir.NoRegion, Term: &ir.JumpTo{To: 1}},
			{ID: 5, Region: ir.NoRegion, Term: &ir.JumpTo{To: 1}},
		},
		End: 1,
	}
	g := BuildStateGraph(m)

	tests := []struct {
		state int
		want  []int
	}{
		{0, []int{2, 3}},
		{1, nil},
		{2, []int{4}},
		{3, []int{1, 4}},
		{4, []int{1}},
	}
	for _, tt := range tests {
		got := append([]int(nil), g[tt.state]...)
		sort.Ints(got)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("successors(%d) = %v, want %v", tt.state, got, tt.want)
		}
	}

	reach := g.Reachable(0, len(m.States))
	if reach.Has(5) {
		t.Error("orphan state 5 reported reachable")
	}
	if reach.Count() != 5 {
		t.Errorf("reachable = %v, want 5 states", reach.Slice())
	}
}

func TestBuildStateGraph_EscapingJumps(t *testing.T) {
	target := ir.NewTarget("out")
	m := &ir.StateMachine{
		States: []*ir.State{
			{ID: 0, Region: ir.NoRegion, Body: []ir.Node{ir.If(ir.BoolLit(true), ir.Jump(target), nil)}, Term: &ir.JumpTo{To: 1}},
			{ID: 1, Region: ir.NoRegion, Term: &ir.Done{}},
			{ID: 2, Region: ir.NoRegion, Term: &ir.JumpTo{To: 1}},
		},
		Labels: map[*ir.Target]int{target: 2},
		End:    1,
	}
	reach := BuildStateGraph(m).Reachable(0, len(m.States))
	if !reach.Has(2) {
		t.Error("state reached by an escaping jump should be reachable")
	}
}

func TestWithin(t *testing.T) {
	m := &ir.StateMachine{Regions: []*ir.Region{
		{ID: 0, Parent: ir.NoRegion},
		{ID: 1, Parent: 0},
		{ID: 2, Parent: ir.NoRegion},
	}}
	tests := []struct {
		r, outer int
		want     bool
	}{
		{1, 0, true},
		{0, 0, true},
		{0, 1, false},
		{2, 0, false},
		{ir.NoRegion, 0, false},
	}
	for _, tt := range tests {
		if got := within(m, tt.r, tt.outer); got != tt.want {
			t.Errorf("within(%d, %d) = %v, want %v", tt.r, tt.outer, got, tt.want)
		}
	}
}
