package engine

import (
	"reflect"
	"testing"
)

func TestBitSet_SetHas(t *testing.T) {
	b := NewBitSet(100)

	if b.Has(42) {
		t.Error("new bitset should not have 42")
	}
	b.Set(42)
	if !b.Has(42) {
		t.Error("bitset should have 42 after Set")
	}
	if b.Has(-1) {
		t.Error("negative ids are never members")
	}
}

func TestBitSet_GrowsAutomatically(t *testing.T) {
	b := NewBitSet(10)

	b.Set(200)
	if !b.Has(200) {
		t.Error("bitset should have 200 after grow")
	}
	b.Set(5)
	if !b.Has(5) {
		t.Error("bitset should have 5")
	}
	if b.Has(1000) {
		t.Error("ids past the end are not members")
	}
}

func TestBitSet_CountSlice(t *testing.T) {
	b := NewBitSet(0)
	for _, id := range []int{130, 3, 64, 3, 0} {
		b.Set(id)
	}
	if got := b.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	if got, want := b.Slice(), []int{0, 3, 64, 130}; !reflect.DeepEqual(got, want) {
		t.Errorf("Slice() = %v, want %v", got, want)
	}
}
