package engine

import "math/bits"

// BitSet is a compact set of state ids.
type BitSet struct {
	bits []uint64
}

// NewBitSet creates a BitSet sized for ids below n.
func NewBitSet(n int) *BitSet {
	return &BitSet{bits: make([]uint64, (n+63)/64)}
}

// Set adds id to the set.
func (b *BitSet) Set(id int) {
	word := id / 64
	if word >= len(b.bits) {
		b.grow(word + 1)
	}
	b.bits[word] |= 1 << (uint(id) % 64)
}

// Has reports whether id is in the set.
func (b *BitSet) Has(id int) bool {
	word := id / 64
	if id < 0 || word >= len(b.bits) {
		return false
	}
	return b.bits[word]&(1<<(uint(id)%64)) != 0
}

// Count returns the number of ids in the set.
func (b *BitSet) Count() int {
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Slice returns the ids in ascending order.
func (b *BitSet) Slice() []int {
	var out []int
	for i, w := range b.bits {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, i*64+bit)
			w &= w - 1
		}
	}
	return out
}

func (b *BitSet) grow(n int) {
	grown := make([]uint64, n)
	copy(grown, b.bits)
	b.bits = grown
}
