package search

import (
	"encoding/binary"
	"math/bits"
)

// bitset is a fixed-width set of small integers. Parameter sets and
// used-service sets are both bitsets over a universe fixed per search.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) clone() bitset {
	c := make(bitset, len(b))
	copy(c, b)
	return c
}

// union returns a new set holding b and every element of other.
func (b bitset) union(other bitset) bitset {
	c := b.clone()
	for i, w := range other {
		c[i] |= w
	}
	return c
}

// contains reports whether every element of sub is in b.
func (b bitset) contains(sub bitset) bool {
	for i, w := range sub {
		if w&^b[i] != 0 {
			return false
		}
	}
	return true
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// key returns a string usable as a map key. Equal sets give equal keys.
func (b bitset) key() string {
	buf := make([]byte, 8*len(b))
	for i, w := range b {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return string(buf)
}

// members lists the elements of b in ascending order.
func (b bitset) members() []int {
	var out []int
	for i, w := range b {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, i*64+tz)
			w &= w - 1
		}
	}
	return out
}
