package engine

import "hash/fnv"

// RNG is a deterministic xorshift64 generator seeded from a string.
// The same seed always produces the same sequence, independent of
// platform or call site, so shuffles are replayable from the round seed.
type RNG struct {
	state uint64
}

// NewRNG derives the generator state from the seed string via FNV-1a.
func NewRNG(seed string) *RNG {
	h := fnv.New64a()
	h.Write([]byte(seed))
	s := h.Sum64()
	if s == 0 {
		s = 1 // xorshift can't start at 0
	}
	return &RNG{state: s}
}

func (r *RNG) next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.state = x
	return x
}

// Float64 returns the next value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.next()>>11) / float64(1<<53)
}
