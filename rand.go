package lazylist

import (
	"sync/atomic"
	"time"
)

const defaultSeed = uint64(0xdeadbeefcafebabe)

func newRandomSeed() uint64 {
	seed := uint64(time.Now().UnixNano())
	if seed == 0 {
		seed = defaultSeed
	}
	return seed
}

// RNG is a lock-free xorshift generator shared by many goroutines.
type RNG struct {
	seed atomic.Uint64
}

func newRNG() *RNG {
	return newRNGWithSeed(newRandomSeed())
}

func newRNGWithSeed(seed uint64) *RNG {
	r := &RNG{}
	if seed == 0 {
		seed = defaultSeed
	}
	r.seed.Store(seed)
	return r
}

func (r *RNG) nextRandom64() uint64 {
	for {
		current := r.seed.Load()
		x := current
		x ^= x >> 12
		x ^= x << 25
		x ^= x >> 27
		if x == 0 {
			x = defaultSeed
		}
		if r.seed.CompareAndSwap(current, x) {
			return x * 2685821657736338717
		}
	}
}
