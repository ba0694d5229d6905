// Package rng isolates the randomness used by the ARG builder and the
// spatial propagator behind a single injectable source.
//
// Production code uses [New] (a seeded PCG from math/rand/v2); tests inject
// scripted sources to make stochastic paths deterministic.
package rng

import (
	"math/rand/v2"
	"time"
)

// Source is the random source consumed by the simulation packages.
// *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
	// ExpFloat64 returns an exponentially distributed value with rate 1.
	ExpFloat64() float64
	// NormFloat64 returns a standard normal value.
	NormFloat64() float64
}

// New returns a deterministic source for the given seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// NewRandom returns a source seeded from the clock, along with the seed so
// callers can log or reproduce the run.
func NewRandom() (*rand.Rand, uint64) {
	seed := uint64(time.Now().UnixNano())
	return New(seed), seed
}

// Uniform returns a value uniformly distributed in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Sample draws k distinct indices from [0, n) in draw order.
// It panics if k > n.
func Sample(src Source, n, k int) []int {
	if k > n {
		panic("rng: sample larger than population")
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
		out[i] = pool[i]
	}
	return out
}
