// Package rng implements the deterministic random primitives backing candle
// generation: the xmur3 string hash, the sfc32 uniform generator, and a
// Box-Muller normal sampler. All state mixing uses fixed-width uint32
// arithmetic only, so two processes seeding from equal strings produce
// identical sequences on any platform.
package rng

import "math"

// -----------------------------------------------------------------------------
// xmur3 String Hash
// -----------------------------------------------------------------------------

// NewHashStream returns a generator over a deterministic sequence of 32-bit
// words derived purely from key (xmur3). Equal keys yield equal sequences.
func NewHashStream(key string) func() uint32 {
	h := uint32(1779033703)
	for _, ch := range key {
		h ^= uint32(ch)
		h *= 3432918353
		h = (h << 13) | (h >> 19)
	}

	return func() uint32 {
		h ^= h >> 16
		h *= 2246822507
		h ^= h >> 13
		h *= 3266489909
		h ^= h >> 16
		return h
	}
}

// -----------------------------------------------------------------------------
// sfc32 Uniform PRNG
// -----------------------------------------------------------------------------

// NewUniformGenerator returns an sfc32 generator over uniform float64 values
// in [0,1). Outputs are dyadic rationals (t / 2^32), so equality comparisons
// between runs are exact.
func NewUniformGenerator(a, b, c, d uint32) func() float64 {
	return func() float64 {
		t := a + b
		a = b ^ (b >> 9)
		b = c + (c << 3)
		c = (c << 21) | (c >> 11)
		d++
		t += d
		c += t
		return float64(t) / 4294967296.0
	}
}

// -----------------------------------------------------------------------------

// NewSeededRNG builds a uniform generator from a string seed by draining four
// words from the hash stream into sfc32 state.
func NewSeededRNG(seed string) func() float64 {
	hash := NewHashStream(seed)
	return NewUniformGenerator(hash(), hash(), hash(), hash())
}

// -----------------------------------------------------------------------------
// Normal Sampler
// -----------------------------------------------------------------------------

// Gaussian draws a standard-normal deviate from the uniform generator via the
// Box-Muller transform. Consumes exactly two draws, except that a first draw
// of exactly 0 is resampled from the same stream (log(0) is undefined).
func Gaussian(uniform func() float64) float64 {
	u1 := uniform()
	for u1 == 0 {
		u1 = uniform()
	}
	u2 := uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
