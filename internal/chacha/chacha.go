// Package chacha implements the ChaCha8 block generator used to derive
// reproducible per-batch search streams.
//
// The stream layout follows the widely deployed rand_chacha generator: a
// 256-bit key, a 64-bit block counter in words 12-13, a zero 64-bit stream id
// in words 14-15, and output buffered four blocks at a time. Seeding from a
// 64-bit value expands it through PCG32, so a given seed yields the same
// words in every conforming implementation.
package chacha

import (
	"encoding/binary"
	"math/bits"
)

const (
	rounds      = 8
	blockWords  = 16
	bufBlocks   = 4
	bufferWords = blockWords * bufBlocks

	// SeedSize is the key length in bytes.
	SeedSize = 32

	pcgMul = 6364136223846793005
	pcgInc = 11634580027462260723
)

// Rng is a deterministic ChaCha8 generator. It is not safe for concurrent use.
type Rng struct {
	key     [8]uint32
	counter uint64
	buf     [bufferWords]uint32
	index   int
}

// New returns a generator keyed by seed.
func New(seed [SeedSize]byte) *Rng {
	r := &Rng{index: bufferWords}
	for i := range r.key {
		r.key[i] = binary.LittleEndian.Uint32(seed[i*4:])
	}
	return r
}

// FromUint64 expands a 64-bit seed into a full key with PCG32 and returns the
// keyed generator.
func FromUint64(state uint64) *Rng {
	var seed [SeedSize]byte
	for i := 0; i < SeedSize; i += 4 {
		state = state*pcgMul + pcgInc
		xorshifted := uint32(((state >> 18) ^ state) >> 27)
		rot := int(state >> 59)
		binary.LittleEndian.PutUint32(seed[i:], bits.RotateLeft32(xorshifted, -rot))
	}
	return New(seed)
}

// Uint32 returns the next 32-bit output word.
func (r *Rng) Uint32() uint32 {
	if r.index >= bufferWords {
		r.refill()
		r.index = 0
	}
	v := r.buf[r.index]
	r.index++
	return v
}

// Uint64 returns the next two output words, low word first.
func (r *Rng) Uint64() uint64 {
	switch {
	case r.index < bufferWords-1:
		lo, hi := r.buf[r.index], r.buf[r.index+1]
		r.index += 2
		return uint64(hi)<<32 | uint64(lo)
	case r.index >= bufferWords:
		r.refill()
		r.index = 2
		return uint64(r.buf[1])<<32 | uint64(r.buf[0])
	default:
		lo := r.buf[bufferWords-1]
		r.refill()
		r.index = 1
		return uint64(r.buf[0])<<32 | uint64(lo)
	}
}

// Read fills p with output words in little-endian order.
func (r *Rng) Read(p []byte) (int, error) {
	var word [4]byte
	n := 0
	for n < len(p) {
		binary.LittleEndian.PutUint32(word[:], r.Uint32())
		n += copy(p[n:], word[:])
	}
	return n, nil
}

func (r *Rng) refill() {
	for b := 0; b < bufBlocks; b++ {
		block(&r.key, r.counter, (*[blockWords]uint32)(r.buf[b*blockWords:]))
		r.counter++
	}
}

func block(key *[8]uint32, counter uint64, out *[blockWords]uint32) {
	in := [blockWords]uint32{
		0x61707865, 0x3320646e, 0x79622d32, 0x6b206574,
		key[0], key[1], key[2], key[3],
		key[4], key[5], key[6], key[7],
		uint32(counter), uint32(counter >> 32), 0, 0,
	}
	x := in
	for i := 0; i < rounds; i += 2 {
		quarterRound(&x, 0, 4, 8, 12)
		quarterRound(&x, 1, 5, 9, 13)
		quarterRound(&x, 2, 6, 10, 14)
		quarterRound(&x, 3, 7, 11, 15)
		quarterRound(&x, 0, 5, 10, 15)
		quarterRound(&x, 1, 6, 11, 12)
		quarterRound(&x, 2, 7, 8, 13)
		quarterRound(&x, 3, 4, 9, 14)
	}
	for i := range out {
		out[i] = x[i] + in[i]
	}
}

func quarterRound(x *[blockWords]uint32, a, b, c, d int) {
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 16)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 12)
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 8)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 7)
}
