package crypto

import (
	"encoding/binary"

	"github.com/cloudflare/circl/simd/keccakf1600"
	"github.com/ethereum/go-ethereum/common"
)

// Lanes is the number of messages hashed per HasherX4 call.
const Lanes = 4

// X4Enabled reports whether the CPU supports the 4-way Keccak-f[1600]
// permutation.
func X4Enabled() bool {
	return keccakf1600.IsEnabledX4()
}

// HasherX4 derives four CREATE2 addresses with a single 4-way interleaved
// Keccak-f[1600] permutation. An 85-byte message fits in one 136-byte rate
// block, so each hash is exactly one permutation.
type HasherX4 struct {
	perm keccakf1600.StateX4
}

// NewHasherX4 returns a HasherX4.
func NewHasherX4() *HasherX4 {
	return new(HasherX4)
}

// Addresses hashes msgs and stores the resulting addresses in out, lane for
// lane.
func (h *HasherX4) Addresses(msgs *[Lanes]Message, out *[Lanes]common.Address) {
	state := h.perm.Initialize(false)
	clear(state)

	// state[Lanes*word+lane] holds 64-bit word `word` of lane `lane`.
	for lane := range msgs {
		m := &msgs[lane]
		for word := 0; word < 10; word++ {
			state[Lanes*word+lane] = binary.LittleEndian.Uint64(m[word*8:])
		}
		// Bytes 80..84 followed by the Keccak domain byte 0x01.
		state[Lanes*10+lane] = uint64(m[80]) |
			uint64(m[81])<<8 |
			uint64(m[82])<<16 |
			uint64(m[83])<<24 |
			uint64(m[84])<<32 |
			uint64(0x01)<<40
		// Final padding bit at byte 135 of the rate.
		state[Lanes*16+lane] = 0x8000000000000000
	}

	h.perm.Permute()

	// The address is digest bytes 12..31: the high half of word 1 and all
	// of words 2 and 3.
	for lane := range out {
		a := &out[lane]
		binary.LittleEndian.PutUint32(a[0:4], uint32(state[Lanes*1+lane]>>32))
		binary.LittleEndian.PutUint64(a[4:12], state[Lanes*2+lane])
		binary.LittleEndian.PutUint64(a[12:20], state[Lanes*3+lane])
	}
}
