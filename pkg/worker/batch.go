package worker

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/screa/salty/internal/chacha"
	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
)

// useX4 selects the 4-way hashing path. Both paths produce identical results.
var useX4 = crypto.X4Enabled()

// StartingPoint derives the salt segment and first nonce of a batch. The
// generator is seeded with seed XOR workerID so that worker ids and seeds mix
// without carries.
func StartingPoint(seed uint64, workerID uint32) ([crypto.SegmentLen]byte, uint64) {
	rng := chacha.FromUint64(seed ^ uint64(workerID))
	var segment [crypto.SegmentLen]byte
	for i := range segment {
		segment[i] = byte(rng.Uint32())
	}
	return segment, rng.Uint64()
}

// RunBatch hashes batchSize consecutive candidates from the stream selected by
// seed and workerID and returns every match along with the number of
// attempts made. Nonces wrap modulo 2^64. The result depends only on the
// arguments.
func RunBatch(cfg *types.MinerConfig, seed uint64, workerID uint32, batchSize uint32) ([]types.FoundResult, uint32) {
	segment, start := StartingPoint(seed, workerID)
	return runBatch(cfg, segment, start, batchSize)
}

// runBatch hashes nonces start, start+1, ... (mod 2^64) under segment.
func runBatch(cfg *types.MinerConfig, segment [crypto.SegmentLen]byte, start uint64, batchSize uint32) ([]types.FoundResult, uint32) {
	pattern := cfg.Pattern[:cfg.PatternLen]

	msg := crypto.NewMessage(cfg)
	msg.SetSegment(segment)

	found := make([]types.FoundResult, 0)
	var i uint32

	if useX4 {
		var (
			msgs  [crypto.Lanes]crypto.Message
			addrs [crypto.Lanes]common.Address
		)
		for lane := range msgs {
			msgs[lane] = msg
		}
		x4 := crypto.NewHasherX4()
		for ; batchSize-i >= crypto.Lanes; i += crypto.Lanes {
			for lane := range msgs {
				msgs[lane].SetNonce(start + uint64(i) + uint64(lane))
			}
			x4.Addresses(&msgs, &addrs)
			for lane := range addrs {
				if crypto.Matches(&addrs[lane], pattern) {
					found = append(found, crypto.NewFoundResult(&msgs[lane], addrs[lane], pattern))
				}
			}
		}
	}

	hasher := crypto.NewHasher()
	for ; i < batchSize; i++ {
		msg.SetNonce(start + uint64(i))
		addr := hasher.Address(&msg)
		if crypto.Matches(&addr, pattern) {
			found = append(found, crypto.NewFoundResult(&msg, addr, pattern))
		}
	}

	return found, batchSize
}
