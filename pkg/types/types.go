package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxPatternLen is the longest pattern that can be matched against an address.
const MaxPatternLen = common.AddressLength

// RawConfig is the textual configuration as received from the command line,
// a config file or a batch orchestrator. It is untrusted until parsed.
type RawConfig struct {
	Factory  string `toml:"factory" json:"factory"`
	Caller   string `toml:"caller" json:"caller"`
	Codehash string `toml:"codehash" json:"codehash"`
	Worksize uint32 `toml:"worksize" json:"worksize"`
	Pattern  string `toml:"pattern" json:"pattern"`
}

// MinerConfig is the validated, fixed-size search configuration shared by
// every backend. It is never mutated after construction.
type MinerConfig struct {
	Factory    common.Address
	Caller     common.Address
	Codehash   common.Hash
	Worksize   uint32
	Pattern    []byte
	PatternLen int
}

// FoundResult is a salt whose CREATE2 address starts with the pattern.
// All fields are 0x-prefixed lowercase hex.
type FoundResult struct {
	Salt    string `json:"salt"`
	Address string `json:"address"`
	Pattern string `json:"pattern"`
}

// BatchResult is the outcome of one batch call on a CPU worker.
type BatchResult struct {
	Found    []FoundResult `json:"found"`
	Attempts uint32        `json:"attempts"`
}

// Progress is a periodic throughput snapshot.
type Progress struct {
	// WorkRate is the cumulative number of attempts in millions. The GPU
	// backend derives it from the dispatch count, so it is a throughput
	// proxy rather than an exact count.
	WorkRate *uint256.Int

	// Attempts is the number of candidates hashed.
	Attempts uint64

	// Dispatches counts kernel launches. Zero for the CPU backend.
	Dispatches uint64

	Elapsed    time.Duration
	PatternLen int
	Found      []FoundResult
}

// Reporter receives results and throughput from a mining run. The search
// backends only produce values; rendering is up to the implementation.
type Reporter interface {
	Found(result FoundResult)
	Progress(p Progress)
}
