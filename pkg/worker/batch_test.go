package worker

import (
	"math"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
)

// conformanceConfig is the cross-implementation reference configuration:
// zero factory, caller 0x11..11, codehash of empty init code.
func conformanceConfig(pattern ...byte) *types.MinerConfig {
	return &types.MinerConfig{
		Caller:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Codehash:   common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		Worksize:   0x4400000,
		Pattern:    pattern,
		PatternLen: len(pattern),
	}
}

var conformanceFound = []types.FoundResult{
	{
		Salt:    "0x1111111111111111111111111111111111111111a5faadaac8946b8a0b6dc5a4",
		Address: "0x00a4a7c77569af12811ea587bc3fe7b1b752902d",
		Pattern: "0x00",
	},
	{
		Salt:    "0x1111111111111111111111111111111111111111a5faadaad6956b8a0b6dc5a4",
		Address: "0x0044ef49d77f42d347073681e22d8e785e1fc3c2",
		Pattern: "0x00",
	},
}

// withX4 runs fn with the 4-way hashing path forced on or off.
func withX4(t *testing.T, enabled bool, fn func()) {
	t.Helper()
	if enabled && !crypto.X4Enabled() {
		t.Skip("4-way Keccak not supported on this CPU")
	}
	saved := useX4
	useX4 = enabled
	defer func() { useX4 = saved }()
	fn()
}

func TestStartingPoint(t *testing.T) {
	segment, nonce := StartingPoint(42, 7)
	if segment != [4]byte{0xa5, 0xfa, 0xad, 0xaa} || nonce != 11873015888966554345 {
		t.Errorf("StartingPoint(42, 7) = %x, %d", segment, nonce)
	}

	// seed ^ workerID, not seed + workerID
	s1, n1 := StartingPoint(42, 7)
	s2, n2 := StartingPoint(45, 0)
	if s1 != s2 || n1 != n2 {
		t.Error("StartingPoint(42, 7) differs from StartingPoint(45, 0)")
	}
}

func TestRunBatchConformance(t *testing.T) {
	for _, x4 := range []bool{false, true} {
		name := "scalar"
		if x4 {
			name = "x4"
		}
		t.Run(name, func(t *testing.T) {
			withX4(t, x4, func() {
				found, attempts := RunBatch(conformanceConfig(0x00), 42, 7, 1024)
				if attempts != 1024 {
					t.Errorf("attempts = %d, want 1024", attempts)
				}
				if !reflect.DeepEqual(found, conformanceFound) {
					t.Errorf("found = %+v\nwant %+v", found, conformanceFound)
				}
			})
		})
	}
}

func TestRunBatchDeterministic(t *testing.T) {
	cfg := conformanceConfig(0x00)
	a, na := RunBatch(cfg, 1234, 3, 3001)
	b, nb := RunBatch(cfg, 1234, 3, 3001)
	if na != nb || !reflect.DeepEqual(a, b) {
		t.Fatal("identical arguments produced different batches")
	}
}

func TestRunBatchPathsAgree(t *testing.T) {
	cfg := conformanceConfig(0x00)
	var scalar, simd []types.FoundResult
	withX4(t, false, func() { scalar, _ = RunBatch(cfg, 77, 1, 4099) })
	withX4(t, true, func() { simd, _ = RunBatch(cfg, 77, 1, 4099) })
	if !reflect.DeepEqual(scalar, simd) {
		t.Errorf("scalar %+v\nx4     %+v", scalar, simd)
	}
}

func TestRunBatchAttempts(t *testing.T) {
	cfg := conformanceConfig(0x00)
	for _, size := range []uint32{0, 1, 3, 4, 5, 17} {
		found, attempts := RunBatch(cfg, 9, 9, size)
		if attempts != size {
			t.Errorf("size %d: attempts = %d", size, attempts)
		}
		if size == 0 && len(found) != 0 {
			t.Errorf("empty batch found %d results", len(found))
		}
	}
}

func TestRunBatchPatternLength(t *testing.T) {
	full := common.HexToAddress("0x00a4a7c77569af12811ea587bc3fe7b1b752902d").Bytes()
	found, _ := RunBatch(conformanceConfig(full...), 42, 7, 1024)
	if len(found) != 1 || found[0] != (types.FoundResult{
		Salt:    conformanceFound[0].Salt,
		Address: conformanceFound[0].Address,
		Pattern: "0x00a4a7c77569af12811ea587bc3fe7b1b752902d",
	}) {
		t.Errorf("20-byte pattern found %+v", found)
	}

	// A one-byte pattern ignores the remaining 19 bytes.
	found, _ = RunBatch(conformanceConfig(0x00), 42, 7, 1024)
	for _, r := range found {
		if r.Address[:4] != "0x00" {
			t.Errorf("address %s does not start with 00", r.Address)
		}
	}
}

func TestRunBatchWorkerIsolation(t *testing.T) {
	s1, n1 := StartingPoint(42, 7)
	s2, n2 := StartingPoint(42, 8)
	if s1 == s2 && n1 == n2 {
		t.Error("workers 7 and 8 share a starting point")
	}
}

func TestRunBatchNonceWraps(t *testing.T) {
	// An empty pattern matches every candidate, exposing each nonce.
	cfg := conformanceConfig()
	segment := [4]byte{0xa5, 0xfa, 0xad, 0xaa}
	prefix := "0x1111111111111111111111111111111111111111a5faadaa"
	wantNonces := []string{
		"fdffffffffffffff",
		"feffffffffffffff",
		"ffffffffffffffff",
		"0000000000000000",
		"0100000000000000",
		"0200000000000000",
		"0300000000000000",
		"0400000000000000",
	}

	var results [2][]types.FoundResult
	for i, x4 := range []bool{false, true} {
		withX4(t, x4, func() {
			found, attempts := runBatch(cfg, segment, math.MaxUint64-2, 8)
			if attempts != 8 || len(found) != len(wantNonces) {
				t.Fatalf("x4=%v: attempts = %d, found %d", x4, attempts, len(found))
			}
			for j, r := range found {
				if want := prefix + wantNonces[j]; r.Salt != want {
					t.Errorf("x4=%v: salt %d = %s, want %s", x4, j, r.Salt, want)
				}
			}
			results[i] = found
		})
	}
	if !reflect.DeepEqual(results[0], results[1]) {
		t.Errorf("scalar %+v\nx4     %+v", results[0], results[1])
	}
}
