package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/screa/salty/pkg/types"
)

// emptyCodehash is keccak256 of the empty byte string.
const emptyCodehash = "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"

func conformanceConfig(pattern ...byte) *types.MinerConfig {
	cfg := &types.MinerConfig{
		Caller:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Codehash:   common.HexToHash(emptyCodehash),
		Pattern:    pattern,
		PatternLen: len(pattern),
	}
	return cfg
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestKeccak256(t *testing.T) {
	if got := Keccak256(nil).Hex(); got != "0x"+emptyCodehash {
		t.Errorf("Keccak256(nil) = %s", got)
	}
	want := "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"
	if got := Keccak256([]byte("abc")).Hex(); got != want {
		t.Errorf("Keccak256(abc) = %s, want %s", got, want)
	}
}

func TestMessageLayout(t *testing.T) {
	cfg := conformanceConfig(0x00)
	m := NewMessage(cfg)
	m.SetSegment([SegmentLen]byte{0xa5, 0xfa, 0xad, 0xaa})
	m.SetNonce(11873015888966554345)

	want := mustHex(t, "ff"+
		"0000000000000000000000000000000000000000"+
		"1111111111111111111111111111111111111111"+
		"a5faadaa"+
		"e9926b8a0b6dc5a4"+
		emptyCodehash)
	if len(want) != MessageLen {
		t.Fatalf("fixture length %d", len(want))
	}
	if string(m[:]) != string(want) {
		t.Fatalf("message = %x\nwant      %x", m[:], want)
	}
	if m.Nonce() != 11873015888966554345 {
		t.Errorf("Nonce() = %d", m.Nonce())
	}

	salt := m.Salt()
	if got := hex.EncodeToString(salt[:]); got != "1111111111111111111111111111111111111111a5faadaae9926b8a0b6dc5a4" {
		t.Errorf("Salt() = %s", got)
	}
}

func TestHasherDigest(t *testing.T) {
	cfg := conformanceConfig(0x00)
	m := NewMessage(cfg)
	m.SetSegment([SegmentLen]byte{0xa5, 0xfa, 0xad, 0xaa})
	m.SetNonce(11873015888966554345)

	h := NewHasher()
	digest := h.Digest(&m)
	if got := hex.EncodeToString(digest[:]); got != "7f03024d246b1f9fa921ddbb1dead45ba5325a5c5a975b8ec47fa3eb6fa4d65b" {
		t.Fatalf("digest = %s", got)
	}

	addr := h.Address(&m)
	if got := hex.EncodeToString(addr[:]); got != "1dead45ba5325a5c5a975b8ec47fa3eb6fa4d65b" {
		t.Fatalf("address = %s", got)
	}

	// The hasher is reusable.
	m.SetNonce(11873015888966554346)
	digest = h.Digest(&m)
	if got := hex.EncodeToString(digest[:]); got != "642f7adfb19bff70ecd87ca958672736abf1a8c61e92b0584412a7d748be6c6a" {
		t.Fatalf("second digest = %s", got)
	}
}

func TestMatches(t *testing.T) {
	addr := common.HexToAddress("0x1dead45ba5325a5c5a975b8ec47fa3eb6fa4d65b")
	full := addr.Bytes()
	almost := append([]byte{}, full...)
	almost[19] ^= 0x01

	tests := []struct {
		name    string
		pattern []byte
		want    bool
	}{
		{"single byte match", []byte{0x1d}, true},
		{"single byte zero", []byte{0x00}, false},
		{"two bytes", []byte{0x1d, 0xea}, true},
		{"second byte differs", []byte{0x1d, 0xeb}, false},
		{"full address", full, true},
		{"last byte differs", almost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(&addr, tt.pattern); got != tt.want {
				t.Errorf("Matches(%x) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestNewFoundResult(t *testing.T) {
	cfg := conformanceConfig(0x00)
	m := NewMessage(cfg)
	m.SetSegment([SegmentLen]byte{0xa5, 0xfa, 0xad, 0xaa})
	m.SetNonce(0xa4c56d0b8a6b94c8)

	addr := NewHasher().Address(&m)
	if !Matches(&addr, cfg.Pattern) {
		t.Fatalf("address %x does not match", addr)
	}

	got := NewFoundResult(&m, addr, cfg.Pattern)
	want := types.FoundResult{
		Salt:    "0x1111111111111111111111111111111111111111a5faadaac8946b8a0b6dc5a4",
		Address: "0x00a4a7c77569af12811ea587bc3fe7b1b752902d",
		Pattern: "0x00",
	}
	if got != want {
		t.Errorf("NewFoundResult() = %+v, want %+v", got, want)
	}
}

func TestChecksumAddress(t *testing.T) {
	got := ChecksumAddress("0x0000000000ffe8b47b3e2130213b802212439497")
	if got != "0x0000000000FFe8B47B3e2130213B802212439497" {
		t.Errorf("ChecksumAddress() = %s", got)
	}
}

func TestHasherX4MatchesScalar(t *testing.T) {
	if !X4Enabled() {
		t.Skip("4-way Keccak not supported on this CPU")
	}

	cfg := conformanceConfig(0x00)
	cfg.Factory = common.HexToAddress("0x0000000000FFe8B47B3e2130213B802212439497")

	var msgs [Lanes]Message
	for i := range msgs {
		msgs[i] = NewMessage(cfg)
		msgs[i].SetSegment([SegmentLen]byte{byte(i), 0xbe, 0xef, 0x01})
		msgs[i].SetNonce(uint64(i) * 0x9e3779b97f4a7c15)
	}

	var got [Lanes]common.Address
	x4 := NewHasherX4()
	for round := 0; round < 3; round++ {
		x4.Addresses(&msgs, &got)
		h := NewHasher()
		for i := range msgs {
			if want := h.Address(&msgs[i]); got[i] != want {
				t.Fatalf("round %d lane %d: %x, want %x", round, i, got[i], want)
			}
			msgs[i].SetNonce(msgs[i].Nonce() + 1)
		}
	}
}
