package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"github.com/screa/salty/pkg/types"
	"golang.org/x/crypto/sha3"
)

const (
	// ControlByte prefixes every CREATE2 input.
	ControlByte = 0xff

	// CREATE2 input layout:
	//   0xff (1) + factory (20) + caller (20) + segment (4) + nonce (8) + codehash (32) = 85
	// caller, segment and nonce together form the 32-byte salt.
	FactoryOffset  = 1
	CallerOffset   = FactoryOffset + common.AddressLength
	SegmentOffset  = CallerOffset + common.AddressLength
	NonceOffset    = SegmentOffset + SegmentLen
	CodehashOffset = NonceOffset + NonceLen
	MessageLen     = CodehashOffset + common.HashLength

	SegmentLen = 4
	NonceLen   = 8
	SaltLen    = common.AddressLength + SegmentLen + NonceLen
)

// Message is the 85-byte CREATE2 input hashed for a single candidate.
type Message [MessageLen]byte

// NewMessage returns a message primed with the constant fields of cfg. The
// salt segment and nonce are left zero.
func NewMessage(cfg *types.MinerConfig) Message {
	var m Message
	m[0] = ControlByte
	copy(m[FactoryOffset:CallerOffset], cfg.Factory[:])
	copy(m[CallerOffset:SegmentOffset], cfg.Caller[:])
	copy(m[CodehashOffset:], cfg.Codehash[:])
	return m
}

// SetSegment writes the 4-byte random salt segment.
func (m *Message) SetSegment(segment [SegmentLen]byte) {
	copy(m[SegmentOffset:NonceOffset], segment[:])
}

// SetNonce writes nonce in little-endian order.
func (m *Message) SetNonce(nonce uint64) {
	binary.LittleEndian.PutUint64(m[NonceOffset:CodehashOffset], nonce)
}

// Nonce returns the little-endian nonce field.
func (m *Message) Nonce() uint64 {
	return binary.LittleEndian.Uint64(m[NonceOffset:CodehashOffset])
}

// Salt returns caller || segment || nonce.
func (m *Message) Salt() [SaltLen]byte {
	var salt [SaltLen]byte
	copy(salt[:], m[CallerOffset:CodehashOffset])
	return salt
}

// Hasher derives CREATE2 addresses, reusing one Keccak state and output
// buffer so the hot path does not allocate. A Hasher is not safe for
// concurrent use.
type Hasher struct {
	state  hash.Hash
	digest [32]byte
}

// NewHasher returns a Hasher backed by legacy (pre-SHA3 padding) Keccak-256.
func NewHasher() *Hasher {
	return &Hasher{state: sha3.NewLegacyKeccak256()}
}

// Digest returns the Keccak-256 digest of m.
func (h *Hasher) Digest(m *Message) [32]byte {
	h.state.Reset()
	h.state.Write(m[:])
	h.state.Sum(h.digest[:0])
	return h.digest
}

// Address returns the CREATE2 address for m, the low 20 bytes of its digest.
func (h *Hasher) Address(m *Message) common.Address {
	digest := h.Digest(m)
	return common.BytesToAddress(digest[12:])
}

// Matches reports whether addr begins with pattern. The comparison stops at
// the first differing byte.
func Matches(addr *common.Address, pattern []byte) bool {
	for i := range pattern {
		if addr[i] != pattern[i] {
			return false
		}
	}
	return true
}

// NewFoundResult formats a match for reporting.
func NewFoundResult(m *Message, addr common.Address, pattern []byte) types.FoundResult {
	salt := m.Salt()
	return types.FoundResult{
		Salt:    encode(salt[:]),
		Address: encode(addr[:]),
		Pattern: encode(pattern),
	}
}

// Keccak256 calculates the keccak256 hash of the input bytes
func Keccak256(data []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// ChecksumAddress converts a hex address to its EIP-55 checksummed form.
// Only used for display; results are reported in lowercase.
func ChecksumAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

func encode(b []byte) string {
	buf := make([]byte, 2+hex.EncodedLen(len(b)))
	buf[0], buf[1] = '0', 'x'
	hex.Encode(buf[2:], b)
	return string(buf)
}
