package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
)

// KernelName is the entry point of the search kernel.
const KernelName = "hashMessage"

//go:embed kernels/keccak256.cl
var kernelTemplate string

// ErrMissingConstant is returned when kernel source lacks one of the message
// constants.
var ErrMissingConstant = errors.New("missing kernel constant")

var defineRE = regexp.MustCompile(`(?m)^#define S_(\d+) (\d+)u$`)

// KernelSource specialises the search kernel for cfg. Each constant byte of
// the message (factory, caller and codehash) becomes a S_<offset> define, so
// the program must be rebuilt whenever the configuration changes.
func KernelSource(cfg *types.MinerConfig) string {
	var b strings.Builder
	b.Grow(len(kernelTemplate) + 72*16)

	define := func(offset int, data []byte) {
		for i, v := range data {
			fmt.Fprintf(&b, "#define S_%d %du\n", offset+i, v)
		}
	}
	define(crypto.FactoryOffset, cfg.Factory[:])
	define(crypto.CallerOffset, cfg.Caller[:])
	define(crypto.CodehashOffset, cfg.Codehash[:])
	b.WriteByte('\n')
	b.WriteString(kernelTemplate)
	return b.String()
}

// KernelMessage recovers the constant part of the message from source built
// by KernelSource. The salt segment and nonce fields are left zero.
func KernelMessage(src string) (crypto.Message, error) {
	var (
		m    crypto.Message
		seen [crypto.MessageLen]bool
	)
	m[0] = crypto.ControlByte

	for _, match := range defineRE.FindAllStringSubmatch(src, -1) {
		idx, err := strconv.Atoi(match[1])
		if err != nil || !isConstantOffset(idx) {
			return m, fmt.Errorf("unexpected kernel constant S_%s", match[1])
		}
		v, err := strconv.ParseUint(match[2], 10, 8)
		if err != nil {
			return m, fmt.Errorf("kernel constant S_%d: %w", idx, err)
		}
		m[idx] = byte(v)
		seen[idx] = true
	}

	for idx := range seen {
		if isConstantOffset(idx) && !seen[idx] {
			return m, fmt.Errorf("%w S_%d", ErrMissingConstant, idx)
		}
	}
	return m, nil
}

func isConstantOffset(idx int) bool {
	return (idx >= crypto.FactoryOffset && idx < crypto.SegmentOffset) ||
		(idx >= crypto.CodehashOffset && idx < crypto.MessageLen)
}
