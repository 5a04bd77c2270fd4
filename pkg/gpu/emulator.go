package gpu

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Emulator runs the search kernel's work-items on host goroutines. It reads
// the message constants back out of the kernel source, so it exercises the
// same specialisation path as a real device.
type Emulator struct {
	Workers int
}

// NewEmulator returns an emulator that spreads each dispatch over workers
// goroutines, or one per CPU when workers is not positive.
func NewEmulator(workers int) *Emulator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Emulator{Workers: workers}
}

func (e *Emulator) Name() string {
	return fmt.Sprintf("host emulator (%d workers)", e.Workers)
}

func (e *Emulator) Open(src string) (Session, error) {
	msg, err := KernelMessage(src)
	if err != nil {
		return nil, deviceErr("build program", err)
	}
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	return &emulatorSession{workers: workers, msg: msg}, nil
}

type emulatorSession struct {
	workers int
	msg     crypto.Message
	pattern []byte
	nonce   uint32

	running  *errgroup.Group
	solution atomic.Uint64
}

func (s *emulatorSession) WriteSalt(segment [crypto.SegmentLen]byte) error {
	s.msg.SetSegment(segment)
	return nil
}

func (s *emulatorSession) WritePattern(pattern []byte) error {
	if len(pattern) > types.MaxPatternLen {
		return deviceErr("write pattern", fmt.Errorf("pattern of %d bytes", len(pattern)))
	}
	s.pattern = append(s.pattern[:0], pattern...)
	return nil
}

func (s *emulatorSession) WriteNonce(nonce uint32) error {
	s.nonce = nonce
	return nil
}

func (s *emulatorSession) ResetSolution() error {
	if err := s.wait(); err != nil {
		return err
	}
	s.solution.Store(0)
	return nil
}

// Dispatch evaluates work-items 0..worksize-1 in the background. Work-item g
// hashes nonce field LE32(g) || LE32(nonce) and on a match stores
// g | nonce<<32. When several work-items match, any one of them may win.
func (s *emulatorSession) Dispatch(worksize uint32, patternLen uint32) error {
	if err := s.wait(); err != nil {
		return err
	}
	if int(patternLen) > len(s.pattern) {
		return deviceErr("enqueue kernel",
			fmt.Errorf("pattern length %d exceeds %d byte buffer", patternLen, len(s.pattern)))
	}

	msg := s.msg
	pattern := append([]byte(nil), s.pattern[:patternLen]...)
	high := uint64(s.nonce) << 32

	g := new(errgroup.Group)
	chunk := (uint64(worksize) + uint64(s.workers) - 1) / uint64(s.workers)
	for lo := uint64(0); lo < uint64(worksize); lo += chunk {
		lo := lo
		hi := min(lo+chunk, uint64(worksize))
		g.Go(func() error {
			m := msg
			hasher := crypto.NewHasher()
			for gid := lo; gid < hi; gid++ {
				m.SetNonce(gid | high)
				addr := hasher.Address(&m)
				if crypto.Matches(&addr, pattern) {
					s.solution.Store(gid | high)
				}
			}
			return nil
		})
	}
	s.running = g
	return nil
}

func (s *emulatorSession) ReadSolution() (uint64, error) {
	if err := s.wait(); err != nil {
		return 0, err
	}
	return s.solution.Load(), nil
}

func (s *emulatorSession) Close() error {
	return s.wait()
}

func (s *emulatorSession) wait() error {
	if s.running == nil {
		return nil
	}
	g := s.running
	s.running = nil
	return deviceErr("wait", g.Wait())
}
