package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/internal/opencl"
	"github.com/screa/salty/pkg/types"
)

// Kernel argument indices.
const (
	argMessage = iota
	argNonce
	argPattern
	argPatternLen
	argSolutions
)

// OpenCLDevice runs the search kernel on an OpenCL device. The zero value
// selects the first device of the default platform.
type OpenCLDevice struct {
	Platform int
	Index    int
}

// Name identifies the device by its platform and device index.
func (d *OpenCLDevice) Name() string {
	return fmt.Sprintf("OpenCL platform %d device %d", d.Platform, d.Index)
}

// Open creates a context and queue, builds src and allocates the kernel's
// buffers.
func (d *OpenCLDevice) Open(src string) (Session, error) {
	ctx, err := opencl.NewContext(d.Platform, d.Index)
	if err != nil {
		return nil, deviceErr("create context", err)
	}
	info := ctx.Device()
	log.Infof("Using %s (%s, %d compute units)", info.Name, info.Vendor, info.ComputeUnits)

	s := &openclSession{ctx: ctx}
	if err := s.init(src); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type openclSession struct {
	ctx       *opencl.Context
	kernel    *opencl.Kernel
	salt      *opencl.Buffer
	nonce     *opencl.Buffer
	pattern   *opencl.Buffer
	solutions *opencl.Buffer
	scratch   [8]byte
}

func (s *openclSession) init(src string) error {
	var err error
	if s.kernel, err = s.ctx.BuildProgram(src, KernelName); err != nil {
		return deviceErr("build program", err)
	}

	alloc := func(flags opencl.MemFlags, size int) *opencl.Buffer {
		if err != nil {
			return nil
		}
		var b *opencl.Buffer
		b, err = s.ctx.NewBuffer(flags, size)
		return b
	}
	s.salt = alloc(opencl.MemReadOnly, crypto.SegmentLen)
	s.nonce = alloc(opencl.MemReadOnly, 4)
	s.pattern = alloc(opencl.MemReadOnly, types.MaxPatternLen)
	s.solutions = alloc(opencl.MemWriteOnly, 8)
	if err != nil {
		return deviceErr("create buffer", err)
	}

	args := []struct {
		idx int
		buf *opencl.Buffer
	}{
		{argMessage, s.salt},
		{argNonce, s.nonce},
		{argPattern, s.pattern},
		{argSolutions, s.solutions},
	}
	for _, a := range args {
		if err := s.kernel.SetBuffer(a.idx, a.buf); err != nil {
			return deviceErr("set kernel argument", err)
		}
	}
	return nil
}

func (s *openclSession) WriteSalt(segment [crypto.SegmentLen]byte) error {
	return deviceErr("write salt", s.ctx.Write(s.salt, segment[:]))
}

func (s *openclSession) WritePattern(pattern []byte) error {
	if len(pattern) > types.MaxPatternLen {
		return deviceErr("write pattern", fmt.Errorf("pattern of %d bytes", len(pattern)))
	}
	return deviceErr("write pattern", s.ctx.Write(s.pattern, pattern))
}

func (s *openclSession) WriteNonce(nonce uint32) error {
	binary.LittleEndian.PutUint32(s.scratch[:4], nonce)
	return deviceErr("write nonce", s.ctx.Write(s.nonce, s.scratch[:4]))
}

func (s *openclSession) ResetSolution() error {
	clear(s.scratch[:])
	return deviceErr("reset solution", s.ctx.Write(s.solutions, s.scratch[:]))
}

func (s *openclSession) Dispatch(worksize uint32, patternLen uint32) error {
	if err := s.kernel.SetUint32(argPatternLen, patternLen); err != nil {
		return deviceErr("set kernel argument", err)
	}
	return deviceErr("enqueue kernel", s.ctx.Enqueue(s.kernel, int(worksize)))
}

func (s *openclSession) ReadSolution() (uint64, error) {
	if err := s.ctx.Read(s.solutions, s.scratch[:]); err != nil {
		return 0, deviceErr("read solution", err)
	}
	return binary.LittleEndian.Uint64(s.scratch[:]), nil
}

func (s *openclSession) Close() error {
	for _, b := range []*opencl.Buffer{s.salt, s.nonce, s.pattern, s.solutions} {
		if b != nil {
			b.Release()
		}
	}
	if s.kernel != nil {
		s.kernel.Release()
	}
	return deviceErr("release context", s.ctx.Close())
}
