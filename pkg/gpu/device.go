package gpu

import (
	"fmt"

	"github.com/screa/salty/internal/crypto"
)

// Device can build the search kernel and open a session to run it.
type Device interface {
	Name() string
	Open(src string) (Session, error)
}

// Session owns a built kernel and its buffers on one device. Writes take
// effect for the next Dispatch. Dispatch may return before the kernel has
// finished; ReadSolution blocks until it has. A Session is used by a single
// goroutine.
type Session interface {
	WriteSalt(segment [crypto.SegmentLen]byte) error
	WritePattern(pattern []byte) error
	WriteNonce(nonce uint32) error
	ResetSolution() error
	Dispatch(worksize uint32, patternLen uint32) error
	ReadSolution() (uint64, error)
	Close() error
}

// DeviceError is a failure to set up or drive the device. It is fatal to the
// run.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func deviceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Op: op, Err: err}
}
