//go:build !opencl || !cgo

package opencl

// Memory flags
const (
	MemReadWrite MemFlags = 1 << iota
	MemWriteOnly
	MemReadOnly
)

// MemFlags selects how a kernel may access a buffer.
type MemFlags uint64

// Available reports whether this build can talk to an OpenCL runtime.
func Available() bool {
	return false
}

// Platforms is unavailable in this build.
func Platforms() ([]PlatformInfo, error) {
	return nil, ErrUnavailable
}

// Context is unavailable in this build.
type Context struct{}

// NewContext is unavailable in this build.
func NewContext(platform, device int) (*Context, error) {
	return nil, ErrUnavailable
}

func (c *Context) Device() DeviceInfo                                  { return DeviceInfo{} }
func (c *Context) BuildProgram(src, kernel string) (*Kernel, error)    { return nil, ErrUnavailable }
func (c *Context) NewBuffer(flags MemFlags, size int) (*Buffer, error) { return nil, ErrUnavailable }
func (c *Context) Write(buf *Buffer, data []byte) error                { return ErrUnavailable }
func (c *Context) Read(buf *Buffer, data []byte) error                 { return ErrUnavailable }
func (c *Context) Enqueue(k *Kernel, global int) error                 { return ErrUnavailable }
func (c *Context) Close() error                                        { return nil }

// Kernel is unavailable in this build.
type Kernel struct{}

func (k *Kernel) SetBuffer(idx int, buf *Buffer) error { return ErrUnavailable }
func (k *Kernel) SetUint32(idx int, v uint32) error    { return ErrUnavailable }
func (k *Kernel) Release() error                       { return nil }

// Buffer is unavailable in this build.
type Buffer struct{}

func (b *Buffer) Release() error { return nil }
