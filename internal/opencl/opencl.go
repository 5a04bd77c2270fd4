//go:build opencl && cgo

// Package opencl provides the small subset of the OpenCL host API needed to
// run a single kernel on one device: context and queue setup, program build,
// buffers, argument binding, dispatch and blocking transfers.
package opencl

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo windows LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>

static cl_int getPlatforms(cl_uint n, cl_platform_id *out, cl_uint *count) {
	return clGetPlatformIDs(n, out, count);
}

static cl_int getDevices(cl_platform_id p, cl_uint n, cl_device_id *out, cl_uint *count) {
	return clGetDeviceIDs(p, CL_DEVICE_TYPE_ALL, n, out, count);
}

static cl_int platformString(cl_platform_id p, cl_platform_info param, size_t n, char *out) {
	return clGetPlatformInfo(p, param, n, out, NULL);
}

static cl_int deviceString(cl_device_id d, cl_device_info param, size_t n, char *out) {
	return clGetDeviceInfo(d, param, n, out, NULL);
}

static cl_int deviceUint(cl_device_id d, cl_device_info param, cl_uint *out) {
	return clGetDeviceInfo(d, param, sizeof(cl_uint), out, NULL);
}

static cl_int deviceUlong(cl_device_id d, cl_device_info param, cl_ulong *out) {
	return clGetDeviceInfo(d, param, sizeof(cl_ulong), out, NULL);
}

static cl_context createContext(cl_platform_id p, cl_device_id d, cl_int *err) {
	cl_context_properties props[] = {
		CL_CONTEXT_PLATFORM, (cl_context_properties)p, 0
	};
	return clCreateContext(props, 1, &d, NULL, NULL, err);
}

static cl_command_queue createQueue(cl_context ctx, cl_device_id d, cl_int *err) {
	return clCreateCommandQueue(ctx, d, 0, err);
}

static cl_program buildProgram(cl_context ctx, cl_device_id d, const char *src, cl_int *err) {
	cl_program prog = clCreateProgramWithSource(ctx, 1, &src, NULL, err);
	if (*err != CL_SUCCESS) {
		return NULL;
	}
	*err = clBuildProgram(prog, 1, &d, NULL, NULL, NULL);
	return prog;
}

static cl_int buildLog(cl_program prog, cl_device_id d, size_t n, char *out, size_t *size) {
	return clGetProgramBuildInfo(prog, d, CL_PROGRAM_BUILD_LOG, n, out, size);
}

static cl_mem createBuffer(cl_context ctx, cl_mem_flags flags, size_t size, cl_int *err) {
	return clCreateBuffer(ctx, flags, size, NULL, err);
}

static cl_int writeBuffer(cl_command_queue q, cl_mem m, size_t size, const void *src) {
	return clEnqueueWriteBuffer(q, m, CL_TRUE, 0, size, src, 0, NULL, NULL);
}

static cl_int readBuffer(cl_command_queue q, cl_mem m, size_t size, void *dst) {
	return clEnqueueReadBuffer(q, m, CL_TRUE, 0, size, dst, 0, NULL, NULL);
}

static cl_int setMemArg(cl_kernel k, cl_uint idx, cl_mem m) {
	return clSetKernelArg(k, idx, sizeof(cl_mem), &m);
}

static cl_int setUintArg(cl_kernel k, cl_uint idx, cl_uint v) {
	return clSetKernelArg(k, idx, sizeof(cl_uint), &v);
}

static cl_int enqueueKernel(cl_command_queue q, cl_kernel k, size_t global) {
	cl_int err = clEnqueueNDRangeKernel(q, k, 1, NULL, &global, NULL, 0, NULL, NULL);
	if (err != CL_SUCCESS) {
		return err;
	}
	return clFlush(q);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const (
	maxPlatforms = 16
	maxDevices   = 16
	infoLen      = 256
)

// Memory flags
const (
	MemReadOnly  = MemFlags(C.CL_MEM_READ_ONLY)
	MemWriteOnly = MemFlags(C.CL_MEM_WRITE_ONLY)
	MemReadWrite = MemFlags(C.CL_MEM_READ_WRITE)
)

// MemFlags selects how a kernel may access a buffer.
type MemFlags uint64

// Available reports whether this build can talk to an OpenCL runtime.
func Available() bool {
	return true
}

func check(op string, code C.cl_int) error {
	if code != C.CL_SUCCESS {
		return &Error{Op: op, Code: int32(code)}
	}
	return nil
}

func platformIDs() ([]C.cl_platform_id, error) {
	var ids [maxPlatforms]C.cl_platform_id
	var n C.cl_uint
	if err := check("clGetPlatformIDs", C.getPlatforms(maxPlatforms, &ids[0], &n)); err != nil {
		return nil, err
	}
	if n > maxPlatforms {
		n = maxPlatforms
	}
	return ids[:n], nil
}

func deviceIDs(p C.cl_platform_id) ([]C.cl_device_id, error) {
	var ids [maxDevices]C.cl_device_id
	var n C.cl_uint
	if err := check("clGetDeviceIDs", C.getDevices(p, maxDevices, &ids[0], &n)); err != nil {
		return nil, err
	}
	if n > maxDevices {
		n = maxDevices
	}
	return ids[:n], nil
}

func platformString(p C.cl_platform_id, param C.cl_platform_info) string {
	var buf [infoLen]C.char
	if C.platformString(p, param, infoLen, &buf[0]) != C.CL_SUCCESS {
		return ""
	}
	return C.GoString(&buf[0])
}

func deviceString(d C.cl_device_id, param C.cl_device_info) string {
	var buf [infoLen]C.char
	if C.deviceString(d, param, infoLen, &buf[0]) != C.CL_SUCCESS {
		return ""
	}
	return C.GoString(&buf[0])
}

func deviceInfo(d C.cl_device_id) DeviceInfo {
	info := DeviceInfo{
		Name:    deviceString(d, C.CL_DEVICE_NAME),
		Vendor:  deviceString(d, C.CL_DEVICE_VENDOR),
		Version: deviceString(d, C.CL_DEVICE_VERSION),
	}
	var units C.cl_uint
	if C.deviceUint(d, C.CL_DEVICE_MAX_COMPUTE_UNITS, &units) == C.CL_SUCCESS {
		info.ComputeUnits = uint32(units)
	}
	var mem C.cl_ulong
	if C.deviceUlong(d, C.CL_DEVICE_GLOBAL_MEM_SIZE, &mem) == C.CL_SUCCESS {
		info.GlobalMemory = uint64(mem)
	}
	return info
}

// Platforms lists every OpenCL platform and its devices. The first entry is
// the default platform.
func Platforms() ([]PlatformInfo, error) {
	ids, err := platformIDs()
	if err != nil {
		return nil, err
	}

	platforms := make([]PlatformInfo, 0, len(ids))
	for _, p := range ids {
		info := PlatformInfo{
			Name:    platformString(p, C.CL_PLATFORM_NAME),
			Vendor:  platformString(p, C.CL_PLATFORM_VENDOR),
			Version: platformString(p, C.CL_PLATFORM_VERSION),
		}
		devices, err := deviceIDs(p)
		if err == nil {
			for _, d := range devices {
				info.Devices = append(info.Devices, deviceInfo(d))
			}
		}
		platforms = append(platforms, info)
	}
	return platforms, nil
}

// Context is a context and in-order command queue on a single device.
type Context struct {
	device C.cl_device_id
	ctx    C.cl_context
	queue  C.cl_command_queue
	info   DeviceInfo
}

// NewContext creates a context and command queue on the given device of the
// given platform.
func NewContext(platform, device int) (*Context, error) {
	platforms, err := platformIDs()
	if err != nil {
		return nil, err
	}
	if platform < 0 || platform >= len(platforms) {
		return nil, fmt.Errorf("%w: platform %d of %d", ErrNoSuchDevice, platform, len(platforms))
	}
	devices, err := deviceIDs(platforms[platform])
	if err != nil {
		return nil, err
	}
	if device < 0 || device >= len(devices) {
		return nil, fmt.Errorf("%w: device %d of %d", ErrNoSuchDevice, device, len(devices))
	}

	c := &Context{device: devices[device]}
	c.info = deviceInfo(c.device)

	var code C.cl_int
	c.ctx = C.createContext(platforms[platform], c.device, &code)
	if err := check("clCreateContext", code); err != nil {
		return nil, err
	}
	c.queue = C.createQueue(c.ctx, c.device, &code)
	if err := check("clCreateCommandQueue", code); err != nil {
		C.clReleaseContext(c.ctx)
		return nil, err
	}
	return c, nil
}

// Device describes the context's device.
func (c *Context) Device() DeviceInfo {
	return c.info
}

// BuildProgram compiles src for the context's device and returns the named
// kernel. A failed build returns a *BuildError carrying the compiler log.
func (c *Context) BuildProgram(src, kernel string) (*Kernel, error) {
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))

	var code C.cl_int
	prog := C.buildProgram(c.ctx, c.device, csrc, &code)
	if code != C.CL_SUCCESS {
		err := &BuildError{Code: int32(code)}
		if prog != nil {
			err.Log = c.buildLog(prog)
			C.clReleaseProgram(prog)
		}
		return nil, err
	}

	cname := C.CString(kernel)
	defer C.free(unsafe.Pointer(cname))

	k := C.clCreateKernel(prog, cname, &code)
	if err := check("clCreateKernel", code); err != nil {
		C.clReleaseProgram(prog)
		return nil, err
	}
	return &Kernel{prog: prog, kernel: k}, nil
}

func (c *Context) buildLog(prog C.cl_program) string {
	var size C.size_t
	if C.buildLog(prog, c.device, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := (*C.char)(C.malloc(size))
	defer C.free(unsafe.Pointer(buf))
	if C.buildLog(prog, c.device, size, buf, nil) != C.CL_SUCCESS {
		return ""
	}
	return C.GoString(buf)
}

// NewBuffer allocates a device buffer of size bytes.
func (c *Context) NewBuffer(flags MemFlags, size int) (*Buffer, error) {
	var code C.cl_int
	mem := C.createBuffer(c.ctx, C.cl_mem_flags(flags), C.size_t(size), &code)
	if err := check("clCreateBuffer", code); err != nil {
		return nil, err
	}
	return &Buffer{mem: mem, size: size}, nil
}

// Write copies data into the start of buf and waits for the copy to finish.
func (c *Context) Write(buf *Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > buf.size {
		return fmt.Errorf("write of %d bytes into %d byte buffer", len(data), buf.size)
	}
	return check("clEnqueueWriteBuffer",
		C.writeBuffer(c.queue, buf.mem, C.size_t(len(data)), unsafe.Pointer(&data[0])))
}

// Read copies the start of buf into data, blocking until every previously
// enqueued command has completed.
func (c *Context) Read(buf *Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > buf.size {
		return fmt.Errorf("read of %d bytes from %d byte buffer", len(data), buf.size)
	}
	return check("clEnqueueReadBuffer",
		C.readBuffer(c.queue, buf.mem, C.size_t(len(data)), unsafe.Pointer(&data[0])))
}

// Enqueue launches k over global work-items and flushes the queue so the
// device starts immediately. It does not wait for completion.
func (c *Context) Enqueue(k *Kernel, global int) error {
	return check("clEnqueueNDRangeKernel", C.enqueueKernel(c.queue, k.kernel, C.size_t(global)))
}

// Close releases the queue and context.
func (c *Context) Close() error {
	C.clFinish(c.queue)
	if err := check("clReleaseCommandQueue", C.clReleaseCommandQueue(c.queue)); err != nil {
		return err
	}
	return check("clReleaseContext", C.clReleaseContext(c.ctx))
}

// Kernel is a compiled kernel and the program it came from.
type Kernel struct {
	prog   C.cl_program
	kernel C.cl_kernel
}

// SetBuffer binds buf to argument idx.
func (k *Kernel) SetBuffer(idx int, buf *Buffer) error {
	return check("clSetKernelArg", C.setMemArg(k.kernel, C.cl_uint(idx), buf.mem))
}

// SetUint32 binds a scalar to argument idx.
func (k *Kernel) SetUint32(idx int, v uint32) error {
	return check("clSetKernelArg", C.setUintArg(k.kernel, C.cl_uint(idx), C.cl_uint(v)))
}

// Release frees the kernel and program.
func (k *Kernel) Release() error {
	if err := check("clReleaseKernel", C.clReleaseKernel(k.kernel)); err != nil {
		return err
	}
	return check("clReleaseProgram", C.clReleaseProgram(k.prog))
}

// Buffer is a device memory object.
type Buffer struct {
	mem  C.cl_mem
	size int
}

// Release frees the buffer.
func (b *Buffer) Release() error {
	return check("clReleaseMemObject", C.clReleaseMemObject(b.mem))
}
