package opencl

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the binary was built without OpenCL
	// support.
	ErrUnavailable = errors.New("OpenCL support not compiled in (build with -tags opencl and cgo enabled)")

	// ErrNoSuchDevice is returned for an out of range platform or device
	// index.
	ErrNoSuchDevice = errors.New("no such OpenCL device")
)

// PlatformInfo describes an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}

// DeviceInfo describes an OpenCL device.
type DeviceInfo struct {
	Name         string
	Vendor       string
	Version      string
	ComputeUnits uint32
	GlobalMemory uint64 // bytes
}

// Error is a failed OpenCL API call.
type Error struct {
	Op   string
	Code int32
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, codeName(e.Code), e.Code)
}

// BuildError is a failed program build with the compiler output.
type BuildError struct {
	Code int32
	Log  string
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("program build failed: %s (%d)", codeName(e.Code), e.Code)
	}
	return fmt.Sprintf("program build failed: %s (%d):\n%s", codeName(e.Code), e.Code, e.Log)
}

var codeNames = map[int32]string{
	-1:    "CL_DEVICE_NOT_FOUND",
	-2:    "CL_DEVICE_NOT_AVAILABLE",
	-3:    "CL_COMPILER_NOT_AVAILABLE",
	-4:    "CL_MEM_OBJECT_ALLOCATION_FAILURE",
	-5:    "CL_OUT_OF_RESOURCES",
	-6:    "CL_OUT_OF_HOST_MEMORY",
	-11:   "CL_BUILD_PROGRAM_FAILURE",
	-30:   "CL_INVALID_VALUE",
	-32:   "CL_INVALID_PLATFORM",
	-33:   "CL_INVALID_DEVICE",
	-34:   "CL_INVALID_CONTEXT",
	-36:   "CL_INVALID_COMMAND_QUEUE",
	-38:   "CL_INVALID_MEM_OBJECT",
	-44:   "CL_INVALID_PROGRAM",
	-45:   "CL_INVALID_PROGRAM_EXECUTABLE",
	-46:   "CL_INVALID_KERNEL_NAME",
	-48:   "CL_INVALID_KERNEL",
	-49:   "CL_INVALID_ARG_INDEX",
	-50:   "CL_INVALID_ARG_VALUE",
	-51:   "CL_INVALID_ARG_SIZE",
	-52:   "CL_INVALID_KERNEL_ARGS",
	-54:   "CL_INVALID_WORK_GROUP_SIZE",
	-63:   "CL_INVALID_GLOBAL_WORK_SIZE",
	-1001: "CL_PLATFORM_NOT_FOUND_KHR",
}

func codeName(code int32) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return "unknown error"
}
