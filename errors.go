package picodump

import "github.com/pkg/errors"

// Failure taxonomy for a dump attempt. Call sites wrap these with context;
// callers classify with errors.Is.
var (
	// ErrPrivilegeDenied indicates SeDebugPrivilege could not be enabled.
	ErrPrivilegeDenied = errors.New("debug privilege denied")

	// ErrTargetNotFound indicates no process with the requested name exists.
	ErrTargetNotFound = errors.New("target process not found")

	// ErrHandleDenied indicates no acquisition strategy produced a usable
	// process handle.
	ErrHandleDenied = errors.New("could not obtain a process handle")

	// ErrBadHandle indicates the process handle was rejected by the kernel
	// during module enumeration.
	ErrBadHandle = errors.New("invalid process handle")

	// ErrAddressSpaceQueryFailed indicates the very first virtual memory
	// query failed, so the address space walk could not start. Exhaustion
	// mid-walk is the normal termination condition and is not an error.
	ErrAddressSpaceQueryFailed = errors.New("address space query failed")

	// ErrReadFailed indicates every selected memory range failed to read
	// with a hard (non partial-copy) status.
	ErrReadFailed = errors.New("could not read target memory")

	// ErrNoImportantModules indicates module enumeration matched nothing.
	ErrNoImportantModules = errors.New("no important modules found")

	// ErrDumpTooLarge indicates an append would exceed the reserved buffer.
	ErrDumpTooLarge = errors.New("dump exceeds the reserved buffer size")

	// ErrSinkFailed indicates the artifact could not be created or written.
	ErrSinkFailed = errors.New("could not write the dump file")

	// ErrPartialCopy is reported by Target.ReadMemory when the kernel copied
	// only part of a range. The affected range stays in the dump as a
	// zero-filled hole and the dump continues.
	ErrPartialCopy = errors.New("partial copy of memory range")
)
