package picodump

// Processor architecture values used in the SystemInfo stream.
const (
	processorArchitectureAMD64 uint16 = 9
	processorArchitectureARM64 uint16 = 12
)

// OSInfo carries the version fields written into the SystemInfo stream. They
// are read out of the running process's environment block at fixed offsets,
// not through the version APIs.
type OSInfo struct {
	ProcessorArchitecture uint16
	MajorVersion          uint32
	MinorVersion          uint32
	BuildNumber           uint32
	PlatformID            uint32
	CSDVersion            string
}

// Module describes one loaded image in the target process. Checksum and
// Timestamp come out of the image's PE header as mapped in the target.
type Module struct {
	Base      uint64
	Size      uint32
	Checksum  uint32
	Timestamp uint32
	Path      string

	// nameRVA is set while the module's pathname is emitted, and is always
	// smaller than the RVA of the record that later references it.
	nameRVA uint32
}

// MemoryRegion describes one region of the target's address space as
// reported by the kernel's memory query. State, Protect and Type feed the
// selection predicate; they are not written to disk.
type MemoryRegion struct {
	Base    uint64
	Size    uint64
	State   uint32
	Protect uint32
	Type    uint32
}

// Target is the dump engine's view of the process being dumped. The live
// implementation reads through the syscall gateway; tests substitute a fake.
type Target interface {
	// OSInfo returns the version fields for the SystemInfo stream.
	OSInfo() (*OSInfo, error)

	// Modules returns the loaded modules whose images should appear in the
	// dump. When allModules is false only the credential-hosting allow-list
	// is returned.
	Modules(allModules bool) ([]*Module, error)

	// QueryRegion describes the region covering addr. It returns (nil, nil)
	// once the address space is exhausted; the walk does not recover from
	// any query failure.
	QueryRegion(addr uint64) (*MemoryRegion, error)

	// ReadMemory copies len(buf) bytes starting at addr out of the target.
	// A partial copy is reported as ErrPartialCopy.
	ReadMemory(addr uint64, buf []byte) error
}
