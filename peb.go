//go:build windows

package picodump

import (
	"runtime"
	"unicode/utf16"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// Fixed offsets inside the 64-bit PEB and loader structures. These are
// documented but not guaranteed stable across future OS versions, so they
// stay confined to this file.
const (
	pebLdrOffset             = 0x18
	pebOSMajorVersionOffset  = 0x118
	pebOSMinorVersionOffset  = 0x11c
	pebOSBuildNumberOffset   = 0x120
	pebOSPlatformIDOffset    = 0x124
	pebCSDVersionOffset      = 0x2e8
	ldrInLoadOrderListOffset = 0x10

	ldrEntryDllBaseOffset     = 0x30
	ldrEntrySizeOfImageOffset = 0x40
	ldrEntryFullDllNameOffset = 0x48
)

func readRemote(process windows.Handle, addr uintptr, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	var read uintptr
	status := ntReadVirtualMemory(process, addr, &buf[0], uintptr(len(buf)), &read)
	if !status.IsSuccess() {
		return errors.Wrapf(status.Err(), "read %d bytes at %#x", len(buf), addr)
	}
	return nil
}

func readRemotePointer(process windows.Handle, addr uintptr) (uintptr, error) {
	var v uintptr
	err := readRemote(process, addr, (*[8]byte)(unsafe.Pointer(&v))[:])
	return v, err
}

func readRemoteUint32(process windows.Handle, addr uintptr) (uint32, error) {
	var v uint32
	err := readRemote(process, addr, (*[4]byte)(unsafe.Pointer(&v))[:])
	return v, err
}

func readRemoteUint16(process windows.Handle, addr uintptr) (uint16, error) {
	var v uint16
	err := readRemote(process, addr, (*[2]byte)(unsafe.Pointer(&v))[:])
	return v, err
}

// readRemoteUnicodeString reads a UNICODE_STRING structure and then its
// backing buffer out of the process.
func readRemoteUnicodeString(process windows.Handle, addr uintptr) (string, error) {
	var us unicodeString
	if err := readRemote(process, addr, (*[16]byte)(unsafe.Pointer(&us))[:]); err != nil {
		return "", err
	}
	if us.Length == 0 || us.Buffer == 0 {
		return "", nil
	}
	chars := make([]uint16, us.Length/2)
	if err := readRemote(process, uintptr(us.Buffer), (*[1 << 20]byte)(unsafe.Pointer(&chars[0]))[:us.Length]); err != nil {
		return "", err
	}
	return string(utf16.Decode(chars)), nil
}

// pebBaseAddress resolves the address of the process's environment block.
func pebBaseAddress(process windows.Handle) (uintptr, error) {
	var pbi processBasicInformation
	status := ntQueryInformationProcess(process, processBasicInformationClass, (*byte)(unsafe.Pointer(&pbi)), sizeofProcessBasicInformation, nil)
	if !status.IsSuccess() {
		return 0, errors.Wrap(status.Err(), "query process basic information")
	}
	return pbi.PebBaseAddress, nil
}

// readOSInfo pulls the version and build fields out of our own environment
// block. The dumper and the target run on the same machine, so the values
// describe the target as well, without any extra syscalls against it.
func readOSInfo() (*OSInfo, error) {
	self := windows.CurrentProcess()
	peb, err := pebBaseAddress(self)
	if err != nil {
		return nil, err
	}
	major, err := readRemoteUint32(self, peb+pebOSMajorVersionOffset)
	if err != nil {
		return nil, err
	}
	minor, err := readRemoteUint32(self, peb+pebOSMinorVersionOffset)
	if err != nil {
		return nil, err
	}
	build, err := readRemoteUint16(self, peb+pebOSBuildNumberOffset)
	if err != nil {
		return nil, err
	}
	platform, err := readRemoteUint32(self, peb+pebOSPlatformIDOffset)
	if err != nil {
		return nil, err
	}
	csd, err := readRemoteUnicodeString(self, peb+pebCSDVersionOffset)
	if err != nil {
		return nil, err
	}

	arch := processorArchitectureAMD64
	if runtime.GOARCH == "arm64" {
		arch = processorArchitectureARM64
	}
	return &OSInfo{
		ProcessorArchitecture: arch,
		MajorVersion:          major,
		MinorVersion:          minor,
		BuildNumber:           uint32(build),
		PlatformID:            platform,
		CSDVersion:            csd,
	}, nil
}
