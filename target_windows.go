//go:build windows

package picodump

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// liveTarget implements Target over a process handle, reading through the
// syscall gateway.
type liveTarget struct {
	process windows.Handle
	log     *logrus.Entry
}

func newLiveTarget(process windows.Handle, log *logrus.Entry) *liveTarget {
	return &liveTarget{process: process, log: log}
}

func (t *liveTarget) OSInfo() (*OSInfo, error) {
	return readOSInfo()
}

func (t *liveTarget) Modules(allModules bool) ([]*Module, error) {
	return findModules(t.process, importantModules, allModules, t.log)
}

func (t *liveTarget) QueryRegion(addr uint64) (*MemoryRegion, error) {
	var mbi memoryBasicInformation
	status := ntQueryVirtualMemory(t.process, uintptr(addr), memoryBasicInformationClass, (*byte)(unsafe.Pointer(&mbi)), sizeofMemoryBasicInformation, nil)
	if !status.IsSuccess() {
		// Address space exhausted. The status is not inspected further;
		// walks do not recover from any failure.
		return nil, nil
	}
	return &MemoryRegion{
		Base:    uint64(mbi.BaseAddress),
		Size:    uint64(mbi.RegionSize),
		State:   mbi.State,
		Protect: mbi.Protect,
		Type:    mbi.Type,
	}, nil
}

func (t *liveTarget) ReadMemory(addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	var read uintptr
	status := ntReadVirtualMemory(t.process, uintptr(addr), &buf[0], uintptr(len(buf)), &read)
	if status == statusPartialCopy {
		return errors.Wrapf(ErrPartialCopy, "range at %#x", addr)
	}
	if !status.IsSuccess() {
		return errors.Wrapf(status.Err(), "read range at %#x", addr)
	}
	return nil
}
