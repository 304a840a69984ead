//go:build windows

package picodump

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// maxLoaderEntries bounds the loader list walk in case a link is torn while
// the target mutates it under us.
const maxLoaderEntries = 1024

// findModules walks the target's in-memory loader list and returns the
// modules whose base filename is on the allow-list (or every module when
// all is set). Checksum and timestamp are read out of the mapped PE headers
// in the target; a module whose pages cannot be read is skipped.
func findModules(process windows.Handle, allowList []string, all bool, log *logrus.Entry) ([]*Module, error) {
	peb, err := pebBaseAddress(process)
	if err != nil {
		return nil, errors.Wrapf(ErrBadHandle, "locate environment block: %v", err)
	}
	ldr, err := readRemotePointer(process, peb+pebLdrOffset)
	if err != nil {
		return nil, errors.Wrapf(ErrBadHandle, "read loader data: %v", err)
	}

	head := ldr + ldrInLoadOrderListOffset
	entry, err := readRemotePointer(process, head)
	if err != nil {
		return nil, errors.Wrapf(ErrBadHandle, "read loader list head: %v", err)
	}

	var modules []*Module
	for i := 0; entry != head && i < maxLoaderEntries; i++ {
		next, err := readRemotePointer(process, entry)
		if err != nil {
			break
		}

		base, err := readRemotePointer(process, entry+ldrEntryDllBaseOffset)
		if err != nil || base == 0 {
			entry = next
			continue
		}
		path, err := readRemoteUnicodeString(process, entry+ldrEntryFullDllNameOffset)
		if err != nil || path == "" {
			entry = next
			continue
		}

		if all || isAllowListedModule(path, allowList) {
			m, err := readModuleRecord(process, base, path)
			if err != nil {
				log.WithError(err).WithField("module", path).Debug("skipping unreadable module")
			} else {
				modules = append(modules, m)
			}
		}
		entry = next
	}

	if len(modules) == 0 {
		return nil, ErrNoImportantModules
	}
	return modules, nil
}

// readModuleRecord recovers size, checksum and timestamp from the image's
// first page as mapped in the target.
func readModuleRecord(process windows.Handle, base uintptr, path string) (*Module, error) {
	page := make([]byte, 0x1000)
	if err := readRemote(process, base, page); err != nil {
		return nil, err
	}
	pe, err := parsePEHeader(page)
	if err != nil {
		return nil, errors.Wrapf(err, "parse headers of %s", path)
	}
	return &Module{
		Base:      uint64(base),
		Size:      pe.SizeOfImage,
		Checksum:  pe.CheckSum,
		Timestamp: pe.TimeDateStamp,
		Path:      path,
	}, nil
}
