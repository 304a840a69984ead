// Package ps locates processes by image name. It deliberately stays on the
// documented process-listing surface; only the dump engine itself avoids
// the documented entry points.
package ps

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// ErrNotFound is returned when no running process matches the name.
var ErrNotFound = errors.New("no process with that name")

// FindPID snapshots the process table and returns the PID of the first
// process whose image name matches, case-insensitively.
func FindPID(name string) (uint32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, errors.Wrap(err, "snapshot process table")
	}
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue
		}
		if strings.EqualFold(pname, name) {
			return uint32(p.Pid), nil
		}
	}
	return 0, errors.Wrapf(ErrNotFound, "%s", name)
}
