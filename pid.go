package picodump

import (
	"github.com/pkg/errors"

	"github.com/picodump/picodump/internal/ps"
)

// targetProcessName is the image name of the credential host.
const targetProcessName = "lsass.exe"

// FindTargetPID locates the credential host by image name.
func FindTargetPID() (uint32, error) {
	pid, err := ps.FindPID(targetProcessName)
	if err != nil {
		return 0, errors.Wrapf(ErrTargetNotFound, "%v", err)
	}
	return pid, nil
}
