//go:build windows

package picodump

import (
	"github.com/Microsoft/go-winio"
	"github.com/pkg/errors"
)

const debugPrivilege = "SeDebugPrivilege"

// enableDebugPrivilege turns on SeDebugPrivilege for the current process
// token. Without it no strategy can touch the target.
func enableDebugPrivilege() error {
	if err := winio.EnableProcessPrivileges([]string{debugPrivilege}); err != nil {
		return errors.Wrapf(ErrPrivilegeDenied, "%v", err)
	}
	return nil
}
