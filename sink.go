package picodump

import (
	"os"

	"github.com/pkg/errors"
)

// createDumpFile probes the destination before any acquisition work, so a
// bad path fails the run before a handle to the target is ever opened.
func createDumpFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrapf(ErrSinkFailed, "create %s: %v", path, err)
	}
	return f.Close()
}

// writeDumpFile persists the finished artifact. The caller scrubs the
// buffer afterwards regardless of the outcome.
func writeDumpFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(ErrSinkFailed, "write %s: %v", path, err)
	}
	return nil
}
