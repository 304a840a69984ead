package picodump

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// defaultMaxDumpSize is the reserve for the output buffer. An LSASS dump
// restricted to the important modules stays well below this.
const defaultMaxDumpSize = 0x5a00000 // 90 MiB

// Options configures one dump attempt. The zero value is not usable; Path
// is always required and the strategies default to a plain direct open.
type Options struct {
	// PID overrides target discovery. When zero the target is located by
	// image name.
	PID uint32

	// Path is the full destination path of the artifact.
	Path string

	// ValidSignature selects the canonical container identity values
	// instead of randomised ones.
	ValidSignature bool

	// Fork reads memory out of a suspended clone instead of the live
	// target.
	Fork bool

	// DupHandle recovers a handle from another process's handle table
	// instead of opening one.
	DupHandle bool

	// MalSecLogon leaks a handle through the secondary-logon service.
	// Combines with DupHandle (remote variant) and Fork.
	MalSecLogon bool

	// Stage2 marks this process as the decoy spawned by the seclogon
	// strategy; it recovers the leaked handle from its own table.
	Stage2 bool

	// DecoyBinary is the program launched under alternate credentials by
	// the seclogon strategy. Required with DupHandle+MalSecLogon; defaults
	// to the running executable otherwise.
	DecoyBinary string

	// AllModules swaps the allow-list comparator for "every module", for
	// diagnostic use.
	AllModules bool

	// MaxDumpSize overrides the buffer reserve. Zero means the default.
	MaxDumpSize int

	// Log receives diagnostics. Nil falls back to the standard logger.
	Log *logrus.Entry
}

func (o *Options) maxSize() int {
	if o.MaxDumpSize > 0 {
		return o.MaxDumpSize
	}
	return defaultMaxDumpSize
}

func (o *Options) logger() *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Validate rejects option combinations before any privileged work starts.
// The rules mirror the CLI contract: a full destination path is always
// required, and the decoy binary only makes sense for the remote seclogon
// variant, where it is mandatory.
func (o *Options) Validate() error {
	if o.Path == "" {
		return errors.New("no destination path provided")
	}
	if !strings.ContainsRune(o.Path, '\\') {
		return errors.Errorf("destination must be a full path: %s", o.Path)
	}
	if o.MalSecLogon && o.DupHandle && o.DecoyBinary == "" {
		return errors.New("--malseclogon with --dup requires a decoy binary (--binary)")
	}
	if o.DecoyBinary != "" && !strings.ContainsRune(o.DecoyBinary, '\\') {
		return errors.Errorf("decoy binary must be a full path: %s", o.DecoyBinary)
	}
	if o.DecoyBinary != "" && !(o.MalSecLogon && o.DupHandle) {
		return errors.New("--binary is only valid together with --malseclogon and --dup")
	}
	return nil
}
