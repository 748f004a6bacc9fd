package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/lock"
	"github.com/frobware/go-fieldpath/manager"
	"github.com/frobware/go-fieldpath/store/sqlite"
)

var (
	resolveOutput string
	resolveRecord bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the access-path catalog and print the report",
	Long: `Resolve every access chain in the catalog against the target
layout, run whole-program verification, and print the per-descriptor
report. With --record the report is also stored in the state
directory for later comparison across kernel versions.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "text", "output format: text or json")
	resolveCmd.Flags().BoolVar(&resolveRecord, "record", false, "record the report in the state directory")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	snap, release, err := loadSnapshot()
	if err != nil {
		return err
	}

	if !resolveRecord {
		m := manager.New(manager.Options{Logger: logger, KernelRelease: release})
		_, report, err := m.Load(ctx, snap)
		if printErr := printReport(cmd, report); printErr != nil {
			return printErr
		}
		return err
	}

	dirs, err := runtimeDirs()
	if err != nil {
		return err
	}
	if err := dirs.EnsureDirectories(); err != nil {
		return err
	}

	// Recording mutates the state directory; take the writer lock for
	// the duration of the load.
	return lock.Run(ctx, dirs.Lock(), func(ctx context.Context, _ lock.WriterScope) error {
		db, err := sqlite.New(ctx, dirs.DBPath(), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		m := manager.New(manager.Options{Logger: logger, Store: db, KernelRelease: release})
		_, report, err := m.Load(ctx, snap)
		if printErr := printReport(cmd, report); printErr != nil {
			return printErr
		}
		return err
	})
}

func printReport(cmd *cobra.Command, report fieldpath.Report) error {
	switch resolveOutput {
	case "json":
		out, err := report.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	default:
		fmt.Fprint(cmd.OutOrStdout(), report.String())
	}
	return nil
}
