package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/manager"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Preflight the target for sensor compatibility",
	Long: `Resolve and verify the catalog against the target and exit
with a status suitable for fleet preflight:

  0  every chain resolved, or degraded only by missing fields
  1  at least one type mismatch (structural incompatibility)
  2  whole-program verification rejected (nothing would load)`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	snap, release, err := loadSnapshot()
	if err != nil {
		return err
	}

	m := manager.New(manager.Options{Logger: logger, KernelRelease: release})
	_, report, err := m.Load(cmd.Context(), snap)
	if err != nil {
		var verr fieldpath.VerificationError
		var skew fieldpath.SnapshotSkewError
		if errors.As(err, &verr) || errors.As(err, &skew) {
			fmt.Fprintln(cmd.ErrOrStderr(), "verification rejected:", err)
			os.Exit(2)
		}
		return err
	}

	for _, e := range report.Degraded() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (step %d: %s)\n", e.Path, e.Status, e.StepIndex, e.Field)
	}
	if report.Mismatched() {
		os.Exit(1)
	}
	return nil
}
