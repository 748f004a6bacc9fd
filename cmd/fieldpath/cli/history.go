package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frobware/go-fieldpath/store/sqlite"
)

var historyFingerprint string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded resolution reports",
	Long: `List the resolution reports recorded by "resolve --record",
newest first. With --fingerprint, print that report in full.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFingerprint, "fingerprint", "", "print the full report for one snapshot fingerprint")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dirs, err := runtimeDirs()
	if err != nil {
		return err
	}
	db, err := sqlite.New(ctx, dirs.DBPath(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if historyFingerprint != "" {
		report, err := db.GetReport(ctx, historyFingerprint)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.String())
		return nil
	}

	summaries, err := db.ListReports(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded reports")
		return nil
	}
	for _, s := range summaries {
		release := s.KernelRelease
		if release == "" {
			release = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-16s %s  resolved=%d missing=%d mismatched=%d\n",
			s.Fingerprint, release, s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.Resolved, s.Missing, s.Mismatched)
	}
	return nil
}
