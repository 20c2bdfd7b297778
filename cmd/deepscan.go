package cmd

import (
	"github.com/spf13/cobra"
)

var deepscanCmd = &cobra.Command{
	Use:          "deepscan",
	SilenceUsage: true,
	Short:        "Run SonarQube-backed deep scans.",
}

var deepscanRunCmd = &cobra.Command{
	Use:          "run [url]",
	SilenceUsage: true,
	Short:        "Analyse a repository with SonarQube and wait for the result.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			run, evalErr := a.orch.RunDeepScan(cmd.Context(), args[0])
			if run == nil {
				return evalErr
			}
			// A failed evaluation still yields a terminal FAILED run
			// worth reporting and persisting.
			if evalErr != nil {
				a.logger.Warn("deep scan failed", "scan_id", run.ID, "error", evalErr)
			}
			details, err := a.agg.GetRun(run.ID)
			if err != nil {
				return err
			}
			return printJSON(details)
		})
	},
}

var deepscanDetailsCmd = &cobra.Command{
	Use:          "details [scan-id]",
	SilenceUsage: true,
	Short:        "Show the SonarQube measures and issues of a deep scan.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			payload, err := a.agg.DeepDetails(args[0])
			if err != nil {
				return err
			}
			return printJSON(payload)
		})
	},
}

func init() {
	rootCmd.AddCommand(deepscanCmd)
	deepscanCmd.AddCommand(deepscanRunCmd, deepscanDetailsCmd)
}
