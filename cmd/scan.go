package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codesentry/codesentry/internal/orchestrator"
	"github.com/codesentry/codesentry/internal/repos"
	"github.com/codesentry/codesentry/internal/scan"
)

type RunOptionsScan struct {
	RepositoryURL string
	Mode          string
	RuleIDs       []string
	Status        string
	Repository    string
	Page          int
	Limit         int
}

var allArgumentsScan RunOptionsScan

var scanCmd = &cobra.Command{
	Use:          "scan",
	SilenceUsage: true,
	Short:        "Run security scans and inspect their results.",
}

var scanCreateCmd = &cobra.Command{
	Use:          "create [flags] [url]",
	SilenceUsage: true,
	Short:        "Scan a repository and report the findings.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			run, err := a.orch.StartScan(cmd.Context(), orchestrator.StartRequest{
				RepositoryURL: args[0],
				Mode:          scan.Mode(strings.ToUpper(allArgumentsScan.Mode)),
				RuleIDs:       allArgumentsScan.RuleIDs,
			})
			if err != nil {
				return err
			}
			// Evaluation runs in the background; wait here so the
			// command reports the terminal result.
			a.orch.Wait()
			details, err := a.agg.GetRun(run.ID)
			if err != nil {
				return err
			}
			return printJSON(details)
		})
	},
}

var scanListCmd = &cobra.Command{
	Use:          "list",
	SilenceUsage: true,
	Short:        "List scan runs, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			filter := scan.RunFilter{
				Status:     scan.Status(strings.ToUpper(allArgumentsScan.Status)),
				Repository: allArgumentsScan.Repository,
			}
			page := scan.Pagination{Page: allArgumentsScan.Page, Limit: allArgumentsScan.Limit}
			listed, total, err := a.agg.ListRuns(filter, page)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"scans": listed, "total": total})
		})
	},
}

var scanGetCmd = &cobra.Command{
	Use:          "get [scan-id]",
	SilenceUsage: true,
	Short:        "Show a scan run with its findings.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			details, err := a.agg.GetRun(args[0])
			if err != nil {
				return err
			}
			return printJSON(details)
		})
	},
}

var scanDeleteCmd = &cobra.Command{
	Use:          "delete [scan-id]",
	SilenceUsage: true,
	Short:        "Delete a scan run and its findings.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.agg.DeleteRun(args[0]); err != nil {
				return err
			}
			fmt.Printf("Scan %s deleted\n", args[0])
			return nil
		})
	},
}

var scanStatsCmd = &cobra.Command{
	Use:          "stats",
	SilenceUsage: true,
	Short:        "Show aggregate statistics over all scan runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			stats, err := a.agg.Statistics()
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

var scanInfoCmd = &cobra.Command{
	Use:          "info [url]",
	SilenceUsage: true,
	Short:        "Show metadata about a repository without scanning it.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ref, err := repos.Parse(args[0])
			if err != nil {
				return err
			}
			info := repos.NewInfoFetcher(a.logger).Describe(cmd.Context(), ref)
			return printJSON(info)
		})
	},
}

var scanReviewCmd = &cobra.Command{
	Use:          "review [finding-id] [status]",
	SilenceUsage: true,
	Short:        "Set the triage status of a finding. Eg. PENDING, REVIEWED, FIXED, IGNORED.",
	Args:         cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			finding, err := a.agg.UpdateFindingStatus(args[0], scan.ReviewStatus(strings.ToUpper(args[1])))
			if err != nil {
				return err
			}
			return printJSON(finding)
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanCreateCmd, scanListCmd, scanGetCmd, scanDeleteCmd, scanStatsCmd, scanInfoCmd, scanReviewCmd)

	scanCreateCmd.Flags().StringVar(&allArgumentsScan.Mode, "type", "BASIC", "scan type. Eg. BASIC, DEEP.")
	scanCreateCmd.Flags().StringSliceVar(&allArgumentsScan.RuleIDs, "rules", nil, "restrict a BASIC scan to these rule ids. Empty means all active rules.")

	scanListCmd.Flags().StringVar(&allArgumentsScan.Status, "status", "", "only runs with this status. Eg. RUNNING, COMPLETED, FAILED.")
	scanListCmd.Flags().StringVar(&allArgumentsScan.Repository, "repository", "", "substring match on the repository name or owner.")
	scanListCmd.Flags().IntVar(&allArgumentsScan.Page, "page", 0, "page number of the listing.")
	scanListCmd.Flags().IntVar(&allArgumentsScan.Limit, "limit", 0, "page size of the listing.")
}
