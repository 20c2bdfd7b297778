package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codesentry/codesentry/internal/artifacts"
	"github.com/codesentry/codesentry/internal/sarifreport"
)

type RunOptionsExport struct {
	OutputFile string
	Upload     bool
}

var allArgumentsExport RunOptionsExport

var exportCmd = &cobra.Command{
	Use:          "export [scan-id]",
	SilenceUsage: true,
	Short:        "Export a scan run as a SARIF report, optionally uploading it to S3.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checkArgs := func() error {
			if len(allArgumentsExport.OutputFile) == 0 {
				return fmt.Errorf("'output' flag must be specified!")
			}
			return nil
		}
		if err := checkArgs(); err != nil {
			return err
		}

		return withApp(func(a *app) error {
			details, err := a.agg.GetRun(args[0])
			if err != nil {
				return err
			}
			if err := sarifreport.WriteFile(&details.Run, details.Findings, allArgumentsExport.OutputFile); err != nil {
				return err
			}
			a.logger.Info("report written", "path", allArgumentsExport.OutputFile)

			if allArgumentsExport.Upload {
				uploader := artifacts.NewUploader(a.logger, AppConfig)
				if !uploader.Enabled() {
					return fmt.Errorf("artifact upload requested but no S3 bucket is configured")
				}
				location, err := uploader.UploadReport(details.Run.RepositoryOwner, details.Run.RepositoryName, details.Run.ID, allArgumentsExport.OutputFile)
				if err != nil {
					return err
				}
				fmt.Printf("Report uploaded to %s\n", location)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&allArgumentsExport.OutputFile, "output", "f", "", "the path to the SARIF output file.")
	exportCmd.Flags().BoolVar(&allArgumentsExport.Upload, "upload", false, "upload the report to the configured S3 bucket.")
}
