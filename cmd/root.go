package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codesentry/codesentry/cmd/version"
	"github.com/codesentry/codesentry/pkg/shared/config"
)

var (
	cfgFile   string
	statePath string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "codesentry [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Codesentry scans repositories for security issues.",
		Long: `Codesentry runs security scans over source repositories: fast pattern-based
scans driven by a configurable rule set, and deep scans delegated to a SonarQube
server. Scan runs, findings and rules persist between invocations in a local
state file.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "state file (default is ~/.codesentry/state.json)")
	rootCmd.AddCommand(version.NewVersionCmd())
}

func Execute() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("failed to initialize config - %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	version.Init(AppConfig)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
