package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/pkg/shared/config"
	sharederrors "github.com/codesentry/codesentry/pkg/shared/errors"
)

type RunOptionsRules struct {
	ID             string
	Name           string
	Description    string
	Pattern        string
	Severity       string
	Category       string
	Language       string
	FileExtensions []string
	FixSuggestion  string
	Inactive       bool
	Custom         bool
	Page           int
	Limit          int
	ActiveOnly     bool
	OutputFile     string
}

var allArgumentsRules RunOptionsRules

var rulesCmd = &cobra.Command{
	Use:          "rules",
	SilenceUsage: true,
	Short:        "Manage the security rule set.",
}

var rulesListCmd = &cobra.Command{
	Use:          "list",
	SilenceUsage: true,
	Short:        "List rules, optionally filtered by category, severity or active state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			filter := rules.Filter{
				Category: allArgumentsRules.Category,
				Severity: rules.Severity(allArgumentsRules.Severity),
			}
			if allArgumentsRules.ActiveOnly {
				active := true
				filter.Active = &active
			}
			page := rules.Pagination{Page: allArgumentsRules.Page, Limit: allArgumentsRules.Limit}
			listed, total, err := a.ruleStore.List(filter, page)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"rules": listed, "total": total})
		})
	},
}

var rulesGetCmd = &cobra.Command{
	Use:          "get [rule-id]",
	SilenceUsage: true,
	Short:        "Show a single rule.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			rule, err := a.ruleStore.Get(args[0])
			if err != nil {
				return err
			}
			return printJSON(rule)
		})
	},
}

var rulesCreateCmd = &cobra.Command{
	Use:          "create",
	SilenceUsage: true,
	Short:        "Create a custom rule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkArgs := func() error {
			if len(allArgumentsRules.ID) == 0 {
				return fmt.Errorf("'id' flag must be specified!")
			}
			if len(allArgumentsRules.Name) == 0 {
				return fmt.Errorf("'name' flag must be specified!")
			}
			if len(allArgumentsRules.Pattern) == 0 {
				return fmt.Errorf("'pattern' flag must be specified!")
			}
			return nil
		}
		if err := checkArgs(); err != nil {
			return err
		}

		return withApp(func(a *app) error {
			active := !allArgumentsRules.Inactive
			custom := true
			rule, err := a.ruleStore.Create(rules.CreateInput{
				ID:             allArgumentsRules.ID,
				Name:           allArgumentsRules.Name,
				Description:    allArgumentsRules.Description,
				Pattern:        allArgumentsRules.Pattern,
				Severity:       rules.Severity(allArgumentsRules.Severity),
				Category:       allArgumentsRules.Category,
				Language:       allArgumentsRules.Language,
				FileExtensions: allArgumentsRules.FileExtensions,
				FixSuggestion:  allArgumentsRules.FixSuggestion,
				Active:         &active,
				Custom:         &custom,
			})
			if err != nil {
				return err
			}
			return printJSON(rule)
		})
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:          "update [rule-id]",
	SilenceUsage: true,
	Short:        "Update fields of an existing rule.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			var input rules.UpdateInput
			if cmd.Flags().Changed("name") {
				input.Name = &allArgumentsRules.Name
			}
			if cmd.Flags().Changed("description") {
				input.Description = &allArgumentsRules.Description
			}
			if cmd.Flags().Changed("pattern") {
				input.Pattern = &allArgumentsRules.Pattern
			}
			if cmd.Flags().Changed("severity") {
				severity := rules.Severity(allArgumentsRules.Severity)
				input.Severity = &severity
			}
			if cmd.Flags().Changed("category") {
				input.Category = &allArgumentsRules.Category
			}
			if cmd.Flags().Changed("language") {
				input.Language = &allArgumentsRules.Language
			}
			if cmd.Flags().Changed("extensions") {
				input.FileExtensions = &allArgumentsRules.FileExtensions
			}
			if cmd.Flags().Changed("fix") {
				input.FixSuggestion = &allArgumentsRules.FixSuggestion
			}
			rule, err := a.ruleStore.Update(args[0], input)
			if err != nil {
				return err
			}
			return printJSON(rule)
		})
	},
}

var rulesToggleCmd = &cobra.Command{
	Use:          "toggle [rule-id]",
	SilenceUsage: true,
	Short:        "Flip a rule between active and inactive.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			rule, err := a.ruleStore.ToggleActive(args[0])
			if err != nil {
				return err
			}
			return printJSON(rule)
		})
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:          "delete [rule-id]",
	SilenceUsage: true,
	Short:        "Delete a rule.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.ruleStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Rule %s deleted\n", args[0])
			return nil
		})
	},
}

var rulesImportCmd = &cobra.Command{
	Use:          "import [file]",
	SilenceUsage: true,
	Short:        "Import rules from a YAML file. Rules that already exist are skipped.",
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			var imported []rules.Rule
			if err := config.LoadYAML(args[0], &imported); err != nil {
				return err
			}

			var created, skipped int
			for _, rule := range imported {
				rule := rule
				_, err := a.ruleStore.Create(rules.CreateInput{
					ID:             rule.ID,
					Name:           rule.Name,
					Description:    rule.Description,
					Pattern:        rule.Pattern,
					Severity:       rule.Severity,
					Category:       rule.Category,
					Language:       rule.Language,
					FileExtensions: rule.FileExtensions,
					FixSuggestion:  rule.FixSuggestion,
					Active:         &rule.Active,
					Custom:         &rule.Custom,
				})
				if err != nil {
					if sharederrors.IsConflict(err) {
						a.logger.Debug("rule already present, skipping", "rule", rule.ID)
						skipped++
						continue
					}
					return err
				}
				created++
			}
			fmt.Printf("Imported %d rule(s), skipped %d existing\n", created, skipped)
			return nil
		})
	},
}

var rulesExportCmd = &cobra.Command{
	Use:          "export",
	SilenceUsage: true,
	Short:        "Export the full rule set to a YAML file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkArgs := func() error {
			if len(allArgumentsRules.OutputFile) == 0 {
				return fmt.Errorf("'output' flag must be specified!")
			}
			return nil
		}
		if err := checkArgs(); err != nil {
			return err
		}

		return withApp(func(a *app) error {
			exported := a.ruleStore.Snapshot()
			data, err := yaml.Marshal(exported)
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}
			if err := os.WriteFile(allArgumentsRules.OutputFile, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %q: %w", allArgumentsRules.OutputFile, err)
			}
			fmt.Printf("Exported %d rule(s) to %s\n", len(exported), allArgumentsRules.OutputFile)
			return nil
		})
	},
}

var rulesCategoriesCmd = &cobra.Command{
	Use:          "categories",
	SilenceUsage: true,
	Short:        "List the distinct rule categories.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			categories, err := a.ruleStore.Categories()
			if err != nil {
				return err
			}
			return printJSON(categories)
		})
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesGetCmd, rulesCreateCmd, rulesUpdateCmd, rulesToggleCmd, rulesDeleteCmd, rulesCategoriesCmd, rulesImportCmd, rulesExportCmd)

	rulesListCmd.Flags().StringVar(&allArgumentsRules.Category, "category", "", "only rules in this category.")
	rulesListCmd.Flags().StringVar(&allArgumentsRules.Severity, "severity", "", "only rules with this severity. Eg. HIGH, MEDIUM, LOW.")
	rulesListCmd.Flags().BoolVar(&allArgumentsRules.ActiveOnly, "active", false, "only active rules.")
	rulesListCmd.Flags().IntVar(&allArgumentsRules.Page, "page", 0, "page number of the listing.")
	rulesListCmd.Flags().IntVar(&allArgumentsRules.Limit, "limit", 0, "page size of the listing.")

	for _, c := range []*cobra.Command{rulesCreateCmd, rulesUpdateCmd} {
		c.Flags().StringVar(&allArgumentsRules.Name, "name", "", "human readable rule name.")
		c.Flags().StringVar(&allArgumentsRules.Description, "description", "", "what the rule detects.")
		c.Flags().StringVar(&allArgumentsRules.Pattern, "pattern", "", "regular expression the rule matches.")
		c.Flags().StringVar(&allArgumentsRules.Severity, "severity", "MEDIUM", "rule severity. Eg. HIGH, MEDIUM, LOW.")
		c.Flags().StringVar(&allArgumentsRules.Category, "category", "", "rule category. Eg. Authentication, Injection.")
		c.Flags().StringVar(&allArgumentsRules.Language, "language", "", "language the rule targets.")
		c.Flags().StringSliceVar(&allArgumentsRules.FileExtensions, "extensions", nil, "file extensions the rule applies to. Empty means all files.")
		c.Flags().StringVar(&allArgumentsRules.FixSuggestion, "fix", "", "suggested remediation.")
	}
	rulesCreateCmd.Flags().StringVar(&allArgumentsRules.ID, "id", "", "unique rule identifier.")
	rulesCreateCmd.Flags().BoolVar(&allArgumentsRules.Inactive, "inactive", false, "create the rule disabled.")

	rulesExportCmd.Flags().StringVarP(&allArgumentsRules.OutputFile, "output", "f", "", "the path to the YAML output file.")
}
