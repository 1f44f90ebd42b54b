package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
)

var rulesFile string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and try out field classification rules",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a classification rules JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(rulesFile)
		if err != nil {
			return fmt.Errorf("open rules file: %w", err)
		}
		defer f.Close()

		rules, categories, err := classify.Validate(f)
		if err != nil {
			return fmt.Errorf("rules validation failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "rules validated successfully\n")
		fmt.Fprintf(cmd.OutOrStdout(), "categories: %v, negatives: %d\n", len(categories), len(rules.Negative))
		return nil
	},
}

var rulesMatchCmd = &cobra.Command{
	Use:   "match FIELD...",
	Short: "Show how field names are classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := rulesFile
		if path == "" {
			path = config.Get().Classify.RulesFile
		}
		c, err := loadClassifier(path)
		if err != nil {
			return err
		}

		for _, field := range args {
			class, ok := c.Match(field)
			switch {
			case !ok:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t-\n", field)
			case class.DetectIP:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", field, classify.IPCategory)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", field, class.Kind)
			}
		}
		return nil
	},
}

func init() {
	rulesValidateCmd.Flags().StringVar(&rulesFile, "file", "", "Path to classification rules JSON file")
	_ = rulesValidateCmd.MarkFlagRequired("file")
	rulesMatchCmd.Flags().StringVar(&rulesFile, "file", "", "Path to classification rules JSON file (default built-in rules)")

	rulesCmd.AddCommand(rulesValidateCmd, rulesMatchCmd)
	rootCmd.AddCommand(rulesCmd)
}
