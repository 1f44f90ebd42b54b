package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/scrub"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

var (
	scrubOutput  string
	scrubRules   string
	scrubSummary bool
)

var scrubCmd = &cobra.Command{
	Use:   "scrub [files...]",
	Short: "Redact PII fields in NDJSON records (stdin when no files are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := scrubRules
		if rules == "" {
			rules = config.Get().Classify.RulesFile
		}
		classifier, err := loadClassifier(rules)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if scrubOutput != "" {
			f, err := os.Create(scrubOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file %s: %w", scrubOutput, err)
			}
			defer f.Close()
			out = f
		}

		s := scrub.New(classifier, viewer.NewPresenter(true, nil))
		stats, err := s.Stream(cmd.Context(), scrub.ReadRecords(args), out)
		if err != nil {
			return err
		}

		if scrubSummary {
			fmt.Fprintf(os.Stderr, "records: %d, redacted fields: %d, malformed lines: %d\n",
				stats.Records, stats.Redacted, stats.Malformed)
			fields := make([]string, 0, len(stats.ByField))
			for field := range stats.ByField {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				fmt.Fprintf(os.Stderr, "  %s: %d\n", field, stats.ByField[field])
			}
		}
		return nil
	},
}

func init() {
	scrubCmd.Flags().StringVarP(&scrubOutput, "output", "o", "", "output file (default stdout)")
	scrubCmd.Flags().StringVar(&scrubRules, "rules", "", "classification rules JSON (default built-in rules)")
	scrubCmd.Flags().BoolVar(&scrubSummary, "summary", false, "print counts to stderr")
	rootCmd.AddCommand(scrubCmd)
}
