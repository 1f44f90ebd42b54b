package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/sample"
)

var (
	sampleProfile string
	sampleOutput  string
	sampleSQL     string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate fake connection log data",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := sample.DefaultProfile()
		if sampleProfile != "" {
			var err error
			if p, err = sample.ReadProfile(sampleProfile); err != nil {
				return err
			}
		} else if err := p.Validate(); err != nil {
			return err
		}
		if sampleOutput != "" {
			p.Output = sampleOutput
		}
		if sampleSQL != "" {
			p.SQLOutput = sampleSQL
		}

		ds := sample.Generate(p)

		out := cmd.OutOrStdout()
		if p.Output != "" && p.Output != "-" {
			f, err := os.Create(p.Output)
			if err != nil {
				return fmt.Errorf("cannot create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := ds.WriteNDJSON(out); err != nil {
			return err
		}

		if p.SQLOutput != "" {
			f, err := os.Create(p.SQLOutput)
			if err != nil {
				return fmt.Errorf("cannot create sql file: %w", err)
			}
			defer f.Close()
			if err := ds.WriteSQL(f); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "SQL file generated: %s\n", p.SQLOutput)
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().StringVar(&sampleProfile, "profile", "", "YAML sample profile")
	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "", "NDJSON output file (default stdout)")
	sampleCmd.Flags().StringVar(&sampleSQL, "sql", "", "also write a PostgreSQL seed script")
	rootCmd.AddCommand(sampleCmd)
}
