package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

var redactKind string

var redactCmd = &cobra.Command{
	Use:   "redact [values...]",
	Short: "Redact values of one PII kind (reads stdin lines when no values are given)",
	Example: "  piiguard redact --kind email john.doe@example.com\n" +
		"  cut -f2 addresses.tsv | piiguard redact --kind ip",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := viewer.NewPresenter(true, nil)

		show := func(v string) string { return p.ShowIP(v) }
		if !strings.EqualFold(redactKind, classify.IPCategory) {
			kind, err := redact.ParseKind(redactKind)
			if err != nil {
				return err
			}
			show = func(v string) string { return p.Show(v, kind) }
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		defer out.Flush()

		if len(args) > 0 {
			for _, v := range args {
				fmt.Fprintln(out, show(v))
			}
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fmt.Fprintln(out, show(scanner.Text()))
		}
		return scanner.Err()
	},
}

func init() {
	kinds := make([]string, 0, len(redact.Kinds())+1)
	for _, k := range redact.Kinds() {
		kinds = append(kinds, k.String())
	}
	kinds = append(kinds, classify.IPCategory)

	redactCmd.Flags().StringVarP(&redactKind, "kind", "k", "generic", "PII kind: "+strings.Join(kinds, ", "))
	rootCmd.AddCommand(redactCmd)
}
