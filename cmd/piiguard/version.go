package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show PiiGuard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PiiGuard %s (%s)\n", Version, build)
	},
}
