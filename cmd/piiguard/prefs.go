package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/prefs"
)

var (
	prefsUser     string
	prefsCensor   bool
	prefsDarkMode string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change a user's dashboard preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a user's preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := prefs.Open(cmd.Context(), config.Get().Preferences.Database)
		if err != nil {
			return err
		}
		defer svc.Close()

		p, ok, err := svc.Get(cmd.Context(), prefsUser)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no stored preferences\n", prefsUser)
			return nil
		}

		dark := "system"
		if p.DarkModeOverride != nil {
			dark = map[bool]string{true: "dark", false: "light"}[*p.DarkModeOverride]
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: censor_pii=%t dark_mode=%s last_updated=%s\n",
			p.UserID, p.CensorPii, dark, p.LastUpdated.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a user's preferences; unspecified ones are kept",
	RunE: func(cmd *cobra.Command, args []string) error {
		censorSet := cmd.Flags().Changed("censor")
		darkSet := cmd.Flags().Changed("dark-mode")
		if !censorSet && !darkSet {
			return fmt.Errorf("nothing to set: pass --censor and/or --dark-mode")
		}

		var override *bool
		if darkSet {
			switch prefsDarkMode {
			case "dark":
				v := true
				override = &v
			case "light":
				v := false
				override = &v
			case "system":
			default:
				return fmt.Errorf("--dark-mode must be dark, light or system")
			}
		}

		svc, err := prefs.Open(cmd.Context(), config.Get().Preferences.Database)
		if err != nil {
			return err
		}
		defer svc.Close()

		if censorSet {
			if err := svc.SetCensorPii(cmd.Context(), prefsUser, prefsCensor); err != nil {
				return err
			}
		}
		if darkSet {
			if err := svc.SetDarkMode(cmd.Context(), prefsUser, override); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	prefsCmd.PersistentFlags().StringVarP(&prefsUser, "user", "u", "", "user id")
	_ = prefsCmd.MarkPersistentFlagRequired("user")

	prefsSetCmd.Flags().BoolVar(&prefsCensor, "censor", false, "censor PII even with PII access")
	prefsSetCmd.Flags().StringVar(&prefsDarkMode, "dark-mode", "", "dark, light or system")

	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
