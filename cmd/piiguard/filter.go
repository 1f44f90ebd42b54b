package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

var (
	filterUser     string
	filterView     string
	filterSearch   string
	filterFrom     string
	filterTo       string
	filterServer   int
	filterPlayer   string
	filterDenyOnly bool
)

var errKeyNotFound = errors.New("filter key not found")

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Create and resolve filter keys (needs the redis backend to outlive one process)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if config.Get().FilterKeys.Backend == "memory" {
			logger.L().Warnw("Filter keys are held in memory and vanish when this command exits")
		}
		return nil
	},
}

var filterCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Store filter criteria and print the new key",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := filterkey.ParseTargetView(filterView)
		if err != nil {
			return err
		}

		opts := []filterkey.CriteriaOption{filterkey.WithSearch(filterSearch)}

		var from, to time.Time
		if filterFrom != "" {
			if from, err = dateparse.ParseIn(filterFrom, time.UTC); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
		}
		if filterTo != "" {
			if to, err = dateparse.ParseIn(filterTo, time.UTC); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
		}
		opts = append(opts, filterkey.WithDateRange(from, to))

		if cmd.Flags().Changed("server") {
			opts = append(opts, filterkey.WithServerID(filterServer))
		}
		if filterPlayer != "" {
			id, err := uuid.Parse(filterPlayer)
			if err != nil {
				return fmt.Errorf("invalid --player: %w", err)
			}
			opts = append(opts, filterkey.WithPlayerID(id))
		}
		if filterDenyOnly {
			types := filterkey.AllConnectionTypes()
			types.ShowAccepted = false
			opts = append(opts, filterkey.WithConnectionTypes(types))
		}

		criteria := filterkey.NewCriteria(filterUser, view, opts...)
		if err := criteria.Validate(); err != nil {
			return err
		}

		store, closeFn, err := newFilterStore(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer closeFn()

		key, err := store.Create(cmd.Context(), criteria)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var filterGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the criteria behind a key you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := newFilterStore(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer closeFn()

		criteria, ok, err := store.Get(cmd.Context(), args[0], filterUser)
		if err != nil {
			return err
		}
		if !ok {
			return errKeyNotFound
		}

		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(criteria)
	},
}

var filterExtendCmd = &cobra.Command{
	Use:   "extend KEY",
	Short: "Refresh the idle timeout of a key you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := newFilterStore(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer closeFn()

		ok, err := store.Extend(cmd.Context(), args[0], filterUser)
		if err != nil {
			return err
		}
		if !ok {
			return errKeyNotFound
		}
		fmt.Fprintf(cmd.OutOrStdout(), "extended by %s\n", store.IdleTimeout())
		return nil
	},
}

var filterRemoveCmd = &cobra.Command{
	Use:   "remove KEY",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := newFilterStore(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer closeFn()
		return store.Remove(cmd.Context(), args[0])
	},
}

func init() {
	filterCmd.PersistentFlags().StringVarP(&filterUser, "user", "u", "", "acting user id")
	_ = filterCmd.MarkPersistentFlagRequired("user")

	filterCreateCmd.Flags().StringVar(&filterView, "view", "connections", "target view (connections, players, bans, role_bans, characters, logs, whitelist)")
	filterCreateCmd.Flags().StringVar(&filterSearch, "search", "", "search term, e.g. an IP or user id")
	filterCreateCmd.Flags().StringVar(&filterFrom, "from", "", "start of date range")
	filterCreateCmd.Flags().StringVar(&filterTo, "to", "", "end of date range")
	filterCreateCmd.Flags().IntVar(&filterServer, "server", 0, "server id")
	filterCreateCmd.Flags().StringVar(&filterPlayer, "player", "", "player user id")
	filterCreateCmd.Flags().BoolVar(&filterDenyOnly, "denied-only", false, "only show denied connections")

	filterCmd.AddCommand(filterCreateCmd, filterGetCmd, filterExtendCmd, filterRemoveCmd)
	rootCmd.AddCommand(filterCmd)
}
