package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

var (
	cfgFile string
	Version = "v0.1"
	build   = "dev"
	rootCmd = &cobra.Command{
		Use:   "piiguard",
		Short: "PiiGuard - PII redaction and filter keys for the game admin dashboard",
		Long: "PiiGuard: redact PII for display, scrub exported records, and hand out\n" +
			"owner-checked filter keys so PII never travels in dashboard URLs.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			loadEnvFiles(cfgFile)
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", cfgFile, err)
				}
			} else {
				v.SetConfigFile("config.yaml")
				if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
					// no ./config.yaml is fine
					fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Using defaults and flags.\n", err)
				}
			}
			if err := config.Load(v); err != nil {
				return err
			}

			cfg := config.Get()
			if err := logger.InitLogger(logger.LogConfig{
				Level:       cfg.Logging.Level,
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
				Rotation: logger.RotationConfig{
					MaxSize:    cfg.Logging.Rotation.MaxSize,
					MaxBackups: cfg.Logging.Rotation.MaxBackups,
					MaxAge:     cfg.Logging.Rotation.MaxAge,
					Compress:   cfg.Logging.Rotation.Compress,
				},
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(versionCmd)
}

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env files from the working directory and, when a
// config file is given, from its directory. godotenv never overrides
// variables that are already set.
func loadEnvFiles(cfgPath string) {
	dirs := []string{"."}
	if cfgPath != "" {
		dirs = append(dirs, filepath.Dir(cfgPath))
	}
	for _, dir := range dirs {
		for _, name := range envFiles {
			_ = godotenv.Load(filepath.Join(dir, name)) // missing files are fine
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
