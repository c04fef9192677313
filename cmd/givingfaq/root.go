package main

import (
	"log/slog"
	"os"

	"github.com/barekit/givingfaq/pkg/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "givingfaq",
		Short:         "Church giving FAQ question answering",
		Long:          `Builds a semantic index over the giving FAQ spreadsheet and answers questions from it.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newBuildCmd(),
		newServeCmd(),
		newAskCmd(),
		newListCmd(),
	)

	return rootCmd
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return cfg, nil
}
