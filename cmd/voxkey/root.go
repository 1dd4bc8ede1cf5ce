package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxkey/voxkey/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "voxkey",
	Short: "Push-to-talk dictation into whatever has focus",
	Long: `voxkey runs a streaming dictation daemon: hold (or toggle) a global
shortcut, speak, and the transcript lands in the focused application as you
talk. The start, stop, toggle and status subcommands control a running daemon
over its unix socket.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default: "+config.DefaultConfigPath()+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig loads the config from the --config path, or the default config
// path if one exists there, or falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}
