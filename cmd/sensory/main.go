// Command sensory runs the crowd analysis server and its offline tools.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sensory/internal/config"
	"github.com/teslashibe/go-sensory/internal/log"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sensory",
	Short: "Crowd density estimation for sensory-friendly navigation",
	Long: `sensory estimates how crowded and loud a place is from camera frames.

It serves the analysis API and live overlay (serve), runs a local camera
session (watch), analyzes single images (classify) and prints the
predicted crowd map (map).

Configuration comes from .env, an optional YAML file (--config or
SENSORY_CONFIG) and environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			os.Setenv(config.EnvConfigFile, configPath)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		log.Init(level)
		logger = log.L()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, watchCmd, classifyCmd, mapCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
