// Command brain runs the ambient visualization in a window or terminal and
// talks to running instances over the control API.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brain/internal/config"
	"brain/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "State-driven ambient visualization",
	Long: `brain renders a generative background whose look follows a small state
machine: organic while idle, neural on hover or while an operation runs,
quantum on secondary hover, then a short success or error flash before
settling back.

Run without a subcommand to open the desktop window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runWindow,
}

func init() {
	// glfw must own the main thread.
	runtime.LockOSThread()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "brain.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(windowCmd, termCmd, snapshotCmd, sendCmd, execCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
