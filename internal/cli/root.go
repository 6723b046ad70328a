// Package cli implements the dyresolve command line using Cobra.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/pkg/douyin"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig string
	flagJSON   bool
	flagDebug  bool
)

// cfg holds the loaded configuration.
var cfg *config.Config

// clientOptions are applied to every platform client the CLI builds.
var clientOptions []douyin.Option

var rootCmd = &cobra.Command{
	Use:   "dyresolve",
	Short: "Resolve Douyin share links from the terminal",
	Long: `dyresolve turns Douyin share text or links into a playable video URL
together with the title, author and duration of the clip.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration: defaults < config file < .env < environment.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return nil
}

// newLogger logs to stderr so stdout stays machine-readable.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if flagDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dyresolve %s\n", Version)
	},
}
