// cmd/contexter/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contexter/internal/config"
	"contexter/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     = config.Default()
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "contexter",
	Short: "Contexter packs a project into a single context container",
	Long: `Contexter packs a directory tree into one text or HTML container, repairs
containers that were edited by hand, and keeps them current with unified-diff
patches computed from what changed in the project since the last run.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup resolves configuration and the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	level := "warn"
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		level = cfg.LogLevel
	}
	if verbose {
		level = "debug"
	}
	l, err := logging.NewDevelopment(level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger = l.Logger
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "configuration file (YAML or JSON)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("format", "md", "container format when it cannot be told from a file name (md or html)")
	flags.String("mirror", "walk", "change detection mirror (walk or rsync)")
	flags.StringSlice("exclude", nil, "extra exclude patterns")
	flags.String("ignore-file", ".gitignore", "ignore file read from each scanned directory")
	flags.Int("context-lines", 3, "context lines around each diff hunk")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}
