package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/QTest-hq/qscan/internal/config"
)

var version = "dev"

// errInterrupted marks a run cut short by a signal after partial output
var errInterrupted = errors.New("interrupted")

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "qscan",
		Short:         "QScan - static analysis for Python projects",
		Long:          `QScan reports complexity, security patterns, documentation coverage and imports for Python code.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(os.Getenv("LOG_LEVEL"), verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(complexityCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

// setupLogging sets the global log level. verbose wins over LOG_LEVEL.
func setupLogging(level string, verbose bool) error {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return nil
	}
	if level == "" {
		level = "info"
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// loadSettings resolves run settings. Precedence: flags, then .qscan.yaml
// in the scan root, then environment, then defaults.
func loadSettings(root string, flags *config.ProjectConfig) (*config.Config, *config.ProjectConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	project, err := config.LoadProjectConfig(root)
	if err != nil {
		return nil, nil, err
	}
	project.Merge(flags)

	if project.MinSeverity == "" {
		project.MinSeverity = cfg.MinSeverity
	}
	if project.Workers == 0 {
		project.Workers = cfg.Workers
	}
	if project.Output == "" {
		project.Output = "text"
	}

	return cfg, project, nil
}
