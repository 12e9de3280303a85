package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QTest-hq/qscan/internal/config"
	"github.com/QTest-hq/qscan/internal/report"
	"github.com/QTest-hq/qscan/internal/scanner"
)

func complexityCmd() *cobra.Command {
	var (
		workers int
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "complexity <path|github-url>",
		Short: "Show complexity metrics for Python code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			target, err := resolveTarget(ctx, cfg, args[0])
			if err != nil {
				return err
			}

			return runComplexity(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), target.Root,
				&config.ProjectConfig{Exclude: exclude, Workers: workers})
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel file analyses (default: one per CPU)")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "e", nil, "Additional path fragments to skip")

	return cmd
}

func runComplexity(ctx context.Context, stdout, stderr io.Writer, root string, flags *config.ProjectConfig) error {
	_, project, err := loadSettings(root, flags)
	if err != nil {
		return err
	}

	s := scanner.New(scanner.Options{
		Exclude:    excludeList(project.Exclude),
		Workers:    project.Workers,
		Thresholds: &project.Thresholds,
	})

	rows, err := s.Complexity(ctx, root)
	interrupted := err != nil && ctx.Err() != nil
	if err != nil && !interrupted {
		if errors.Is(err, scanner.ErrNoFiles) {
			fmt.Fprintf(stderr, "No Python files found in %s\n", root)
			return nil
		}
		return err
	}

	if err := report.RenderComplexity(stdout, rows); err != nil {
		return err
	}

	if interrupted {
		return fmt.Errorf("%w: reported %d files", errInterrupted, len(rows))
	}
	return nil
}
