package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/QTest-hq/qscan/internal/analysis"
	"github.com/QTest-hq/qscan/internal/config"
	"github.com/QTest-hq/qscan/internal/report"
	"github.com/QTest-hq/qscan/internal/scanner"
)

func analyzeCmd() *cobra.Command {
	var (
		output      string
		minSeverity string
		reportFile  string
		workers     int
		exclude     []string
	)

	cmd := &cobra.Command{
		Use:   "analyze <path|github-url>",
		Short: "Run static analysis and print a report",
		Long: `Analyze every Python file under a path (or a single file) for complexity,
security patterns, documentation coverage and imports.

Text and JSON reports go to stdout unless --report-file is set. HTML
reports are written to analysis_report.html by default.`,
		Args: cobra.ExactArgs(1),
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

			return runAnalyze(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), analyzeOptions{
				Target:     target,
				ReportFile: reportFile,
				Flags: &config.ProjectConfig{
					Exclude:     exclude,
					Workers:     workers,
					MinSeverity: minSeverity,
					Output:      output,
				},
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (text, json, html)")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "Minimum severity to report (info, warning, error)")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "Write the report to this file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel file analyses (default: one per CPU)")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "e", nil, "Additional path fragments to skip")

	return cmd
}

type analyzeOptions struct {
	Target     *scanTarget
	ReportFile string
	Flags      *config.ProjectConfig
}

func runAnalyze(ctx context.Context, stdout, stderr io.Writer, opts analyzeOptions) error {
	_, project, err := loadSettings(opts.Target.Root, opts.Flags)
	if err != nil {
		return err
	}

	min, err := analysis.ParseSeverity(project.MinSeverity)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(project.Output)
	if err != nil {
		return err
	}

	s := scanner.New(scanner.Options{
		Exclude:    excludeList(project.Exclude),
		Workers:    project.Workers,
		Thresholds: &project.Thresholds,
		Progress: func(done, total int, result *analysis.Result) {
			log.Debug().
				Int("done", done).
				Int("total", total).
				Str("file", result.FilePath).
				Int("issues", len(result.Issues)).
				Msg("analyzed")
		},
	})

	result, err := s.Scan(ctx, opts.Target.Root)
	if err != nil {
		if errors.Is(err, scanner.ErrNoFiles) {
			fmt.Fprintf(stderr, "No Python files found in %s\n", opts.Target.Root)
			return nil
		}
		return err
	}

	renderer := report.NewRenderer()
	renderer.RunID = result.SessionID
	renderer.Commit = opts.Target.Commit
	renderer.Branch = opts.Target.Branch

	reportFile := opts.ReportFile
	if reportFile == "" && format == report.FormatHTML {
		reportFile = report.DefaultHTMLFile
	}

	if reportFile != "" {
		if err := renderer.WriteFile(reportFile, result.Results, format, min); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Report written to %s\n", reportFile)
	} else if err := renderer.Render(stdout, result.Results, format, min); err != nil {
		return err
	}

	if result.Interrupted {
		return fmt.Errorf("%w: reported %d of %d files", errInterrupted, len(result.Results), len(result.Files))
	}
	return nil
}

func excludeList(extra []string) []string {
	exclude := make([]string, 0, len(scanner.DefaultExclude)+len(extra))
	exclude = append(exclude, scanner.DefaultExclude...)
	return append(exclude, extra...)
}
