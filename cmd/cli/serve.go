package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/QTest-hq/qscan/internal/api"
	"github.com/QTest-hq/qscan/internal/config"
	"github.com/QTest-hq/qscan/internal/scanner"
)

func serveCmd() *cobra.Command {
	var (
		port    int
		workers int
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "serve [path|github-url]",
		Short: "Serve analysis reports over HTTP",
		Long: `Serve reports for one project root. Every request runs a fresh scan.

Routes:
  GET /health
  GET /ready
  GET /api/v1/files
  GET /api/v1/report?format=json|text|html&min_severity=info|warning|error
  GET /api/v1/report.html
  GET /api/v1/complexity`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "."
			if len(args) == 1 {
				arg = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port != 0 {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			target, err := resolveTarget(ctx, cfg, arg)
			if err != nil {
				return err
			}

			_, project, err := loadSettings(target.Root, &config.ProjectConfig{Exclude: exclude, Workers: workers})
			if err != nil {
				return err
			}
			cfg.MinSeverity = project.MinSeverity

			srv, err := api.NewServer(cfg, target.Root, scanner.Options{
				Exclude:    excludeList(project.Exclude),
				Workers:    project.Workers,
				Thresholds: &project.Thresholds,
			})
			if err != nil {
				return err
			}

			return listenAndServe(ctx, cfg.Port, srv.Router())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: $PORT or 8080)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel file analyses per request (default: one per CPU)")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "e", nil, "Additional path fragments to skip")

	return cmd
}

// listenAndServe runs the HTTP server until ctx is cancelled, then shuts
// it down gracefully
func listenAndServe(ctx context.Context, port int, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("starting report server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not listen on port %d: %w", port, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
