package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"subflick/handlers"
	"subflick/internal/tracing"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Init(runCtx, tracingConfig(cfg), log)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(flushCtx); err != nil {
					log.WithError(err).Warn("failed to flush traces")
				}
			}()

			svc, err := buildServices(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			h := handlers.NewApplicationHandler(svc.orchestrator, svc.gateway, handlers.Status{
				TranscriptionProvider: svc.provider.Name(),
				Pending:               svc.pool.Pending,
			}, log)
			app := handlers.NewApp(h, handlers.AppConfig{
				MaxUploadBytes: cfg.MaxUploadBytes,
				AllowOrigins:   cfg.CORSAllowedOrigins,
			})

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				log.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
				if err := app.Listen(cfg.ListenAddr); err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down HTTP server")
				return app.ShutdownWithTimeout(shutdownTimeout)
			})
			g.Go(func() error {
				return svc.workspaces.Sweep(gctx, cfg.SweepInterval.Duration, cfg.WorkspaceMaxAge.Duration)
			})

			err = g.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.WithFields(logrus.Fields{"pending": svc.pool.Pending()}).Info("server stopped")
			return nil
		},
	}
}
