package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"venturelab/internal/catalog"
	"venturelab/internal/handler"
	"venturelab/internal/hub"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, event stream and catalog watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides server.addr)")
}

// runServe blocks until ctx is cancelled or a component fails, then shuts
// everything down.
func runServe(ctx context.Context) error {
	logger.Info("starting venturelab", zap.String("addr", cfg.Server.Addr))
	for _, line := range strings.Split(cfg.Summary(), "\n") {
		logger.Info(line)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sseHub := hub.New(logger)
	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.NewRouter(a.engine, handler.RouterConfig{
			Events:      sseHub,
			Metrics:     a.metrics.Handler(),
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sseHub.Run(gctx) })
	g.Go(func() error { return sseHub.Forward(gctx, a.engine.Bus()) })

	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		w := catalog.NewWatcher(a.catalog, cfg.Catalog.Path, logger).
			WithDebounce(cfg.Catalog.Debounce.Duration()).
			OnReload(func(err error) {
				a.metrics.CatalogReloaded(err)
				a.engine.CatalogReloaded(err)
			})
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
