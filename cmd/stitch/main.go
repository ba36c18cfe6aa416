// Command stitch serves previews of the modules stored for each page.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"impractical.co/stitch"
	"impractical.co/stitch/internal/config"
	"impractical.co/stitch/internal/otel"
	"impractical.co/stitch/internal/server"
	"impractical.co/stitch/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "stitch", cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error shutting down tracing", "error", err)
		}
	}()

	info, err := config.LoadSite(cfg.SiteFile)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	siteHandle, closeSite, err := newSite(cfg, info, os.DirFS(cfg.TemplateDir))
	if err != nil {
		return err
	}
	defer closeSite()

	renderer := stitch.NewRenderer(siteHandle, newResolver(cfg, siteHandle),
		stitch.WithConcurrency(cfg.Concurrency),
	)
	handler := server.New(renderer, func(ctx context.Context, pageID string) (stitch.OrderedModuleSource, error) {
		modules, err := st.Modules(ctx, pageID)
		if err != nil {
			return nil, err
		}
		return modules, nil
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
