package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/y0f/sitecheck/internal/config"
	"github.com/y0f/sitecheck/internal/sitehost"
)

type serveOptions struct {
	root      string
	listen    string
	rateLimit float64
	rateBurst int
	logging   config.LoggingConfig
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{logging: config.Defaults().Logging}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the static site with its production routing rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.root, "root", "public", "site directory to serve")
	f.StringVar(&opts.listen, "listen", "127.0.0.1:8080", "listen address")
	f.Float64Var(&opts.rateLimit, "rate-limit", 0, "requests per second per client, 0 disables")
	f.IntVar(&opts.rateBurst, "rate-burst", 0, "burst size per client (default 2x rate-limit)")
	f.StringVar(&opts.logging.Level, "log-level", opts.logging.Level, "log level: debug, info, warn, error")
	f.StringVar(&opts.logging.Format, "log-format", opts.logging.Format, "log format: text or json")
	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	logger := setupLogger(opts.logging, cmd.ErrOrStderr())

	site, err := sitehost.New(sitehost.Options{
		Root:            opts.root,
		RateLimitPerSec: opts.rateLimit,
		RateLimitBurst:  opts.rateBurst,
		Logger:          logger,
	})
	if err != nil {
		return &exitError{code: exitBadUsage, err: err}
	}
	defer site.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         opts.listen,
		Handler:      site,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "listen", opts.listen, "root", opts.root)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			return &exitError{code: exitFailed, err: err}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
