package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bee-finder/api"
	"bee-finder/pkg/config"
	"bee-finder/pkg/storage"
)

const (
	sessionMaxAge     = 2 * time.Hour
	sessionPruneEvery = 10 * time.Minute
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Only the memory backend has no public URLs of its own.
		var media storage.Store
		if a.cfg.Storage.Backend == config.StorageMemory {
			media = a.store
		}
		h := api.NewHandler(a.finder, a.history, media, a.logger)

		srv := &http.Server{
			Addr:              net.JoinHostPort("", a.cfg.Port),
			Handler:           h.Routes(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go pruneSessions(ctx, a)

		return run(ctx, srv, a.logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// run starts the server and blocks until ctx is done, then shuts down gracefully.
func run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	logger = logger.With("component", "server")
	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutdown signal received")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func pruneSessions(ctx context.Context, a *app) {
	ticker := time.NewTicker(sessionPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.finder.Sessions.Prune(sessionMaxAge); n > 0 {
				a.logger.Info("pruned idle sessions", "count", n)
			}
		}
	}
}
