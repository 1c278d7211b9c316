package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"bee-finder/pkg/config"
	"bee-finder/pkg/database"
	"bee-finder/pkg/finder"
	"bee-finder/pkg/genai"
	"bee-finder/pkg/location"
	"bee-finder/pkg/storage"
	"bee-finder/pkg/weather"
)

// app holds every wired dependency a command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	finder  *finder.Service
	store   storage.Store
	history database.Repository

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig loads configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	gs, err := genai.NewService(ctx, genai.OptionsFromConfig(cfg.GenAI, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to init GenAI: %w", err)
	}

	a.store, err = storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if c, ok := a.store.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	resolver, closeCache, err := buildResolver(ctx, cfg.Location, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	wx := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.UserAgent, cfg.Weather.RequestsPerSecond, logger)

	a.finder = finder.NewService(resolver, wx, gs, a.store, a.history, nil, logger)
	a.finder.UseGCSURIs = cfg.GenAI.Backend == config.BackendVertex && cfg.Storage.Backend == config.StorageGCS
	if prefix := storage.PublicPrefix(cfg.Storage); prefix != "" {
		a.finder.ImageOrigins = []string{prefix}
	}
	return a, nil
}

// openHistory connects to Firestore when history is enabled, else keeps it in memory.
func (a *app) openHistory(ctx context.Context) error {
	if !a.cfg.History.Enabled {
		a.logger.Info("generation history disabled, keeping it in memory")
		a.history = database.NewMemoryRepository()
		return nil
	}
	db, err := database.NewClient(ctx, a.cfg.History.ProjectID, a.cfg.History.DatabaseID, a.logger)
	if err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	a.history = db
	a.closers = append(a.closers, db.Close)
	return nil
}

func buildResolver(ctx context.Context, cfg config.LocationConfig, logger *slog.Logger) (location.Resolver, func() error, error) {
	var base location.Resolver
	switch cfg.Provider {
	case config.ProviderGoogleMaps:
		r, err := location.NewMapsResolver(cfg.GoogleMapsKey, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init maps: %w", err)
		}
		base = r
	default:
		base = location.NewZippopotamResolver(cfg.BaseURL, cfg.RequestsPerSecond, logger)
	}

	cache, closeCache := buildLocationCache(ctx, cfg.ValkeyAddr, logger)
	return location.NewCachedResolver(base, cache, cfg.CacheTTL, logger), closeCache, nil
}

// buildLocationCache prefers Valkey and falls back to memory when it is not reachable.
func buildLocationCache(ctx context.Context, addr string, logger *slog.Logger) (location.Cache, func() error) {
	noop := func() error { return nil }
	if addr == "" {
		return location.NewMemoryCache(), noop
	}

	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		logger.Error("invalid valkey address, falling back to memory cache", "error", err)
		return location.NewMemoryCache(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return location.NewMemoryCache(), noop
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return location.NewMemoryCache(), noop
	}

	logger.Info("location valkey cache enabled", "addr", addr)
	return location.NewValkeyCache(client, ""), func() error {
		client.Close()
		return nil
	}
}
