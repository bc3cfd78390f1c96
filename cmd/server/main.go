// Package main is the entry point for the Lokdhaba dataviz server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lokdhaba/dataviz/internal/api"
	"github.com/lokdhaba/dataviz/internal/cache"
	"github.com/lokdhaba/dataviz/internal/config"
	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/logging"
	"github.com/lokdhaba/dataviz/internal/service"
	"github.com/lokdhaba/dataviz/internal/viz"
	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/palette"
)

func main() {
	// Parse command line flags
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "config/server.yaml", "Path to configuration file")
	port := flags.IntP("port", "p", 0, "Listen port (overrides config)")
	logLevel := flags.String("log-level", "", "Log level (overrides config)")
	flags.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting server", zap.Int("port", cfg.Server.Port))

	colors, err := scaleColors(cfg.Colors)
	if err != nil {
		return err
	}
	palettes, err := loadPalettes(cfg.Palettes, logger)
	if err != nil {
		return err
	}

	// Initialize cache manager (shared across all datasets)
	cacheManager, err := cache.NewManager(cache.Config{
		RawCacheSizeMB: cfg.Cache.RawSizeMB,
		RawTTL:         time.Duration(cfg.Cache.RawTTLMinutes) * time.Minute,
		DatasetEntries: cfg.Cache.DatasetEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheManager.Close()

	datasetIDs := cfg.Data.DatasetIDs()
	sources := make([]dataset.Source, 0, len(datasetIDs))
	for _, id := range datasetIDs {
		ds := cfg.Data.Datasets[id]
		sources = append(sources, dataset.Source{
			ID:           id,
			Path:         ds.Path,
			ElectionType: ds.ElectionType,
			StateName:    ds.StateName,
			AssemblyNo:   ds.AssemblyNo,
			Table:        ds.Table,
		})
		logger.Info("dataset configured",
			zap.String("dataset", id),
			zap.String("path", ds.Path),
			zap.String("election_type", ds.ElectionType),
		)
	}
	logger.Info("datasets initialized",
		zap.Int("count", len(sources)),
		zap.String("default", cfg.Data.DefaultDataset),
	)

	svc := service.NewBundleService(service.BundleServiceConfig{
		Store:    dataset.NewStore(cfg.Data.Dir, sources, cacheManager, logger.Named("dataset")),
		Selector: viz.NewSelector(palettes, colors),
		Logger:   logger.Named("service"),
	})

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    api.NewDatasetRegistry(svc, cfg.Data.DefaultDataset, cfg.Server.Title),
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.Named("http"),
		Cache:       cacheManager,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

func scaleColors(c config.ColorsConfig) (viz.Colors, error) {
	colors := viz.Colors{
		NormalMin: colormap.Hex(c.NormalMin),
		NormalMax: colormap.Hex(c.NormalMax),
		ChangeMin: colormap.Hex(c.ChangeMin),
		ChangeMax: colormap.Hex(c.ChangeMax),
	}
	for _, h := range []colormap.Hex{colors.NormalMin, colors.NormalMax, colors.ChangeMin, colors.ChangeMax} {
		if _, err := colormap.Parse(h); err != nil {
			return viz.Colors{}, fmt.Errorf("colors: %w", err)
		}
	}
	return colors, nil
}

// loadPalettes starts from the embedded palettes and replaces any that the
// config points at a file.
func loadPalettes(c config.PalettesConfig, logger *zap.Logger) (palette.Set, error) {
	set, err := palette.Default()
	if err != nil {
		return palette.Set{}, err
	}
	for _, item := range []struct {
		name string
		path string
		dst  *palette.Palette
	}{
		{"party", c.Party, &set.Party},
		{"gender", c.Gender, &set.Gender},
		{"constituency_type", c.ConstituencyType, &set.ConstituencyType},
	} {
		if item.path == "" {
			continue
		}
		p, err := palette.Load(item.path)
		if err != nil {
			return palette.Set{}, err
		}
		*item.dst = p
		logger.Info("palette loaded", zap.String("palette", item.name), zap.String("path", item.path), zap.Int("entries", len(p)))
	}
	return set, nil
}
