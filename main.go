// Package main implements the IPTV deck server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/kelgrand/iptv-deck/config"
	"github.com/kelgrand/iptv-deck/handlers"
	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/export"
	"github.com/kelgrand/iptv-deck/internal/favorites"
	"github.com/kelgrand/iptv-deck/internal/proxy"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

func main() {
	// Configure logrus
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level based on config
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	logger := logrus.StandardLogger()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	db, err := bbolt.Open(filepath.Join(cfg.DataDir, "iptv-deck.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}()

	cache, err := data.NewCache(db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize playlist cache")
	}

	favStore, err := newFavoritesStore(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize favorites store")
	}
	defer func() {
		if err := favStore.Close(); err != nil {
			logger.WithError(err).Error("Failed to close favorites store")
		}
	}()

	store := data.NewStore()
	fetcher := data.NewFetcher(cfg.Sources, cache, logger)

	var onUpdate func([]m3u.Channel)
	if cfg.ExportPath != "" {
		exporter := export.NewExporter(cfg.ExportPath, logger)
		onUpdate = func(channels []m3u.Channel) {
			if err := exporter.Write(channels); err != nil {
				logger.WithError(err).Error("Failed to export playlist")
			}
		}
	}

	refresher := data.NewRefresher(store, fetcher, cfg.RefreshInterval, logger, onUpdate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Perform initial data fetch (blocking). A failure is not fatal: the
	// refresher retries with backoff and the API answers 503 until data
	// arrives.
	logger.Info("Fetching initial playlists...")
	if err := refresher.Refresh(ctx); err != nil {
		logger.WithError(err).Error("Initial fetch failed, starting degraded")
	} else {
		logger.Info("Initial playlists loaded successfully")
	}

	// Start background refresh manager
	go refresher.Start(ctx)

	watcher := data.NewWatcher(cfg.Sources, refresher.Refresh, logger)
	if watcher.HasTargets() {
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.WithError(err).Error("Playlist file watcher stopped")
			}
		}()
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:     store,
		Favorites: favStore,
		Refresher: refresher,
		Relay:     proxy.NewRelay(cfg.AllowPrivateStreams, logger),
		BaseURL:   cfg.BaseURL,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: relayed streams stay open until the client
		// disconnects.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to gracefully shutdown")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Starting IPTV deck server")
	logger.WithField("endpoint", fmt.Sprintf("%s/playlist.m3u", cfg.BaseURL)).Info("Playlist endpoint")
	logger.WithField("endpoint", fmt.Sprintf("%s/api/channels", cfg.BaseURL)).Info("Channel API endpoint")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Failed to start server")
	}

	logger.Info("Server stopped")
}

// newFavoritesStore selects the favorites backend. Redis is used when a
// URL is configured so favorites can be shared between instances, bolt
// otherwise.
func newFavoritesStore(cfg *config.Config, db *bbolt.DB, logger *logrus.Logger) (favorites.Store, error) {
	if cfg.RedisURL != "" {
		logger.WithField("namespace", cfg.Namespace).Info("Using Redis favorites backend")
		return favorites.NewRedisStore(cfg.RedisURL, cfg.Namespace)
	}

	logger.WithField("namespace", cfg.Namespace).Info("Using embedded favorites backend")
	return favorites.NewBoltStore(db, cfg.Namespace)
}
