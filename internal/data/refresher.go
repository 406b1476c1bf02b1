package data

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/kelgrand/iptv-deck/internal/metrics"
	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// Refresher manages periodic lineup refresh cycles in the background.
type Refresher struct {
	store    *Store
	fetcher  *Fetcher
	interval time.Duration
	logger   *logrus.Logger
	onUpdate func([]m3u.Channel)
	sf       singleflight.Group
}

// NewRefresher creates a new refresh manager. onUpdate, if not nil, is called
// with the new lineup after every successful refresh.
func NewRefresher(store *Store, fetcher *Fetcher, interval time.Duration, logger *logrus.Logger, onUpdate func([]m3u.Channel)) *Refresher {
	return &Refresher{
		store:    store,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Start begins the refresh cycle in a goroutine, stopping when the context is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	current := r.interval
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresh manager shutting down")
			return
		case <-ticker.C:
			err := r.Refresh(ctx)
			nextInterval := r.scheduleNextRefresh(err)
			if nextInterval != current {
				// Reset ticker with new interval for backoff
				ticker.Reset(nextInterval)
				current = nextInterval
			}
		}
	}
}

// Refresh performs one refresh cycle. Concurrent calls share a single fetch.
func (r *Refresher) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do("refresh", func() (any, error) {
		return nil, r.refresh(ctx)
	})
	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	r.logger.Info("Starting lineup refresh")

	result, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		metrics.RecordRefresh("error")
		r.logger.WithError(err).Error("Failed to refresh lineup")
		return err
	}

	// Update store only on successful fetch
	r.store.Set(result.Channels, result.Skipped, result.Results)

	metrics.RecordRefresh("success")
	metrics.SetChannelsLoaded(len(result.Channels))
	metrics.ParseSkippedTotal.Add(float64(len(result.Skipped)))

	if r.onUpdate != nil {
		r.onUpdate(result.Channels)
	}

	r.logger.WithFields(logrus.Fields{
		"channels": len(result.Channels),
		"skipped":  len(result.Skipped),
	}).Info("Lineup refresh completed")
	return nil
}

func (r *Refresher) scheduleNextRefresh(lastError error) time.Duration {
	if lastError == nil {
		// Success - use normal interval
		return r.interval
	}

	// Error - implement exponential backoff with max 5 minutes
	backoffDuration := r.interval / 2
	if backoffDuration > 5*time.Minute {
		backoffDuration = 5 * time.Minute
	}

	r.logger.WithField("interval", backoffDuration).Warn("Using backoff interval due to refresh error")
	return backoffDuration
}
