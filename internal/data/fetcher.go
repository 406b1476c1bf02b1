// Package data provides channel lineup storage, fetching and refresh for the
// playlist server.
package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// maxPlaylistSize caps how much of an upstream response is read.
const maxPlaylistSize = 64 << 20

var (
	// ErrUnexpectedStatus is returned when the HTTP response has an unexpected status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrNotPlaylist is returned when fetched content does not look like an M3U playlist.
	ErrNotPlaylist = errors.New("content does not look like an M3U playlist")
	// ErrAllSourcesFailed is returned when no source produced a lineup.
	ErrAllSourcesFailed = errors.New("all playlist sources failed")
)

// Fetcher downloads and parses channel lineups from the configured sources.
// Sources are URLs or local file paths and are fetched concurrently.
type Fetcher struct {
	sources    []string
	client     *http.Client
	cache      *Cache
	logger     *logrus.Logger
	retries    int
	retryDelay time.Duration
}

// SourceResult describes the outcome of fetching a single source.
type SourceResult struct {
	Source    string    `json:"source"`
	Channels  int       `json:"channels"`
	Skipped   int       `json:"skipped"`
	FromCache bool      `json:"from_cache,omitempty"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchResult contains the merged lineup from all sources.
type FetchResult struct {
	Channels []m3u.Channel
	Skipped  []m3u.Skipped
	Results  []SourceResult
}

type sourceOutcome struct {
	channels []m3u.Channel
	skipped  []m3u.Skipped
	result   SourceResult
}

// NewFetcher creates a new fetcher instance. The cache is optional; when set,
// the last good playlist per source is served if the upstream fails.
func NewFetcher(sources []string, cache *Cache, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		sources:    sources,
		client:     &http.Client{Timeout: 60 * time.Second},
		cache:      cache,
		logger:     logger,
		retries:    3,
		retryDelay: 2 * time.Second,
	}
}

// FetchAll fetches every source concurrently and merges the lineups in
// source order. Channels sharing a stream URL are merged first-wins so a
// URL maps to exactly one channel. It fails only when no source produced a
// lineup at all; a partial failure is reported through the per-source
// results instead.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchResult, error) {
	outcomes := make([]sourceOutcome, len(f.sources))

	var wg sync.WaitGroup
	for i, src := range f.sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = f.fetchSource(ctx, src)
		}()
	}
	wg.Wait()

	result := &FetchResult{}
	seen := make(map[string]bool)
	failures := 0
	for _, o := range outcomes {
		for _, ch := range o.channels {
			if seen[ch.URL] {
				continue
			}
			seen[ch.URL] = true
			result.Channels = append(result.Channels, ch)
		}
		result.Skipped = append(result.Skipped, o.skipped...)
		result.Results = append(result.Results, o.result)
		if o.result.Error != "" && !o.result.FromCache {
			failures++
		}
	}

	if failures == len(f.sources) {
		return result, fmt.Errorf("%w: %d of %d", ErrAllSourcesFailed, failures, len(f.sources))
	}

	f.logger.WithFields(logrus.Fields{
		"channels": len(result.Channels),
		"skipped":  len(result.Skipped),
		"sources":  len(f.sources),
	}).Info("Fetched channel lineup")

	return result, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, source string) sourceOutcome {
	raw, err := f.fetchRaw(ctx, source)
	if err != nil {
		f.logger.WithError(err).WithField("source", source).Error("Failed to fetch playlist")

		if f.cache != nil {
			cached, storedAt, cacheErr := f.cache.Get(ctx, source)
			if cacheErr == nil {
				channels, skipped := m3u.Parse(cached)
				f.logger.WithFields(logrus.Fields{
					"source":    source,
					"cached_at": storedAt,
					"channels":  len(channels),
				}).Warn("Serving cached playlist for unreachable source")
				return sourceOutcome{
					channels: channels,
					skipped:  skipped,
					result: SourceResult{
						Source:    source,
						Channels:  len(channels),
						Skipped:   len(skipped),
						FromCache: true,
						Error:     err.Error(),
						FetchedAt: storedAt,
					},
				}
			}
		}

		return sourceOutcome{
			result: SourceResult{
				Source:    source,
				Error:     err.Error(),
				FetchedAt: time.Now(),
			},
		}
	}

	channels, skipped := m3u.Parse(raw)
	for _, sk := range skipped {
		f.logger.WithFields(logrus.Fields{
			"source": source,
			"line":   sk.Line,
			"reason": sk.Reason,
		}).Debug("Dropped playlist entry")
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, source, raw); err != nil {
			f.logger.WithError(err).WithField("source", source).Warn("Failed to cache playlist")
		}
	}

	return sourceOutcome{
		channels: channels,
		skipped:  skipped,
		result: SourceResult{
			Source:    source,
			Channels:  len(channels),
			Skipped:   len(skipped),
			FetchedAt: time.Now(),
		},
	}
}

// fetchRaw retrieves the playlist bytes with retries and doubling delay.
// Content that fetched fine but fails the plausibility check is not retried.
func (f *Fetcher) fetchRaw(ctx context.Context, source string) ([]byte, error) {
	var lastErr error
	delay := f.retryDelay

	for attempt := 1; attempt <= f.retries; attempt++ {
		raw, err := f.fetchOnce(ctx, source)
		if err == nil {
			if err := checkPlaylist(raw); err != nil {
				return nil, err
			}
			return raw, nil
		}

		lastErr = err
		if attempt < f.retries {
			f.logger.WithError(err).WithFields(logrus.Fields{
				"source":  source,
				"attempt": attempt,
			}).Warn("Fetch attempt failed, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", f.retries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, source string) ([]byte, error) {
	if !strings.Contains(source, "://") {
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read playlist file: %w", err)
		}
		return raw, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist body: %w", err)
	}

	return body, nil
}

// checkPlaylist rejects content that cannot be a channel lineup: anything
// without M3U markers, and HLS media playlists, which describe segments of a
// single stream rather than channels.
func checkPlaylist(data []byte) error {
	if !bytes.Contains(data, []byte("#EXTINF")) &&
		!bytes.HasPrefix(bytes.TrimSpace(data), []byte("#EXTM3U")) {
		return ErrNotPlaylist
	}

	if bytes.Contains(data, []byte("#EXT-X-TARGETDURATION")) ||
		bytes.Contains(data, []byte("#EXT-X-MEDIA-SEQUENCE")) {
		return fmt.Errorf("%w: HLS media playlist", ErrNotPlaylist)
	}

	return nil
}
