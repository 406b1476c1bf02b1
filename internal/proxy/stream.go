// Package proxy provides HTTP stream relaying for playlist channels.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/metrics"
)

var (
	// ErrUnsupportedScheme is returned when the URL scheme is not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrMissingHost is returned when the URL has no host.
	ErrMissingHost = errors.New("missing host in URL")
	// ErrInternalAddress is returned when trying to relay to internal addresses.
	ErrInternalAddress = errors.New("cannot relay to internal addresses")
)

// hopHeaders are HTTP headers that should not be forwarded when relaying.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// Relay proxies channel streams from their upstream to clients.
type Relay struct {
	client       *http.Client
	allowPrivate bool
	logger       *logrus.Logger
}

// NewRelay creates a stream relay. allowPrivate disables the internal
// address guard for setups whose upstreams live on the local network.
func NewRelay(allowPrivate bool, logger *logrus.Logger) *Relay {
	return &Relay{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// No client timeout: live streams are open-ended and are
			// cancelled through the request context instead.
		},
		allowPrivate: allowPrivate,
		logger:       logger,
	}
}

// Stream relays the target URL to the client. It validates the target,
// copies headers both ways, and streams the response body until the client
// disconnects or the upstream ends.
func (p *Relay) Stream(w http.ResponseWriter, r *http.Request, targetURL string) error {
	if err := p.validateTarget(targetURL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, targetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	copyHeaders(req.Header, r.Header)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "iptv-deck/1.0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	copyHeaders(w.Header(), resp.Header)
	if w.Header().Get("Content-Type") == "" {
		if ct := contentTypeHint(targetURL); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
	}
	w.WriteHeader(resp.StatusCode)

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	p.logger.WithFields(logrus.Fields{
		"url":    targetURL,
		"client": r.RemoteAddr,
	}).Debug("Relaying stream")

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		defer close(done)
		n, _ := io.Copy(w, resp.Body)
		metrics.StreamBytesTotal.Add(float64(n))
		p.logger.WithFields(logrus.Fields{
			"url":   targetURL,
			"bytes": n,
		}).Debug("Stream copy finished")
	}()

	select {
	case <-ctx.Done():
		// Closing the body unblocks the copy; wait for it so nothing
		// touches the ResponseWriter after this handler returns.
		_ = resp.Body.Close()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Relay) validateTarget(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return ErrMissingHost
	}

	if p.allowPrivate {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return ErrInternalAddress
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return ErrInternalAddress
		}
	}

	return nil
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		skip := false
		for _, h := range hopHeaders {
			if strings.EqualFold(k, h) {
				skip = true
				break
			}
		}
		if !skip {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}

// contentTypeHint guesses a media content type from the URL path so players
// that rely on the header still work when the upstream omits it.
func contentTypeHint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	}
	return ""
}
