package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/internal/data"
	"github.com/kelgrand/iptv-deck/internal/proxy"
)

// StreamHandler hands playback off to the relay. Only URLs that are part
// of the current lineup are served, so the relay cannot be used to reach
// arbitrary hosts.
type StreamHandler struct {
	store  *data.Store
	relay  *proxy.Relay
	logger *logrus.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(store *data.Store, relay *proxy.Relay, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{store: store, relay: relay, logger: logger}
}

// ServeHTTP relays the requested stream. The target URL is taken from the
// path after /stream/ and may be percent-encoded or raw.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tail := chi.URLParam(r, "*")
	if tail == "" {
		http.Error(w, "Stream URL required", http.StatusBadRequest)
		return
	}

	var targetURL string
	if strings.Contains(tail, "://") {
		// Raw URL passed straight through by players that do not
		// percent-encode the path.
		targetURL = tail
	} else {
		decoded, err := url.QueryUnescape(tail)
		if err != nil {
			http.Error(w, "Invalid stream URL", http.StatusBadRequest)
			return
		}
		targetURL = decoded
	}

	if !h.store.HasData() {
		http.Error(w, "Channel data not available", http.StatusServiceUnavailable)
		return
	}

	channel, ok := h.store.Lookup(targetURL)
	if !ok {
		http.Error(w, "Unknown stream", http.StatusNotFound)
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"request_id": RequestID(r.Context()),
		"channel":    channel.Title,
	})
	logger.Info("Starting stream")

	err := h.relay.Stream(w, r, channel.URL)
	switch {
	case err == nil:
		logger.Debug("Stream finished")
	case errors.Is(err, context.Canceled):
		logger.Debug("Client disconnected")
	case errors.Is(err, proxy.ErrInternalAddress):
		http.Error(w, "Stream target not allowed", http.StatusForbidden)
	case errors.Is(err, proxy.ErrUnsupportedScheme), errors.Is(err, proxy.ErrMissingHost):
		http.Error(w, "Invalid stream URL", http.StatusBadRequest)
	default:
		logger.WithError(err).Error("Stream failed")
		http.Error(w, "Upstream unavailable", http.StatusBadGateway)
	}
}
